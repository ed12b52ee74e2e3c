package planner

import (
	"errors"
	"math"
	"time"
)

var (
	ErrCoverageTooShort = errors.New("days of coverage must be at least 1")
	ErrNoBranches       = errors.New("at least one branch must be selected")
	ErrNoWindow         = errors.New("analysis window requires a start date or a lookback")
)

// Params selects what the plan is computed over. An empty supplier set
// is valid and yields an empty plan; it is deliberately not treated as
// "all suppliers".
type Params struct {
	SupplierIDs    []int64    `json:"supplierIds"`
	BranchIDs      []int64    `json:"branchIds"`
	DaysOfCoverage int        `json:"daysOfCoverage"`
	AnalysisStart  time.Time  `json:"analysisStart"`
	AnalysisEnd    *time.Time `json:"analysisEnd,omitempty"`
	// LookbackDays defines the window relative to the end when no
	// explicit start date is given.
	LookbackDays int `json:"lookbackDays,omitempty"`
	// IncludeReturns keeps negative "return" rows in the demand sum.
	IncludeReturns bool `json:"includeReturns"`
}

// Validate checks caller-side constraints. The calculator itself never
// fails; anything that passes here produces a (possibly empty) plan.
func (p Params) Validate() error {
	if p.DaysOfCoverage < 1 {
		return ErrCoverageTooShort
	}
	if len(p.BranchIDs) == 0 {
		return ErrNoBranches
	}
	if p.AnalysisStart.IsZero() && p.LookbackDays < 1 {
		return ErrNoWindow
	}
	return nil
}

// Window is the resolved analysis period. Days is the divisor for the
// daily average and is always at least 1, even for a same-day window.
type Window struct {
	Start time.Time
	End   time.Time
	Days  int
}

// ResolveWindow turns the params into a concrete [start, end] range.
// The end defaults to now when omitted. The day count is the range
// length rounded up to whole days, floored at one day.
func (p Params) ResolveWindow(now time.Time) Window {
	end := now
	if p.AnalysisEnd != nil {
		end = *p.AnalysisEnd
	}

	start := p.AnalysisStart
	if start.IsZero() {
		start = end.AddDate(0, 0, -p.LookbackDays)
	}

	days := int(math.Ceil(end.Sub(start).Hours() / 24))
	if days < 1 {
		days = 1
	}

	return Window{Start: start, End: end, Days: days}
}
