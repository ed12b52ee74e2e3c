package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/subiekt-planner/backend/internal/config"
	"github.com/subiekt-planner/backend/internal/export"
	"github.com/subiekt-planner/backend/internal/planner"
	"github.com/subiekt-planner/backend/internal/service"
	"github.com/subiekt-planner/backend/internal/storage"
)

const dateLayout = "2006-01-02"

// planRequest mirrors the frontend's plan form. Dates arrive as plain
// YYYY-MM-DD strings; missing knobs fall back to configured defaults.
type planRequest struct {
	SupplierIDs    []int64 `json:"supplierIds"`
	BranchIDs      []int64 `json:"branchIds"`
	DaysOfCoverage int     `json:"daysOfCoverage"`
	AnalysisStart  string  `json:"analysisStart"`
	AnalysisEnd    string  `json:"analysisEnd"`
	LookbackDays   int     `json:"lookbackDays"`
	IncludeReturns *bool   `json:"includeReturns"`
	Enrich         *bool   `json:"enrich"`
}

type PlanHandler struct {
	service  *service.PlanService
	defaults config.PlanConfig
	archiver storage.Archiver
}

func NewPlanHandler(service *service.PlanService, defaults config.PlanConfig, archiver storage.Archiver) *PlanHandler {
	return &PlanHandler{service: service, defaults: defaults, archiver: archiver}
}

func (r planRequest) toParams(defaults config.PlanConfig) (planner.Params, bool, error) {
	params := planner.Params{
		SupplierIDs:    r.SupplierIDs,
		BranchIDs:      r.BranchIDs,
		DaysOfCoverage: r.DaysOfCoverage,
		LookbackDays:   r.LookbackDays,
		IncludeReturns: defaults.IncludeReturns,
	}

	if params.DaysOfCoverage == 0 {
		params.DaysOfCoverage = defaults.DefaultCoverage
	}
	if r.IncludeReturns != nil {
		params.IncludeReturns = *r.IncludeReturns
	}

	if r.AnalysisStart != "" {
		start, err := time.Parse(dateLayout, r.AnalysisStart)
		if err != nil {
			return params, false, fmt.Errorf("analysisStart: %w", err)
		}
		params.AnalysisStart = start
	} else if params.LookbackDays == 0 {
		params.LookbackDays = defaults.DefaultLookback
	}

	if r.AnalysisEnd != "" {
		end, err := time.Parse(dateLayout, r.AnalysisEnd)
		if err != nil {
			return params, false, fmt.Errorf("analysisEnd: %w", err)
		}
		params.AnalysisEnd = &end
	}

	enrich := true
	if r.Enrich != nil {
		enrich = *r.Enrich
	}

	return params, enrich, nil
}

// BuildPlan computes reorder recommendations for the posted selection.
func (h *PlanHandler) BuildPlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	params, enrich, err := req.toParams(h.defaults)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.service.BuildPlan(c.Request.Context(), params, enrich)
	if err != nil {
		if isValidationErr(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build plan", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rows":  rows,
		"count": len(rows),
	})
}

// ExportPlan streams the plan as a CSV or PDF download. Query params
// mirror the JSON body of BuildPlan, with id lists comma-separated.
func (h *PlanHandler) ExportPlan(c *gin.Context) {
	req := planRequest{
		SupplierIDs: parseInt64List(c.Query("supplierIds")),
		BranchIDs:   parseInt64List(c.Query("branchIds")),
	}
	req.DaysOfCoverage, _ = strconv.Atoi(c.Query("daysOfCoverage"))
	req.LookbackDays, _ = strconv.Atoi(c.Query("lookbackDays"))
	req.AnalysisStart = strings.TrimSpace(c.Query("analysisStart"))
	req.AnalysisEnd = strings.TrimSpace(c.Query("analysisEnd"))
	if v := c.Query("includeReturns"); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			req.IncludeReturns = &b
		}
	}

	params, _, err := req.toParams(h.defaults)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, err := h.service.BuildPlan(c.Request.Context(), params, true)
	if err != nil {
		if isValidationErr(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build plan", "details": err.Error()})
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	now := time.Now()

	var buf bytes.Buffer
	var contentType string
	switch format {
	case "csv":
		contentType = "text/csv"
		err = export.WriteCSV(&buf, rows)
	case "pdf":
		contentType = "application/pdf"
		err = export.WritePDF(&buf, rows, now)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format", "format": format})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render export", "details": err.Error()})
		return
	}

	filename := fmt.Sprintf("stock-plan-%s.%s", now.Format(dateLayout), format)
	h.archive(filename, contentType, buf.Bytes())

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// archive uploads a copy of the export in the background. The download
// response never waits on object storage.
func (h *PlanHandler) archive(filename, contentType string, data []byte) {
	if h.archiver == nil {
		return
	}

	key := fmt.Sprintf("%s/%s-%s", time.Now().Format(dateLayout), uuid.NewString(), filename)
	payload := make([]byte, len(data))
	copy(payload, data)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.archiver.Store(ctx, key, contentType, payload); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to archive export")
		}
	}()
}

func isValidationErr(err error) bool {
	return errors.Is(err, planner.ErrCoverageTooShort) ||
		errors.Is(err, planner.ErrNoBranches) ||
		errors.Is(err, planner.ErrNoWindow)
}

func parseInt64List(value string) []int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	result := make([]int64, 0, len(parts))
	for _, part := range parts {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			result = append(result, id)
		}
	}
	return result
}
