package planner

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/subiekt-planner/backend/internal/domain"
)

// Row is one per-product reorder recommendation. Field names follow the
// wire contract the frontend and connector already speak.
type Row struct {
	ProductID       int64   `json:"productId"`
	SKU             string  `json:"sku"`
	Name            string  `json:"name"`
	SupplierID      int64   `json:"supplierId"`
	CurrentStock    int64   `json:"currentStock"`
	TotalSold       int64   `json:"totalSold"`
	AvgDailySales   float64 `json:"avgDailySales"`
	NeededForPeriod int64   `json:"neededForPeriod"`
	ToOrder         int64   `json:"toOrder"`
}

// Calculator computes reorder recommendations. It is a pure function
// over its inputs: no I/O, no retained state, safe for concurrent use.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate produces one row per product belonging to the selected
// suppliers. See Params for the selection and window semantics.
//
// Sales are aggregated in a single pass keyed by product id before the
// per-product loop; with hundreds of thousands of sale rows the naive
// re-filter per product is quadratic and unusable.
func (c *Calculator) Calculate(products []domain.Product, sales []domain.Sale, p Params, now time.Time) []Row {
	if len(p.SupplierIDs) == 0 {
		return []Row{}
	}

	win := p.ResolveWindow(now)

	supplierSet := make(map[int64]struct{}, len(p.SupplierIDs))
	for _, id := range p.SupplierIDs {
		supplierSet[id] = struct{}{}
	}
	branchSet := make(map[int64]struct{}, len(p.BranchIDs))
	for _, id := range p.BranchIDs {
		branchSet[id] = struct{}{}
	}

	// One pass over all sales: keep only selected branches and dates
	// inside the inclusive window, summed per product. Duplicate line
	// items for the same product/branch/day collapse here naturally.
	soldByProduct := make(map[int64]int64)
	for _, s := range sales {
		if _, ok := branchSet[s.BranchID]; !ok {
			continue
		}
		if s.Date.Before(win.Start) || s.Date.After(win.End) {
			continue
		}
		if !p.IncludeReturns && s.Quantity < 0 {
			continue
		}
		soldByProduct[s.ProductID] += s.Quantity
	}

	days := decimal.NewFromInt(int64(win.Days))
	coverage := decimal.NewFromInt(int64(p.DaysOfCoverage))

	rows := make([]Row, 0, len(products))
	for _, product := range products {
		if product.SupplierID == nil {
			continue
		}
		if _, ok := supplierSet[*product.SupplierID]; !ok {
			continue
		}

		var currentStock int64
		for branchID := range branchSet {
			if level, ok := product.StockByBranch[branchID]; ok {
				currentStock += level.Available()
			}
		}

		totalSold := soldByProduct[product.ID]

		avg := decimal.NewFromInt(totalSold).Div(days)
		needed := avg.Mul(coverage).Ceil().IntPart()

		toOrder := needed - currentStock
		if toOrder < 0 {
			toOrder = 0
		}

		rows = append(rows, Row{
			ProductID:       product.ID,
			SKU:             product.SKU,
			Name:            product.Name,
			SupplierID:      *product.SupplierID,
			CurrentStock:    currentStock,
			TotalSold:       totalSold,
			AvgDailySales:   avg.InexactFloat64(),
			NeededForPeriod: needed,
			ToOrder:         toOrder,
		})
	}

	return rows
}

// SortByToOrder orders rows by units to order, highest first. Ties fall
// back to SKU so repeated runs render identically.
func SortByToOrder(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ToOrder != rows[j].ToOrder {
			return rows[i].ToOrder > rows[j].ToOrder
		}
		return rows[i].SKU < rows[j].SKU
	})
}
