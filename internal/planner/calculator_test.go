package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subiekt-planner/backend/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testProduct(id int64, sku string, supplierID int64, stock map[int64]domain.StockLevel) domain.Product {
	return domain.Product{
		ID:            id,
		SKU:           sku,
		Name:          "Product " + sku,
		SupplierID:    int64Ptr(supplierID),
		StockByBranch: stock,
	}
}

func TestCalculate_CoverageShortfall(t *testing.T) {
	now := date(2025, 10, 1)
	product := testProduct(1, "ELE-001", 10, map[int64]domain.StockLevel{
		100: {ProductID: 1, BranchID: 100, Quantity: 10, Reserved: 2},
	})

	// 15 units over a 30-day window, as three separate line items.
	sales := []domain.Sale{
		{ProductID: 1, BranchID: 100, Date: date(2025, 9, 5), Quantity: 5},
		{ProductID: 1, BranchID: 100, Date: date(2025, 9, 15), Quantity: 5},
		{ProductID: 1, BranchID: 100, Date: date(2025, 9, 25), Quantity: 5},
	}

	params := Params{
		SupplierIDs:    []int64{10},
		BranchIDs:      []int64{100},
		DaysOfCoverage: 30,
		LookbackDays:   30,
		IncludeReturns: true,
	}

	rows := NewCalculator().Calculate([]domain.Product{product}, sales, params, now)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, int64(8), row.CurrentStock)
	assert.Equal(t, int64(15), row.TotalSold)
	assert.InDelta(t, 0.5, row.AvgDailySales, 1e-9)
	assert.Equal(t, int64(15), row.NeededForPeriod)
	assert.Equal(t, int64(7), row.ToOrder)
}

func TestCalculate_NoSalesNeverOrders(t *testing.T) {
	now := date(2025, 10, 1)
	product := testProduct(1, "ELE-001", 10, map[int64]domain.StockLevel{
		100: {ProductID: 1, BranchID: 100, Quantity: 10, Reserved: 2},
	})

	params := Params{
		SupplierIDs:    []int64{10},
		BranchIDs:      []int64{100},
		DaysOfCoverage: 30,
		LookbackDays:   30,
		IncludeReturns: true,
	}

	rows := NewCalculator().Calculate([]domain.Product{product}, nil, params, now)
	require.Len(t, rows, 1)

	assert.Zero(t, rows[0].TotalSold)
	assert.Zero(t, rows[0].AvgDailySales)
	assert.Zero(t, rows[0].NeededForPeriod)
	assert.Zero(t, rows[0].ToOrder)
}

func TestCalculate_OverReservedBranchContributesZero(t *testing.T) {
	now := date(2025, 10, 1)
	// Reserved exceeds physical at branch 100; branch 200 is empty. The
	// over-reserved branch must clamp to zero instead of dragging the
	// total negative.
	product := testProduct(1, "ELE-001", 10, map[int64]domain.StockLevel{
		100: {ProductID: 1, BranchID: 100, Quantity: 3, Reserved: 8},
		200: {ProductID: 1, BranchID: 200, Quantity: 0, Reserved: 0},
	})

	params := Params{
		SupplierIDs:    []int64{10},
		BranchIDs:      []int64{100, 200},
		DaysOfCoverage: 14,
		LookbackDays:   30,
		IncludeReturns: true,
	}

	rows := NewCalculator().Calculate([]domain.Product{product}, nil, params, now)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(0), rows[0].CurrentStock)
}

func TestCalculate_EmptySupplierSelectionYieldsEmptyPlan(t *testing.T) {
	now := date(2025, 10, 1)
	product := testProduct(1, "ELE-001", 10, nil)

	params := Params{
		SupplierIDs:    nil,
		BranchIDs:      []int64{100},
		DaysOfCoverage: 30,
		LookbackDays:   30,
	}

	rows := NewCalculator().Calculate([]domain.Product{product}, nil, params, now)
	assert.Empty(t, rows)
}

func TestCalculate_FiltersToSelectedSuppliers(t *testing.T) {
	now := date(2025, 10, 1)
	products := []domain.Product{
		testProduct(1, "A-001", 10, nil),
		testProduct(2, "B-001", 20, nil),
		{ID: 3, SKU: "C-001", Name: "No supplier"},
	}

	params := Params{
		SupplierIDs:    []int64{10},
		BranchIDs:      []int64{100},
		DaysOfCoverage: 30,
		LookbackDays:   30,
	}

	rows := NewCalculator().Calculate(products, nil, params, now)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ProductID)
}

func TestCalculate_SalesOutsideWindowOrBranchIgnored(t *testing.T) {
	now := date(2025, 10, 1)
	product := testProduct(1, "ELE-001", 10, nil)

	sales := []domain.Sale{
		{ProductID: 1, BranchID: 100, Date: date(2025, 8, 20), Quantity: 50}, // before window
		{ProductID: 1, BranchID: 999, Date: date(2025, 9, 15), Quantity: 50}, // other branch
		{ProductID: 1, BranchID: 100, Date: date(2025, 9, 15), Quantity: 6},
	}

	params := Params{
		SupplierIDs:    []int64{10},
		BranchIDs:      []int64{100},
		DaysOfCoverage: 10,
		AnalysisStart:  date(2025, 9, 1),
		IncludeReturns: true,
	}

	rows := NewCalculator().Calculate([]domain.Product{product}, sales, params, now)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(6), rows[0].TotalSold)
}

func TestCalculate_WindowBoundsInclusive(t *testing.T) {
	start := date(2025, 9, 1)
	end := date(2025, 9, 30)
	product := testProduct(1, "ELE-001", 10, nil)

	sales := []domain.Sale{
		{ProductID: 1, BranchID: 100, Date: start, Quantity: 2},
		{ProductID: 1, BranchID: 100, Date: end, Quantity: 3},
	}

	params := Params{
		SupplierIDs:    []int64{10},
		BranchIDs:      []int64{100},
		DaysOfCoverage: 10,
		AnalysisStart:  start,
		AnalysisEnd:    &end,
		IncludeReturns: true,
	}

	rows := NewCalculator().Calculate([]domain.Product{product}, sales, params, end)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(5), rows[0].TotalSold)
}

func TestCalculate_SingleDayWindowDividesByOne(t *testing.T) {
	day := date(2025, 9, 15)
	product := testProduct(1, "ELE-001", 10, nil)

	sales := []domain.Sale{
		{ProductID: 1, BranchID: 100, Date: day, Quantity: 4},
	}

	params := Params{
		SupplierIDs:    []int64{10},
		BranchIDs:      []int64{100},
		DaysOfCoverage: 3,
		AnalysisStart:  day,
		AnalysisEnd:    &day,
		IncludeReturns: true,
	}

	rows := NewCalculator().Calculate([]domain.Product{product}, sales, params, day)
	require.Len(t, rows, 1)
	assert.InDelta(t, 4.0, rows[0].AvgDailySales, 1e-9)
	assert.Equal(t, int64(12), rows[0].NeededForPeriod)
}

func TestCalculate_ReturnsPolicy(t *testing.T) {
	now := date(2025, 10, 1)
	product := testProduct(1, "ELE-001", 10, nil)

	sales := []domain.Sale{
		{ProductID: 1, BranchID: 100, Date: date(2025, 9, 10), Quantity: 10},
		{ProductID: 1, BranchID: 100, Date: date(2025, 9, 12), Quantity: -4},
	}

	params := Params{
		SupplierIDs:    []int64{10},
		BranchIDs:      []int64{100},
		DaysOfCoverage: 30,
		LookbackDays:   30,
		IncludeReturns: true,
	}

	rows := NewCalculator().Calculate([]domain.Product{product}, sales, params, now)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(6), rows[0].TotalSold)

	params.IncludeReturns = false
	rows = NewCalculator().Calculate([]domain.Product{product}, sales, params, now)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(10), rows[0].TotalSold)
}

func TestCalculate_NegativeDemandClampsToOrder(t *testing.T) {
	now := date(2025, 10, 1)
	product := testProduct(1, "ELE-001", 10, nil)

	// Net demand is negative; ceil of a negative average must not
	// surface as a negative order.
	sales := []domain.Sale{
		{ProductID: 1, BranchID: 100, Date: date(2025, 9, 10), Quantity: -9},
	}

	params := Params{
		SupplierIDs:    []int64{10},
		BranchIDs:      []int64{100},
		DaysOfCoverage: 30,
		LookbackDays:   30,
		IncludeReturns: true,
	}

	rows := NewCalculator().Calculate([]domain.Product{product}, sales, params, now)
	require.Len(t, rows, 1)
	assert.GreaterOrEqual(t, rows[0].ToOrder, int64(0))
}

func TestCalculate_NoStockRowStillOrdersAgainstDemand(t *testing.T) {
	now := date(2025, 10, 1)
	product := testProduct(1, "ELE-001", 10, nil)

	sales := []domain.Sale{
		{ProductID: 1, BranchID: 100, Date: date(2025, 9, 10), Quantity: 30},
	}

	params := Params{
		SupplierIDs:    []int64{10},
		BranchIDs:      []int64{100},
		DaysOfCoverage: 30,
		LookbackDays:   30,
		IncludeReturns: true,
	}

	rows := NewCalculator().Calculate([]domain.Product{product}, sales, params, now)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(0), rows[0].CurrentStock)
	assert.Equal(t, int64(30), rows[0].NeededForPeriod)
	assert.Equal(t, int64(30), rows[0].ToOrder)
}

func TestCalculate_Deterministic(t *testing.T) {
	now := date(2025, 10, 1)
	products := []domain.Product{
		testProduct(1, "A-001", 10, map[int64]domain.StockLevel{
			100: {ProductID: 1, BranchID: 100, Quantity: 7, Reserved: 1},
		}),
		testProduct(2, "A-002", 10, nil),
	}
	sales := []domain.Sale{
		{ProductID: 1, BranchID: 100, Date: date(2025, 9, 3), Quantity: 9},
		{ProductID: 2, BranchID: 100, Date: date(2025, 9, 7), Quantity: 4},
	}

	params := Params{
		SupplierIDs:    []int64{10},
		BranchIDs:      []int64{100},
		DaysOfCoverage: 21,
		LookbackDays:   60,
		IncludeReturns: true,
	}

	calc := NewCalculator()
	first := calc.Calculate(products, sales, params, now)
	second := calc.Calculate(products, sales, params, now)
	assert.Equal(t, first, second)
}

func TestCalculate_ManySalesAggregatedPerProduct(t *testing.T) {
	now := date(2025, 10, 1)
	product := testProduct(1, "ELE-001", 10, nil)

	// Many small line items on the same days must sum, whether or not
	// the feed pre-aggregated them.
	sales := make([]domain.Sale, 0, 300)
	for i := 0; i < 300; i++ {
		sales = append(sales, domain.Sale{
			ProductID: 1,
			BranchID:  100,
			Date:      date(2025, 9, 1+i%28),
			Quantity:  1,
		})
	}

	params := Params{
		SupplierIDs:    []int64{10},
		BranchIDs:      []int64{100},
		DaysOfCoverage: 30,
		LookbackDays:   30,
		IncludeReturns: true,
	}

	rows := NewCalculator().Calculate([]domain.Product{product}, sales, params, now)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(300), rows[0].TotalSold)
}

func TestSortByToOrder(t *testing.T) {
	rows := []Row{
		{SKU: "B", ToOrder: 5},
		{SKU: "A", ToOrder: 12},
		{SKU: "C", ToOrder: 5},
	}

	SortByToOrder(rows)

	assert.Equal(t, "A", rows[0].SKU)
	assert.Equal(t, "B", rows[1].SKU)
	assert.Equal(t, "C", rows[2].SKU)
}

func TestParamsValidate(t *testing.T) {
	valid := Params{
		SupplierIDs:    []int64{1},
		BranchIDs:      []int64{100},
		DaysOfCoverage: 30,
		LookbackDays:   90,
	}
	assert.NoError(t, valid.Validate())

	noCoverage := valid
	noCoverage.DaysOfCoverage = 0
	assert.ErrorIs(t, noCoverage.Validate(), ErrCoverageTooShort)

	noBranches := valid
	noBranches.BranchIDs = nil
	assert.ErrorIs(t, noBranches.Validate(), ErrNoBranches)

	noWindow := valid
	noWindow.LookbackDays = 0
	assert.ErrorIs(t, noWindow.Validate(), ErrNoWindow)

	// Empty supplier selection is not a validation error.
	noSuppliers := valid
	noSuppliers.SupplierIDs = nil
	assert.NoError(t, noSuppliers.Validate())
}

func TestResolveWindow(t *testing.T) {
	now := date(2025, 10, 1)

	lookback := Params{LookbackDays: 30}
	win := lookback.ResolveWindow(now)
	assert.Equal(t, date(2025, 9, 1), win.Start)
	assert.Equal(t, now, win.End)
	assert.Equal(t, 30, win.Days)

	end := date(2025, 9, 20)
	explicit := Params{AnalysisStart: date(2025, 9, 15), AnalysisEnd: &end}
	win = explicit.ResolveWindow(now)
	assert.Equal(t, 5, win.Days)

	sameDay := Params{AnalysisStart: end, AnalysisEnd: &end}
	assert.Equal(t, 1, sameDay.ResolveWindow(now).Days)

	// Partial days round up.
	partialEnd := date(2025, 9, 20).Add(6 * time.Hour)
	partial := Params{AnalysisStart: date(2025, 9, 15), AnalysisEnd: &partialEnd}
	assert.Equal(t, 6, partial.ResolveWindow(now).Days)
}
