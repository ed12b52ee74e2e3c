package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subiekt-planner/backend/internal/domain"
	"github.com/subiekt-planner/backend/internal/planner"
)

type fakePlanRepo struct {
	suppliers []domain.Supplier
	products  []domain.Product
	sales     []domain.Sale
	offers    []domain.SupplierOffer

	salesCalls  int
	offersCalls int
	lastStart   time.Time
	lastEnd     time.Time
}

func (f *fakePlanRepo) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return f.suppliers, nil
}

func (f *fakePlanRepo) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	return nil, nil
}

func (f *fakePlanRepo) ListProductsWithStock(ctx context.Context) ([]domain.Product, error) {
	return f.products, nil
}

func (f *fakePlanRepo) ListSalesBetween(ctx context.Context, start, end time.Time) ([]domain.Sale, error) {
	f.salesCalls++
	f.lastStart = start
	f.lastEnd = end
	return f.sales, nil
}

func (f *fakePlanRepo) ListOffers(ctx context.Context, productIDs []int64) ([]domain.SupplierOffer, error) {
	f.offersCalls++
	return f.offers, nil
}

func (f *fakePlanRepo) Stats(ctx context.Context) (domain.Stats, error) {
	return domain.Stats{}, nil
}

func int64Ptr(v int64) *int64 { return &v }

func plannerFixture() *fakePlanRepo {
	return &fakePlanRepo{
		suppliers: []domain.Supplier{
			{ID: 7, Name: "Hurtownia A"},
			{ID: 8, Name: "Hurtownia B"},
		},
		products: []domain.Product{
			{
				ID: 1, SKU: "SKU-1", Name: "Widget", SupplierID: int64Ptr(7),
				StockByBranch: map[int64]domain.StockLevel{
					10: {ProductID: 1, BranchID: 10, Quantity: 10, Reserved: 2},
				},
			},
			{
				ID: 2, SKU: "SKU-2", Name: "Gadget", SupplierID: int64Ptr(7),
				StockByBranch: map[int64]domain.StockLevel{
					10: {ProductID: 2, BranchID: 10, Quantity: 100, Reserved: 0},
				},
			},
		},
		sales: []domain.Sale{
			{ProductID: 1, BranchID: 10, Date: time.Now().AddDate(0, 0, -5), Quantity: 15},
		},
		offers: []domain.SupplierOffer{
			{ProductID: 1, SupplierID: 7, Priority: 1},
			{ProductID: 1, SupplierID: 8, Priority: 2, Fallback: true},
		},
	}
}

func TestBuildPlan_Validation(t *testing.T) {
	svc := NewPlanService(&fakePlanRepo{}, nil)

	_, err := svc.BuildPlan(context.Background(), planner.Params{
		SupplierIDs:    []int64{7},
		BranchIDs:      []int64{10},
		DaysOfCoverage: 0,
		LookbackDays:   30,
	}, false)
	assert.ErrorIs(t, err, planner.ErrCoverageTooShort)

	_, err = svc.BuildPlan(context.Background(), planner.Params{
		SupplierIDs:    []int64{7},
		DaysOfCoverage: 30,
		LookbackDays:   30,
	}, false)
	assert.ErrorIs(t, err, planner.ErrNoBranches)

	_, err = svc.BuildPlan(context.Background(), planner.Params{
		SupplierIDs:    []int64{7},
		BranchIDs:      []int64{10},
		DaysOfCoverage: 30,
	}, false)
	assert.ErrorIs(t, err, planner.ErrNoWindow)
}

func TestBuildPlan_SortedByToOrder(t *testing.T) {
	repo := plannerFixture()
	svc := NewPlanService(repo, nil)

	rows, err := svc.BuildPlan(context.Background(), planner.Params{
		SupplierIDs:    []int64{7},
		BranchIDs:      []int64{10},
		DaysOfCoverage: 30,
		LookbackDays:   30,
	}, false)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// The product with demand and little stock must come first.
	assert.Equal(t, int64(1), rows[0].ProductID)
	assert.Greater(t, rows[0].ToOrder, rows[1].ToOrder)

	// Bare rows carry no supplier annotations.
	assert.Nil(t, rows[0].PrimarySupplierID)
	assert.Zero(t, repo.offersCalls)
}

func TestBuildPlan_LookbackWindowPassedToRepo(t *testing.T) {
	repo := plannerFixture()
	svc := NewPlanService(repo, nil)

	_, err := svc.BuildPlan(context.Background(), planner.Params{
		SupplierIDs:    []int64{7},
		BranchIDs:      []int64{10},
		DaysOfCoverage: 30,
		LookbackDays:   30,
	}, false)
	require.NoError(t, err)

	require.Equal(t, 1, repo.salesCalls)
	gap := repo.lastEnd.Sub(repo.lastStart)
	assert.InDelta(t, 30*24, gap.Hours(), 1)
}

func TestBuildPlan_Enriched(t *testing.T) {
	repo := plannerFixture()
	svc := NewPlanService(repo, nil)

	rows, err := svc.BuildPlan(context.Background(), planner.Params{
		SupplierIDs:    []int64{7},
		BranchIDs:      []int64{10},
		DaysOfCoverage: 30,
		LookbackDays:   30,
	}, true)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, 1, repo.offersCalls)

	var widget *planner.EnrichedRow
	for i := range rows {
		if rows[i].ProductID == 1 {
			widget = &rows[i]
		}
	}
	require.NotNil(t, widget)

	require.NotNil(t, widget.PrimarySupplierID)
	assert.Equal(t, int64(7), *widget.PrimarySupplierID)
	assert.Equal(t, "Hurtownia A", widget.PrimarySupplierName)
	assert.True(t, widget.HasFallback)
	assert.Equal(t, []int64{8}, widget.FallbackSupplierIDs)
}

// memPlanCache mirrors the real cache's keying: params plus the
// enrichment flag.
type memPlanCache struct {
	entries map[string][]planner.EnrichedRow
	hits    int
}

func newMemPlanCache() *memPlanCache {
	return &memPlanCache{entries: map[string][]planner.EnrichedRow{}}
}

func (m *memPlanCache) key(params planner.Params, enrich bool) string {
	payload, _ := json.Marshal(struct {
		Params planner.Params `json:"params"`
		Enrich bool           `json:"enrich"`
	}{params, enrich})
	return string(payload)
}

func (m *memPlanCache) GetPlan(_ context.Context, params planner.Params, enrich bool) ([]planner.EnrichedRow, bool, error) {
	rows, ok := m.entries[m.key(params, enrich)]
	if ok {
		m.hits++
	}
	return rows, ok, nil
}

func (m *memPlanCache) SetPlan(_ context.Context, params planner.Params, enrich bool, rows []planner.EnrichedRow) error {
	m.entries[m.key(params, enrich)] = rows
	return nil
}

func (m *memPlanCache) InvalidatePlans(context.Context) error {
	m.entries = map[string][]planner.EnrichedRow{}
	return nil
}

func TestBuildPlan_RepeatedRequestHitsCache(t *testing.T) {
	repo := plannerFixture()
	planCache := newMemPlanCache()
	svc := NewPlanService(repo, planCache)

	params := planner.Params{
		SupplierIDs:    []int64{7},
		BranchIDs:      []int64{10},
		DaysOfCoverage: 30,
		LookbackDays:   30,
	}

	first, err := svc.BuildPlan(context.Background(), params, true)
	require.NoError(t, err)

	// A lookback request resolves to a new end instant every call; the
	// cache key must not move with it.
	second, err := svc.BuildPlan(context.Background(), params, true)
	require.NoError(t, err)

	assert.Equal(t, 1, planCache.hits)
	assert.Equal(t, 1, repo.salesCalls)
	assert.Equal(t, first, second)
}

func TestBuildPlan_EnrichedAndPlainCachedSeparately(t *testing.T) {
	repo := plannerFixture()
	planCache := newMemPlanCache()
	svc := NewPlanService(repo, planCache)

	params := planner.Params{
		SupplierIDs:    []int64{7},
		BranchIDs:      []int64{10},
		DaysOfCoverage: 30,
		LookbackDays:   30,
	}

	plain, err := svc.BuildPlan(context.Background(), params, false)
	require.NoError(t, err)
	require.NotEmpty(t, plain)
	assert.Nil(t, plain[0].PrimarySupplierID)

	// The enriched request for the same selection must not be served the
	// cached plain rows: annotations have to be present.
	enriched, err := svc.BuildPlan(context.Background(), params, true)
	require.NoError(t, err)

	var widget *planner.EnrichedRow
	for i := range enriched {
		if enriched[i].ProductID == 1 {
			widget = &enriched[i]
		}
	}
	require.NotNil(t, widget)
	require.NotNil(t, widget.PrimarySupplierID)
	assert.Equal(t, int64(7), *widget.PrimarySupplierID)
	assert.True(t, widget.HasFallback)

	assert.Zero(t, planCache.hits)
	assert.Len(t, planCache.entries, 2)
}

func TestBuildPlan_EmptySupplierSelection(t *testing.T) {
	repo := plannerFixture()
	svc := NewPlanService(repo, nil)

	rows, err := svc.BuildPlan(context.Background(), planner.Params{
		SupplierIDs:    nil,
		BranchIDs:      []int64{10},
		DaysOfCoverage: 30,
		LookbackDays:   30,
	}, true)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
