package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/subiekt-planner/backend/internal/cache"
	"github.com/subiekt-planner/backend/internal/planner"
	"github.com/subiekt-planner/backend/internal/repository"
)

// PlanService loads the calculator's inputs, runs it, and applies the
// presentation ordering. All heavy lifting stays in the planner
// package; this layer owns I/O and caching only.
type PlanService struct {
	repo  repository.PlanRepository
	cache cache.PlanCache
	calc  *planner.Calculator
}

func NewPlanService(repo repository.PlanRepository, cacheImpl cache.PlanCache) *PlanService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopPlanCache()
	}
	return &PlanService{
		repo:  repo,
		cache: cacheImpl,
		calc:  planner.NewCalculator(),
	}
}

// BuildPlan computes the stock plan for the given parameters, sorted by
// units to order descending. With enrich set, rows carry supplier-offer
// annotations; otherwise the annotation fields stay empty.
func (s *PlanService) BuildPlan(ctx context.Context, params planner.Params, enrich bool) ([]planner.EnrichedRow, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	// Cache on the params as requested, before the window is pinned to a
	// concrete instant: a lookback-style request must map to the same key
	// on every call or entries would be written and never hit.
	keyParams := params
	if rows, ok, err := s.cache.GetPlan(ctx, keyParams, enrich); err == nil && ok {
		return rows, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("plan cache get failed")
	}

	// Pin the window now so the sales query and the calculator agree on
	// the same instants.
	win := params.ResolveWindow(time.Now())
	params.AnalysisStart = win.Start
	params.AnalysisEnd = &win.End

	products, err := s.repo.ListProductsWithStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}

	sales, err := s.repo.ListSalesBetween(ctx, win.Start, win.End)
	if err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}

	rows := s.calc.Calculate(products, sales, params, win.End)
	planner.SortByToOrder(rows)

	var enriched []planner.EnrichedRow
	if enrich && len(rows) > 0 {
		productIDs := make([]int64, 0, len(rows))
		for _, row := range rows {
			productIDs = append(productIDs, row.ProductID)
		}

		offers, err := s.repo.ListOffers(ctx, productIDs)
		if err != nil {
			return nil, fmt.Errorf("load offers: %w", err)
		}
		suppliers, err := s.repo.ListSuppliers(ctx)
		if err != nil {
			return nil, fmt.Errorf("load suppliers: %w", err)
		}

		enriched = planner.Enrich(rows, offers, suppliers)
	} else {
		enriched = make([]planner.EnrichedRow, 0, len(rows))
		for _, row := range rows {
			enriched = append(enriched, planner.EnrichedRow{Row: row})
		}
	}

	if err := s.cache.SetPlan(ctx, keyParams, enrich, enriched); err != nil {
		log.Warn().Err(err).Msg("plan cache set failed")
	}

	return enriched, nil
}
