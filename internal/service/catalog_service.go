package service

import (
	"context"
	"time"

	"github.com/subiekt-planner/backend/internal/domain"
	"github.com/subiekt-planner/backend/internal/repository"
)

// CatalogService serves the synced directory data the frontend reads.
type CatalogService struct {
	repo repository.PlanRepository
	runs repository.SyncRunRepository
}

func NewCatalogService(repo repository.PlanRepository, runs repository.SyncRunRepository) *CatalogService {
	return &CatalogService{repo: repo, runs: runs}
}

func (s *CatalogService) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *CatalogService) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	return s.repo.ListBranches(ctx)
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProductsWithStock(ctx)
}

// ListRecentSales returns sales from the trailing N days.
func (s *CatalogService) ListRecentSales(ctx context.Context, days int) ([]domain.Sale, error) {
	if days <= 0 {
		days = 90
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	return s.repo.ListSalesBetween(ctx, start, end)
}

func (s *CatalogService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *CatalogService) LatestSyncRun(ctx context.Context) (*domain.SyncRun, error) {
	return s.runs.Latest(ctx)
}
