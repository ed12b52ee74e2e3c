// internal/ingest/service.go
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/subiekt-planner/backend/internal/domain"
	"github.com/subiekt-planner/backend/internal/repository"
)

// Result reports what happened to one batch. Records that fail
// normalization or persistence are skipped and logged; one bad record
// never blocks a sync.
type Result struct {
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
}

// Invalidator drops cached plan results after data changes. A nil
// invalidator is fine.
type Invalidator interface {
	InvalidatePlans(ctx context.Context) error
}

type Service struct {
	repo  repository.IngestRepository
	runs  repository.SyncRunRepository
	cache Invalidator
}

func NewService(repo repository.IngestRepository, runs repository.SyncRunRepository, cache Invalidator) *Service {
	return &Service{repo: repo, runs: runs, cache: cache}
}

func (s *Service) IngestSuppliers(ctx context.Context, runID, clientID string, data []json.RawMessage) (Result, error) {
	if _, err := s.runs.Touch(ctx, runID, clientID); err != nil {
		return Result{}, fmt.Errorf("sync run: %w", err)
	}

	var res Result
	for i, record := range data {
		supplier, err := normalizeSupplier(record)
		if err != nil {
			s.skip(runID, "suppliers", i, err, &res)
			continue
		}
		if err := s.repo.UpsertSupplier(ctx, supplier); err != nil {
			s.skip(runID, "suppliers", i, err, &res)
			continue
		}
		res.Accepted++
	}

	s.finishBatch(ctx, runID, "suppliers", res)
	return res, nil
}

func (s *Service) IngestBranches(ctx context.Context, runID, clientID string, data []json.RawMessage) (Result, error) {
	if _, err := s.runs.Touch(ctx, runID, clientID); err != nil {
		return Result{}, fmt.Errorf("sync run: %w", err)
	}

	var res Result
	for i, record := range data {
		branch, err := normalizeBranch(record)
		if err != nil {
			s.skip(runID, "branches", i, err, &res)
			continue
		}
		if err := s.repo.UpsertBranch(ctx, branch); err != nil {
			s.skip(runID, "branches", i, err, &res)
			continue
		}
		res.Accepted++
	}

	s.finishBatch(ctx, runID, "branches", res)
	return res, nil
}

func (s *Service) IngestProducts(ctx context.Context, runID, clientID string, data []json.RawMessage) (Result, error) {
	if _, err := s.runs.Touch(ctx, runID, clientID); err != nil {
		return Result{}, fmt.Errorf("sync run: %w", err)
	}

	var res Result
	for i, record := range data {
		product, err := normalizeProduct(record)
		if err != nil {
			s.skip(runID, "products", i, err, &res)
			continue
		}
		if err := s.repo.UpsertProduct(ctx, product); err != nil {
			s.skip(runID, "products", i, err, &res)
			continue
		}
		res.Accepted++
	}

	s.finishBatch(ctx, runID, "products", res)
	return res, nil
}

func (s *Service) IngestOffers(ctx context.Context, runID, clientID string, data []json.RawMessage) (Result, error) {
	if _, err := s.runs.Touch(ctx, runID, clientID); err != nil {
		return Result{}, fmt.Errorf("sync run: %w", err)
	}

	var res Result
	for i, record := range data {
		offer, err := normalizeOffer(record)
		if err != nil {
			s.skip(runID, "offers", i, err, &res)
			continue
		}
		if err := s.repo.UpsertOffer(ctx, offer); err != nil {
			s.skip(runID, "offers", i, err, &res)
			continue
		}
		res.Accepted++
	}

	s.finishBatch(ctx, runID, "offers", res)
	return res, nil
}

// IngestSales upserts each sale by its natural key. Re-submitting the
// same batch is a no-op rather than a double count.
func (s *Service) IngestSales(ctx context.Context, runID, clientID string, data []json.RawMessage) (Result, error) {
	if _, err := s.runs.Touch(ctx, runID, clientID); err != nil {
		return Result{}, fmt.Errorf("sync run: %w", err)
	}

	var res Result
	for i, record := range data {
		sale, err := normalizeSale(record)
		if err != nil {
			s.skip(runID, "sales", i, err, &res)
			continue
		}
		if err := s.repo.UpsertSale(ctx, sale); err != nil {
			s.skip(runID, "sales", i, err, &res)
			continue
		}
		res.Accepted++
	}

	s.finishBatch(ctx, runID, "sales", res)
	return res, nil
}

// IngestStocks treats the feed as a full snapshot: the first batch of a
// run clears the stock table and repopulates it in one transaction;
// later batches of the same run append to the fresh snapshot. The
// repository claims the first-batch flag atomically, so concurrent
// batches of the same run wipe exactly once.
func (s *Service) IngestStocks(ctx context.Context, runID, clientID string, data []json.RawMessage) (Result, error) {
	if _, err := s.runs.Touch(ctx, runID, clientID); err != nil {
		return Result{}, fmt.Errorf("sync run: %w", err)
	}

	var res Result
	levels := make([]domain.StockLevel, 0, len(data))
	for i, record := range data {
		level, err := normalizeStock(record)
		if err != nil {
			s.skip(runID, "stocks", i, err, &res)
			continue
		}
		levels = append(levels, level)
	}

	wiped, err := s.repo.ReplaceStocks(ctx, runID, levels)
	if err != nil {
		return res, fmt.Errorf("replace stocks: %w", err)
	}
	res.Accepted = len(levels)

	if wiped {
		log.Info().Str("sync_run", runID).Msg("stock snapshot reset")
	}

	s.finishBatch(ctx, runID, "stocks", res)
	return res, nil
}

func (s *Service) skip(runID, resource string, index int, err error, res *Result) {
	res.Skipped++
	log.Warn().
		Str("sync_run", runID).
		Str("resource", resource).
		Int("index", index).
		Err(err).
		Msg("skipping record")
}

func (s *Service) finishBatch(ctx context.Context, runID, resource string, res Result) {
	log.Info().
		Str("sync_run", runID).
		Str("resource", resource).
		Int("accepted", res.Accepted).
		Int("skipped", res.Skipped).
		Msg("batch ingested")

	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePlans(ctx); err != nil {
		log.Warn().Err(err).Msg("plan cache invalidation failed")
	}
}
