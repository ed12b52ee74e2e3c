package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/subiekt-planner/backend/internal/domain"
	"github.com/subiekt-planner/backend/internal/repository"
)

type syncRunRepository struct {
	db *DB
}

func NewSyncRunRepository(db *DB) repository.SyncRunRepository {
	return &syncRunRepository{db: db}
}

// Touch creates the run on first contact and bumps last_seen_at on
// every batch. The first-batch flag is claimed separately, inside the
// stock snapshot transaction.
func (r *syncRunRepository) Touch(ctx context.Context, id, clientID string) (domain.SyncRun, error) {
	query := `
		INSERT INTO sync_runs (id, client_id, first_batch_processed, started_at, last_seen_at)
		VALUES ($1, $2, FALSE, NOW(), NOW())
		ON CONFLICT (id)
		DO UPDATE SET last_seen_at = NOW()
		RETURNING id, client_id, first_batch_processed, started_at, last_seen_at
	`
	var run domain.SyncRun
	if err := r.db.GetContext(ctx, &run, query, id, clientID); err != nil {
		return domain.SyncRun{}, fmt.Errorf("failed to touch sync run %s: %w", id, err)
	}
	return run, nil
}

func (r *syncRunRepository) Latest(ctx context.Context) (*domain.SyncRun, error) {
	query := `
		SELECT id, client_id, first_batch_processed, started_at, last_seen_at
		FROM sync_runs
		ORDER BY last_seen_at DESC
		LIMIT 1
	`
	var run domain.SyncRun
	if err := r.db.GetContext(ctx, &run, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest sync run: %w", err)
	}
	return &run, nil
}
