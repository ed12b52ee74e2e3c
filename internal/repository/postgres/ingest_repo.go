package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/subiekt-planner/backend/internal/domain"
	"github.com/subiekt-planner/backend/internal/repository"
)

type ingestRepository struct {
	db *DB
}

func NewIngestRepository(db *DB) repository.IngestRepository {
	return &ingestRepository{db: db}
}

func (r *ingestRepository) UpsertSupplier(ctx context.Context, s domain.Supplier) error {
	query := `
		INSERT INTO suppliers (id, name, nip, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id)
		DO UPDATE SET name = EXCLUDED.name, nip = EXCLUDED.nip, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, s.ID, s.Name, s.NIP); err != nil {
		return fmt.Errorf("failed to upsert supplier %d: %w", s.ID, err)
	}
	return nil
}

func (r *ingestRepository) UpsertBranch(ctx context.Context, b domain.Branch) error {
	query := `
		INSERT INTO branches (id, name, symbol, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id)
		DO UPDATE SET name = EXCLUDED.name, symbol = EXCLUDED.symbol, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, b.ID, b.Name, b.Symbol); err != nil {
		return fmt.Errorf("failed to upsert branch %d: %w", b.ID, err)
	}
	return nil
}

func (r *ingestRepository) UpsertProduct(ctx context.Context, p domain.Product) error {
	query := `
		INSERT INTO products (id, sku, name, supplier_id, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id)
		DO UPDATE SET
			sku = EXCLUDED.sku,
			name = EXCLUDED.name,
			supplier_id = EXCLUDED.supplier_id,
			updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.SKU, p.Name, p.SupplierID); err != nil {
		return fmt.Errorf("failed to upsert product %d: %w", p.ID, err)
	}
	return nil
}

func (r *ingestRepository) UpsertOffer(ctx context.Context, o domain.SupplierOffer) error {
	query := `
		INSERT INTO supplier_offers (product_id, supplier_id, priority, fallback, note)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, supplier_id)
		DO UPDATE SET
			priority = EXCLUDED.priority,
			fallback = EXCLUDED.fallback,
			note = EXCLUDED.note
	`
	if _, err := r.db.ExecContext(ctx, query, o.ProductID, o.SupplierID, o.Priority, o.Fallback, o.Note); err != nil {
		return fmt.Errorf("failed to upsert offer %d/%d: %w", o.ProductID, o.SupplierID, err)
	}
	return nil
}

// UpsertSale writes the row keyed by its natural key. The quantity is
// replaced, not incremented, so a retried batch lands on the same value.
func (r *ingestRepository) UpsertSale(ctx context.Context, s domain.Sale) error {
	query := `
		INSERT INTO sales (product_id, branch_id, sale_date, source_doc_id, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, branch_id, sale_date, source_doc_id)
		DO UPDATE SET quantity = EXCLUDED.quantity
	`
	if _, err := r.db.ExecContext(ctx, query, s.ProductID, s.BranchID, s.Date, s.SourceDocID, s.Quantity); err != nil {
		return fmt.Errorf("failed to upsert sale %d/%d/%s: %w", s.ProductID, s.BranchID, s.Date.Format("2006-01-02"), err)
	}
	return nil
}

// ReplaceStocks inserts a snapshot batch. The run's first-batch flag is
// claimed with a conditional UPDATE inside the same transaction as the
// wipe and the repopulation: two racing first batches serialize on the
// sync_runs row lock, so exactly one of them wipes, and a concurrent
// plan request reads either the old snapshot or the new one, never an
// empty table.
func (r *ingestRepository) ReplaceStocks(ctx context.Context, runID string, levels []domain.StockLevel) (bool, error) {
	var wiped bool
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE sync_runs SET first_batch_processed = TRUE WHERE id = $1 AND NOT first_batch_processed`, runID)
		if err != nil {
			return fmt.Errorf("failed to claim first batch for run %s: %w", runID, err)
		}
		claimed, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read claim result: %w", err)
		}

		wiped = claimed == 1
		if wiped {
			if _, err := tx.ExecContext(ctx, `DELETE FROM stocks`); err != nil {
				return fmt.Errorf("failed to clear stocks: %w", err)
			}
		}

		if len(levels) == 0 {
			return nil
		}

		// Multi-row insert in chunks; a snapshot can carry tens of
		// thousands of rows.
		const chunkSize = 1000
		for start := 0; start < len(levels); start += chunkSize {
			end := start + chunkSize
			if end > len(levels) {
				end = len(levels)
			}
			if err := insertStockChunk(ctx, tx, levels[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return wiped, nil
}

func insertStockChunk(ctx context.Context, tx *sqlx.Tx, chunk []domain.StockLevel) error {
	placeholders := make([]string, 0, len(chunk))
	args := make([]interface{}, 0, len(chunk)*4)
	for i, level := range chunk {
		base := i * 4
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4))
		args = append(args, level.ProductID, level.BranchID, level.Quantity, level.Reserved)
	}

	query := fmt.Sprintf(`
		INSERT INTO stocks (product_id, branch_id, quantity, reserved)
		VALUES %s
		ON CONFLICT (product_id, branch_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, reserved = EXCLUDED.reserved
	`, strings.Join(placeholders, ", "))

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert stock chunk: %w", err)
	}
	return nil
}
