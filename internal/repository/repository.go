// internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/subiekt-planner/backend/internal/domain"
)

// IngestRepository persists connector batches. Catalog entities are
// incremental upserts keyed by the ERP's external id; sales upserts are
// keyed by their natural key so a retried batch never double-counts;
// stocks are a full snapshot feed.
type IngestRepository interface {
	UpsertSupplier(ctx context.Context, s domain.Supplier) error
	UpsertBranch(ctx context.Context, b domain.Branch) error
	UpsertProduct(ctx context.Context, p domain.Product) error
	UpsertOffer(ctx context.Context, o domain.SupplierOffer) error
	UpsertSale(ctx context.Context, s domain.Sale) error

	// ReplaceStocks inserts a stock batch. The run's first stock batch
	// clears the whole stock table before inserting; claim, wipe and
	// repopulation share one transaction, so concurrent readers never
	// observe a transiently empty table and two racing first batches
	// cannot both wipe. Reports whether this batch performed the wipe.
	ReplaceStocks(ctx context.Context, runID string, levels []domain.StockLevel) (bool, error)
}

// SyncRunRepository tracks connector runs. The first-batch flag lives
// in the database, not process memory, so the snapshot wipe decision
// survives restarts and horizontal scaling.
type SyncRunRepository interface {
	// Touch records that a batch for this run arrived, creating the run
	// on first contact.
	Touch(ctx context.Context, id, clientID string) (domain.SyncRun, error)
	Latest(ctx context.Context) (*domain.SyncRun, error)
}

// PlanRepository reads the collections the calculator consumes.
type PlanRepository interface {
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	ListBranches(ctx context.Context) ([]domain.Branch, error)
	// ListProductsWithStock returns products with StockByBranch filled
	// from the latest snapshot.
	ListProductsWithStock(ctx context.Context) ([]domain.Product, error)
	ListSalesBetween(ctx context.Context, start, end time.Time) ([]domain.Sale, error)
	ListOffers(ctx context.Context, productIDs []int64) ([]domain.SupplierOffer, error)
	Stats(ctx context.Context) (domain.Stats, error)
}
