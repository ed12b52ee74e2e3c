package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/subiekt-planner/backend/internal/domain"
	"github.com/subiekt-planner/backend/internal/repository"
)

type planRepository struct {
	db *DB
}

func NewPlanRepository(db *DB) repository.PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	var suppliers []domain.Supplier
	query := `SELECT id, name, nip, updated_at FROM suppliers ORDER BY name`
	if err := r.db.SelectContext(ctx, &suppliers, query); err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	return suppliers, nil
}

func (r *planRepository) ListBranches(ctx context.Context) ([]domain.Branch, error) {
	var branches []domain.Branch
	query := `SELECT id, name, symbol, updated_at FROM branches ORDER BY name`
	if err := r.db.SelectContext(ctx, &branches, query); err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	return branches, nil
}

func (r *planRepository) ListProductsWithStock(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	query := `SELECT id, sku, name, supplier_id, updated_at FROM products ORDER BY id`
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if len(products) == 0 {
		return products, nil
	}

	var levels []domain.StockLevel
	if err := r.db.SelectContext(ctx, &levels,
		`SELECT product_id, branch_id, quantity, reserved FROM stocks`); err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}

	byProduct := make(map[int64]map[int64]domain.StockLevel, len(products))
	for _, level := range levels {
		if byProduct[level.ProductID] == nil {
			byProduct[level.ProductID] = make(map[int64]domain.StockLevel)
		}
		byProduct[level.ProductID][level.BranchID] = level
	}

	for i := range products {
		products[i].StockByBranch = byProduct[products[i].ID]
	}
	return products, nil
}

func (r *planRepository) ListSalesBetween(ctx context.Context, start, end time.Time) ([]domain.Sale, error) {
	var sales []domain.Sale
	query := `
		SELECT id, product_id, branch_id, sale_date, quantity, source_doc_id
		FROM sales
		WHERE sale_date >= $1 AND sale_date <= $2
		ORDER BY sale_date DESC
	`
	if err := r.db.SelectContext(ctx, &sales, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}

func (r *planRepository) ListOffers(ctx context.Context, productIDs []int64) ([]domain.SupplierOffer, error) {
	if len(productIDs) == 0 {
		return []domain.SupplierOffer{}, nil
	}

	var offers []domain.SupplierOffer
	query := `
		SELECT product_id, supplier_id, priority, fallback, note
		FROM supplier_offers
		WHERE product_id = ANY($1::bigint[])
		ORDER BY product_id, priority
	`
	if err := r.db.SelectContext(ctx, &offers, query, pq.Array(productIDs)); err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

func (r *planRepository) Stats(ctx context.Context) (domain.Stats, error) {
	stats := domain.Stats{GeneratedAt: time.Now()}

	query := `
		SELECT
			(SELECT COUNT(*) FROM products) AS products,
			(SELECT COUNT(*) FROM stocks) AS stocks,
			(SELECT COUNT(*) FROM sales) AS sales,
			(SELECT COUNT(*) FROM suppliers) AS suppliers,
			(SELECT COUNT(*) FROM branches) AS branches,
			(SELECT MIN(sale_date) FROM sales) AS oldest_sale,
			(SELECT MAX(sale_date) FROM sales) AS latest_sale
	`
	row := r.db.QueryRowxContext(ctx, query)
	if err := row.Scan(&stats.Products, &stats.Stocks, &stats.Sales,
		&stats.Suppliers, &stats.Branches, &stats.OldestSale, &stats.LatestSale); err != nil {
		return domain.Stats{}, fmt.Errorf("failed to load stats: %w", err)
	}
	return stats, nil
}
