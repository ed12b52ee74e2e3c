// internal/domain/models.go
package domain

import "time"

// Supplier is a product source synced from the ERP. IDs are the ERP's
// own numeric identifiers, kept as-is so upserts stay keyed naturally.
type Supplier struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	NIP       *string   `json:"nip,omitempty" db:"nip"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Branch is a warehouse or store location.
type Branch struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Symbol    *string   `json:"symbol,omitempty" db:"symbol"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Product is a sellable item. StockByBranch is populated for in-memory
// planning; it is not itself a database column.
type Product struct {
	ID            int64                `json:"id" db:"id"`
	SKU           string               `json:"sku" db:"sku"`
	Name          string               `json:"name" db:"name"`
	SupplierID    *int64               `json:"supplier_id,omitempty" db:"supplier_id"`
	StockByBranch map[int64]StockLevel `json:"stock_by_branch,omitempty" db:"-"`
	UpdatedAt     time.Time            `json:"updated_at" db:"updated_at"`
}

// StockLevel is one product/branch stock row from the latest snapshot.
type StockLevel struct {
	ProductID int64 `json:"product_id" db:"product_id"`
	BranchID  int64 `json:"branch_id" db:"branch_id"`
	Quantity  int64 `json:"quantity" db:"quantity"`
	Reserved  int64 `json:"reserved" db:"reserved"`
}

// Available returns the orderable quantity: physical minus reserved,
// never negative.
func (s StockLevel) Available() int64 {
	if avail := s.Quantity - s.Reserved; avail > 0 {
		return avail
	}
	return 0
}

// Sale is one day's sold quantity of a product at a branch, attributed
// to the ERP source document it came from. Quantity may be negative for
// return entries.
type Sale struct {
	ID          int64     `json:"id" db:"id"`
	ProductID   int64     `json:"product_id" db:"product_id"`
	BranchID    int64     `json:"branch_id" db:"branch_id"`
	Date        time.Time `json:"date" db:"sale_date"`
	Quantity    int64     `json:"quantity" db:"quantity"`
	SourceDocID string    `json:"source_doc_id" db:"source_doc_id"`
}

// SupplierOffer ranks the suppliers a product can be sourced from.
// Priority 1 is the primary source; higher priorities with the fallback
// flag are alternates recommended when the primary cannot deliver.
type SupplierOffer struct {
	ProductID  int64   `json:"product_id" db:"product_id"`
	SupplierID int64   `json:"supplier_id" db:"supplier_id"`
	Priority   int     `json:"priority" db:"priority"`
	Fallback   bool    `json:"fallback" db:"fallback"`
	Note       *string `json:"note,omitempty" db:"note"`
}

// SyncRun tracks one execution of the external ERP connector. The
// first-batch flag is persisted so the destructive stock snapshot wipe
// fires exactly once per run, surviving restarts and multiple replicas.
type SyncRun struct {
	ID                  string    `json:"id" db:"id"`
	ClientID            string    `json:"client_id" db:"client_id"`
	FirstBatchProcessed bool      `json:"first_batch_processed" db:"first_batch_processed"`
	StartedAt           time.Time `json:"started_at" db:"started_at"`
	LastSeenAt          time.Time `json:"last_seen_at" db:"last_seen_at"`
}

// Stats summarizes the synced dataset.
type Stats struct {
	Products    int64      `json:"products"`
	Stocks      int64      `json:"stocks"`
	Sales       int64      `json:"sales"`
	Suppliers   int64      `json:"suppliers"`
	Branches    int64      `json:"branches"`
	OldestSale  *time.Time `json:"oldest_sale"`
	LatestSale  *time.Time `json:"latest_sale"`
	GeneratedAt time.Time  `json:"generated_at"`
}
