// internal/ingest/normalize.go
//
// The ERP connector has shipped records with PascalCase field names and
// newer builds use camelCase. All variants are mapped to one canonical
// record shape here, before any business logic sees them.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/subiekt-planner/backend/internal/domain"
)

type rawRecord map[string]json.RawMessage

func decodeRecord(data json.RawMessage) (rawRecord, error) {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("record is not a JSON object: %w", err)
	}
	return raw, nil
}

// field returns the first present value among the given spellings.
func (r rawRecord) field(names ...string) (json.RawMessage, bool) {
	for _, name := range names {
		if v, ok := r[name]; ok && string(v) != "null" {
			return v, true
		}
	}
	return nil, false
}

func (r rawRecord) int64Field(names ...string) (int64, error) {
	v, ok := r.field(names...)
	if !ok {
		return 0, fmt.Errorf("missing field %q", names[0])
	}
	var n int64
	if err := json.Unmarshal(v, &n); err != nil {
		return 0, fmt.Errorf("field %q is not an integer: %w", names[0], err)
	}
	return n, nil
}

func (r rawRecord) optInt64Field(names ...string) (*int64, error) {
	v, ok := r.field(names...)
	if !ok {
		return nil, nil
	}
	var n int64
	if err := json.Unmarshal(v, &n); err != nil {
		return nil, fmt.Errorf("field %q is not an integer: %w", names[0], err)
	}
	return &n, nil
}

func (r rawRecord) stringField(names ...string) (string, error) {
	v, ok := r.field(names...)
	if !ok {
		return "", fmt.Errorf("missing field %q", names[0])
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("field %q is not a string: %w", names[0], err)
	}
	return s, nil
}

func (r rawRecord) optStringField(names ...string) *string {
	v, ok := r.field(names...)
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil || s == "" {
		return nil
	}
	return &s
}

func (r rawRecord) boolField(names ...string) bool {
	v, ok := r.field(names...)
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		return false
	}
	return b
}

// dateField accepts "2006-01-02" and RFC3339 and truncates to day
// granularity in UTC.
func (r rawRecord) dateField(names ...string) (time.Time, error) {
	s, err := r.stringField(names...)
	if err != nil {
		return time.Time{}, err
	}

	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("field %q is not a date: %q", names[0], s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func normalizeSupplier(data json.RawMessage) (domain.Supplier, error) {
	raw, err := decodeRecord(data)
	if err != nil {
		return domain.Supplier{}, err
	}

	id, err := raw.int64Field("Id", "id")
	if err != nil {
		return domain.Supplier{}, err
	}
	name, err := raw.stringField("Name", "name")
	if err != nil {
		return domain.Supplier{}, err
	}

	return domain.Supplier{
		ID:   id,
		Name: name,
		NIP:  raw.optStringField("Nip", "nip", "NIP"),
	}, nil
}

func normalizeBranch(data json.RawMessage) (domain.Branch, error) {
	raw, err := decodeRecord(data)
	if err != nil {
		return domain.Branch{}, err
	}

	id, err := raw.int64Field("Id", "id")
	if err != nil {
		return domain.Branch{}, err
	}
	name, err := raw.stringField("Name", "name")
	if err != nil {
		return domain.Branch{}, err
	}

	return domain.Branch{
		ID:     id,
		Name:   name,
		Symbol: raw.optStringField("Symbol", "symbol"),
	}, nil
}

func normalizeProduct(data json.RawMessage) (domain.Product, error) {
	raw, err := decodeRecord(data)
	if err != nil {
		return domain.Product{}, err
	}

	id, err := raw.int64Field("Id", "id")
	if err != nil {
		return domain.Product{}, err
	}
	sku, err := raw.stringField("Sku", "sku", "SKU")
	if err != nil {
		return domain.Product{}, err
	}
	name, err := raw.stringField("Name", "name")
	if err != nil {
		return domain.Product{}, err
	}
	supplierID, err := raw.optInt64Field("SupplierId", "supplierId")
	if err != nil {
		return domain.Product{}, err
	}

	return domain.Product{
		ID:         id,
		SKU:        sku,
		Name:       name,
		SupplierID: supplierID,
	}, nil
}

func normalizeStock(data json.RawMessage) (domain.StockLevel, error) {
	raw, err := decodeRecord(data)
	if err != nil {
		return domain.StockLevel{}, err
	}

	productID, err := raw.int64Field("ProductId", "productId")
	if err != nil {
		return domain.StockLevel{}, err
	}
	branchID, err := raw.int64Field("BranchId", "branchId")
	if err != nil {
		return domain.StockLevel{}, err
	}
	quantity, err := raw.int64Field("CurrentStock", "currentStock", "Quantity", "quantity")
	if err != nil {
		return domain.StockLevel{}, err
	}
	reserved, err := raw.optInt64Field("ReservedStock", "reservedStock", "Reserved", "reserved")
	if err != nil {
		return domain.StockLevel{}, err
	}

	level := domain.StockLevel{
		ProductID: productID,
		BranchID:  branchID,
		Quantity:  quantity,
	}
	if reserved != nil {
		level.Reserved = *reserved
	}
	return level, nil
}

func normalizeSale(data json.RawMessage) (domain.Sale, error) {
	raw, err := decodeRecord(data)
	if err != nil {
		return domain.Sale{}, err
	}

	productID, err := raw.int64Field("ProductId", "productId")
	if err != nil {
		return domain.Sale{}, err
	}
	branchID, err := raw.int64Field("BranchId", "branchId")
	if err != nil {
		return domain.Sale{}, err
	}
	date, err := raw.dateField("Date", "date")
	if err != nil {
		return domain.Sale{}, err
	}
	quantity, err := raw.int64Field("Quantity", "quantity")
	if err != nil {
		return domain.Sale{}, err
	}

	sale := domain.Sale{
		ProductID: productID,
		BranchID:  branchID,
		Date:      date,
		Quantity:  quantity,
	}
	if doc := raw.optStringField("SourceDocId", "sourceDocId", "DocumentId", "documentId"); doc != nil {
		sale.SourceDocID = strings.TrimSpace(*doc)
	}
	return sale, nil
}

func normalizeOffer(data json.RawMessage) (domain.SupplierOffer, error) {
	raw, err := decodeRecord(data)
	if err != nil {
		return domain.SupplierOffer{}, err
	}

	productID, err := raw.int64Field("ProductId", "productId")
	if err != nil {
		return domain.SupplierOffer{}, err
	}
	supplierID, err := raw.int64Field("SupplierId", "supplierId")
	if err != nil {
		return domain.SupplierOffer{}, err
	}
	priority, err := raw.int64Field("Priority", "priority")
	if err != nil {
		return domain.SupplierOffer{}, err
	}
	if priority < 1 {
		return domain.SupplierOffer{}, fmt.Errorf("priority must be >= 1, got %d", priority)
	}

	return domain.SupplierOffer{
		ProductID:  productID,
		SupplierID: supplierID,
		Priority:   int(priority),
		Fallback:   raw.boolField("Fallback", "fallback", "IsFallback", "isFallback"),
		Note:       raw.optStringField("Note", "note"),
	}, nil
}
