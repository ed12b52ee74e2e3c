package planner

import (
	"sort"

	"github.com/subiekt-planner/backend/internal/domain"
)

// EnrichedRow is a plan row annotated with sourcing alternatives. The
// enrichment never changes the computed quantities.
type EnrichedRow struct {
	Row
	PrimarySupplierID     *int64   `json:"primarySupplierId,omitempty"`
	PrimarySupplierName   string   `json:"primarySupplierName,omitempty"`
	HasFallback           bool     `json:"hasFallback"`
	FallbackSupplierIDs   []int64  `json:"fallbackSupplierIds,omitempty"`
	FallbackSupplierNames []string `json:"fallbackSupplierNames,omitempty"`
	FallbackNote          string   `json:"fallbackNote,omitempty"`
}

// Enrich attaches each row's primary supplier (priority 1, not flagged
// as fallback) and its fallback suppliers ordered by ascending
// priority. The fallback note comes from the lowest-priority fallback
// only. Supplier ids resolve to display names via the directory.
func Enrich(rows []Row, offers []domain.SupplierOffer, suppliers []domain.Supplier) []EnrichedRow {
	nameByID := make(map[int64]string, len(suppliers))
	for _, s := range suppliers {
		nameByID[s.ID] = s.Name
	}

	offersByProduct := make(map[int64][]domain.SupplierOffer)
	for _, o := range offers {
		offersByProduct[o.ProductID] = append(offersByProduct[o.ProductID], o)
	}

	enriched := make([]EnrichedRow, 0, len(rows))
	for _, row := range rows {
		er := EnrichedRow{Row: row}

		productOffers := offersByProduct[row.ProductID]
		sort.SliceStable(productOffers, func(i, j int) bool {
			return productOffers[i].Priority < productOffers[j].Priority
		})

		for _, o := range productOffers {
			if o.Fallback {
				if !er.HasFallback && o.Note != nil {
					er.FallbackNote = *o.Note
				}
				er.HasFallback = true
				er.FallbackSupplierIDs = append(er.FallbackSupplierIDs, o.SupplierID)
				er.FallbackSupplierNames = append(er.FallbackSupplierNames, nameByID[o.SupplierID])
				continue
			}
			if o.Priority == 1 && er.PrimarySupplierID == nil {
				id := o.SupplierID
				er.PrimarySupplierID = &id
				er.PrimarySupplierName = nameByID[id]
			}
		}

		enriched = append(enriched, er)
	}

	return enriched
}
