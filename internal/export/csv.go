// internal/export/csv.go
//
// Pure formatters over plan rows. No quantities are computed here.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/subiekt-planner/backend/internal/planner"
)

var csvHeader = []string{
	"SKU",
	"Name",
	"Current Stock",
	"Total Sold",
	"Avg Daily Sales",
	"Needed For Period",
	"To Order",
	"Primary Supplier",
	"Fallback Suppliers",
	"Fallback Note",
}

// WriteCSV renders plan rows as CSV in the column order the frontend
// export always used.
func WriteCSV(w io.Writer, rows []planner.EnrichedRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.SKU,
			row.Name,
			strconv.FormatInt(row.CurrentStock, 10),
			strconv.FormatInt(row.TotalSold, 10),
			formatAvg(row.AvgDailySales),
			strconv.FormatInt(row.NeededForPeriod, 10),
			strconv.FormatInt(row.ToOrder, 10),
			row.PrimarySupplierName,
			strings.Join(row.FallbackSupplierNames, ", "),
			row.FallbackNote,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", row.SKU, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatAvg rounds to two decimals for display only; the full-precision
// value stays on the row.
func formatAvg(avg float64) string {
	return decimal.NewFromFloat(avg).Round(2).StringFixed(2)
}
