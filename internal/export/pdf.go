package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/subiekt-planner/backend/internal/planner"
)

// WritePDF renders plan rows as a landscape A4 table.
func WritePDF(w io.Writer, rows []planner.EnrichedRow, generatedAt time.Time) error {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Stock Plan", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, "Stock Plan")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, "Generated "+generatedAt.Format("2006-01-02 15:04"))
	pdf.Ln(10)

	headers := []string{"SKU", "Name", "Stock", "Sold", "Avg/Day", "Needed", "To Order", "Primary", "Fallbacks"}
	widths := []float64{26, 70, 18, 18, 20, 20, 20, 40, 45}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 8, header, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		cells := []string{
			row.SKU,
			row.Name,
			strconv.FormatInt(row.CurrentStock, 10),
			strconv.FormatInt(row.TotalSold, 10),
			formatAvg(row.AvgDailySales),
			strconv.FormatInt(row.NeededForPeriod, 10),
			strconv.FormatInt(row.ToOrder, 10),
			row.PrimarySupplierName,
			strings.Join(row.FallbackSupplierNames, ", "),
		}
		for i, cell := range cells {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
