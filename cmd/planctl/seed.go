package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
)

// seedFiles maps CSV files to their target tables. Column order in the
// CSV must match the listed columns; the header row names them.
var seedFiles = []struct {
	file     string
	table    string
	columns  []string
	conflict string
}{
	{"suppliers.csv", "suppliers", []string{"id", "name", "nip"}, "id"},
	{"branches.csv", "branches", []string{"id", "name", "symbol"}, "id"},
	{"products.csv", "products", []string{"id", "sku", "name", "supplier_id"}, "id"},
	{"stocks.csv", "stocks", []string{"product_id", "branch_id", "quantity", "reserved"}, "product_id, branch_id"},
	{"sales.csv", "sales", []string{"product_id", "branch_id", "sale_date", "source_doc_id", "quantity"}, "product_id, branch_id, sale_date, source_doc_id"},
	{"supplier_offers.csv", "supplier_offers", []string{"product_id", "supplier_id", "priority", "fallback", "note"}, "product_id, supplier_id"},
}

func runSeeder(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	log.Println("Starting database seeding...")

	dataDir := c.String("data-dir")
	for _, sf := range seedFiles {
		path := filepath.Join(dataDir, sf.file)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			log.Printf("Skipping %s (file not found)\n", sf.file)
			continue
		}
		if err := seedTable(ctx, tx, sf.table, sf.columns, sf.conflict, path); err != nil {
			return fmt.Errorf("failed to seed %s: %w", sf.table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

func seedTable(ctx context.Context, tx *sql.Tx, tableName string, columns []string, conflict, filePath string) error {
	log.Printf("Seeding %s from %s\n", tableName, filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		tableName,
		buildColumnList(columns),
		buildPlaceholders(placeholders),
		conflict,
		buildUpdateClause(columns, conflict),
	)

	count := 0
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read CSV record: %w", err)
		}

		args := make([]interface{}, len(columns))
		for i, col := range columns {
			idx := getColumnIndex(header, col)
			if idx >= len(record) {
				return fmt.Errorf("column index %d out of bounds for column '%s' (record has %d columns)", idx, col, len(record))
			}
			args[i] = nullIfEmpty(record[idx])
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert record: %w", err)
		}
		count++
	}

	log.Printf("Successfully seeded %s (%d records)\n", tableName, count)
	return nil
}

// nullIfEmpty returns NULL if the string is empty, otherwise returns the string
func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func buildColumnList(columns []string) string {
	return `"` + stringJoin(columns, `", "`) + `"`
}

func buildPlaceholders(placeholders []string) string {
	return stringJoin(placeholders, ", ")
}

func buildUpdateClause(columns []string, conflict string) string {
	updates := make([]string, 0, len(columns))
	for _, col := range columns {
		// Skip the conflict-key columns
		if stringsContain(conflict, col) {
			continue
		}
		updates = append(updates, fmt.Sprintf(`"%s" = EXCLUDED."%s"`, col, col))
	}
	return stringJoin(updates, ", ")
}

func stringsContain(list, col string) bool {
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == col {
			return true
		}
	}
	return false
}

func getColumnIndex(header []string, column string) int {
	for i, h := range header {
		if h == column {
			return i
		}
	}

	panic(fmt.Sprintf("column '%s' not found in header: %v", column, header))
}

func stringJoin(slice []string, sep string) string {
	if len(slice) == 0 {
		return ""
	}
	result := slice[0]
	for _, s := range slice[1:] {
		result += sep + s
	}
	return result
}
