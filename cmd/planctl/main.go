package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/subiekt-planner/backend/internal/config"
	"github.com/subiekt-planner/backend/internal/export"
	"github.com/subiekt-planner/backend/internal/planner"
	"github.com/subiekt-planner/backend/internal/repository/postgres"
	"github.com/subiekt-planner/backend/internal/service"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "planctl",
		Usage: "Operate the stock planner from the command line",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Apply pending schema migrations",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "migrations-dir",
						Usage:   "Directory containing migration files",
						Value:   "migrations",
						EnvVars: []string{"DB_MIGRATIONS_DIR"},
					},
				},
				Action: runMigrate,
			},
			{
				Name:  "seed",
				Usage: "Seed the database from CSV exports",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing seed CSV files",
						Value:   "./data/seeds",
						EnvVars: []string{"SEED_DATA_DIR"},
					},
				},
				Action: runSeeder,
			},
			{
				Name:  "plan",
				Usage: "Compute a stock plan and print it as CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "supplier-ids",
						Usage:    "Comma-separated supplier ids",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "branch-ids",
						Usage:    "Comma-separated branch ids",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "coverage",
						Usage: "Days of coverage to plan for",
						Value: 30,
					},
					&cli.IntFlag{
						Name:  "lookback",
						Usage: "Sales history window in days",
						Value: 90,
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "Write CSV to this file instead of stdout",
					},
				},
				Action: runPlan,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runMigrate(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := postgres.Migrate(db, c.String("migrations-dir")); err != nil {
		return err
	}

	log.Println("Migrations applied successfully!")
	return nil
}

func runPlan(c *cli.Context) error {
	cfg := config.Load()

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	supplierIDs, err := parseIDList(c.String("supplier-ids"))
	if err != nil {
		return fmt.Errorf("invalid supplier-ids: %w", err)
	}
	branchIDs, err := parseIDList(c.String("branch-ids"))
	if err != nil {
		return fmt.Errorf("invalid branch-ids: %w", err)
	}

	params := planner.Params{
		SupplierIDs:    supplierIDs,
		BranchIDs:      branchIDs,
		DaysOfCoverage: c.Int("coverage"),
		LookbackDays:   c.Int("lookback"),
		IncludeReturns: cfg.Plan.IncludeReturns,
	}

	planService := service.NewPlanService(postgres.NewPlanRepository(db), nil)
	rows, err := planService.BuildPlan(c.Context, params, true)
	if err != nil {
		return fmt.Errorf("failed to build plan: %w", err)
	}

	out := os.Stdout
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := export.WriteCSV(out, rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}

	log.Printf("Plan computed: %d rows, window ending %s\n", len(rows), time.Now().Format("2006-01-02"))
	return nil
}

func parseIDList(value string) ([]int64, error) {
	parts := strings.Split(value, ",")
	result := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", part)
		}
		result = append(result, id)
	}
	return result, nil
}
