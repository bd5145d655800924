// Command report runs the county-level aggregations against a loaded
// database and writes the export artifacts: well counts by county as CSV,
// per-product yearly totals with year-over-year change as CSV, and well
// locations as GeoJSON.
//
// Usage:
//
//	report -out-dir data/processed [-window-months 12] [-ref 2024-03-01]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"

	"github.com/couchcryptid/well-production-etl/internal/aggregate"
	"github.com/couchcryptid/well-production-etl/internal/domain"
	"github.com/couchcryptid/well-production-etl/internal/export"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "data/processed", "directory for export artifacts")
	windowMonths := flag.Int("window-months", 12, "trailing window for production totals")
	refStr := flag.String("ref", "", "reference date (YYYY-MM-DD), defaults to now")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	ref := clockwork.NewRealClock().Now().UTC()
	if *refStr != "" {
		parsed, err := time.Parse("2006-01-02", *refStr)
		if err != nil {
			return fmt.Errorf("invalid -ref: %w", err)
		}
		ref = parsed
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}

	ctx := context.Background()
	agg := aggregate.New(db)

	counts, err := agg.WellCountByCounty(ctx)
	if err != nil {
		return err
	}
	if err := writeFile(*outDir, "wells_by_county.csv", func(f *os.File) error {
		return export.WriteWellCountCSV(f, counts)
	}); err != nil {
		return err
	}
	log.Printf("wells_by_county.csv: %d counties", len(counts))

	changes, err := agg.YearOverYear(ctx)
	if err != nil {
		return err
	}
	if err := writeFile(*outDir, "production_by_year.csv", func(f *os.File) error {
		return export.WriteYearlyCSV(f, changes)
	}); err != nil {
		return err
	}
	log.Printf("production_by_year.csv: %d product-years", len(changes))

	wells, err := agg.WellLocations(ctx)
	if err != nil {
		return err
	}
	if err := writeFile(*outDir, "wells.geojson", func(f *os.File) error {
		return export.WriteWellsGeoJSON(f, wells)
	}); err != nil {
		return err
	}
	log.Printf("wells.geojson: %d features", len(wells))

	for _, product := range []domain.ProductType{domain.ProductOil, domain.ProductGas} {
		total, err := agg.TrailingTotal(ctx, product, ref, *windowMonths)
		if err != nil {
			return err
		}
		avg, err := agg.AveragePerWell(ctx, product, ref, *windowMonths)
		if err != nil {
			return err
		}
		log.Printf("%s, trailing %d months to %s: total=%.1f avg_per_well=%.1f",
			product, *windowMonths, ref.Format("2006-01-02"), total.Total, avg)
	}

	return nil
}

func writeFile(dir, name string, write func(*os.File) error) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return f.Close()
}
