// Command genmock generates deterministic raw-record fixtures in the
// layout the csvfile extractor reads: wells.csv plus production.csv. The
// generator is seeded, so the same flags always produce the same files —
// useful for local pipeline runs and for regenerating test data.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data/raw -wells 50 -months 24
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var baseMonth = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

type stateDef struct {
	name string
	code string
}

var states = []stateDef{
	{name: "West Virginia", code: "WV"},
	{name: "Pennsylvania", code: "PA"},
	{name: "Texas", code: "TX"},
	{name: "New York", code: "NY"},
}

var operators = []string{
	"Antero Resources",
	"EQT Production",
	"Range Resources",
	"Diversified Gas & Oil",
	"Southwestern Energy",
}

var statuses = []string{"AC", "AC", "AC", "IN", "PA", "PM"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "data/raw", "output directory for fixture files")
	wellCount := flag.Int("wells", 50, "number of wells to generate")
	months := flag.Int("months", 24, "months of production history per well")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}

	rng := rand.New(rand.NewSource(*seed))

	wells, err := writeWells(*outDir, rng, *wellCount)
	if err != nil {
		return fmt.Errorf("writing wells.csv: %w", err)
	}
	log.Printf("wells.csv: %d wells", *wellCount)

	rows, err := writeProduction(*outDir, rng, wells, *months)
	if err != nil {
		return fmt.Errorf("writing production.csv: %w", err)
	}
	log.Printf("production.csv: %d readings", rows)
	return nil
}

type wellFixture struct {
	api      string
	baseline float64
}

func writeWells(dir string, rng *rand.Rand, count int) ([]wellFixture, error) {
	f, err := os.Create(filepath.Join(dir, "wells.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"api_number", "state", "state_code", "operator", "status", "latitude", "longitude"}); err != nil {
		return nil, err
	}

	wells := make([]wellFixture, 0, count)
	for i := range count {
		st := states[rng.Intn(len(states))]
		api := fmt.Sprintf("%s-%03d-%05d", st.code, rng.Intn(200), 10000+i)
		lat := 37.0 + rng.Float64()*6
		lon := -82.0 + rng.Float64()*8

		row := []string{
			api,
			st.name,
			st.code,
			operators[rng.Intn(len(operators))],
			statuses[rng.Intn(len(statuses))],
			strconv.FormatFloat(lat, 'f', 4, 64),
			strconv.FormatFloat(lon, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
		wells = append(wells, wellFixture{api: api, baseline: 50 + rng.Float64()*500})
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return wells, f.Close()
}

func writeProduction(dir string, rng *rand.Rand, wells []wellFixture, months int) (int, error) {
	f, err := os.Create(filepath.Join(dir, "production.csv"))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"api_number", "date", "product", "volume", "unit"}); err != nil {
		return 0, err
	}

	rows := 0
	for _, well := range wells {
		for m := range months {
			month := baseMonth.AddDate(0, m, 0)
			for _, product := range []struct{ name, unit string }{
				{name: "oil", unit: "bbl"},
				{name: "gas", unit: "mcf"},
			} {
				// Sprinkle missing measurements: blank volume, never zero.
				volume := ""
				if rng.Float64() > 0.05 {
					v := well.baseline * (0.7 + rng.Float64()*0.6)
					volume = strconv.FormatFloat(v, 'f', 1, 64)
				}
				row := []string{well.api, month.Format("01/2006"), product.name, volume, product.unit}
				if err := w.Write(row); err != nil {
					return 0, err
				}
				rows++
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}
	return rows, f.Close()
}
