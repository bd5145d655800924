// Package csvfile reads raw well records from extracted CSV files on disk.
// It is the file-backed implementation of the pipeline's BatchExtractor:
// the upstream extractor drops `wells.csv` (one row per well header) and
// `production.csv` (one row per monthly reading, keyed by API number) into
// a directory, and this adapter joins them into raw records. All fields
// stay untyped text; coercion belongs to the normalizer.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/couchcryptid/well-production-etl/internal/domain"
)

const (
	wellsFile      = "wells.csv"
	productionFile = "production.csv"
)

// Extractor yields raw records from a directory of extracted CSV files.
// Safe for a single consumer; the pipeline calls ExtractBatch serially.
type Extractor struct {
	dir string

	once    sync.Once
	loadErr error
	records []domain.RawRecord
	offset  int
}

// New creates an Extractor over dir. Files are read lazily on the first
// ExtractBatch call.
func New(dir string) *Extractor {
	return &Extractor{dir: dir}
}

// ExtractBatch returns up to batchSize raw records. An empty batch means
// the input is exhausted.
func (e *Extractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.once.Do(func() { e.loadErr = e.load() })
	if e.loadErr != nil {
		return nil, e.loadErr
	}

	if e.offset >= len(e.records) {
		return nil, nil
	}
	end := min(e.offset+batchSize, len(e.records))
	batch := e.records[e.offset:end]
	e.offset = end
	return batch, nil
}

func (e *Extractor) load() error {
	wells, err := e.readWells()
	if err != nil {
		return err
	}

	readings, err := e.readProduction()
	if err != nil {
		return err
	}

	for i := range wells {
		api := domain.CanonicalKey(wells[i].APIWellNumber)
		wells[i].Readings = readings[api]
	}
	e.records = wells
	return nil
}

// wells.csv layout: api_number,state,state_code,operator,status,latitude,longitude
func (e *Extractor) readWells() ([]domain.RawRecord, error) {
	rows, err := readCSV(filepath.Join(e.dir, wellsFile), 7)
	if err != nil {
		return nil, err
	}

	records := make([]domain.RawRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.RawRecord{
			APIWellNumber: row[0],
			State:         row[1],
			StateCode:     row[2],
			Operator:      row[3],
			Status:        row[4],
			Latitude:      row[5],
			Longitude:     row[6],
		})
	}
	return records, nil
}

// production.csv layout: api_number,date,product,volume,unit.
// The file is optional; wells without readings still load as dimensions.
func (e *Extractor) readProduction() (map[string][]domain.RawReading, error) {
	rows, err := readCSV(filepath.Join(e.dir, productionFile), 5)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	readings := make(map[string][]domain.RawReading)
	for _, row := range rows {
		api := domain.CanonicalKey(row[0])
		readings[api] = append(readings[api], domain.RawReading{
			Date:    row[1],
			Product: row[2],
			Volume:  row[3],
			Unit:    row[4],
		})
	}
	return readings, nil
}

// readCSV reads all data rows, skipping the header if one is present.
func readCSV(path string, wantFields int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = wantFields
	r.TrimLeadingSpace = true

	var rows [][]string
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		if first {
			first = false
			if isHeader(row) {
				continue
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// isHeader guesses whether the first row is a header by looking for the
// api_number column label used by the extractor drops.
func isHeader(row []string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "api_number")
}
