// Package export projects aggregate query results into external artifacts:
// CSV summaries and a GeoJSON FeatureCollection of well locations. It
// serializes the aggregator's typed shapes and nothing else; what gets
// aggregated is decided upstream.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/couchcryptid/well-production-etl/internal/aggregate"
)

// WriteWellCountCSV writes county,well_count rows in the aggregator's
// deterministic order.
func WriteWellCountCSV(w io.Writer, counts []aggregate.WellCount) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"county", "well_count"}); err != nil {
		return fmt.Errorf("write well count csv: %w", err)
	}
	for _, c := range counts {
		if err := cw.Write([]string{c.County, strconv.Itoa(c.Wells)}); err != nil {
			return fmt.Errorf("write well count csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteYearlyCSV writes product,year,total,prior_year_delta_pct rows.
// Years with no prior data carry an empty delta column, not a zero.
func WriteYearlyCSV(w io.Writer, changes []aggregate.YearlyChange) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"product", "year", "total", "prior_year_delta_pct"}); err != nil {
		return fmt.Errorf("write yearly csv: %w", err)
	}
	for _, c := range changes {
		delta := ""
		if c.PriorDeltaPct != nil {
			delta = strconv.FormatFloat(*c.PriorDeltaPct, 'f', 2, 64)
		}
		row := []string{
			string(c.Product),
			strconv.Itoa(c.Year),
			strconv.FormatFloat(c.Total, 'f', -1, 64),
			delta,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write yearly csv: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

type geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"` // [lon, lat] per RFC 7946
}

type feature struct {
	Type       string            `json:"type"`
	Geometry   geometry          `json:"geometry"`
	Properties map[string]string `json:"properties"`
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

// WriteWellsGeoJSON writes a FeatureCollection with one Point feature per
// well, carrying its identity fields as properties.
func WriteWellsGeoJSON(w io.Writer, wells []aggregate.WellPoint) error {
	fc := featureCollection{
		Type:     "FeatureCollection",
		Features: make([]feature, 0, len(wells)),
	}
	for _, p := range wells {
		fc.Features = append(fc.Features, feature{
			Type: "Feature",
			Geometry: geometry{
				Type:        "Point",
				Coordinates: [2]float64{p.Longitude, p.Latitude},
			},
			Properties: map[string]string{
				"api_number": p.APINumber,
				"county":     p.County,
				"operator":   p.Operator,
				"status":     p.Status,
			},
		})
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("write wells geojson: %w", err)
	}
	return nil
}
