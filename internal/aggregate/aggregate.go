// Package aggregate computes read-side roll-ups over the committed star
// schema: well counts by county, trailing production totals, per-well
// averages, and year-over-year change. All queries exclude NULL volumes,
// so missing measurements never count as zero. Reference time is always an
// explicit parameter; callers pass a clock's now so tests can freeze it.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/couchcryptid/well-production-etl/internal/domain"
)

// Aggregator runs read-only queries against the loaded model.
type Aggregator struct {
	db *sqlx.DB
}

// New wraps a database handle.
func New(db *sqlx.DB) *Aggregator {
	return &Aggregator{db: db}
}

// WellCount is one county's well tally. County is the owning state in this
// simplified geography.
type WellCount struct {
	County string `db:"county"`
	Wells  int    `db:"wells"`
}

// ProductTotal is a product's summed volume over a trailing window.
type ProductTotal struct {
	Product domain.ProductType
	Total   float64
}

// YearlyChange is one product-year total with its change versus the prior
// year. PriorDeltaPct is nil when no prior year exists — "no prior data",
// not zero.
type YearlyChange struct {
	Product       domain.ProductType
	Year          int
	Total         float64
	PriorDeltaPct *float64
}

// WellCountByCounty groups wells by county, most wells first, ties broken
// by county name ascending so output order is deterministic.
func (a *Aggregator) WellCountByCounty(ctx context.Context) ([]WellCount, error) {
	var counts []WellCount
	err := a.db.SelectContext(ctx, &counts,
		`SELECT s.name AS county, COUNT(*) AS wells
		 FROM dim_well w
		 JOIN dim_state s ON s.state_id = w.state_id
		 GROUP BY s.name
		 ORDER BY wells DESC, s.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("well count by county: %w", err)
	}
	return counts, nil
}

// TrailingTotal sums a product's volume over the trailing window ending at
// ref. Facts with no measurement are excluded from the sum.
func (a *Aggregator) TrailingTotal(ctx context.Context, product domain.ProductType, ref time.Time, months int) (ProductTotal, error) {
	since := ref.UTC().AddDate(0, -months, 0)

	var total float64
	err := a.db.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(volume), 0)
		 FROM fact_production
		 WHERE product_type = $1 AND volume IS NOT NULL
		   AND production_date >= $2 AND production_date <= $3`,
		string(product), since, ref.UTC())
	if err != nil {
		return ProductTotal{}, fmt.Errorf("trailing total: %w", err)
	}
	return ProductTotal{Product: product, Total: total}, nil
}

// AveragePerWell averages each well's summed volume for a product over the
// trailing window ending at ref. Wells with no measured facts in the window
// contribute nothing to the denominator; they are not counted as zero.
func (a *Aggregator) AveragePerWell(ctx context.Context, product domain.ProductType, ref time.Time, months int) (float64, error) {
	since := ref.UTC().AddDate(0, -months, 0)

	var avg float64
	err := a.db.GetContext(ctx, &avg,
		`SELECT COALESCE(AVG(per_well.total), 0)
		 FROM (
		   SELECT well_id, SUM(volume) AS total
		   FROM fact_production
		   WHERE product_type = $1 AND volume IS NOT NULL
		     AND production_date >= $2 AND production_date <= $3
		   GROUP BY well_id
		 ) per_well`,
		string(product), since, ref.UTC())
	if err != nil {
		return 0, fmt.Errorf("average per well: %w", err)
	}
	return avg, nil
}

// WellPoint is one well's location and identity, denormalized for
// geospatial export.
type WellPoint struct {
	APINumber string  `db:"api_number"`
	County    string  `db:"county"`
	Operator  string  `db:"operator"`
	Status    string  `db:"status"`
	Latitude  float64 `db:"latitude"`
	Longitude float64 `db:"longitude"`
}

// WellLocations returns every well with its denormalized county and
// operator names, ordered by API number for stable output.
func (a *Aggregator) WellLocations(ctx context.Context) ([]WellPoint, error) {
	var points []WellPoint
	err := a.db.SelectContext(ctx, &points,
		`SELECT w.api_number, s.name AS county, o.name AS operator,
		        w.status, w.latitude, w.longitude
		 FROM dim_well w
		 JOIN dim_state s ON s.state_id = w.state_id
		 JOIN dim_operator o ON o.operator_id = w.operator_id
		 ORDER BY w.api_number ASC`)
	if err != nil {
		return nil, fmt.Errorf("well locations: %w", err)
	}
	return points, nil
}

type yearlyRow struct {
	Product string  `db:"product_type"`
	Year    int     `db:"year"`
	Total   float64 `db:"total"`
}

// YearOverYear returns per-product calendar-year totals with percent change
// versus the prior year. The first year of each product has no prior data
// and reports a nil delta.
func (a *Aggregator) YearOverYear(ctx context.Context) ([]YearlyChange, error) {
	var rows []yearlyRow
	err := a.db.SelectContext(ctx, &rows,
		`SELECT product_type,
		        EXTRACT(YEAR FROM production_date)::int AS year,
		        SUM(volume) AS total
		 FROM fact_production
		 WHERE volume IS NOT NULL
		 GROUP BY product_type, year
		 ORDER BY product_type ASC, year ASC`)
	if err != nil {
		return nil, fmt.Errorf("year over year: %w", err)
	}

	changes := make([]YearlyChange, 0, len(rows))
	for i, r := range rows {
		c := YearlyChange{Product: domain.ProductType(r.Product), Year: r.Year, Total: r.Total}
		if i > 0 {
			prior := rows[i-1]
			if prior.Product == r.Product && prior.Year == r.Year-1 && prior.Total != 0 {
				delta := (r.Total - prior.Total) / prior.Total * 100
				c.PriorDeltaPct = &delta
			}
		}
		changes = append(changes, c)
	}
	return changes, nil
}
