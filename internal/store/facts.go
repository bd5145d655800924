package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/couchcryptid/well-production-etl/internal/domain"
)

// LoadResult reports whether an upsert created or superseded a fact row.
type LoadResult string

const (
	LoadInserted LoadResult = "inserted"
	LoadUpdated  LoadResult = "updated"
)

// UpsertFact inserts or overwrites the fact row for one
// (well, month, product) key. A nil volume is stored as NULL so aggregates
// exclude it. One upsert is one statement, so concurrent writers of the
// same key serialize in the store with last-committed-wins semantics.
func (s *Store) UpsertFact(ctx context.Context, wellID int64, m domain.Measurement) (LoadResult, error) {
	volume := sql.NullFloat64{}
	if m.Volume != nil {
		volume = sql.NullFloat64{Float64: *m.Volume, Valid: true}
	}

	var inserted bool
	err := s.withRetry(ctx, "upsert fact", func() error {
		// xmax = 0 only on freshly inserted tuples, distinguishing insert
		// from update without a second round trip.
		return s.db.GetContext(ctx, &inserted,
			`INSERT INTO fact_production (well_id, production_date, product_type, volume, unit, flagged)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (well_id, production_date, product_type)
			 DO UPDATE SET volume = EXCLUDED.volume, unit = EXCLUDED.unit, flagged = EXCLUDED.flagged
			 RETURNING (xmax = 0)`,
			wellID, m.Date, string(m.Product), volume, m.Unit, m.Flagged)
	})
	if err != nil {
		return "", err
	}
	if inserted {
		return LoadInserted, nil
	}
	return LoadUpdated, nil
}

type statsRow struct {
	APINumber string  `db:"api_number"`
	Product   string  `db:"product_type"`
	Mean      float64 `db:"mean"`
	StdDev    float64 `db:"stddev"`
	Samples   int     `db:"samples"`
}

type statsKey struct {
	api     string
	product domain.ProductType
}

// statsMap is an immutable snapshot of trailing volume statistics.
type statsMap map[statsKey]domain.VolumeStats

func (m statsMap) VolumeStats(apiNumber string, product domain.ProductType) (domain.VolumeStats, bool) {
	s, ok := m[statsKey{api: apiNumber, product: product}]
	return s, ok
}

// TrailingStats snapshots per-well, per-product volume statistics over
// facts dated on or after since. The snapshot is handed to the normalizer
// for outlier screening and never mutated during a run.
func (s *Store) TrailingStats(ctx context.Context, since time.Time) (domain.StatsProvider, error) {
	var rows []statsRow
	err := s.withRetry(ctx, "trailing stats", func() error {
		return s.db.SelectContext(ctx, &rows,
			`SELECT w.api_number,
			        f.product_type,
			        AVG(f.volume) AS mean,
			        COALESCE(STDDEV_SAMP(f.volume), 0) AS stddev,
			        COUNT(f.volume) AS samples
			 FROM fact_production f
			 JOIN dim_well w ON w.well_id = f.well_id
			 WHERE f.volume IS NOT NULL AND f.production_date >= $1
			 GROUP BY w.api_number, f.product_type`, since)
	})
	if err != nil {
		return nil, err
	}

	m := make(statsMap, len(rows))
	for _, r := range rows {
		m[statsKey{api: r.APINumber, product: domain.ProductType(r.Product)}] = domain.VolumeStats{
			Mean:    r.Mean,
			StdDev:  r.StdDev,
			Samples: r.Samples,
		}
	}
	return m, nil
}
