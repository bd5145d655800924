package aggregate

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/well-production-etl/internal/domain"
)

func newMockAggregator(t *testing.T) (*Aggregator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock")), mock
}

func TestWellCountByCounty_DeterministicOrder(t *testing.T) {
	a, mock := newMockAggregator(t)

	// W1 and W2 in WV, W3 in TX: WV first on count, then TX.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT s.name AS county, COUNT(*) AS wells`)).
		WillReturnRows(sqlmock.NewRows([]string{"county", "wells"}).
			AddRow("WV", 2).
			AddRow("TX", 1))

	counts, err := a.WellCountByCounty(context.Background())
	require.NoError(t, err)

	want := []WellCount{{County: "WV", Wells: 2}, {County: "TX", Wells: 1}}
	if diff := cmp.Diff(want, counts); diff != "" {
		t.Errorf("well counts mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTrailingTotal_WindowBounds(t *testing.T) {
	a, mock := newMockAggregator(t)

	ref := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	since := time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(volume), 0)`)).
		WithArgs("oil", since, ref).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(4200.5))

	total, err := a.TrailingTotal(context.Background(), domain.ProductOil, ref, 12)
	require.NoError(t, err)
	assert.Equal(t, domain.ProductOil, total.Product)
	assert.Equal(t, 4200.5, total.Total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAveragePerWell(t *testing.T) {
	a, mock := newMockAggregator(t)

	ref := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	since := ref.AddDate(0, -6, 0)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(AVG(per_well.total), 0)`)).
		WithArgs("gas", since, ref).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(1250.0))

	avg, err := a.AveragePerWell(context.Background(), domain.ProductGas, ref, 6)
	require.NoError(t, err)
	assert.Equal(t, 1250.0, avg)
}

func TestYearOverYear(t *testing.T) {
	a, mock := newMockAggregator(t)

	mock.ExpectQuery(regexp.QuoteMeta(`EXTRACT(YEAR FROM production_date)::int AS year`)).
		WillReturnRows(sqlmock.NewRows([]string{"product_type", "year", "total"}).
			AddRow("gas", 2022, 1000.0).
			AddRow("gas", 2023, 1500.0).
			AddRow("oil", 2023, 200.0))

	changes, err := a.YearOverYear(context.Background())
	require.NoError(t, err)
	require.Len(t, changes, 3)

	// First gas year: no prior data, not zero.
	assert.Equal(t, 2022, changes[0].Year)
	assert.Nil(t, changes[0].PriorDeltaPct)

	require.NotNil(t, changes[1].PriorDeltaPct)
	assert.InDelta(t, 50.0, *changes[1].PriorDeltaPct, 1e-9)

	// Product boundary: oil's first year has no prior even though the
	// previous row's year is adjacent.
	assert.Equal(t, domain.ProductOil, changes[2].Product)
	assert.Nil(t, changes[2].PriorDeltaPct)
}

func TestYearOverYear_GapYearHasNoPrior(t *testing.T) {
	a, mock := newMockAggregator(t)

	mock.ExpectQuery(regexp.QuoteMeta(`EXTRACT(YEAR FROM production_date)::int AS year`)).
		WillReturnRows(sqlmock.NewRows([]string{"product_type", "year", "total"}).
			AddRow("oil", 2020, 100.0).
			AddRow("oil", 2023, 300.0))

	changes, err := a.YearOverYear(context.Background())
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Nil(t, changes[1].PriorDeltaPct)
}
