package store

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/well-production-etl/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "sqlmock"), 3), mock
}

var (
	stateInsertQ = regexp.QuoteMeta(`INSERT INTO dim_state (name, code)
			 VALUES ($1, $2)
			 ON CONFLICT DO NOTHING
			 RETURNING state_id`)
	stateSelectQ = regexp.QuoteMeta(`SELECT state_id FROM dim_state WHERE name = $1 AND code = $2`)

	wellSelectQ = regexp.QuoteMeta(`SELECT well_id, state_id, operator_id FROM dim_well WHERE api_number = $1`)
	wellInsertQ = regexp.QuoteMeta(`INSERT INTO dim_well (api_number, state_id, operator_id, status, latitude, longitude)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (api_number) DO NOTHING
			 RETURNING well_id`)
	wellUpdateQ = regexp.QuoteMeta(`UPDATE dim_well SET status = $2, latitude = $3, longitude = $4 WHERE well_id = $1`)
)

func testWell() domain.Well {
	return domain.Well{
		APINumber: "API-123",
		StateName: "WEST VIRGINIA",
		StateCode: "WV",
		Operator:  "OPERATOR A",
		Status:    domain.StatusActive,
		Latitude:  39.26,
		Longitude: -80.34,
	}
}

func TestResolveState_CreatesOnFirstSight(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(stateInsertQ).
		WithArgs("WEST VIRGINIA", "WV").
		WillReturnRows(sqlmock.NewRows([]string{"state_id"}).AddRow(7))

	id, err := s.ResolveState(context.Background(), "WEST VIRGINIA", "WV")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveState_ReturnsExistingID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(stateInsertQ).
		WithArgs("WEST VIRGINIA", "WV").
		WillReturnRows(sqlmock.NewRows([]string{"state_id"}))
	mock.ExpectQuery(stateSelectQ).
		WithArgs("WEST VIRGINIA", "WV").
		WillReturnRows(sqlmock.NewRows([]string{"state_id"}).AddRow(7))

	id, err := s.ResolveState(context.Background(), "WEST VIRGINIA", "WV")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveState_NameCodeCollision(t *testing.T) {
	s, mock := newMockStore(t)

	// Insert conflicts but the (name, code) pair does not exist: the name
	// or code belongs to a different row.
	mock.ExpectQuery(stateInsertQ).
		WithArgs("TEXAS", "WV").
		WillReturnRows(sqlmock.NewRows([]string{"state_id"}))
	mock.ExpectQuery(stateSelectQ).
		WithArgs("TEXAS", "WV").
		WillReturnRows(sqlmock.NewRows([]string{"state_id"}))

	_, err := s.ResolveState(context.Background(), "TEXAS", "WV")
	assert.ErrorIs(t, err, domain.ErrIntegrityViolation)
}

func TestResolveState_EmptyKeyTouchesNoRow(t *testing.T) {
	s, mock := newMockStore(t)

	_, err := s.ResolveState(context.Background(), "WEST VIRGINIA", "")
	assert.ErrorIs(t, err, domain.ErrInvalidDimensionKey)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveOperator_InsertThenLookup(t *testing.T) {
	s, mock := newMockStore(t)

	insertQ := regexp.QuoteMeta(`INSERT INTO dim_operator (name)
			 VALUES ($1)
			 ON CONFLICT (name) DO NOTHING
			 RETURNING operator_id`)
	selectQ := regexp.QuoteMeta(`SELECT operator_id FROM dim_operator WHERE name = $1`)

	mock.ExpectQuery(insertQ).
		WithArgs("OPERATOR A").
		WillReturnRows(sqlmock.NewRows([]string{"operator_id"}))
	mock.ExpectQuery(selectQ).
		WithArgs("OPERATOR A").
		WillReturnRows(sqlmock.NewRows([]string{"operator_id"}).AddRow(3))

	id, err := s.ResolveOperator(context.Background(), "OPERATOR A")
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveWell_CreatesOnFirstSight(t *testing.T) {
	s, mock := newMockStore(t)
	w := testWell()

	mock.ExpectQuery(wellSelectQ).
		WithArgs(w.APINumber).
		WillReturnRows(sqlmock.NewRows([]string{"well_id", "state_id", "operator_id"}))
	mock.ExpectQuery(wellInsertQ).
		WithArgs(w.APINumber, int64(7), int64(3), "active", w.Latitude, w.Longitude).
		WillReturnRows(sqlmock.NewRows([]string{"well_id"}).AddRow(42))

	id, err := s.ResolveWell(context.Background(), w, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveWell_HitUpdatesNonIdentityFields(t *testing.T) {
	s, mock := newMockStore(t)
	w := testWell()

	mock.ExpectQuery(wellSelectQ).
		WithArgs(w.APINumber).
		WillReturnRows(sqlmock.NewRows([]string{"well_id", "state_id", "operator_id"}).AddRow(42, 7, 3))
	mock.ExpectExec(wellUpdateQ).
		WithArgs(int64(42), "active", w.Latitude, w.Longitude).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.ResolveWell(context.Background(), w, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveWell_OperatorChangeIsIdentityConflict(t *testing.T) {
	s, mock := newMockStore(t)
	w := testWell()

	// Stored under operator 3; arrives under operator 9. The stored
	// identity wins and no update happens.
	mock.ExpectQuery(wellSelectQ).
		WithArgs(w.APINumber).
		WillReturnRows(sqlmock.NewRows([]string{"well_id", "state_id", "operator_id"}).AddRow(42, 7, 3))

	_, err := s.ResolveWell(context.Background(), w, 7, 9)
	assert.ErrorIs(t, err, domain.ErrIdentityConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveWell_LostCreationRace(t *testing.T) {
	s, mock := newMockStore(t)
	w := testWell()

	// Not found, insert loses the race to a concurrent worker, re-read hits.
	mock.ExpectQuery(wellSelectQ).
		WithArgs(w.APINumber).
		WillReturnRows(sqlmock.NewRows([]string{"well_id", "state_id", "operator_id"}))
	mock.ExpectQuery(wellInsertQ).
		WithArgs(w.APINumber, int64(7), int64(3), "active", w.Latitude, w.Longitude).
		WillReturnRows(sqlmock.NewRows([]string{"well_id"}))
	mock.ExpectQuery(wellSelectQ).
		WithArgs(w.APINumber).
		WillReturnRows(sqlmock.NewRows([]string{"well_id", "state_id", "operator_id"}).AddRow(42, 7, 3))
	mock.ExpectExec(wellUpdateQ).
		WithArgs(int64(42), "active", w.Latitude, w.Longitude).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.ResolveWell(context.Background(), w, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	require.NoError(t, mock.ExpectationsWereMet())
}
