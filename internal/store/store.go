// Package store persists the production star schema: state, operator, and
// well dimensions plus the monthly production-volume fact. Dimension rows
// are created on first sight of a natural key; facts upsert on their
// (well, month, product) uniqueness key. The schema is assumed applied
// (see sql/schema.sql).
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Store wraps the relational star schema behind typed operations.
type Store struct {
	db          *sqlx.DB
	maxAttempts int
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string, maxAttempts int) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db, maxAttempts), nil
}

// New wraps an existing database handle. Used by tests with sqlmock.
func New(db *sqlx.DB, maxAttempts int) *Store {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Store{db: db, maxAttempts: maxAttempts}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
