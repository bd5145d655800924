package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/couchcryptid/well-production-etl/internal/domain"
)

// Dimension resolution follows the insert-or-fetch pattern: attempt a
// conditional insert, and when the row already exists (including the case
// where a concurrent worker just created it) fall back to a lookup. The
// store's uniqueness constraints are the ground truth, so racing workers
// can never create duplicate rows for one natural key.

// ResolveState returns the surrogate id for a (name, code) pair, creating
// the dimension row on first encounter.
func (s *Store) ResolveState(ctx context.Context, name, code string) (int64, error) {
	if name == "" || code == "" {
		return 0, fmt.Errorf("state (%q, %q): %w", name, code, domain.ErrInvalidDimensionKey)
	}

	var id int64
	err := s.withRetry(ctx, "resolve state", func() error {
		err := s.db.GetContext(ctx, &id,
			`INSERT INTO dim_state (name, code)
			 VALUES ($1, $2)
			 ON CONFLICT DO NOTHING
			 RETURNING state_id`, name, code)
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		// Row exists. Look it up by the full natural key; no row here means
		// the name and code collide with different existing pairs.
		err = s.db.GetContext(ctx, &id,
			`SELECT state_id FROM dim_state WHERE name = $1 AND code = $2`, name, code)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("state (%q, %q) collides with an existing name/code pair: %w",
				name, code, domain.ErrIntegrityViolation)
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ResolveOperator returns the surrogate id for an operator name, creating
// the dimension row on first encounter.
func (s *Store) ResolveOperator(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("operator: %w", domain.ErrInvalidDimensionKey)
	}

	var id int64
	err := s.withRetry(ctx, "resolve operator", func() error {
		err := s.db.GetContext(ctx, &id,
			`INSERT INTO dim_operator (name)
			 VALUES ($1)
			 ON CONFLICT (name) DO NOTHING
			 RETURNING operator_id`, name)
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return s.db.GetContext(ctx, &id,
			`SELECT operator_id FROM dim_operator WHERE name = $1`, name)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

type wellRow struct {
	WellID     int64 `db:"well_id"`
	StateID    int64 `db:"state_id"`
	OperatorID int64 `db:"operator_id"`
}

// ResolveWell returns the surrogate id for a well's API number, creating
// the row on first encounter. On a hit, identity (state, operator) is
// compared against the stored row: a mismatch is an identity conflict and
// the stored identity wins. Non-identity fields (status, coordinates) are
// updated in place, last write wins.
func (s *Store) ResolveWell(ctx context.Context, w domain.Well, stateID, operatorID int64) (int64, error) {
	if w.APINumber == "" {
		return 0, fmt.Errorf("well: %w", domain.ErrInvalidDimensionKey)
	}

	var id int64
	err := s.withRetry(ctx, "resolve well", func() error {
		existing, err := s.lookupWell(ctx, w.APINumber)
		if err == nil {
			id, err = s.updateWell(ctx, existing, w, stateID, operatorID)
			return err
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		err = s.db.GetContext(ctx, &id,
			`INSERT INTO dim_well (api_number, state_id, operator_id, status, latitude, longitude)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (api_number) DO NOTHING
			 RETURNING well_id`,
			w.APINumber, stateID, operatorID, string(w.Status), w.Latitude, w.Longitude)
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		// Lost the creation race; re-read and treat as a hit.
		existing, err = s.lookupWell(ctx, w.APINumber)
		if err != nil {
			return err
		}
		id, err = s.updateWell(ctx, existing, w, stateID, operatorID)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) lookupWell(ctx context.Context, apiNumber string) (wellRow, error) {
	var row wellRow
	err := s.db.GetContext(ctx, &row,
		`SELECT well_id, state_id, operator_id FROM dim_well WHERE api_number = $1`, apiNumber)
	return row, err
}

func (s *Store) updateWell(ctx context.Context, existing wellRow, w domain.Well, stateID, operatorID int64) (int64, error) {
	if existing.StateID != stateID || existing.OperatorID != operatorID {
		return 0, fmt.Errorf("well %s arrived under state=%d operator=%d, stored state=%d operator=%d: %w",
			w.APINumber, stateID, operatorID, existing.StateID, existing.OperatorID, domain.ErrIdentityConflict)
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE dim_well SET status = $2, latitude = $3, longitude = $4 WHERE well_id = $1`,
		existing.WellID, string(w.Status), w.Latitude, w.Longitude)
	if err != nil {
		return 0, err
	}
	return existing.WellID, nil
}
