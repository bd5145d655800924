package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/couchcryptid/well-production-etl/internal/domain"
)

// Backoff for transient store failures: start at 200ms, double each retry,
// cap at 5s. Attempts are bounded by Store.maxAttempts; once exhausted the
// failure is reported as transient and attributed to the record.
const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// withRetry runs fn, retrying transient failures with exponential backoff.
// Non-transient errors pass through classified.
func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return classify(op, err)
		}
		if attempt == s.maxAttempts {
			break
		}
		if !sleepWithContext(ctx, backoff) {
			break
		}
		backoff = nextBackoff(backoff)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrTransientStore, err)
}

// isTransient reports whether an error is worth retrying: lock and
// serialization failures from Postgres, dropped connections, and
// store-side timeouts.
func isTransient(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03", // lock_not_available
			"57014": // query_canceled (statement timeout)
			return true
		}
		return false
	}
	return errors.Is(err, driver.ErrBadConn)
}

// classify maps a terminal store error onto the domain taxonomy.
// Constraint violations (SQLSTATE class 23) become integrity violations,
// fatal for the affected record only.
func classify(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "23" {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrIntegrityViolation, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
