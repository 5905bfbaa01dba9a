package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/lib/pq"
)

// LockKey acquires a transaction scoped advisory lock. Signup uses it to
// serialize requests sharing an idempotency token.
// A nil Timeout waits up to 30 seconds; zero or negative fails fast.
// Must be called inside a transaction; released on commit or rollback.
func (c *Client) LockKey(ctx context.Context, req types.LockRequest) error {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return ierr.NewError("LockKey must be called inside transaction").
			Mark(ierr.ErrInternal)
	}

	timeout := req.GetTimeout()

	if timeout <= 0 {
		ok, err := tryLock(ctx, tx, req.Key)
		if err != nil {
			return err
		}
		if !ok {
			return ierr.NewError("lock already held").
				WithHint("Another request is working on the same resource, retry shortly").
				WithReportableDetails(map[string]any{"lock_key": req.Key}).
				Mark(ierr.ErrVersionConflict)
		}
		return nil
	}

	// SET LOCAL is reset on commit/rollback
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", int(timeout.Milliseconds()))); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to set lock timeout").
			Mark(ierr.ErrDatabase)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, req.Key); err != nil {
		if isLockTimeoutError(err) {
			return ierr.WithError(err).
				WithHintf("Failed to acquire lock within %v", timeout).
				WithReportableDetails(map[string]any{"lock_key": req.Key}).
				Mark(ierr.ErrVersionConflict)
		}
		return ierr.WithError(err).
			WithHint("Failed to acquire lock").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

// isLockTimeoutError matches SQLSTATE 55P03 (lock_not_available)
func isLockTimeoutError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "55P03"
	}
	return false
}

func tryLock(ctx context.Context, tx *sql.Tx, key string) (bool, error) {
	var ok bool
	if err := tx.QueryRowContext(ctx, `SELECT pg_try_advisory_xact_lock(hashtext($1))`, key).Scan(&ok); err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to try advisory lock").
			Mark(ierr.ErrDatabase)
	}
	return ok, nil
}

// IsUniqueViolation matches SQLSTATE 23505
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
