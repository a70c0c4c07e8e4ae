package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

const conflictBackoff = 25 * time.Millisecond

// Postgres SQLSTATEs that mean "the transaction lost a race, run it again".
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// IsConflict reports whether err is a concurrent-modification collision that
// a fresh transaction attempt could resolve.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	// sqlite reports write contention as a busy/locked error string.
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// WithTxRetry runs fn inside a transaction and re-runs the whole transaction
// when the store reports a conflict, up to attempts total tries. The ceiling
// is explicit so callers can never loop unbounded; the final conflict error is
// returned for the caller to classify. onConflict, when non-nil, runs once per
// attempt a conflict aborted, including attempts a retry later absorbed.
func (c *Client) WithTxRetry(ctx context.Context, attempts int, fn func(tx *gorm.DB) error, onConflict func()) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(conflictBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.WithTx(ctx, fn)
		if IsConflict(err) {
			if onConflict != nil {
				onConflict()
			}
			return retry.RetryableError(err)
		}
		return err
	})
}
