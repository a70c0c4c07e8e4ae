package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := "file:txretry_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return NewWithConn(conn)
}

func TestIsConflict(t *testing.T) {
	t.Parallel()

	if IsConflict(nil) {
		t.Fatal("nil error must not be a conflict")
	}
	if !IsConflict(&pgconn.PgError{Code: "40001"}) {
		t.Fatal("serialization failure must be a conflict")
	}
	if !IsConflict(&pgconn.PgError{Code: "40P01"}) {
		t.Fatal("deadlock must be a conflict")
	}
	if IsConflict(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("unique violation is not retryable")
	}
	if !IsConflict(fmt.Errorf("step: %w", errors.New("database is locked"))) {
		t.Fatal("sqlite busy error must be a conflict")
	}
	if IsConflict(errors.New("connection refused")) {
		t.Fatal("arbitrary errors are not conflicts")
	}
}

func TestWithTxRetryBoundedAttempts(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	conflict := &pgconn.PgError{Code: "40001"}

	attempts := 0
	err := client.WithTxRetry(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		return conflict
	}, nil)
	require.Error(t, err)
	require.True(t, errors.As(err, new(*pgconn.PgError)))
	require.Equal(t, 3, attempts, "retry ceiling must include the first try")
}

func TestWithTxRetryStopsOnNonConflict(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)
	fatal := errors.New("boom")

	attempts := 0
	err := client.WithTxRetry(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		return fatal
	}, nil)
	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, attempts)
}

func TestWithTxRetrySucceedsAfterConflict(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)

	attempts := 0
	err := client.WithTxRetry(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		if attempts == 1 {
			return &pgconn.PgError{Code: "40P01"}
		}
		return nil
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
}

func TestWithTxRetryReportsEachConflictedAttempt(t *testing.T) {
	t.Parallel()

	client := newTestClient(t)

	attempts := 0
	conflicts := 0
	err := client.WithTxRetry(context.Background(), 3, func(tx *gorm.DB) error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	}, func() { conflicts++ })
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, 2, conflicts, "absorbed conflicts must be reported too")

	conflicts = 0
	err = client.WithTxRetry(context.Background(), 2, func(tx *gorm.DB) error {
		return &pgconn.PgError{Code: "40001"}
	}, func() { conflicts++ })
	require.Error(t, err)
	require.Equal(t, 2, conflicts)
}
