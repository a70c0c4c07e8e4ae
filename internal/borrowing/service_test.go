package borrowing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/pkg/db"
	"github.com/sarana-io/lending-backend/pkg/db/models"
	"github.com/sarana-io/lending-backend/pkg/enums"
	pkgerrors "github.com/sarana-io/lending-backend/pkg/errors"
	"github.com/sarana-io/lending-backend/pkg/metrics"
)

type borrowFixture struct {
	svc      Service
	conn     *gorm.DB
	drill    models.Item
	borrower models.User
}

func newBorrowFixture(t *testing.T) *borrowFixture {
	t.Helper()

	dsn := "file:borrowing_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}, &models.Item{}, &models.Reservation{}))

	borrower := models.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "x", Role: enums.UserRoleUser, IsActive: true}
	require.NoError(t, conn.Create(&borrower).Error)

	drill := models.Item{Name: "Drill", Category: "Tools", Location: "Shelf A", Quantity: 5}
	require.NoError(t, conn.Create(&drill).Error)

	svc, err := NewService(db.NewWithConn(conn), NewRepository(conn), 3, nil)
	require.NoError(t, err)

	return &borrowFixture{svc: svc, conn: conn, drill: drill, borrower: borrower}
}

func (f *borrowFixture) borrow(t *testing.T, quantity int) *models.Reservation {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	reservation, err := f.svc.Borrow(context.Background(), BorrowInput{
		ItemID:              f.drill.ID,
		BorrowerID:          f.borrower.ID,
		Quantity:            quantity,
		BorrowDate:          now,
		ScheduledReturnDate: now.AddDate(0, 0, 7),
	})
	require.NoError(t, err)
	return reservation
}

func (f *borrowFixture) available(t *testing.T) int {
	t.Helper()
	result, err := f.svc.Availability(context.Background(), f.drill.ID)
	require.NoError(t, err)
	return result.Available
}

func TestBorrowReducesAvailability(t *testing.T) {
	f := newBorrowFixture(t)

	require.Equal(t, 5, f.available(t))

	reservation := f.borrow(t, 3)
	require.Equal(t, enums.ReservationStatusPending, reservation.Status)
	require.Equal(t, 2, f.available(t))
}

func TestBorrowRejectsOversubscription(t *testing.T) {
	f := newBorrowFixture(t)

	f.borrow(t, 5)
	require.Equal(t, 0, f.available(t))

	_, err := f.svc.Borrow(context.Background(), BorrowInput{
		ItemID:              f.drill.ID,
		BorrowerID:          f.borrower.ID,
		Quantity:            1,
		BorrowDate:          time.Now().UTC(),
		ScheduledReturnDate: time.Now().UTC().AddDate(0, 0, 7),
	})
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeInsufficientStock, appErr.Code())
	require.NotNil(t, appErr.Details())

	// the rejected request must leave no reservation behind
	var count int64
	require.NoError(t, f.conn.Model(&models.Reservation{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAvailabilityReadsAreIdempotent(t *testing.T) {
	f := newBorrowFixture(t)
	f.borrow(t, 2)

	first, err := f.svc.Availability(context.Background(), f.drill.ID)
	require.NoError(t, err)
	second, err := f.svc.Availability(context.Background(), f.drill.ID)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 5, first.Total)
	require.Equal(t, 2, first.Pending)
	require.Equal(t, 3, first.Available)
}

func TestReturnRestoresAvailability(t *testing.T) {
	f := newBorrowFixture(t)
	reservation := f.borrow(t, 4)
	require.Equal(t, 1, f.available(t))

	result, err := f.svc.Return(context.Background(), ReturnInput{
		ReservationID: reservation.ID,
		Quantity:      4,
		ReturnDate:    reservation.ScheduledReturnDate,
	})
	require.NoError(t, err)
	require.Equal(t, enums.ReservationStatusReturned, result.Reservation.Status)
	require.NotNil(t, result.Reservation.ActualReturnDate)
	require.False(t, result.Late)
	require.Zero(t, result.DaysLate)

	require.Equal(t, 5, f.available(t))
}

func TestReturnedIsTerminal(t *testing.T) {
	f := newBorrowFixture(t)
	reservation := f.borrow(t, 2)

	_, err := f.svc.Return(context.Background(), ReturnInput{
		ReservationID: reservation.ID,
		Quantity:      2,
		ReturnDate:    reservation.ScheduledReturnDate,
	})
	require.NoError(t, err)

	_, err = f.svc.Return(context.Background(), ReturnInput{
		ReservationID: reservation.ID,
		Quantity:      2,
		ReturnDate:    reservation.ScheduledReturnDate.AddDate(0, 0, 1),
	})
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeAlreadyReturned, appErr.Code())

	// the second attempt must not touch the stored return date
	stored, err := f.svc.GetReservation(context.Background(), reservation.ID)
	require.NoError(t, err)
	require.True(t, stored.ActualReturnDate.Equal(reservation.ScheduledReturnDate))
	require.Equal(t, 5, f.available(t))
}

func TestReturnQuantityMismatch(t *testing.T) {
	f := newBorrowFixture(t)
	reservation := f.borrow(t, 3)

	_, err := f.svc.Return(context.Background(), ReturnInput{
		ReservationID: reservation.ID,
		Quantity:      2,
		ReturnDate:    reservation.ScheduledReturnDate,
	})
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeQuantityMismatch, appErr.Code())

	// reservation stays pending, stock stays committed
	stored, err := f.svc.GetReservation(context.Background(), reservation.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ReservationStatusPending, stored.Status)
	require.Equal(t, 2, f.available(t))
}

func TestReturnLatenessComputation(t *testing.T) {
	f := newBorrowFixture(t)

	cases := []struct {
		name     string
		lateBy   time.Duration
		wantLate bool
		wantDays int
	}{
		{"on time", 0, false, 0},
		{"early", -48 * time.Hour, false, 0},
		{"two days late", 48 * time.Hour, true, 2},
		{"partial day rounds up", 36 * time.Hour, true, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reservation := f.borrow(t, 1)
			result, err := f.svc.Return(context.Background(), ReturnInput{
				ReservationID: reservation.ID,
				Quantity:      1,
				ReturnDate:    reservation.ScheduledReturnDate.Add(tc.lateBy),
			})
			require.NoError(t, err)
			require.Equal(t, tc.wantLate, result.Late)
			require.Equal(t, tc.wantDays, result.DaysLate)
		})
	}
}

func TestBorrowValidation(t *testing.T) {
	f := newBorrowFixture(t)
	now := time.Now().UTC().Truncate(time.Second)

	cases := []struct {
		name     string
		input    BorrowInput
		wantCode pkgerrors.Code
	}{
		{
			"zero quantity",
			BorrowInput{ItemID: f.drill.ID, BorrowerID: f.borrower.ID, BorrowDate: now, ScheduledReturnDate: now.AddDate(0, 0, 7)},
			pkgerrors.CodeValidation,
		},
		{
			"return before borrow",
			BorrowInput{ItemID: f.drill.ID, BorrowerID: f.borrower.ID, Quantity: 1, BorrowDate: now, ScheduledReturnDate: now.AddDate(0, 0, -1)},
			pkgerrors.CodeValidation,
		},
		{
			"borrow date in past",
			BorrowInput{ItemID: f.drill.ID, BorrowerID: f.borrower.ID, Quantity: 1, BorrowDate: now.AddDate(0, 0, -2), ScheduledReturnDate: now.AddDate(0, 0, 7)},
			pkgerrors.CodeValidation,
		},
		{
			"unknown item",
			BorrowInput{ItemID: 9999, BorrowerID: f.borrower.ID, Quantity: 1, BorrowDate: now, ScheduledReturnDate: now.AddDate(0, 0, 7)},
			pkgerrors.CodeNotFound,
		},
		{
			"unknown borrower",
			BorrowInput{ItemID: f.drill.ID, BorrowerID: 9999, Quantity: 1, BorrowDate: now, ScheduledReturnDate: now.AddDate(0, 0, 7)},
			pkgerrors.CodeNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Borrow(context.Background(), tc.input)
			require.Error(t, err)
			appErr := pkgerrors.As(err)
			require.NotNil(t, appErr)
			require.Equal(t, tc.wantCode, appErr.Code())
		})
	}
}

func TestListOverdue(t *testing.T) {
	f := newBorrowFixture(t)

	overdue := f.borrow(t, 1)
	onTime := f.borrow(t, 1)

	now := overdue.ScheduledReturnDate.AddDate(0, 0, 1)

	// push the second reservation's deadline past now
	require.NoError(t, f.conn.Model(&models.Reservation{}).
		Where("id = ?", onTime.ID).
		Update("scheduled_return_date", now.AddDate(0, 0, 7)).Error)

	list, err := f.svc.ListOverdue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, overdue.ID, list[0].ID)

	// a returned reservation is never overdue
	_, err = f.svc.Return(context.Background(), ReturnInput{
		ReservationID: overdue.ID,
		Quantity:      1,
		ReturnDate:    now,
	})
	require.NoError(t, err)

	list, err = f.svc.ListOverdue(context.Background(), now)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestConcurrentBorrowsNeverOversubscribe(t *testing.T) {
	f := newBorrowFixture(t)
	now := time.Now().UTC().Truncate(time.Second)

	const callers = 10
	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Borrow(context.Background(), BorrowInput{
				ItemID:              f.drill.ID,
				BorrowerID:          f.borrower.ID,
				Quantity:            1,
				BorrowDate:          now,
				ScheduledReturnDate: now.AddDate(0, 0, 7),
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	admitted := 0
	for err := range results {
		if err == nil {
			admitted++
			continue
		}
		appErr := pkgerrors.As(err)
		require.NotNil(t, appErr)
		require.Contains(t,
			[]pkgerrors.Code{pkgerrors.CodeInsufficientStock, pkgerrors.CodeConflict},
			appErr.Code())
	}

	var pending int64
	require.NoError(t, f.conn.Model(&models.Reservation{}).
		Where("status = ?", enums.ReservationStatusPending).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&pending).Error)
	require.LessOrEqual(t, pending, int64(5), "admitted quantity must never exceed stock")
	require.EqualValues(t, admitted, pending)
}

// conflictingTxRunner aborts every attempt at commit time, the way a
// serialization failure surfaces after fn has already succeeded.
type conflictingTxRunner struct {
	conn *gorm.DB
}

func (c *conflictingTxRunner) WithTxRetry(ctx context.Context, attempts int, fn func(tx *gorm.DB) error, onConflict func()) error {
	var err error
	for i := 0; i < attempts; i++ {
		tx := c.conn.WithContext(ctx).Begin()
		if err = fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		tx.Rollback()
		if onConflict != nil {
			onConflict()
		}
		err = &pgconn.PgError{Code: "40001"}
	}
	return err
}

func TestBorrowConflictMetrics(t *testing.T) {
	f := newBorrowFixture(t)
	now := time.Now().UTC().Truncate(time.Second)

	registry := prometheus.NewRegistry()
	svc, err := NewService(&conflictingTxRunner{conn: f.conn}, NewRepository(f.conn), 3, metrics.NewEngineMetrics(registry))
	require.NoError(t, err)

	_, err = svc.Borrow(context.Background(), BorrowInput{
		ItemID:              f.drill.ID,
		BorrowerID:          f.borrower.ID,
		Quantity:            1,
		BorrowDate:          now,
		ScheduledReturnDate: now.AddDate(0, 0, 7),
	})
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	require.Equal(t, pkgerrors.CodeConflict, appErr.Code())

	// every aborted attempt counts as a conflict; giving up counts once
	require.Equal(t, float64(3), labeledMetricValue(t, registry, "engine_tx_conflicts_total", "operation", "borrow"))
	require.Equal(t, float64(1), labeledMetricValue(t, registry, "engine_tx_retries_exhausted_total", "operation", "borrow"))

	// nothing committed, so no availability may be published
	require.Nil(t, metricFamily(t, registry, "item_available_quantity"))
}

func TestBorrowPublishesCommittedAvailability(t *testing.T) {
	f := newBorrowFixture(t)
	now := time.Now().UTC().Truncate(time.Second)

	registry := prometheus.NewRegistry()
	svc, err := NewService(db.NewWithConn(f.conn), NewRepository(f.conn), 3, metrics.NewEngineMetrics(registry))
	require.NoError(t, err)

	_, err = svc.Borrow(context.Background(), BorrowInput{
		ItemID:              f.drill.ID,
		BorrowerID:          f.borrower.ID,
		Quantity:            3,
		BorrowDate:          now,
		ScheduledReturnDate: now.AddDate(0, 0, 7),
	})
	require.NoError(t, err)

	require.Equal(t, float64(2), labeledMetricValue(t, registry, "item_available_quantity", "item", "Drill"))
}

func metricFamily(t *testing.T, registry *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func labeledMetricValue(t *testing.T, registry *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	family := metricFamily(t, registry, name)
	require.NotNil(t, family, "metric family %s not found", name)
	for _, metric := range family.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				if counter := metric.GetCounter(); counter != nil {
					return counter.GetValue()
				}
				return metric.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("no %s sample with %s=%s", name, label, value)
	return 0
}
