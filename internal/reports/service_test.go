package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/pkg/db/models"
	"github.com/sarana-io/lending-backend/pkg/enums"
)

func newReportsFixture(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dsn := "file:reports_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Item{}, &models.Reservation{}))

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func seedReservation(t *testing.T, conn *gorm.DB, itemID int64, quantity int, status enums.ReservationStatus, borrow, scheduled time.Time, actual *time.Time) {
	t.Helper()
	require.NoError(t, conn.Create(&models.Reservation{
		ItemID:              itemID,
		BorrowerID:          1,
		Quantity:            quantity,
		BorrowDate:          borrow,
		ScheduledReturnDate: scheduled,
		ActualReturnDate:    actual,
		Status:              status,
	}).Error)
}

func TestUsageReportCountsPerItem(t *testing.T) {
	svc, conn := newReportsFixture(t)

	drill := models.Item{Name: "Drill", Category: "Tools", Location: "Shelf A", Quantity: 5}
	saw := models.Item{Name: "Saw", Category: "Tools", Location: "Shelf B", Quantity: 2}
	require.NoError(t, conn.Create(&drill).Error)
	require.NoError(t, conn.Create(&saw).Error)

	borrow := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	due := borrow.AddDate(0, 0, 7)
	returned := borrow.AddDate(0, 0, 5)

	seedReservation(t, conn, drill.ID, 2, enums.ReservationStatusPending, borrow, due, nil)
	seedReservation(t, conn, drill.ID, 1, enums.ReservationStatusReturned, borrow, due, &returned)

	rows, err := svc.Usage(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// ordered by name: Drill then Saw
	require.Equal(t, "Drill", rows[0].ItemName)
	require.EqualValues(t, 2, rows[0].TotalBorrows)
	require.EqualValues(t, 1, rows[0].ActiveBorrows)
	require.EqualValues(t, 3, rows[0].QuantityLoaned)

	// never-borrowed items still appear
	require.Equal(t, "Saw", rows[1].ItemName)
	require.Zero(t, rows[1].TotalBorrows)
	require.Zero(t, rows[1].ActiveBorrows)
	require.Zero(t, rows[1].QuantityLoaned)
}

func TestBorrowAnalysis(t *testing.T) {
	svc, conn := newReportsFixture(t)

	item := models.Item{Name: "Drill", Category: "Tools", Location: "Shelf A", Quantity: 5}
	require.NoError(t, conn.Create(&item).Error)

	borrow := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	due := borrow.AddDate(0, 0, 7)

	onTime := borrow.AddDate(0, 0, 6)
	late := borrow.AddDate(0, 0, 9)
	seedReservation(t, conn, item.ID, 1, enums.ReservationStatusReturned, borrow, due, &onTime)
	seedReservation(t, conn, item.ID, 1, enums.ReservationStatusReturned, borrow, due, &late)

	// one open loan already past its deadline, one still inside it
	seedReservation(t, conn, item.ID, 1, enums.ReservationStatusPending, borrow, due, nil)
	seedReservation(t, conn, item.ID, 1, enums.ReservationStatusPending, borrow, due.AddDate(0, 0, 30), nil)

	now := due.AddDate(0, 0, 2)
	analysis, err := svc.BorrowAnalysis(context.Background(), now)
	require.NoError(t, err)

	require.Equal(t, 2, analysis.TotalReturns)
	require.Equal(t, 1, analysis.LateReturns)
	require.Equal(t, 1, analysis.OnTimeReturns)
	require.InDelta(t, 7.5, analysis.AverageLoanDays, 0.001)
	require.Equal(t, 2, analysis.ActiveLoans)
	require.Equal(t, 1, analysis.OverdueLoans)
}

func TestBorrowAnalysisEmpty(t *testing.T) {
	svc, _ := newReportsFixture(t)

	analysis, err := svc.BorrowAnalysis(context.Background(), time.Now())
	require.NoError(t, err)
	require.Zero(t, analysis.TotalReturns)
	require.Zero(t, analysis.AverageLoanDays)
	require.Zero(t, analysis.ActiveLoans)
}
