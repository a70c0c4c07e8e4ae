package finance

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/pkg/db/models"
	"github.com/sarana-io/lending-backend/pkg/enums"
	pkgerrors "github.com/sarana-io/lending-backend/pkg/errors"
)

func newFinanceFixture(t *testing.T) Service {
	t.Helper()

	dsn := "file:finance_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.FinancialRecord{}))

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc
}

func recordInput(amount int64, recordType enums.FinancialRecordType, description string) RecordInput {
	return RecordInput{
		Amount:      decimal.NewFromInt(amount),
		Type:        recordType,
		Description: description,
		RecordedAt:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestRecordLifecycle(t *testing.T) {
	svc := newFinanceFixture(t)
	ctx := context.Background()

	record, err := svc.Create(ctx, recordInput(120, enums.FinancialRecordTypeIncome, "membership fees"))
	require.NoError(t, err)
	require.NotZero(t, record.ID)

	updated, err := svc.Update(ctx, record.ID, recordInput(150, enums.FinancialRecordTypeIncome, "membership fees (corrected)"))
	require.NoError(t, err)
	require.True(t, updated.Amount.Equal(decimal.NewFromInt(150)))

	got, err := svc.Get(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, "membership fees (corrected)", got.Description)

	require.NoError(t, svc.Delete(ctx, record.ID))

	_, err = svc.Get(ctx, record.ID)
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestSummaryAggregatesByType(t *testing.T) {
	svc := newFinanceFixture(t)
	ctx := context.Background()

	seeds := []RecordInput{
		recordInput(500, enums.FinancialRecordTypeIncome, "grant"),
		recordInput(300, enums.FinancialRecordTypeIncome, "donations"),
		recordInput(200, enums.FinancialRecordTypeExpense, "repairs"),
	}
	for _, seed := range seeds {
		_, err := svc.Create(ctx, seed)
		require.NoError(t, err)
	}

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.True(t, summary.TotalIncome.Equal(decimal.NewFromInt(800)), "income, got %s", summary.TotalIncome)
	require.True(t, summary.TotalExpense.Equal(decimal.NewFromInt(200)), "expense, got %s", summary.TotalExpense)
	require.True(t, summary.Net.Equal(decimal.NewFromInt(600)), "net, got %s", summary.Net)
}

func TestSummaryEmptyLedgerIsZero(t *testing.T) {
	svc := newFinanceFixture(t)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.True(t, summary.TotalIncome.IsZero())
	require.True(t, summary.TotalExpense.IsZero())
	require.True(t, summary.Net.IsZero())
}

func TestListFiltersByType(t *testing.T) {
	svc := newFinanceFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, recordInput(500, enums.FinancialRecordTypeIncome, "grant"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, recordInput(200, enums.FinancialRecordTypeExpense, "repairs"))
	require.NoError(t, err)

	expenses, err := svc.List(ctx, ListFilter{Type: enums.FinancialRecordTypeExpense})
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	require.Equal(t, enums.FinancialRecordTypeExpense, expenses[0].Type)

	all, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestRecordValidation(t *testing.T) {
	svc := newFinanceFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input RecordInput
	}{
		{"zero amount", RecordInput{Type: enums.FinancialRecordTypeIncome, Description: "x", RecordedAt: time.Now()}},
		{"negative amount", RecordInput{Amount: decimal.NewFromInt(-5), Type: enums.FinancialRecordTypeIncome, Description: "x", RecordedAt: time.Now()}},
		{"bad type", RecordInput{Amount: decimal.NewFromInt(5), Type: "REFUND", Description: "x", RecordedAt: time.Now()}},
		{"missing description", RecordInput{Amount: decimal.NewFromInt(5), Type: enums.FinancialRecordTypeIncome, RecordedAt: time.Now()}},
		{"missing recorded_at", RecordInput{Amount: decimal.NewFromInt(5), Type: enums.FinancialRecordTypeIncome, Description: "x"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.input)
			require.Error(t, err)
			require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}
