package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/sarana-io/lending-backend/internal/catalog"
	"github.com/sarana-io/lending-backend/pkg/db/models"
	"github.com/sarana-io/lending-backend/pkg/logger"
	"github.com/sarana-io/lending-backend/pkg/metrics"
)

type overdueLister interface {
	ListOverdue(ctx context.Context, now time.Time) ([]models.Reservation, error)
}

type pendingSummer interface {
	SumPendingQuantity(ctx context.Context, itemID int64) (int, error)
}

type itemLister interface {
	List(ctx context.Context, filter catalog.ListFilter) ([]models.Item, error)
}

// OverdueJobParams configure the overdue reservation scanner.
type OverdueJobParams struct {
	Logger       *logger.Logger
	Reservations overdueLister
	Pending      pendingSummer
	Items        itemLister
	Metrics      *metrics.EngineMetrics
}

// NewOverdueJob builds the cron job that flags overdue loans and refreshes
// the per-item availability gauges.
func NewOverdueJob(params OverdueJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservations reader required")
	}
	if params.Pending == nil {
		return nil, fmt.Errorf("pending summer required")
	}
	if params.Items == nil {
		return nil, fmt.Errorf("item lister required")
	}
	return &overdueJob{
		logg:         params.Logger,
		reservations: params.Reservations,
		pending:      params.Pending,
		items:        params.Items,
		metrics:      params.Metrics,
		now:          time.Now,
	}, nil
}

type overdueJob struct {
	logg         *logger.Logger
	reservations overdueLister
	pending      pendingSummer
	items        itemLister
	metrics      *metrics.EngineMetrics
	now          func() time.Time
}

func (j *overdueJob) Name() string { return "overdue-scan" }

func (j *overdueJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.scanOverdue(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.publishAvailability(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (j *overdueJob) scanOverdue(ctx context.Context) error {
	now := j.now().UTC()
	overdue, err := j.reservations.ListOverdue(ctx, now)
	if err != nil {
		return fmt.Errorf("query overdue reservations: %w", err)
	}

	for _, reservation := range overdue {
		entryCtx := j.logg.WithFields(ctx, map[string]any{
			"reservation_id": reservation.ID,
			"item_id":        reservation.ItemID,
			"borrower_id":    reservation.BorrowerID,
			"due":            reservation.ScheduledReturnDate,
		})
		j.logg.Warn(entryCtx, "reservation overdue")
	}

	j.metrics.SetOverdue(len(overdue))
	return nil
}

func (j *overdueJob) publishAvailability(ctx context.Context) error {
	items, err := j.items.List(ctx, catalog.ListFilter{})
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	for _, item := range items {
		pending, err := j.pending.SumPendingQuantity(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("sum pending for item %d: %w", item.ID, err)
		}
		j.metrics.SetAvailability(item.Name, item.Quantity-pending)
	}
	return nil
}
