package borrowing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/pkg/db"
	"github.com/sarana-io/lending-backend/pkg/db/models"
	"github.com/sarana-io/lending-backend/pkg/enums"
	pkgerrors "github.com/sarana-io/lending-backend/pkg/errors"
	"github.com/sarana-io/lending-backend/pkg/metrics"
)

type txRunner interface {
	WithTxRetry(ctx context.Context, attempts int, fn func(tx *gorm.DB) error, onConflict func()) error
}

// Service admits borrow requests against finite stock and walks reservations
// through their lifecycle.
type Service interface {
	Borrow(ctx context.Context, input BorrowInput) (*models.Reservation, error)
	Availability(ctx context.Context, itemID int64) (*AvailabilityResult, error)
	Return(ctx context.Context, input ReturnInput) (*ReturnResult, error)
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	ListAll(ctx context.Context) ([]models.Reservation, error)
	ListByBorrower(ctx context.Context, borrowerID int64) ([]models.Reservation, error)
	ListByItem(ctx context.Context, itemID int64) ([]models.Reservation, error)
	ListOverdue(ctx context.Context, now time.Time) ([]models.Reservation, error)
}

// BorrowInput captures one borrow request.
type BorrowInput struct {
	ItemID              int64     `json:"item_id"`
	BorrowerID          int64     `json:"borrower_id"`
	Quantity            int       `json:"quantity"`
	BorrowDate          time.Time `json:"borrow_date"`
	ScheduledReturnDate time.Time `json:"scheduled_return_date"`
}

// ReturnInput closes out a reservation.
type ReturnInput struct {
	ReservationID int64     `json:"reservation_id"`
	Quantity      int       `json:"quantity"`
	ReturnDate    time.Time `json:"return_date"`
}

// AvailabilityResult reports derived stock for one item.
type AvailabilityResult struct {
	ItemID    int64 `json:"item_id"`
	Total     int   `json:"total"`
	Pending   int   `json:"pending"`
	Available int   `json:"available"`
}

// ReturnResult reports the closed reservation and its lateness.
type ReturnResult struct {
	Reservation *models.Reservation `json:"reservation"`
	Late        bool                `json:"late"`
	DaysLate    int                 `json:"days_late"`
}

type service struct {
	tx       txRunner
	repo     Repository
	attempts int
	metrics  *metrics.EngineMetrics
}

// NewService builds the borrowing service. attempts is the transaction retry
// ceiling, including the first try.
func NewService(tx txRunner, repo Repository, attempts int, m *metrics.EngineMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("borrowing repository required")
	}
	if attempts < 1 {
		attempts = 3
	}
	return &service{tx: tx, repo: repo, attempts: attempts, metrics: m}, nil
}

// Borrow admits the request only if the item's derived availability covers the
// quantity. The availability check, the admission decision, and the
// reservation insert happen in one transaction with the item row locked, so
// two concurrent requests can never both be admitted against the same stock.
func (s *service) Borrow(ctx context.Context, input BorrowInput) (*models.Reservation, error) {
	if input.ItemID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.BorrowerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "borrower id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.BorrowDate.IsZero() || input.ScheduledReturnDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "borrow and scheduled return dates required")
	}
	if input.ScheduledReturnDate.Before(input.BorrowDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scheduled return date must not precede borrow date")
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if input.BorrowDate.Before(today) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "borrow date must not be in the past")
	}

	var reservation *models.Reservation
	var itemName string
	var remaining int
	err := s.tx.WithTxRetry(ctx, s.attempts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindBorrowerByID(ctx, input.BorrowerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "borrower not found")
			}
			return err
		}

		item, err := repo.FindItemByIDForUpdate(ctx, input.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return err
		}

		pending, err := repo.SumPendingQuantity(ctx, item.ID)
		if err != nil {
			return err
		}

		available := item.Quantity - pending
		if available < input.Quantity {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient availability").
				WithDetails(map[string]any{
					"available": available,
					"requested": input.Quantity,
				})
		}

		reservation = &models.Reservation{
			ItemID:              item.ID,
			BorrowerID:          input.BorrowerID,
			Quantity:            input.Quantity,
			BorrowDate:          input.BorrowDate,
			ScheduledReturnDate: input.ScheduledReturnDate,
			Status:              enums.ReservationStatusPending,
		}
		if err := repo.CreateReservation(ctx, reservation); err != nil {
			return err
		}

		itemName = item.Name
		remaining = available - input.Quantity
		return nil
	}, func() { s.metrics.IncConflict("borrow") })
	if err != nil {
		if db.IsConflict(err) {
			s.metrics.IncRetriesExhausted("borrow")
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "borrow aborted by concurrent activity")
		}
		return nil, err
	}

	// gauge reflects committed state only
	s.metrics.SetAvailability(itemName, remaining)
	return reservation, nil
}

// Availability derives the free stock for an item. Reads never mutate state,
// so asking twice in a row yields the same answer.
func (s *service) Availability(ctx context.Context, itemID int64) (*AvailabilityResult, error) {
	if itemID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	item, err := s.repo.FindItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, err
	}

	pending, err := s.repo.SumPendingQuantity(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	available := item.Quantity - pending
	s.metrics.SetAvailability(item.Name, available)

	return &AvailabilityResult{
		ItemID:    item.ID,
		Total:     item.Quantity,
		Pending:   pending,
		Available: available,
	}, nil
}

// Return closes a PENDING reservation, freeing its stock and recording the
// actual return date. RETURNED is terminal: a second return fails and leaves
// the row untouched.
func (s *service) Return(ctx context.Context, input ReturnInput) (*ReturnResult, error) {
	if input.ReservationID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.ReturnDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return date required")
	}

	var result ReturnResult
	err := s.tx.WithTxRetry(ctx, s.attempts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		reservation, err := repo.FindReservationByIDForUpdate(ctx, input.ReservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return err
		}

		if reservation.Status == enums.ReservationStatusReturned {
			return pkgerrors.New(pkgerrors.CodeAlreadyReturned, "reservation already returned")
		}
		if input.Quantity != reservation.Quantity {
			return pkgerrors.New(pkgerrors.CodeQuantityMismatch, "returned quantity does not match reservation").
				WithDetails(map[string]any{
					"reserved": reservation.Quantity,
					"returned": input.Quantity,
				})
		}
		if input.ReturnDate.Before(reservation.BorrowDate) {
			return pkgerrors.New(pkgerrors.CodeValidation, "return date must not precede borrow date")
		}

		returnDate := input.ReturnDate
		reservation.Status = enums.ReservationStatusReturned
		reservation.ActualReturnDate = &returnDate
		if err := repo.MarkReturned(ctx, reservation); err != nil {
			return err
		}

		late, daysLate := lateness(reservation.ScheduledReturnDate, returnDate)
		result = ReturnResult{Reservation: reservation, Late: late, DaysLate: daysLate}
		return nil
	}, func() { s.metrics.IncConflict("return") })
	if err != nil {
		if db.IsConflict(err) {
			s.metrics.IncRetriesExhausted("return")
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "return aborted by concurrent activity")
		}
		return nil, err
	}
	return &result, nil
}

func (s *service) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	reservation, err := s.repo.FindReservationByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, err
	}
	return reservation, nil
}

func (s *service) ListAll(ctx context.Context) ([]models.Reservation, error) {
	return s.repo.ListAll(ctx)
}

func (s *service) ListByBorrower(ctx context.Context, borrowerID int64) ([]models.Reservation, error) {
	if borrowerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "borrower id required")
	}
	return s.repo.ListByBorrower(ctx, borrowerID)
}

func (s *service) ListByItem(ctx context.Context, itemID int64) ([]models.Reservation, error) {
	if itemID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	return s.repo.ListByItem(ctx, itemID)
}

func (s *service) ListOverdue(ctx context.Context, now time.Time) ([]models.Reservation, error) {
	return s.repo.ListOverdue(ctx, now)
}

// lateness reports whether the return missed its scheduled date and by how
// many whole days, counting any partial day as a full one.
func lateness(scheduled, actual time.Time) (bool, int) {
	if !actual.After(scheduled) {
		return false, 0
	}
	elapsed := actual.Sub(scheduled)
	days := int(elapsed / (24 * time.Hour))
	if elapsed%(24*time.Hour) > 0 {
		days++
	}
	return true, days
}
