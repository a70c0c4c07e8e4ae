package borrowing

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/pkg/db"
	"github.com/sarana-io/lending-backend/pkg/db/models"
	"github.com/sarana-io/lending-backend/pkg/enums"
)

// Repository manages persistence for reservations and their stock queries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindItemByID(ctx context.Context, id int64) (*models.Item, error)
	FindItemByIDForUpdate(ctx context.Context, id int64) (*models.Item, error)
	FindBorrowerByID(ctx context.Context, id int64) (*models.User, error)
	SumPendingQuantity(ctx context.Context, itemID int64) (int, error)
	CreateReservation(ctx context.Context, reservation *models.Reservation) error
	FindReservationByID(ctx context.Context, id int64) (*models.Reservation, error)
	FindReservationByIDForUpdate(ctx context.Context, id int64) (*models.Reservation, error)
	MarkReturned(ctx context.Context, reservation *models.Reservation) error
	ListAll(ctx context.Context) ([]models.Reservation, error)
	ListByBorrower(ctx context.Context, borrowerID int64) ([]models.Reservation, error)
	ListByItem(ctx context.Context, itemID int64) ([]models.Reservation, error)
	ListOverdue(ctx context.Context, now time.Time) ([]models.Reservation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a borrowing repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindItemByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItemByIDForUpdate locks the item row so concurrent admissions against
// the same stock serialize on it.
func (r *repository) FindItemByIDForUpdate(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	if err := db.LockForUpdate(r.db.WithContext(ctx)).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindBorrowerByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// SumPendingQuantity totals the stock currently committed to PENDING
// reservations of the item.
func (r *repository) SumPendingQuantity(ctx context.Context, itemID int64) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("item_id = ? AND status = ?", itemID, enums.ReservationStatusPending).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) FindReservationByID(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.db.WithContext(ctx).First(&reservation, id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) FindReservationByIDForUpdate(ctx context.Context, id int64) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := db.LockForUpdate(r.db.WithContext(ctx)).First(&reservation, id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) MarkReturned(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ?", reservation.ID).
		Updates(map[string]any{
			"status":             reservation.Status,
			"actual_return_date": reservation.ActualReturnDate,
		}).Error
}

func (r *repository) ListAll(ctx context.Context) ([]models.Reservation, error) {
	var reservations []models.Reservation
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *repository) ListByBorrower(ctx context.Context, borrowerID int64) ([]models.Reservation, error) {
	var reservations []models.Reservation
	if err := r.db.WithContext(ctx).
		Where("borrower_id = ?", borrowerID).
		Order("created_at DESC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *repository) ListByItem(ctx context.Context, itemID int64) ([]models.Reservation, error) {
	var reservations []models.Reservation
	if err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at DESC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// ListOverdue returns PENDING reservations whose scheduled return date has
// passed as of now.
func (r *repository) ListOverdue(ctx context.Context, now time.Time) ([]models.Reservation, error) {
	var reservations []models.Reservation
	if err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_return_date < ?", enums.ReservationStatusPending, now).
		Order("scheduled_return_date ASC").
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}
