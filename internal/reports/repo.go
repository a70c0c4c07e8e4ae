package reports

import (
	"context"

	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/pkg/db/models"
	"github.com/sarana-io/lending-backend/pkg/enums"
)

// UsageRow aggregates borrowing activity for one item.
type UsageRow struct {
	ItemID         int64  `json:"item_id"`
	ItemName       string `json:"item_name"`
	TotalBorrows   int64  `json:"total_borrows"`
	ActiveBorrows  int64  `json:"active_borrows"`
	QuantityLoaned int64  `json:"quantity_loaned"`
}

// Repository runs the read-only aggregate queries behind reports.
type Repository interface {
	Usage(ctx context.Context) ([]UsageRow, error)
	ListReturned(ctx context.Context) ([]models.Reservation, error)
	ListPending(ctx context.Context) ([]models.Reservation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reports repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

// Usage joins items against their reservations, keeping items that were never
// borrowed in the result with zero counts.
func (r *repository) Usage(ctx context.Context) ([]UsageRow, error) {
	var rows []UsageRow
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Select(`items.id AS item_id,
			items.name AS item_name,
			COUNT(reservations.id) AS total_borrows,
			COALESCE(SUM(CASE WHEN reservations.status = ? THEN 1 ELSE 0 END), 0) AS active_borrows,
			COALESCE(SUM(reservations.quantity), 0) AS quantity_loaned`,
			enums.ReservationStatusPending).
		Joins("LEFT JOIN reservations ON reservations.item_id = items.id").
		Group("items.id, items.name").
		Order("items.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListReturned(ctx context.Context) ([]models.Reservation, error) {
	var reservations []models.Reservation
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.ReservationStatusReturned).
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *repository) ListPending(ctx context.Context) ([]models.Reservation, error) {
	var reservations []models.Reservation
	if err := r.db.WithContext(ctx).
		Where("status = ?", enums.ReservationStatusPending).
		Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}
