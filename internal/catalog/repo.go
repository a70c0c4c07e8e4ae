package catalog

import (
	"context"

	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/pkg/db/models"
	"github.com/sarana-io/lending-backend/pkg/enums"
)

// Repository manages persistence for catalog items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.Item) error
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*models.Item, error)
	FindByName(ctx context.Context, name string) (*models.Item, error)
	List(ctx context.Context, filter ListFilter) ([]models.Item, error)
	CountPendingReservations(ctx context.Context, itemID int64) (int64, error)
}

// ListFilter narrows a catalog listing.
type ListFilter struct {
	Category string
	Location string
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) Update(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"name":     item.Name,
			"category": item.Category,
			"location": item.Location,
			"quantity": item.Quantity,
		}).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Item{}, id).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByName matches item names case-insensitively.
func (r *repository) FindByName(ctx context.Context, name string) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Item, error) {
	query := r.db.WithContext(ctx).Model(&models.Item{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Location != "" {
		query = query.Where("location = ?", filter.Location)
	}

	var items []models.Item
	if err := query.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CountPendingReservations(ctx context.Context, itemID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("item_id = ? AND status = ?", itemID, enums.ReservationStatusPending).
		Count(&count).Error
	return count, err
}
