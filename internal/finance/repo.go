package finance

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/pkg/db/models"
	"github.com/sarana-io/lending-backend/pkg/enums"
)

// Repository manages persistence for financial records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.FinancialRecord) error
	Update(ctx context.Context, record *models.FinancialRecord) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*models.FinancialRecord, error)
	List(ctx context.Context, filter ListFilter) ([]models.FinancialRecord, error)
	SumByType(ctx context.Context, recordType enums.FinancialRecordType) (decimal.Decimal, error)
}

// ListFilter narrows a record listing.
type ListFilter struct {
	Type enums.FinancialRecordType
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a finance repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.FinancialRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) Update(ctx context.Context, record *models.FinancialRecord) error {
	return r.db.WithContext(ctx).
		Model(&models.FinancialRecord{}).
		Where("id = ?", record.ID).
		Updates(map[string]any{
			"amount":      record.Amount,
			"type":        record.Type,
			"description": record.Description,
			"recorded_at": record.RecordedAt,
		}).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.FinancialRecord{}, id).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.FinancialRecord, error) {
	var record models.FinancialRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.FinancialRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.FinancialRecord{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}

	var records []models.FinancialRecord
	if err := query.Order("recorded_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) SumByType(ctx context.Context, recordType enums.FinancialRecordType) (decimal.Decimal, error) {
	var raw string
	err := r.db.WithContext(ctx).
		Model(&models.FinancialRecord{}).
		Where("type = ?", recordType).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}
