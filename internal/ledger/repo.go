package ledger

import (
	"context"

	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/pkg/db"
	"github.com/sarana-io/lending-backend/pkg/db/models"
)

// Repository manages persistence for accounts and ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindAccountByID(ctx context.Context, id int64) (*models.Account, error)
	FindAccountByIDForUpdate(ctx context.Context, id int64) (*models.Account, error)
	UpdateBalance(ctx context.Context, account *models.Account) error
	CreateEntries(ctx context.Context, entries []models.LedgerEntry) error
	ListEntriesByAccountID(ctx context.Context, accountID int64) ([]models.LedgerEntry, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindAccountByIDForUpdate acquires a row lock on the account for the duration
// of the enclosing transaction.
func (r *repository) FindAccountByIDForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	if err := db.LockForUpdate(r.db.WithContext(ctx)).First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) UpdateBalance(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", account.ID).
		Update("balance", account.Balance).Error
}

func (r *repository) CreateEntries(ctx context.Context, entries []models.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

func (r *repository) ListEntriesByAccountID(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}
