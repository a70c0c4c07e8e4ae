package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a monetary balance. The balance is mutated exclusively inside
// a transfer transaction and is never negative after a committed operation.
type Account struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	UserID    int64           `gorm:"column:user_id;not null;index"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
