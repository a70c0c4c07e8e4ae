package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is an immutable signed record of a balance change. Every
// successful transfer appends exactly two entries that sum to zero, making the
// entry table the source of truth for conservation checks.
type LedgerEntry struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	AccountID int64           `gorm:"column:account_id;not null;index"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
