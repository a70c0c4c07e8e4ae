package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sarana-io/lending-backend/pkg/enums"
)

// FinancialRecord is a bookkeeping entry maintained by the finance
// collaborator. It is separate from the transfer ledger.
type FinancialRecord struct {
	ID          int64                     `gorm:"primaryKey;autoIncrement"`
	Amount      decimal.Decimal           `gorm:"column:amount;type:numeric(14,2);not null"`
	Type        enums.FinancialRecordType `gorm:"type:text;not null;index"`
	Description string                    `gorm:"type:text;not null"`
	RecordedAt  time.Time                 `gorm:"column:recorded_at;not null"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
