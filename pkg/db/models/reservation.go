package models

import (
	"time"

	"github.com/sarana-io/lending-backend/pkg/enums"
)

// Reservation tracks one borrow request through its lifecycle. A PENDING
// reservation commits stock against its item; RETURNED frees it.
type Reservation struct {
	ID                  int64                   `gorm:"primaryKey;autoIncrement"`
	ItemID              int64                   `gorm:"column:item_id;not null;index"`
	BorrowerID          int64                   `gorm:"column:borrower_id;not null;index"`
	Quantity            int                     `gorm:"column:quantity;not null"`
	BorrowDate          time.Time               `gorm:"column:borrow_date;not null"`
	ScheduledReturnDate time.Time               `gorm:"column:scheduled_return_date;not null"`
	ActualReturnDate    *time.Time              `gorm:"column:actual_return_date"`
	Status              enums.ReservationStatus `gorm:"type:text;not null;default:PENDING;index"`
	CreatedAt           time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
