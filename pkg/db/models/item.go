package models

import "time"

// Item is a catalog entry with finite stock. Stock is never decremented
// directly; availability is derived from the item's PENDING reservations.
type Item struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"type:text;not null"`
	Category  string    `gorm:"type:text;not null"`
	Location  string    `gorm:"type:text;not null"`
	Quantity  int       `gorm:"column:quantity;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
