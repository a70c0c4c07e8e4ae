package models

import (
	"time"

	"github.com/sarana-io/lending-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           int64          `gorm:"primaryKey;autoIncrement"`
	Name         string         `gorm:"type:text;not null"`
	Email        string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"type:text;not null;default:USER"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
