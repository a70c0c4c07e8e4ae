package migrate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/pkg/config"
	"github.com/sarana-io/lending-backend/pkg/db"
	"github.com/sarana-io/lending-backend/pkg/db/models"
	"github.com/sarana-io/lending-backend/pkg/enums"
	"github.com/sarana-io/lending-backend/pkg/security"
)

const seedPassword = "changeme123"

type seedAccount struct {
	name    string
	email   string
	role    enums.UserRole
	balance decimal.Decimal
}

func seedAccounts() []seedAccount {
	return []seedAccount{
		{name: "Alice", email: "alice@example.com", role: enums.UserRoleAdmin, balance: decimal.NewFromInt(500)},
		{name: "Bob", email: "bob@example.com", role: enums.UserRoleUser, balance: decimal.NewFromInt(300)},
	}
}

// SeedDev inserts demo users and funded accounts for local development.
// Existing users (matched by email) are left untouched, so the command is
// safe to run repeatedly.
func SeedDev(ctx context.Context, cfg *config.Config, client *db.Client) error {
	if !cfg.App.IsDev() {
		return fmt.Errorf("seed is restricted to dev environments (env=%s)", cfg.App.Env)
	}

	hash, err := security.HashPassword(seedPassword, cfg.Password)
	if err != nil {
		return fmt.Errorf("hashing seed password: %w", err)
	}

	return client.WithTx(ctx, func(tx *gorm.DB) error {
		for _, seed := range seedAccounts() {
			var existing models.User
			err := tx.Where("email = ?", seed.email).First(&existing).Error
			if err == nil {
				continue
			}
			if err != gorm.ErrRecordNotFound {
				return fmt.Errorf("looking up seed user %s: %w", seed.email, err)
			}

			user := models.User{
				Name:         seed.name,
				Email:        seed.email,
				PasswordHash: hash,
				Role:         seed.role,
				IsActive:     true,
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("creating seed user %s: %w", seed.email, err)
			}

			account := models.Account{
				UserID:  user.ID,
				Balance: seed.balance,
			}
			if err := tx.Create(&account).Error; err != nil {
				return fmt.Errorf("creating seed account for %s: %w", seed.email, err)
			}
		}
		return nil
	})
}
