package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/pkg/db"
	"github.com/sarana-io/lending-backend/pkg/db/models"
	pkgerrors "github.com/sarana-io/lending-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the item catalog.
type Service interface {
	Create(ctx context.Context, input ItemInput) (*models.Item, error)
	Update(ctx context.Context, id int64, input ItemInput) (*models.Item, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.Item, error)
	List(ctx context.Context, filter ListFilter) ([]models.Item, error)
}

// ItemInput carries the writable fields of a catalog item.
type ItemInput struct {
	Name     string `json:"name" validate:"required"`
	Category string `json:"category" validate:"required"`
	Location string `json:"location" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

type service struct {
	tx   txRunner
	repo Repository
}

// NewService builds the catalog service.
func NewService(tx txRunner, repo Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input ItemInput) (*models.Item, error) {
	if err := validateItemInput(input); err != nil {
		return nil, err
	}

	item := &models.Item{
		Name:     strings.TrimSpace(input.Name),
		Category: strings.TrimSpace(input.Category),
		Location: strings.TrimSpace(input.Location),
		Quantity: input.Quantity,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindByName(ctx, item.Name); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "item name already in use")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := repo.Create(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "idx_items_name_lower") {
				return pkgerrors.New(pkgerrors.CodeConflict, "item name already in use")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) Update(ctx context.Context, id int64, input ItemInput) (*models.Item, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if err := validateItemInput(input); err != nil {
		return nil, err
	}

	var updated *models.Item
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return err
		}

		name := strings.TrimSpace(input.Name)
		if other, err := repo.FindByName(ctx, name); err == nil && other.ID != item.ID {
			return pkgerrors.New(pkgerrors.CodeConflict, "item name already in use")
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		item.Name = name
		item.Category = strings.TrimSpace(input.Category)
		item.Location = strings.TrimSpace(input.Location)
		item.Quantity = input.Quantity

		if err := repo.Update(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an item. Items with stock still out on loan cannot be
// deleted.
func (s *service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
			}
			return err
		}

		pending, err := repo.CountPendingReservations(ctx, id)
		if err != nil {
			return err
		}
		if pending > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "item has pending reservations")
		}

		return repo.Delete(ctx, id)
	})
}

func (s *service) Get(ctx context.Context, id int64) (*models.Item, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, err
	}
	return item, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.Item, error) {
	return s.repo.List(ctx, filter)
}

func validateItemInput(input ItemInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item category required")
	}
	if strings.TrimSpace(input.Location) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "item location required")
	}
	if input.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	return nil
}
