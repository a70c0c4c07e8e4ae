package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/pkg/db/models"
	"github.com/sarana-io/lending-backend/pkg/enums"
	pkgerrors "github.com/sarana-io/lending-backend/pkg/errors"
)

// Service manages bookkeeping records and their aggregates.
type Service interface {
	Create(ctx context.Context, input RecordInput) (*models.FinancialRecord, error)
	Update(ctx context.Context, id int64, input RecordInput) (*models.FinancialRecord, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.FinancialRecord, error)
	List(ctx context.Context, filter ListFilter) ([]models.FinancialRecord, error)
	Summary(ctx context.Context) (*SummaryResult, error)
}

// RecordInput carries the writable fields of a financial record.
type RecordInput struct {
	Amount      decimal.Decimal           `json:"amount"`
	Type        enums.FinancialRecordType `json:"type"`
	Description string                    `json:"description"`
	RecordedAt  time.Time                 `json:"recorded_at"`
}

// SummaryResult aggregates totals per record type.
type SummaryResult struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Net          decimal.Decimal `json:"net"`
}

type service struct {
	repo Repository
}

// NewService builds the finance service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("finance repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input RecordInput) (*models.FinancialRecord, error) {
	if err := validateRecordInput(input); err != nil {
		return nil, err
	}

	record := &models.FinancialRecord{
		Amount:      input.Amount,
		Type:        input.Type,
		Description: strings.TrimSpace(input.Description),
		RecordedAt:  input.RecordedAt,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) Update(ctx context.Context, id int64, input RecordInput) (*models.FinancialRecord, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record id required")
	}
	if err := validateRecordInput(input); err != nil {
		return nil, err
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "record not found")
		}
		return nil, err
	}

	record.Amount = input.Amount
	record.Type = input.Type
	record.Description = strings.TrimSpace(input.Description)
	record.RecordedAt = input.RecordedAt

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "record id required")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "record not found")
		}
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) Get(ctx context.Context, id int64) (*models.FinancialRecord, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record id required")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "record not found")
		}
		return nil, err
	}
	return record, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.FinancialRecord, error) {
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid record type")
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Summary(ctx context.Context) (*SummaryResult, error) {
	income, err := s.repo.SumByType(ctx, enums.FinancialRecordTypeIncome)
	if err != nil {
		return nil, err
	}
	expense, err := s.repo.SumByType(ctx, enums.FinancialRecordTypeExpense)
	if err != nil {
		return nil, err
	}
	return &SummaryResult{
		TotalIncome:  income,
		TotalExpense: expense,
		Net:          income.Sub(expense),
	}, nil
}

func validateRecordInput(input RecordInput) error {
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Type.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid record type")
	}
	if strings.TrimSpace(input.Description) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	if input.RecordedAt.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "recorded_at required")
	}
	return nil
}
