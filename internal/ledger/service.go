package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sarana-io/lending-backend/pkg/db"
	"github.com/sarana-io/lending-backend/pkg/db/models"
	pkgerrors "github.com/sarana-io/lending-backend/pkg/errors"
	"github.com/sarana-io/lending-backend/pkg/metrics"
)

type txRunner interface {
	WithTxRetry(ctx context.Context, attempts int, fn func(tx *gorm.DB) error, onConflict func()) error
}

// Service moves funds between accounts and exposes read access to balances
// and the append-only entry log.
type Service interface {
	Transfer(ctx context.Context, input TransferInput) (*TransferResult, error)
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]models.Account, error)
	ListEntries(ctx context.Context, accountID int64) ([]models.LedgerEntry, error)
}

// TransferInput captures one requested fund movement.
type TransferInput struct {
	SenderAccountID   int64           `json:"sender_account_id"`
	ReceiverAccountID int64           `json:"receiver_account_id"`
	Amount            decimal.Decimal `json:"amount"`
}

// TransferResult reports the committed state after a successful transfer.
type TransferResult struct {
	Sender   *models.Account      `json:"sender"`
	Receiver *models.Account      `json:"receiver"`
	Entries  []models.LedgerEntry `json:"entries"`
}

type service struct {
	tx       txRunner
	repo     Repository
	attempts int
	metrics  *metrics.EngineMetrics
}

// NewService builds the transfer service. attempts is the transaction retry
// ceiling, including the first try.
func NewService(tx txRunner, repo Repository, attempts int, m *metrics.EngineMetrics) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if attempts < 1 {
		attempts = 3
	}
	return &service{tx: tx, repo: repo, attempts: attempts, metrics: m}, nil
}

// Transfer debits the sender, credits the receiver, and appends the two signed
// entries in a single transaction. Either every write commits or none do.
func (s *service) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if input.SenderAccountID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sender account id required")
	}
	if input.ReceiverAccountID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receiver account id required")
	}
	if input.SenderAccountID == input.ReceiverAccountID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sender and receiver must differ")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var result TransferResult
	err := s.tx.WithTxRetry(ctx, s.attempts, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		sender, err := repo.FindAccountByIDForUpdate(ctx, input.SenderAccountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "sender account not found")
			}
			return err
		}

		if sender.Balance.LessThan(input.Amount) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient funds").
				WithDetails(map[string]any{
					"balance":   sender.Balance,
					"requested": input.Amount,
				})
		}

		sender.Balance = sender.Balance.Sub(input.Amount)
		if err := repo.UpdateBalance(ctx, sender); err != nil {
			return err
		}

		receiver, err := repo.FindAccountByIDForUpdate(ctx, input.ReceiverAccountID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "receiver account not found")
			}
			return err
		}

		receiver.Balance = receiver.Balance.Add(input.Amount)
		if err := repo.UpdateBalance(ctx, receiver); err != nil {
			return err
		}

		entries := []models.LedgerEntry{
			{AccountID: sender.ID, Amount: input.Amount.Neg()},
			{AccountID: receiver.ID, Amount: input.Amount},
		}
		if err := repo.CreateEntries(ctx, entries); err != nil {
			return err
		}

		result = TransferResult{Sender: sender, Receiver: receiver, Entries: entries}
		return nil
	}, func() { s.metrics.IncConflict("transfer") })
	if err != nil {
		if db.IsConflict(err) {
			s.metrics.IncRetriesExhausted("transfer")
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transfer aborted by concurrent activity")
		}
		return nil, err
	}
	return &result, nil
}

func (s *service) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	account, err := s.repo.FindAccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, err
	}
	return account, nil
}

func (s *service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.repo.ListAccounts(ctx)
}

func (s *service) ListEntries(ctx context.Context, accountID int64) ([]models.LedgerEntry, error) {
	if accountID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if _, err := s.repo.FindAccountByID(ctx, accountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, err
	}
	return s.repo.ListEntriesByAccountID(ctx, accountID)
}
