package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/sarana-io/lending-backend/api/responses"
	"github.com/sarana-io/lending-backend/api/validators"
	ledgersvc "github.com/sarana-io/lending-backend/internal/ledger"
	pkgerrors "github.com/sarana-io/lending-backend/pkg/errors"
	"github.com/sarana-io/lending-backend/pkg/logger"
)

type transferRequest struct {
	SenderAccountID   int64           `json:"sender_account_id" validate:"required"`
	ReceiverAccountID int64           `json:"receiver_account_id" validate:"required"`
	Amount            decimal.Decimal `json:"amount" validate:"required"`
}

// Transfer moves funds between two accounts.
func Transfer(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		var payload transferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Transfer(r.Context(), ledgersvc.TransferInput{
			SenderAccountID:   payload.SenderAccountID,
			ReceiverAccountID: payload.ReceiverAccountID,
			Amount:            payload.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetAccount returns one account with its balance.
func GetAccount(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "accountID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		account, err := svc.GetAccount(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, account)
	}
}

// ListAccounts returns every account.
func ListAccounts(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accounts, err := svc.ListAccounts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, accounts)
	}
}

// ListAccountEntries returns the signed entry log of one account.
func ListAccountEntries(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "accountID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.ListEntries(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}
