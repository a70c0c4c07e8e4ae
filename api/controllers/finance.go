package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sarana-io/lending-backend/api/responses"
	"github.com/sarana-io/lending-backend/api/validators"
	financesvc "github.com/sarana-io/lending-backend/internal/finance"
	"github.com/sarana-io/lending-backend/pkg/enums"
	pkgerrors "github.com/sarana-io/lending-backend/pkg/errors"
	"github.com/sarana-io/lending-backend/pkg/logger"
)

type financialRecordRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"required"`
	Type        string          `json:"type" validate:"required"`
	Description string          `json:"description" validate:"required"`
	RecordedAt  time.Time       `json:"recorded_at" validate:"required"`
}

func (req financialRecordRequest) toInput() (financesvc.RecordInput, error) {
	recordType, err := enums.ParseFinancialRecordType(req.Type)
	if err != nil {
		return financesvc.RecordInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid record type")
	}
	return financesvc.RecordInput{
		Amount:      req.Amount,
		Type:        recordType,
		Description: req.Description,
		RecordedAt:  req.RecordedAt,
	}, nil
}

// CreateFinancialRecord adds a bookkeeping entry.
func CreateFinancialRecord(svc financesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "finance service unavailable"))
			return
		}

		var payload financialRecordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, record)
	}
}

// UpdateFinancialRecord rewrites a bookkeeping entry.
func UpdateFinancialRecord(svc financesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "recordID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload financialRecordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// DeleteFinancialRecord removes a bookkeeping entry.
func DeleteFinancialRecord(svc financesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "recordID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// GetFinancialRecord returns one bookkeeping entry.
func GetFinancialRecord(svc financesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "recordID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

// ListFinancialRecords returns bookkeeping entries, optionally by type.
func ListFinancialRecords(svc financesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := financesvc.ListFilter{}
		if raw := r.URL.Query().Get("type"); raw != "" {
			recordType, err := enums.ParseFinancialRecordType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid record type"))
				return
			}
			filter.Type = recordType
		}

		records, err := svc.List(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, records)
	}
}

// FinancialSummary returns the income/expense aggregate, or a single total
// when a type is requested.
func FinancialSummary(svc financesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := svc.Summary(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if raw := r.URL.Query().Get("type"); raw != "" {
			recordType, err := enums.ParseFinancialRecordType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid record type"))
				return
			}
			total := summary.TotalIncome
			if recordType == enums.FinancialRecordTypeExpense {
				total = summary.TotalExpense
			}
			responses.WriteSuccess(w, map[string]any{"type": recordType, "total": total})
			return
		}

		responses.WriteSuccess(w, summary)
	}
}
