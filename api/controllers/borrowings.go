package controllers

import (
	"net/http"
	"time"

	"github.com/sarana-io/lending-backend/api/middleware"
	"github.com/sarana-io/lending-backend/api/responses"
	"github.com/sarana-io/lending-backend/api/validators"
	borrowsvc "github.com/sarana-io/lending-backend/internal/borrowing"
	"github.com/sarana-io/lending-backend/pkg/enums"
	pkgerrors "github.com/sarana-io/lending-backend/pkg/errors"
	"github.com/sarana-io/lending-backend/pkg/logger"
)

type borrowRequest struct {
	ItemID              int64     `json:"item_id" validate:"required"`
	BorrowerID          int64     `json:"borrower_id,omitempty"`
	Quantity            int       `json:"quantity" validate:"required,min=1"`
	BorrowDate          time.Time `json:"borrow_date" validate:"required"`
	ScheduledReturnDate time.Time `json:"scheduled_return_date" validate:"required"`
}

type returnRequest struct {
	Quantity   int       `json:"quantity" validate:"required,min=1"`
	ReturnDate time.Time `json:"return_date" validate:"required"`
}

// CreateBorrowing admits a borrow request. Regular users can only borrow for
// themselves; admins may pass an explicit borrower id.
func CreateBorrowing(svc borrowsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "borrowing service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload borrowRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		borrowerID := payload.BorrowerID
		if borrowerID == 0 {
			borrowerID = userID
		}
		if borrowerID != userID && middleware.RoleFromContext(r.Context()) != string(enums.UserRoleAdmin) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "cannot borrow on behalf of another user"))
			return
		}

		reservation, err := svc.Borrow(r.Context(), borrowsvc.BorrowInput{
			ItemID:              payload.ItemID,
			BorrowerID:          borrowerID,
			Quantity:            payload.Quantity,
			BorrowDate:          payload.BorrowDate,
			ScheduledReturnDate: payload.ScheduledReturnDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, reservation)
	}
}

// ReturnBorrowing closes out a reservation.
func ReturnBorrowing(svc borrowsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "borrowingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload returnRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Return(r.Context(), borrowsvc.ReturnInput{
			ReservationID: id,
			Quantity:      payload.Quantity,
			ReturnDate:    payload.ReturnDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetBorrowing returns one reservation.
func GetBorrowing(svc borrowsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "borrowingID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservation, err := svc.GetReservation(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reservation)
	}
}

// ListMyBorrowings lists the authenticated user's reservations.
func ListMyBorrowings(svc borrowsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		reservations, err := svc.ListByBorrower(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reservations)
	}
}

// ListBorrowings lists every reservation.
func ListBorrowings(svc borrowsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservations, err := svc.ListAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reservations)
	}
}

// ListOverdueBorrowings lists PENDING reservations past their deadline.
func ListOverdueBorrowings(svc borrowsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservations, err := svc.ListOverdue(r.Context(), time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, reservations)
	}
}
