package controllers

import (
	"net/http"
	"time"

	"github.com/sarana-io/lending-backend/api/responses"
	reportsvc "github.com/sarana-io/lending-backend/internal/reports"
	"github.com/sarana-io/lending-backend/pkg/logger"
)

// UsageReport returns per-item borrowing aggregates.
func UsageReport(svc reportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.Usage(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// BorrowAnalysisReport returns lateness and duration aggregates.
func BorrowAnalysisReport(svc reportsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		analysis, err := svc.BorrowAnalysis(r.Context(), time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, analysis)
	}
}
