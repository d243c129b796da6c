package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// --- Handler: GET /admin/earnings ---

func (handler *AdminHTTPHandler) handleEarnings(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	for _, bound := range []string{from, to} {
		if bound == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", bound); err != nil {
			handler.httpError(ctx, w, http.StatusBadRequest, "dates must be YYYY-MM-DD", err)
			return
		}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	report, err := handler.svc.GetEarningsReport(ctxWithTimeout, from, to)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctxWithTimeout, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctxWithTimeout, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, report)
}
