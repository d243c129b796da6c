package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// --- Handler: POST /orders/{order_id}/confirm-payment ---

func (handler *OrderHTTPHandler) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	orderID := strings.TrimSpace(r.PathValue("order_id"))
	if orderID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "order_id is required", errors.New("missing order_id"))
		return
	}
	ctx = handler.logger.WithOrderID(ctx, orderID)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.ConfirmPayment(ctxWithTimeout, orderID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctxWithTimeout, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctxWithTimeout, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
