package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

// --- Request DTOs (HTTP boundary) ---

type acceptOfferRequest struct {
	OrderID string `json:"order_id"`
}

type rejectOfferRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

// ----- Handler: POST /drivers/{driver_id}/offers/{offer_id}/accept -----

func (handler *DispatchHTTPHandler) handleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	driverID, ok := handler.driverFromPath(ctx, w, r)
	if !ok {
		return
	}

	offerID := strings.TrimSpace(r.PathValue("offer_id"))
	if offerID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing offer_id in path", nil)
		return
	}

	var req acceptOfferRequest
	if !handler.decodeStrict(ctx, w, r, 256<<10, &req) {
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "order_id is required", nil)
		return
	}

	in := ports.OfferDecisionInput{
		DriverID: driverID,
		OfferID:  offerID,
		OrderID:  req.OrderID,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.AcceptOffer(ctxWithTimeout, in)
	if err != nil {
		handler.offerError(ctxWithTimeout, w, "failed to accept offer", err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: POST /drivers/{driver_id}/offers/{offer_id}/reject -----

func (handler *DispatchHTTPHandler) handleRejectOffer(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	driverID, ok := handler.driverFromPath(ctx, w, r)
	if !ok {
		return
	}

	offerID := strings.TrimSpace(r.PathValue("offer_id"))
	if offerID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing offer_id in path", nil)
		return
	}

	var req rejectOfferRequest
	if !handler.decodeStrict(ctx, w, r, 256<<10, &req) {
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "order_id is required", nil)
		return
	}

	in := ports.OfferDecisionInput{
		DriverID: driverID,
		OfferID:  offerID,
		OrderID:  req.OrderID,
		Reason:   req.Reason,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.RejectOffer(ctxWithTimeout, in)
	if err != nil {
		handler.offerError(ctxWithTimeout, w, "failed to reject offer", err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// offerError maps offer races to 409 so driver apps can tell "too late"
// apart from a bad request.
func (handler *DispatchHTTPHandler) offerError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, order.ErrOfferExpired),
		errors.Is(err, order.ErrOfferDriverMismatch),
		errors.Is(err, order.ErrNoOfferOutstanding):
		handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)
	default:
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctx, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, msg, err)
	}
}
