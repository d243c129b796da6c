package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"food-dispatch/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

// --- Request DTOs (HTTP boundary) ---

type confirmPickupRequest struct {
	OrderID        string         `json:"order_id"`
	DriverLocation ports.GeoPoint `json:"driver_location"`
}

type confirmDeliveryRequest struct {
	OrderID       string         `json:"order_id"`
	FinalLocation ports.GeoPoint `json:"final_location"`
}

// ----- Handler: POST /drivers/{driver_id}/pickup -----

func (handler *DispatchHTTPHandler) handleConfirmPickup(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	driverID, ok := handler.driverFromPath(ctx, w, r)
	if !ok {
		return
	}

	var req confirmPickupRequest
	if !handler.decodeStrict(ctx, w, r, 256<<10, &req) {
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "order_id is required", nil)
		return
	}

	in := ports.PickupInput{
		DriverID:       driverID,
		OrderID:        req.OrderID,
		DriverLocation: req.DriverLocation,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.ConfirmPickup(ctxWithTimeout, in)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctxWithTimeout, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctxWithTimeout, w, http.StatusBadRequest, "failed to confirm pickup", err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: POST /drivers/{driver_id}/deliver -----

func (handler *DispatchHTTPHandler) handleConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	driverID, ok := handler.driverFromPath(ctx, w, r)
	if !ok {
		return
	}

	var req confirmDeliveryRequest
	if !handler.decodeStrict(ctx, w, r, 256<<10, &req) {
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "order_id is required", nil)
		return
	}

	in := ports.DeliverInput{
		DriverID:      driverID,
		OrderID:       req.OrderID,
		FinalLocation: req.FinalLocation,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.ConfirmDelivery(ctxWithTimeout, in)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctxWithTimeout, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctxWithTimeout, w, http.StatusBadRequest, "failed to confirm delivery", err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
