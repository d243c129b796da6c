package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"food-dispatch/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

// --- Request DTOs (HTTP boundary) ---

type goOnlineRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ----- Handler: POST /drivers/{driver_id}/online -----

func (handler *DispatchHTTPHandler) handleGoOnline(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	driverID, ok := handler.driverFromPath(ctx, w, r)
	if !ok {
		return
	}

	var req goOnlineRequest
	if !handler.decodeStrict(ctx, w, r, 1<<20, &req) {
		return
	}

	in := ports.GoOnlineInput{
		DriverID:  driverID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.GoOnline(ctxWithTimeout, in)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctxWithTimeout, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctxWithTimeout, w, http.StatusBadRequest, "failed to go online", err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: POST /drivers/{driver_id}/offline -----

func (handler *DispatchHTTPHandler) handleGoOffline(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	driverID, ok := handler.driverFromPath(ctx, w, r)
	if !ok {
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.GoOffline(ctxWithTimeout, ports.GoOfflineInput{DriverID: driverID})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctxWithTimeout, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctxWithTimeout, w, http.StatusBadRequest, "failed to go offline", err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
