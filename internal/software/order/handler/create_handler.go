package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/general/jwt"
	"food-dispatch/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- Request DTO (HTTP boundary) ---

type createOrderRequest struct {
	CustomerID       string          `json:"customer_id"`
	RestaurantID     string          `json:"restaurant_id"`
	PaymentMethod    string          `json:"payment_method"` // COD | WALLET | VNPAY
	Subtotal         decimal.Decimal `json:"subtotal"`
	DeliveryFee      decimal.Decimal `json:"delivery_fee"`
	PickupAddress    string          `json:"pickup_address"`
	PickupLatitude   float64         `json:"pickup_latitude"`
	PickupLongitude  float64         `json:"pickup_longitude"`
	DropoffAddress   string          `json:"dropoff_address"`
	DropoffLatitude  float64         `json:"dropoff_latitude"`
	DropoffLongitude float64         `json:"dropoff_longitude"`
}

// ----- Handler: POST /orders -----

func (handler *OrderHTTPHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	var req createOrderRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	// fill or verify customer_id against the token subject
	sub := strings.TrimSpace(claims.Subject)
	if strings.TrimSpace(req.CustomerID) == "" {
		req.CustomerID = sub
	} else if req.CustomerID != sub {
		handler.httpError(ctx, w, http.StatusForbidden, "customer_id does not match token subject", errors.New("customer/token mismatch"))
		return
	}

	method, err := order.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "payment_method must be one of: COD, WALLET, VNPAY", errors.New("invalid payment_method"))
		return
	}

	in := ports.CreateOrderInput{
		CustomerID:       strings.TrimSpace(req.CustomerID),
		RestaurantID:     strings.TrimSpace(req.RestaurantID),
		PaymentMethod:    method,
		Subtotal:         req.Subtotal,
		DeliveryFee:      req.DeliveryFee,
		PickupAddress:    strings.TrimSpace(req.PickupAddress),
		PickupLatitude:   req.PickupLatitude,
		PickupLongitude:  req.PickupLongitude,
		DropoffAddress:   strings.TrimSpace(req.DropoffAddress),
		DropoffLatitude:  req.DropoffLatitude,
		DropoffLongitude: req.DropoffLongitude,
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.svc.CreateOrder(ctxWithTimeout, in)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctxWithTimeout, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctxWithTimeout, w, http.StatusBadRequest, err.Error(), err)
		return
	}
	ctxWithTimeout = handler.logger.WithOrderID(ctxWithTimeout, res.OrderID)

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, res)
}
