package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"food-dispatch/internal/domain/user"
	"food-dispatch/internal/general/jwt"
	"food-dispatch/internal/general/logger"
	"food-dispatch/internal/general/websocket"
	"food-dispatch/internal/ports"
)

// OrderHTTPHandler adapts HTTP requests to the OrderService and the
// customer-facing wallet operations.
type OrderHTTPHandler struct {
	svc       ports.OrderService
	wallet    ports.WalletService
	logger    *logger.Logger
	auth      *jwt.Manager
	websocket *websocket.WebSocket
}

// NewOrderHTTPHandler wires an HTTP handler around the OrderService.
func NewOrderHTTPHandler(
	svc ports.OrderService,
	wallet ports.WalletService,
	logger *logger.Logger,
	auth *jwt.Manager,
	ws *websocket.WebSocket,
) *OrderHTTPHandler {
	return &OrderHTTPHandler{svc: svc, wallet: wallet, logger: logger, auth: auth, websocket: ws}
}

// RegisterRoutes mounts order endpoints on the provided mux.
func (handler *OrderHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer)(handler.handleCreateOrder),
	)
	mux.HandleFunc("POST /orders/{order_id}/confirm-payment",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer)(handler.handleConfirmPayment),
	)
	mux.HandleFunc("POST /orders/{order_id}/cancel",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer)(handler.handleCancelOrder),
	)

	mux.HandleFunc("GET /wallet",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer)(handler.handleWalletBalance),
	)
	mux.HandleFunc("POST /wallet/deposit",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer)(handler.handleWalletDeposit),
	)
	mux.HandleFunc("POST /wallet/withdraw",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleCustomer)(handler.handleWalletWithdraw),
	)

	// WebSocket handles its own first-frame authentication
	mux.HandleFunc("GET /ws/customers/{customer_id}", handler.websocket.ConnectCustomer)

	mux.HandleFunc("GET /orders/health", handler.handleHealth)
	mux.HandleFunc("POST /tokens", handler.handleCreateToken)
}

// ----- general helpers -----

type TokenRequest struct {
	UserID string    `json:"user_id"`
	Role   user.Role `json:"role"`
}

// TokenResponse represents the response for token generation
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      user.Role `json:"role"`
}

func (handler *OrderHTTPHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	tokenString, claims, err := handler.auth.IssueUserToken(req.UserID, req.Role)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	response := TokenResponse{
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
		UserID:    req.UserID,
		Role:      req.Role,
	}

	handler.logger.Info(ctx, "token_generated", "JWT token generated successfully",
		map[string]any{"user_id": req.UserID, "role": req.Role.String()})

	handler.jsonResponse(ctx, w, http.StatusCreated, response)
}

func (handler *OrderHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	handler.jsonResponse(ctx, w, http.StatusOK, map[string]string{"status": "ok", "service": "order-service"})
}

// jsonResponse encodes data to the HTTP response, controlling the status
// even when encoding fails.
func (handler *OrderHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *OrderHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *OrderHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
