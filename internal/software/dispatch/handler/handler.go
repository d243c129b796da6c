package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"food-dispatch/internal/domain/user"
	"food-dispatch/internal/general/jwt"
	"food-dispatch/internal/general/logger"
	"food-dispatch/internal/general/websocket"
	"food-dispatch/internal/ports"
)

// DispatchHTTPHandler adapts HTTP requests from driver apps to the
// DispatchService.
type DispatchHTTPHandler struct {
	svc       ports.DispatchService
	logger    *logger.Logger
	auth      *jwt.Manager
	websocket *websocket.WebSocket
}

// NewDispatchHTTPHandler wires an HTTP handler around the DispatchService.
func NewDispatchHTTPHandler(
	svc ports.DispatchService,
	logger *logger.Logger,
	auth *jwt.Manager,
	ws *websocket.WebSocket,
) *DispatchHTTPHandler {
	return &DispatchHTTPHandler{svc: svc, logger: logger, auth: auth, websocket: ws}
}

// RegisterRoutes mounts driver endpoints on the provided mux.
func (handler *DispatchHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /drivers/{driver_id}/online",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleGoOnline),
	)
	mux.HandleFunc("POST /drivers/{driver_id}/offline",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleGoOffline),
	)
	mux.HandleFunc("POST /drivers/{driver_id}/location",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleUpdateLocation),
	)

	mux.HandleFunc("POST /drivers/{driver_id}/offers/{offer_id}/accept",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleAcceptOffer),
	)
	mux.HandleFunc("POST /drivers/{driver_id}/offers/{offer_id}/reject",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleRejectOffer),
	)

	mux.HandleFunc("POST /drivers/{driver_id}/pickup",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleConfirmPickup),
	)
	mux.HandleFunc("POST /drivers/{driver_id}/deliver",
		jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)(handler.handleConfirmDelivery),
	)

	// WebSocket handles its own first-frame authentication
	mux.HandleFunc("GET /ws/drivers/{driver_id}", handler.websocket.ConnectDriver)

	mux.HandleFunc("GET /dispatch/health", handler.handleHealth)
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

func (handler *DispatchHTTPHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
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

func (handler *DispatchHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)
	handler.jsonResponse(ctx, w, http.StatusOK, map[string]string{"status": "ok", "service": "dispatch-service"})
}

// driverFromPath validates the path driver_id against the token subject.
// Drivers may only act on their own resources.
func (handler *DispatchHTTPHandler) driverFromPath(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	driverID := strings.TrimSpace(r.PathValue("driver_id"))
	if driverID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "missing driver_id in path", nil)
		return "", false
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return "", false
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" || sub != driverID {
		handler.httpError(ctx, w, http.StatusForbidden, "driver_id does not match token subject", errors.New("driver/token mismatch"))
		return "", false
	}

	return driverID, true
}

// decodeStrict reads a JSON body with unknown fields rejected.
func (handler *DispatchHTTPHandler) decodeStrict(ctx context.Context, w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON body", err)
		return false
	}
	return true
}

// jsonResponse encodes data to the HTTP response, controlling the status
// even when encoding fails.
func (handler *DispatchHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
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
func (handler *DispatchHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
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
func (handler *DispatchHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
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
