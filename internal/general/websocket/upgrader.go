package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"food-dispatch/internal/domain/user"
	"food-dispatch/internal/general/jwt"
	"food-dispatch/internal/general/logger"
	"food-dispatch/internal/general/rabbitmq"
	"food-dispatch/internal/ports"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WebSocket handles WebSocket connections with JWT auth.
type WebSocket struct {
	logger          *logger.Logger
	jwtMgr          *jwt.Manager
	pub             *rabbitmq.MQPublisher
	coordinatesRepo ports.CoordinatesRepository
	ordersRepo      ports.OrderRepository
	locStore        ports.LocationStore
	uow             ports.UnitOfWork
	writeLocks      sync.Map
	customers       sync.Map // key: customerID(string) -> *websocket.Conn
	driverConns     sync.Map // key: driverID -> *websocket.Conn
	driverStates    sync.Map // key: driverID -> *DriverState
}

// NewWebSocket creates a WebSocket handler with JWT auth.
func NewWebSocket(
	logger *logger.Logger,
	jwtMgr *jwt.Manager,
	pub *rabbitmq.MQPublisher,
	coordsRepo ports.CoordinatesRepository,
	ordersRepo ports.OrderRepository,
	locStore ports.LocationStore,
	uow ports.UnitOfWork,
) *WebSocket {
	return &WebSocket{
		logger:          logger,
		jwtMgr:          jwtMgr,
		pub:             pub,
		coordinatesRepo: coordsRepo,
		ordersRepo:      ordersRepo,
		locStore:        locStore,
		uow:             uow,
	}
}

// ConnectDriver handles WebSocket connections from drivers with JWT auth.
func (ws *WebSocket) ConnectDriver(w http.ResponseWriter, r *http.Request) {
	// 1) Upgrade HTTP -> WS
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	// Teardown order (LIFO on return):
	defer conn.Close()               // close the socket last
	defer ws.writeLocks.Delete(conn) // forget per-connection mutex (idempotent)

	// 2) Set auth deadline
	conn.SetReadLimit(1 << 20) // 1 MiB
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		ws.logger.Error(r.Context(), "ws_set_deadline_failed", "Failed to set initial read deadline", err, nil)
		ws.sendAuthError(conn, "internal server error")
		return
	}

	// 3) Auth: first frame must be the auth message
	msgType, firstFrame, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			ws.logger.Error(r.Context(), "ws_auth_timeout", "Client disconnected before authentication", err, nil)
		} else {
			ws.logger.Error(r.Context(), "ws_auth_read_failed", "Failed to read auth message", err, nil)
		}
		ws.sendAuthError(conn, "authentication timeout: please send auth message within 5 seconds")
		return
	}

	if msgType != websocket.TextMessage {
		ws.logger.Error(r.Context(), "ws_auth_invalid_format", "Auth message must be text format", nil, nil)
		ws.sendAuthError(conn, "auth message must be in text format")
		return
	}

	res, err := jwt.ValidateWSAuth(firstFrame, ws.jwtMgr, user.RoleDriver)
	if err != nil {
		ws.logger.Error(r.Context(), "ws_auth_failed", "Invalid auth message or token", err, nil)
		ws.sendAuthError(conn, "authentication failed: invalid token")
		return
	}

	// 4) Path param must match the subject in claims
	if drvID := r.PathValue("driver_id"); drvID != "" && drvID != res.Claims.Subject {
		ws.logger.Error(r.Context(), "ws_auth_failed", "Driver ID mismatch", nil, map[string]any{
			"path_driver_id": drvID,
			"token_subject":  res.Claims.Subject,
		})
		ws.sendAuthError(conn, "driver ID mismatch")
		return
	}
	driverID := res.Claims.Subject

	// 5) Send authentication success message
	if err := ws.sendAuthSuccess(conn, "driver_id", driverID); err != nil {
		ws.logger.Error(r.Context(), "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		return
	}

	ws.logger.Info(r.Context(), "ws_connected", "Driver WebSocket connected",
		map[string]any{"driver_id": driverID})

	// 6) Reset read deadline after auth
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	// 7) Start ping loop (every 30s) using the per-connection writer lock
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			mu := ws.lockOf(conn)
			mu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(ctrlTimeout))
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
			mu.Unlock()
			if err != nil {
				// Close socket to unblock reader; goroutine exits.
				_ = conn.Close()
				ws.logger.Error(r.Context(), "ws_ping_failed", "Failed to send ping", err, nil)
				return
			}
		}
	}()

	// 8) Register this driver for outbound delivery offers; unregister on exit
	ws.RegisterDriverConn(driverID, conn)
	defer ws.RemoveDriverConn(driverID)

	// 9) Per-connection state (location update throttle marker)
	var lastLocAt time.Time

	// 10) Read loop: route messages
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				ws.logger.Error(r.Context(), "ws_unexpected_close", "Driver connection closed unexpectedly", err, map[string]any{
					"driver_id": driverID,
				})
				ws.wsWriteClose(conn, websocket.CloseInternalServerErr, "internal error")
			} else {
				ws.logger.Info(r.Context(), "ws_connection_closed", "Driver connection closed normally", map[string]any{
					"driver_id": driverID,
				})
				ws.wsWriteClose(conn, websocket.CloseNormalClosure, "bye")
			}
			break
		}

		// Minimal envelope
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}

		if err := json.Unmarshal(payload, &msg); err != nil {
			_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"bad json"}`))
			continue
		}

		switch msg.Type {
		case "offer_response":
			if err := ws.handleOfferResponse(conn, driverID, msg.Data); err != nil {
				ws.logger.Error(r.Context(), "driver_ws_message_failed", "driver.response publish failed", err, map[string]any{
					"driver_id": driverID,
				})
				_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"failed to publish response"}`))
			}

		case "driver_status":
			if err := ws.handleDriverStatus(conn, driverID, msg.Data); err != nil {
				ws.logger.Error(r.Context(), "driver_ws_message_failed", "driver.status publish failed", err, map[string]any{
					"driver_id": driverID,
				})
				_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"failed to publish driver status"}`))
			}

		case "location_update":
			// Uses request context so logs/DB ops inherit request cancellation
			if err := ws.handleLocationUpdate(r.Context(), conn, driverID, msg.Data, &lastLocAt); err != nil {
				// sub-handler logs; no additional action needed
				continue
			}

		default:
			_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"unknown message type"}`))
		}
	}
}

// ConnectCustomer handles WebSocket connections from customers with JWT auth.
// Customers receive order status and courier location pushes; the only
// inbound traffic is the auth frame and pongs.
func (ws *WebSocket) ConnectCustomer(w http.ResponseWriter, r *http.Request) {
	// 1) Upgrade HTTP -> WS
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}

	// Teardown order (LIFO on return):
	defer conn.Close()
	defer ws.writeLocks.Delete(conn)

	// 2) Set auth deadline
	conn.SetReadLimit(1 << 20) // 1 MiB
	if err := conn.SetReadDeadline(time.Now().Add(10 * time.Second)); err != nil {
		ws.logger.Error(r.Context(), "ws_set_deadline_failed", "Failed to set initial read deadline", err, nil)
		ws.sendAuthError(conn, "internal server error")
		return
	}

	// 3) Auth: first frame must be the auth message
	mt, first, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			ws.logger.Error(r.Context(), "ws_auth_timeout", "Client disconnected before authentication", err, nil)
		} else {
			ws.logger.Error(r.Context(), "ws_auth_read_failed", "Failed to read auth message", err, nil)
		}
		ws.sendAuthError(conn, "authentication timeout: please send auth message within 10 seconds")
		return
	}

	if mt != websocket.TextMessage {
		ws.logger.Error(r.Context(), "ws_auth_invalid_format", "Auth message must be text format", nil, nil)
		ws.sendAuthError(conn, "auth message must be in text format")
		return
	}

	res, err := jwt.ValidateWSAuth(first, ws.jwtMgr, user.RoleCustomer)
	if err != nil {
		ws.logger.Error(r.Context(), "ws_auth_failed", "Invalid auth message or token", err, nil)
		ws.sendAuthError(conn, "authentication failed: invalid token")
		return
	}

	if cid := r.PathValue("customer_id"); cid != "" && cid != res.Claims.Subject {
		ws.logger.Error(r.Context(), "ws_auth_failed", "Customer ID mismatch", nil, map[string]any{
			"path_customer_id": cid,
			"token_subject":    res.Claims.Subject,
		})
		ws.sendAuthError(conn, "customer ID mismatch")
		return
	}
	customerID := res.Claims.Subject

	// 4) Send authentication success message
	if err := ws.sendAuthSuccess(conn, "customer_id", customerID); err != nil {
		ws.logger.Error(r.Context(), "ws_auth_success_failed", "Failed to send auth success message", err, nil)
		return
	}

	ws.logger.Info(r.Context(), "ws_connected", "Customer WebSocket connected",
		map[string]any{"customer_id": customerID})

	// 5) Reset read deadline after auth
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	// 6) Start ping loop (every 30s) with per-connection writer lock
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	go func() {
		for range ticker.C {
			mu := ws.lockOf(conn)
			mu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(ctrlTimeout))
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
			mu.Unlock()
			if err != nil {
				// Close socket to unblock reader; goroutine exits.
				_ = conn.Close()
				ws.logger.Error(r.Context(), "ws_ping_failed", "Failed to send ping", err, map[string]any{
					"customer_id": customerID,
				})
				return
			}
		}
	}()

	// 7) Register customer connection for outbound notifications; unregister on exit
	ws.customers.Store(customerID, conn)
	defer ws.customers.Delete(customerID)

	// 8) Read loop: keep the connection alive, reject unexpected traffic
	for {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				ws.logger.Error(r.Context(), "ws_unexpected_close", "Customer connection closed unexpectedly", err, map[string]any{
					"customer_id": customerID,
				})
				ws.wsWriteClose(conn, websocket.CloseInternalServerErr, "internal error")
			} else {
				ws.logger.Info(r.Context(), "ws_connection_closed", "Customer connection closed normally", map[string]any{
					"customer_id": customerID,
				})
				ws.wsWriteClose(conn, websocket.CloseNormalClosure, "bye")
			}
			break
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"bad json"}`))
			continue
		}

		switch msg.Type {
		case "ping":
			_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"pong"}`))
		default:
			_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"unknown message type"}`))
		}
	}
}

// sendAuthError sends authentication error message to client
func (ws *WebSocket) sendAuthError(conn *websocket.Conn, message string) error {
	errorMsg := map[string]interface{}{
		"type":    "auth_error",
		"error":   message,
		"success": false,
	}
	msgBytes, err := json.Marshal(errorMsg)
	if err != nil {
		return err
	}
	return ws.wsWriteMessage(conn, websocket.TextMessage, msgBytes)
}

// sendAuthSuccess sends authentication success message to client. idKey names
// the identity field in the payload ("driver_id" or "customer_id").
func (ws *WebSocket) sendAuthSuccess(conn *websocket.Conn, idKey, id string) error {
	successMsg := map[string]interface{}{
		"type":      "auth_success",
		"message":   "Authentication successful",
		"success":   true,
		idKey:       id,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	msgBytes, err := json.Marshal(successMsg)
	if err != nil {
		return err
	}
	return ws.wsWriteMessage(conn, websocket.TextMessage, msgBytes)
}
