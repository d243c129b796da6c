package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"food-dispatch/internal/domain/driver"
	"food-dispatch/internal/general/contracts"

	"github.com/gorilla/websocket"
)

func (ws *WebSocket) handleDriverStatus(conn *websocket.Conn, driverID string, raw json.RawMessage) error {
	ctx := context.Background()

	// decode inbound payload
	var p struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		ws.logger.Error(ctx, "ws_bad_payload", "Failed to decode driver_status payload", err, map[string]any{
			"driver_id": driverID,
		})
		_ = ws.writeJSON(conn, map[string]any{
			"type":  "error",
			"error": "bad driver_status payload",
		})
		return err
	}

	// validate status against domain enum
	status, err := driver.ParseDriverStatus(p.Status)
	if err != nil {
		ws.logger.Error(ctx, "ws_validation_error", "Invalid driver status", err, map[string]any{
			"driver_id": driverID, "status": p.Status,
		})
		_ = ws.writeJSON(conn, map[string]any{
			"type":  "error",
			"error": "invalid driver status",
		})
		return err
	}

	// publish status update to RabbitMQ
	statusMsg := contracts.DriverStatusMessage{
		DriverID:  driverID,
		Status:    status.String(),
		Timestamp: time.Now().UTC(),
		Envelope: contracts.Envelope{
			Producer: "dispatch-service",
			SentAt:   time.Now().UTC(),
		},
	}
	body, _ := json.Marshal(statusMsg)
	routingKey := contracts.RouteDriverStatusPrefix + driverID
	if err := ws.pub.Publish(contracts.ExchangeDriverTopic, routingKey, body); err != nil {
		ws.logger.Error(ctx, "driver_status_publish_failed", "Failed to publish driver status", err, map[string]any{
			"driver_id": driverID, "status": status.String(), "routing_key": routingKey,
		})
		_ = ws.writeJSON(conn, map[string]any{
			"type":  "error",
			"error": "failed to publish driver status",
		})
		return err
	}

	ws.logger.Info(ctx, "driver_status_published", "Published driver status update", map[string]any{
		"driver_id":   driverID,
		"status":      status.String(),
		"routing_key": routingKey,
	})

	// best-effort ACK to the driver socket so UI can update immediately
	_ = ws.writeJSON(conn, map[string]any{
		"type":      "driver_status_ack",
		"status":    status.String(),
		"published": true,
		"sent_at":   time.Now().UTC(),
	})

	return nil
}

// handleOfferResponse handles a driver's accept/decline reply coming over
// WebSocket and publishes it to RabbitMQ on driver_topic with routing key
// "driver.response.{order_id}".
func (ws *WebSocket) handleOfferResponse(conn *websocket.Conn, driverID string, raw json.RawMessage) error {
	ctx := context.Background()

	type inbound struct {
		OfferID                 string `json:"offer_id"`
		OrderID                 string `json:"order_id"`
		Decision                string `json:"decision,omitempty"` // "accept" | "decline"
		Accepted                *bool  `json:"accepted,omitempty"`
		Reason                  string `json:"reason,omitempty"`
		EstimatedArrivalMinutes *int   `json:"estimated_arrival_minutes,omitempty"`
		CurrentLocation         *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"current_location,omitempty"`
	}

	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		ws.logger.Error(ctx, "ws_bad_payload", "Failed to decode offer_response payload", err, map[string]any{
			"driver_id": driverID,
		})
		_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"bad offer_response payload"}`))
		return err
	}

	if in.OrderID == "" {
		ws.logger.Error(ctx, "ws_validation_error", "offer_response missing order_id", nil, map[string]any{
			"driver_id": driverID,
		})
		_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"missing order_id"}`))
		return fmt.Errorf("missing order_id")
	}

	accepted := false
	if in.Accepted != nil {
		accepted = *in.Accepted
	} else if in.Decision != "" {
		accepted = strings.EqualFold(in.Decision, "accept")
	}

	// cache the reported position so the dispatch service can use it right away
	if in.CurrentLocation != nil {
		ws.UpdateLastLocation(driverID, &LocationData{
			Latitude:  in.CurrentLocation.Latitude,
			Longitude: in.CurrentLocation.Longitude,
		})
	}

	resp := contracts.DriverOfferResponse{
		OrderID:  in.OrderID,
		OfferID:  in.OfferID,
		DriverID: driverID,
		Accepted: accepted,
		Reason:   in.Reason,
		Envelope: contracts.Envelope{
			Producer: "dispatch-service",
			SentAt:   time.Now().UTC(),
		},
	}
	if in.EstimatedArrivalMinutes != nil {
		resp.EstimatedArrivalMinutes = *in.EstimatedArrivalMinutes
	}
	if in.CurrentLocation != nil {
		resp.DriverLocation = &contracts.GeoPoint{
			Lat: in.CurrentLocation.Latitude,
			Lng: in.CurrentLocation.Longitude,
		}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		ws.logger.Error(ctx, "driver_response_encode_failed", "Failed to marshal driver response", err, map[string]any{
			"driver_id": driverID,
			"order_id":  in.OrderID,
		})
		_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"encode failed"}`))
		return err
	}

	routingKey := contracts.RouteDriverRespPrefix + in.OrderID
	if err := ws.pub.Publish(contracts.ExchangeDriverTopic, routingKey, body); err != nil {
		ws.logger.Error(ctx, "driver_response_publish_failed", "Failed to publish driver response", err, map[string]any{
			"driver_id":   driverID,
			"order_id":    in.OrderID,
			"routing_key": routingKey,
		})
		_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"publish failed"}`))
		return err
	}

	ws.logger.Info(ctx, "driver_response_published", "Published driver offer response to RabbitMQ", map[string]any{
		"routing_key": routingKey,
		"order_id":    in.OrderID,
		"driver_id":   driverID,
		"accepted":    accepted,
	})

	// ACK back to the driver
	ackMsg := map[string]interface{}{
		"type":      "offer_response_ack",
		"order_id":  in.OrderID,
		"accepted":  accepted,
		"published": true,
		"sent_at":   time.Now().UTC().Format(time.RFC3339),
	}
	ackBytes, _ := json.Marshal(ackMsg)
	_ = ws.wsWriteMessage(conn, websocket.TextMessage, ackBytes)

	return nil
}
