package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"math"
	"strings"
	"time"

	"food-dispatch/internal/domain/geo"
	"food-dispatch/internal/general/contracts"

	"github.com/google/uuid"
)

// generateCorrelationID creates a simple correlation ID for tracing requests.
func generateCorrelationID() string {
	var b [3]byte // 6 hex chars
	_, _ = rand.Read(b[:])
	ts := time.Now().UTC().Format("20060102T150405")
	return "req_" + ts + "_" + hex.EncodeToString(b[:])
}

// genOfferID returns a unique ID like "offer_6f0e...".
func (service *dispatchService) genOfferID() string {
	return "offer_" + uuid.NewString()
}

// estimateTripMinutes returns an ETA (minutes) based on straight-line
// distance between pickup and dropoff, at a conservative urban speed.
func (service *dispatchService) estimateTripMinutes(pickLat, pickLng, dropLat, dropLng float64) int {
	const avgCitySpeedKmh = 24.0
	dKm := geo.HaversineKM(pickLat, pickLng, dropLat, dropLng)
	if dKm <= 0 {
		return 5 // minimum ETA fallback
	}
	min := int(math.Ceil((dKm / avgCitySpeedKmh) * 60.0))
	if min < 5 {
		return 5
	}
	return min
}

// publishDriverStatus sends a driver status update to the driver_topic exchange
// using routing key "driver.status.{driver_id}" (topic).
func (service *dispatchService) publishDriverStatus(ctx context.Context, msg contracts.DriverStatusMessage) error {
	routingKey := contracts.RouteDriverStatusPrefix + msg.DriverID

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeDriverTopic, routingKey, body); err != nil {
		return err
	}

	service.logger.Info(ctx, "driver_status_published", "Published driver status to RabbitMQ", map[string]any{
		"routing_key": routingKey,
		"driver_id":   msg.DriverID,
		"status":      msg.Status,
		"order_id":    msg.OrderID,
	})

	return nil
}

// publishOrderStatus sends an order status update to the order topic
// exchange using routing key "order.status.{status}".
func (service *dispatchService) publishOrderStatus(ctx context.Context, msg contracts.OrderStatusMessage) error {
	routingKey := contracts.RouteOrderStatusPrefix + strings.ToLower(msg.Status)

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeOrderTopic, routingKey, body); err != nil {
		return err
	}

	service.logger.Info(ctx, "order_status_published", "Published order status to RabbitMQ", map[string]any{
		"routing_key": routingKey,
		"order_id":    msg.OrderID,
	})

	return nil
}

// publishAdminAlert sends an operator alert using routing key
// "order.alert.{kind}" on the order topic exchange.
func (service *dispatchService) publishAdminAlert(ctx context.Context, msg contracts.AdminAlertMessage) error {
	routingKey := contracts.RouteAdminAlertPrefix + strings.ToLower(msg.Kind)

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeOrderTopic, routingKey, body); err != nil {
		return err
	}

	service.logger.Info(ctx, "admin_alert_published", "Published admin alert to RabbitMQ", map[string]any{
		"routing_key": routingKey,
		"order_id":    msg.OrderID,
		"kind":        msg.Kind,
	})

	return nil
}

// broadcastLocationUpdate broadcasts a location update using the fanout
// exchange. Fanout ignores routing keys; pass an empty routing key.
func (service *dispatchService) broadcastLocationUpdate(ctx context.Context, msg contracts.LocationUpdateMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeLocationFanout, "", body); err != nil {
		return err
	}

	service.logger.Info(ctx, "location_update_published", "Broadcasted location update to RabbitMQ", map[string]any{
		"driver_id": msg.DriverID,
		"order_id":  msg.OrderID,
		"lat":       msg.Location.Lat,
		"lng":       msg.Location.Lng,
	})

	return nil
}
