package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/general/contracts"
)

// generateOrderNumber returns an ID like: ORD_YYYYMMDD_HHMMSS_XXX
// where XXX is a monotonic millisecond fragment to reduce collisions.
func generateOrderNumber() string {
	now := time.Now().UTC()
	return fmt.Sprintf("ORD_%04d%02d%02d_%02d%02d%02d_%03d",
		now.Year(), int(now.Month()), now.Day(),
		now.Hour(), now.Minute(), now.Second(),
		now.Nanosecond()/1e6, // ms
	)
}

// generateCorrelationID creates a simple correlation ID for tracing requests.
func generateCorrelationID() string {
	var b [3]byte // 6 hex chars
	_, _ = rand.Read(b[:])
	ts := time.Now().UTC().Format("20060102T150405")
	return "req_" + ts + "_" + hex.EncodeToString(b[:])
}

// publishDispatchRequest sends a dispatch request to the order topic exchange using routing key
// order.dispatch.{paymentMethod}, e.g., order.dispatch.cod.
func (service *orderService) publishDispatchRequest(ctx context.Context, method order.PaymentMethod, msg contracts.DispatchRequest) error {
	routingKey := contracts.RouteDispatchRequestPrefix + strings.ToLower(method.String())

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(contracts.ExchangeOrderTopic, routingKey, body); err != nil {
		return err
	}

	service.logger.Info(ctx, "dispatch_request_published", "Published dispatch request to RabbitMQ", map[string]any{
		"routing_key": routingKey,
		"order_id":    msg.OrderID,
	})

	return nil
}

// publishOrderStatus sends an order status update to the order topic exchange using routing key
// order.status.{status}, e.g., order.status.unassigned.
func (service *orderService) publishOrderStatus(ctx context.Context, msg contracts.OrderStatusMessage) error {
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
