package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RunBackgroundConsumers starts the background consumers of the order
// service: customer notifications for status changes and courier location
// updates, plus the stale-payment cleaner.
func (service *orderService) RunBackgroundConsumers(ctx context.Context) {
	service.startOrderStatusConsumer(ctx)
	service.startLocationUpdatesConsumer(ctx)
	service.startStalePaymentCleaner(ctx)
}

// startOrderStatusConsumer pushes every order status change to the
// customer's WebSocket connection.
func (service *orderService) startOrderStatusConsumer(ctx context.Context) {
	go func() {
		consumeCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		err := service.rabbitmq.Consume(
			consumeCtx,
			contracts.QueueOrderStatus,
			"order-status-notifier",
			20,
			func(_ context.Context, d amqp.Delivery) error {
				var msg contracts.OrderStatusMessage
				if err := json.Unmarshal(d.Body, &msg); err != nil {
					service.logger.Error(ctx, "order_status_decode_failed",
						"Failed to decode order status message", err,
						map[string]any{"size": len(d.Body)})
					return fmt.Errorf("decode: %w", err)
				}
				if msg.OrderID == "" {
					return nil
				}
				return service.notifyCustomerOfStatus(ctx, msg)
			},
		)
		if err != nil && !errors.Is(err, context.Canceled) {
			service.logger.Error(ctx, "order_status_consume_failed",
				"Failed to consume order status messages", err,
				map[string]any{"queue": contracts.QueueOrderStatus})
		}
	}()
}

// notifyCustomerOfStatus loads the order for the customer id and pushes an
// order_status_update frame. Unreachable customers are not an error.
func (service *orderService) notifyCustomerOfStatus(ctx context.Context, msg contracts.OrderStatusMessage) error {
	var ord *order.Order
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		ord, err = service.orderRepo.GetByID(txCtx, msg.OrderID)
		return err
	})
	if errors.Is(err, order.ErrOrderNotFound) {
		return nil
	}
	if err != nil {
		service.logger.Error(ctx, "order_lookup_failed",
			"Failed to load order for customer notification", err,
			map[string]any{"order_id": msg.OrderID})
		return err
	}

	wsMsg := contracts.WSCustomerOrderStatus{
		Type:        "order_status_update",
		OrderID:     ord.ID,
		OrderNumber: ord.OrderNumber,
		Status:      msg.Status,
		Envelope: contracts.Envelope{
			CorrelationID: msg.CorrelationID,
			Producer:      "order-service",
			SentAt:        time.Now().UTC(),
		},
	}
	if err := service.websocket.NotifyCustomerOrderStatus(ctx, ord.CustomerID, wsMsg); err != nil {
		service.logger.Debug(ctx, "ws_notify_customer_skipped",
			"Customer not reachable over WebSocket",
			map[string]any{"order_id": ord.ID, "customer_id": ord.CustomerID})
	}
	return nil
}

// startLocationUpdatesConsumer relays courier positions from the location
// fanout to the customer tracking the order.
func (service *orderService) startLocationUpdatesConsumer(ctx context.Context) {
	go func() {
		err := service.rabbitmq.Consume(
			ctx,
			contracts.QueueLocationUpdatesOrder,
			"order-service-locations",
			50,
			func(ctx context.Context, d amqp.Delivery) error {
				var locMsg contracts.LocationUpdateMessage
				if err := json.Unmarshal(d.Body, &locMsg); err != nil {
					service.logger.Error(ctx, "location_decode_failed",
						"Failed to decode location update", err,
						map[string]any{"body_size": len(d.Body)})
					return err
				}

				err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
					return service.relayLocationUpdate(txCtx, locMsg)
				})
				if err != nil {
					service.logger.Error(ctx, "location_processing_failed",
						"Failed to process location update", err,
						map[string]any{"driver_id": locMsg.DriverID})
				}

				return nil
			},
		)
		if err != nil && !errors.Is(err, context.Canceled) {
			service.logger.Error(ctx, "location_consumer_failed",
				"Location updates consumer stopped", err, nil)
		}
	}()
}

// relayLocationUpdate finds the order the courier is carrying and streams
// the position to its customer.
func (service *orderService) relayLocationUpdate(ctx context.Context, locMsg contracts.LocationUpdateMessage) error {
	var (
		ord *order.Order
		err error
	)

	if locMsg.OrderID != "" {
		ord, err = service.orderRepo.GetByID(ctx, locMsg.OrderID)
		if err != nil && !errors.Is(err, order.ErrOrderNotFound) {
			return err
		}
	}
	if ord == nil {
		ord, err = service.orderRepo.GetActiveForDriver(ctx, locMsg.DriverID)
		if err != nil {
			return err
		}
	}
	if ord == nil {
		// courier has no active order, nothing to relay
		return nil
	}
	if ord.Status != order.StatusAssigned && ord.Status != order.StatusPickedUp {
		return nil
	}

	wsMsg := contracts.WSCustomerLocationUpdate{
		Type:    "driver_location_update",
		OrderID: ord.ID,
		Location: contracts.GeoPoint{
			Lat: locMsg.Location.Lat,
			Lng: locMsg.Location.Lng,
		},
		SpeedKMH:       locMsg.SpeedKMH,
		HeadingDegrees: locMsg.HeadingDegrees,
		Timestamp:      locMsg.Timestamp,
		Envelope: contracts.Envelope{
			Producer: "order-service",
			SentAt:   time.Now().UTC(),
		},
	}
	if err := service.websocket.NotifyCustomerLocationUpdate(ctx, ord.CustomerID, wsMsg); err != nil {
		service.logger.Debug(ctx, "ws_notify_customer_skipped",
			"Customer not reachable over WebSocket",
			map[string]any{"order_id": ord.ID, "customer_id": ord.CustomerID})
	}
	return nil
}
