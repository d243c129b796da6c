package service

import (
	"context"
	"fmt"
	"time"

	"food-dispatch/internal/domain/driver"
	"food-dispatch/internal/domain/geo"
	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/general/contracts"
	"food-dispatch/internal/ports"
)

// ConfirmPickup transitions the order to PICKED_UP after the driver
// collected it at the restaurant.
func (service *dispatchService) ConfirmPickup(ctx context.Context, in ports.PickupInput) (ports.PickupResult, error) {
	var out ports.PickupResult
	corrID := generateCorrelationID()
	now := time.Now().UTC()

	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		// ensure that driver exists
		if _, err := service.drivers.GetByID(ctx, in.DriverID); err != nil {
			return err
		}

		// fetch the order and validate ownership
		ord, err := service.orders.GetByID(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if ord == nil || ord.DriverID == nil || *ord.DriverID != in.DriverID {
			return fmt.Errorf("order %s is not assigned to driver %s", in.OrderID, in.DriverID)
		}

		if err := service.orders.MarkPickedUp(ctx, in.OrderID, now); err != nil {
			return err
		}

		// record where the pickup happened
		coord := geo.Coordinate{
			EntityID:   in.DriverID,
			EntityType: geo.EntityTypeDriver,
			Address:    "N/A",
			Latitude:   in.DriverLocation.Latitude,
			Longitude:  in.DriverLocation.Longitude,
			IsCurrent:  true,
		}
		if _, _, err := service.coords.UpsertForDriver(ctx, in.DriverID, coord, true); err != nil {
			return err
		}

		out = ports.PickupResult{
			OrderID:    in.OrderID,
			Status:     order.StatusPickedUp.String(),
			PickedUpAt: now,
			Message:    "Pickup confirmed, deliver to the customer",
		}
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "pickup_confirm_failed", "Failed to confirm pickup", err, map[string]any{
			"driver_id":  in.DriverID,
			"order_id":   in.OrderID,
			"request_id": corrID,
		})
		return ports.PickupResult{}, err
	}

	if err := service.publishOrderStatus(ctx, contracts.OrderStatusMessage{
		OrderID:   in.OrderID,
		Status:    order.StatusPickedUp.String(),
		Timestamp: now,
		DriverID:  in.DriverID,
		Envelope: contracts.Envelope{
			CorrelationID: corrID,
			Producer:      "dispatch-service",
		},
	}); err != nil {
		service.logger.Error(ctx, "order_status_publish_failed", "Failed to publish PICKED_UP status", err, map[string]any{
			"order_id":   in.OrderID,
			"request_id": corrID,
		})
	}

	service.logger.Info(ctx, "pickup_confirmed", "Driver picked the order up", map[string]any{
		"driver_id":  in.DriverID,
		"order_id":   in.OrderID,
		"request_id": corrID,
	})

	return out, nil
}

// ConfirmDelivery marks the order DELIVERED, settles the money between
// restaurant, driver and platform, and makes the driver AVAILABLE again.
// Settlement is idempotent: a second confirm finds the earnings row and
// does not move money twice.
func (service *dispatchService) ConfirmDelivery(ctx context.Context, in ports.DeliverInput) (ports.DeliverResult, error) {
	var out ports.DeliverResult
	corrID := generateCorrelationID()
	now := time.Now().UTC()

	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		drv, err := service.drivers.GetByID(ctx, in.DriverID)
		if err != nil {
			return err
		}

		// fetch the order and validate ownership
		ord, err := service.orders.GetByID(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if ord == nil || ord.DriverID == nil || *ord.DriverID != in.DriverID {
			return fmt.Errorf("order %s is not assigned to driver %s", in.OrderID, in.DriverID)
		}

		if err := service.orders.MarkDelivered(ctx, in.OrderID, now); err != nil {
			return err
		}

		summary, err := service.settleOrder(ctx, ord)
		if err != nil {
			return err
		}

		// entity transition BUSY -> AVAILABLE
		if err := drv.MarkAvailable(); err != nil {
			return err
		}
		if err := service.drivers.UpdateStatus(ctx, in.DriverID, drv.Status); err != nil {
			return err
		}

		// record where the handoff happened
		coord := geo.Coordinate{
			EntityID:   in.DriverID,
			EntityType: geo.EntityTypeDriver,
			Address:    "N/A",
			Latitude:   in.FinalLocation.Latitude,
			Longitude:  in.FinalLocation.Longitude,
			IsCurrent:  true,
		}
		if _, _, err := service.coords.UpsertForDriver(ctx, in.DriverID, coord, true); err != nil {
			return err
		}

		out = ports.DeliverResult{
			OrderID:        in.OrderID,
			Status:         order.StatusDelivered.String(),
			DeliveredAt:    now,
			DriverEarnings: summary.DriverNet,
			Message:        "Delivery completed",
		}
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "delivery_confirm_failed", "Failed to confirm delivery", err, map[string]any{
			"driver_id":  in.DriverID,
			"order_id":   in.OrderID,
			"request_id": corrID,
		})
		return ports.DeliverResult{}, err
	}

	// back in the candidate pool at the dropoff point
	if err := service.locStore.Update(ctx, in.DriverID, in.FinalLocation.Latitude, in.FinalLocation.Longitude); err != nil {
		service.logger.Error(ctx, "geo_index_update_failed", "Failed to re-seed live location index", err, map[string]any{
			"driver_id":  in.DriverID,
			"request_id": corrID,
		})
	}

	if err := service.publishOrderStatus(ctx, contracts.OrderStatusMessage{
		OrderID:   in.OrderID,
		Status:    order.StatusDelivered.String(),
		Timestamp: now,
		DriverID:  in.DriverID,
		Envelope: contracts.Envelope{
			CorrelationID: corrID,
			Producer:      "dispatch-service",
		},
	}); err != nil {
		service.logger.Error(ctx, "order_status_publish_failed", "Failed to publish DELIVERED status", err, map[string]any{
			"order_id":   in.OrderID,
			"request_id": corrID,
		})
	}
	if err := service.publishDriverStatus(ctx, contracts.DriverStatusMessage{
		DriverID:  in.DriverID,
		Status:    driver.DriverStatusAvailable.String(),
		OrderID:   in.OrderID,
		Timestamp: now,
		Envelope: contracts.Envelope{
			CorrelationID: corrID,
			Producer:      "dispatch-service",
		},
	}); err != nil {
		service.logger.Error(ctx, "driver_status_publish_failed", "Failed to publish AVAILABLE status", err, map[string]any{
			"driver_id":  in.DriverID,
			"request_id": corrID,
		})
	}

	service.logger.Info(ctx, "delivery_completed", "Order delivered; driver available", map[string]any{
		"driver_id":       in.DriverID,
		"order_id":        in.OrderID,
		"driver_earnings": out.DriverEarnings.StringFixed(2),
		"request_id":      corrID,
	})

	return out, nil
}
