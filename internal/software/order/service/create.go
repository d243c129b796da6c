package service

import (
	"context"
	"fmt"
	"time"

	"food-dispatch/internal/domain/geo"
	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/general/contracts"
	"food-dispatch/internal/ports"
)

// CreateOrder places a new order in PENDING state and persists the pickup
// (restaurant) coordinate as the restaurant's current location.
func (service *orderService) CreateOrder(ctx context.Context, in ports.CreateOrderInput) (ports.CreateOrderResult, error) {
	var (
		created       *order.Order
		orderNumber   = generateOrderNumber()
		correlationID = generateCorrelationID()
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// keep the restaurant's pickup point current for the admin map
		pickup, err := geo.NewCoordinate(
			in.RestaurantID,
			geo.EntityTypeRestaurant,
			in.PickupAddress,
			in.PickupLatitude,
			in.PickupLongitude,
		)
		if err != nil {
			return err
		}
		if _, _, err := service.coordsRepo.UpsertForRestaurant(txCtx, in.RestaurantID, *pickup, true); err != nil {
			return err
		}

		// dropoff only needs range validation, the address lives on the order row
		if err := geo.ValidateLatLng(in.DropoffLatitude, in.DropoffLongitude); err != nil {
			return err
		}

		o, err := order.NewOrder(
			orderNumber,
			in.CustomerID,
			in.RestaurantID,
			in.PaymentMethod,
			in.Subtotal,
			in.DeliveryFee,
		)
		if err != nil {
			return err
		}
		o.PickupAddress = in.PickupAddress
		o.PickupLatitude = in.PickupLatitude
		o.PickupLongitude = in.PickupLongitude
		o.DropoffAddress = in.DropoffAddress
		o.DropoffLatitude = in.DropoffLatitude
		o.DropoffLongitude = in.DropoffLongitude

		if err := service.orderRepo.CreateOrder(txCtx, o); err != nil {
			return err
		}
		created = o

		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "order_create_failed", "Failed to create order", err, map[string]any{
			"customer_id":   in.CustomerID,
			"restaurant_id": in.RestaurantID,
			"order_number":  orderNumber,
			"request_id":    correlationID,
		})
		return ports.CreateOrderResult{}, err
	}

	// publish initial order status (PENDING), best-effort outside the tx
	statusMsg := contracts.OrderStatusMessage{
		OrderID:     created.ID,
		OrderNumber: created.OrderNumber,
		Status:      created.Status.String(),
		Timestamp:   time.Now().UTC(),
		Total:       &created.TotalAmount,
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      "order-service",
		},
	}
	if err := service.publishOrderStatus(ctx, statusMsg); err != nil {
		service.logger.Error(ctx, "order_status_publish_failed", "Failed to publish order status to RabbitMQ", err, map[string]any{
			"order_id":   created.ID,
			"request_id": correlationID,
		})
	}

	service.logger.Info(ctx, "order_created", fmt.Sprintf("Order %s created", created.ID), map[string]any{
		"order_id":       created.ID,
		"order_number":   created.OrderNumber,
		"customer_id":    in.CustomerID,
		"restaurant_id":  in.RestaurantID,
		"payment_method": in.PaymentMethod.String(),
		"total_amount":   created.TotalAmount.StringFixed(2),
		"request_id":     correlationID,
	})

	return ports.CreateOrderResult{
		OrderID:       created.ID,
		OrderNumber:   created.OrderNumber,
		Status:        created.Status.String(),
		PaymentMethod: created.PaymentMethod.String(),
		TotalAmount:   created.TotalAmount,
	}, nil
}
