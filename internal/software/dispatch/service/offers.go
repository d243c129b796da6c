package service

import (
	"context"
	"fmt"
	"time"

	"food-dispatch/internal/domain/driver"
	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/general/contracts"
	"food-dispatch/internal/ports"
)

// AcceptOffer assigns the order to the driver who held the outstanding
// offer and marks the driver BUSY. Only the offered driver may accept,
// and only before the offer deadline.
func (service *dispatchService) AcceptOffer(ctx context.Context, in ports.OfferDecisionInput) (ports.AcceptOfferResult, error) {
	var (
		ord    *order.Order
		now    = time.Now().UTC()
		corrID = generateCorrelationID()
	)

	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		drv, err := service.drivers.GetByID(ctx, in.DriverID)
		if err != nil {
			return err
		}

		if err := service.orders.AcceptOffer(ctx, in.OrderID, in.DriverID, now); err != nil {
			return err
		}

		// entity transition ONLINE/AVAILABLE -> BUSY
		if err := drv.MarkBusy(); err != nil {
			return err
		}
		if err := service.drivers.UpdateStatus(ctx, in.DriverID, drv.Status); err != nil {
			return err
		}

		ord, err = service.orders.GetByID(ctx, in.OrderID)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "offer_accept_failed", "Failed to accept delivery offer", err, map[string]any{
			"driver_id":  in.DriverID,
			"order_id":   in.OrderID,
			"offer_id":   in.OfferID,
			"request_id": corrID,
		})
		return ports.AcceptOfferResult{}, err
	}

	// busy drivers leave the candidate pool
	if err := service.locStore.Remove(ctx, in.DriverID); err != nil {
		service.logger.Error(ctx, "geo_index_remove_failed", "Failed to remove busy driver from live location index", err, map[string]any{
			"driver_id":  in.DriverID,
			"request_id": corrID,
		})
	}

	// fan-out: ASSIGNED status + BUSY driver status, best-effort
	if err := service.publishOrderStatus(ctx, contracts.OrderStatusMessage{
		OrderID:     ord.ID,
		OrderNumber: ord.OrderNumber,
		Status:      order.StatusAssigned.String(),
		Timestamp:   now,
		DriverID:    in.DriverID,
		Envelope: contracts.Envelope{
			CorrelationID: corrID,
			Producer:      "dispatch-service",
		},
	}); err != nil {
		service.logger.Error(ctx, "order_status_publish_failed", "Failed to publish ASSIGNED status", err, map[string]any{
			"order_id":   ord.ID,
			"request_id": corrID,
		})
	}
	if err := service.publishDriverStatus(ctx, contracts.DriverStatusMessage{
		DriverID:  in.DriverID,
		Status:    driver.DriverStatusBusy.String(),
		OrderID:   ord.ID,
		Timestamp: now,
		Envelope: contracts.Envelope{
			CorrelationID: corrID,
			Producer:      "dispatch-service",
		},
	}); err != nil {
		service.logger.Error(ctx, "driver_status_publish_failed", "Failed to publish BUSY status", err, map[string]any{
			"driver_id":  in.DriverID,
			"request_id": corrID,
		})
	}

	service.logger.Info(ctx, "offer_accepted", fmt.Sprintf("Driver %s accepted order %s", in.DriverID, ord.ID), map[string]any{
		"driver_id":  in.DriverID,
		"order_id":   ord.ID,
		"offer_id":   in.OfferID,
		"attempts":   ord.DispatchAttempts,
		"request_id": corrID,
	})

	assignedAt := now
	if ord.AssignedAt != nil {
		assignedAt = *ord.AssignedAt
	}

	return ports.AcceptOfferResult{
		OrderID:    ord.ID,
		Status:     order.StatusAssigned.String(),
		AssignedAt: assignedAt,
		Message:    "Delivery assigned, head to the restaurant",
	}, nil
}

// RejectOffer records the driver's decline and returns the order to the
// dispatch loop. Only the driver holding the outstanding offer may
// decline; a driver who declined is never offered the same order again.
func (service *dispatchService) RejectOffer(ctx context.Context, in ports.OfferDecisionInput) (ports.RejectOfferResult, error) {
	corrID := generateCorrelationID()

	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		ord, err := service.orders.GetByID(ctx, in.OrderID)
		if err != nil {
			return err
		}

		// the ledger row must never land for a driver who was not
		// offered the order; a stranger's decline would count toward
		// the manual-dispatch escalation cap
		if ord.Status != order.StatusOffered {
			return order.ErrNoOfferOutstanding
		}
		if ord.OfferedDriverID == nil || *ord.OfferedDriverID != in.DriverID {
			return order.ErrOfferDriverMismatch
		}

		rejection, err := order.NewRejection(in.OrderID, in.DriverID, in.Reason)
		if err != nil {
			return err
		}
		if err := service.rejections.Append(ctx, rejection); err != nil {
			return err
		}

		return service.orders.WithdrawOffer(ctx, in.OrderID, in.DriverID)
	})
	if err != nil {
		service.logger.Error(ctx, "offer_reject_failed", "Failed to record offer rejection", err, map[string]any{
			"driver_id":  in.DriverID,
			"order_id":   in.OrderID,
			"offer_id":   in.OfferID,
			"request_id": corrID,
		})
		return ports.RejectOfferResult{}, err
	}

	service.logger.Info(ctx, "offer_rejected", "Driver declined delivery offer", map[string]any{
		"driver_id":  in.DriverID,
		"order_id":   in.OrderID,
		"offer_id":   in.OfferID,
		"reason":     in.Reason,
		"request_id": corrID,
	})

	return ports.RejectOfferResult{
		OrderID: in.OrderID,
		Status:  order.StatusOffering.String(),
		Message: "Offer declined",
	}, nil
}
