package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/domain/wallet"
	"food-dispatch/internal/general/contracts"
	"food-dispatch/internal/ports"
)

// ConfirmPayment settles the order up front (wallet debit for WALLET,
// gateway callback for VNPAY, nothing for COD) and hands the order to the
// dispatch loop in the same transaction.
func (service *orderService) ConfirmPayment(ctx context.Context, orderID string) (ports.ConfirmPaymentResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return ports.ConfirmPaymentResult{}, fmt.Errorf("orderservice: orderID is required to confirm payment")
	}
	corrID := generateCorrelationID()

	var (
		ord              *order.Order
		alreadyConfirmed bool
		now              = time.Now().UTC()
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		ord, err = service.orderRepo.GetByID(txCtx, orderID)
		if err != nil {
			return err
		}

		// re-confirming a paid order is a no-op
		if ord.Status != order.StatusPending {
			if ord.Status == order.StatusCancelled {
				return errors.New("cannot confirm payment for a cancelled order")
			}
			alreadyConfirmed = true
			return nil
		}

		// wallet orders debit the customer before dispatch starts
		if ord.PaymentMethod == order.PaymentWallet {
			if err := service.debitCustomerWallet(txCtx, ord); err != nil {
				return err
			}
		}

		if err := service.orderRepo.ConfirmPayment(txCtx, orderID, now); err != nil {
			return err
		}
		return service.orderRepo.StartDispatch(txCtx, orderID, now)
	})
	if err != nil {
		service.logger.Error(ctx, "payment_confirm_failed", "Failed to confirm payment", err, map[string]any{
			"order_id":   orderID,
			"request_id": corrID,
		})
		return ports.ConfirmPaymentResult{}, err
	}

	if alreadyConfirmed {
		return ports.ConfirmPaymentResult{
			OrderID:       ord.ID,
			Status:        ord.Status.String(),
			PaymentStatus: ord.PaymentStatus.String(),
			Message:       "Payment already confirmed",
		}, nil
	}

	// fan-out: dispatch request + status, best-effort outside the tx
	reqMsg := contracts.DispatchRequest{
		OrderID:      ord.ID,
		OrderNumber:  ord.OrderNumber,
		RestaurantID: ord.RestaurantID,
		Pickup: contracts.GeoPoint{
			Lat:     ord.PickupLatitude,
			Lng:     ord.PickupLongitude,
			Address: ord.PickupAddress,
		},
		Dropoff: contracts.GeoPoint{
			Lat:     ord.DropoffLatitude,
			Lng:     ord.DropoffLongitude,
			Address: ord.DropoffAddress,
		},
		PaymentMethod:  ord.PaymentMethod.String(),
		CODAmount:      ord.CODAmount(),
		DeliveryFee:    ord.DeliveryFee,
		TimeoutSeconds: int(service.cfg.Dispatch.OfferTimeout.Seconds()),
		Envelope: contracts.Envelope{
			CorrelationID: corrID,
			Producer:      "order-service",
			SentAt:        time.Now().UTC(),
		},
	}
	if err := service.publishDispatchRequest(ctx, ord.PaymentMethod, reqMsg); err != nil {
		service.logger.Error(ctx, "dispatch_request_publish_failed", "Failed to publish dispatch request to RabbitMQ", err, map[string]any{
			"order_id":   ord.ID,
			"request_id": corrID,
		})
	}

	statusMsg := contracts.OrderStatusMessage{
		OrderID:     ord.ID,
		OrderNumber: ord.OrderNumber,
		Status:      order.StatusOffering.String(),
		Timestamp:   time.Now().UTC(),
		Envelope: contracts.Envelope{
			CorrelationID: corrID,
			Producer:      "order-service",
		},
	}
	if err := service.publishOrderStatus(ctx, statusMsg); err != nil {
		service.logger.Error(ctx, "order_status_publish_failed", "Failed to publish order status to RabbitMQ", err, map[string]any{
			"order_id":   ord.ID,
			"request_id": corrID,
		})
	}

	paymentStatus := order.PaymentPaid
	if ord.PaymentMethod == order.PaymentCOD {
		paymentStatus = order.PaymentUnpaid
	}

	service.logger.Info(ctx, "payment_confirmed", fmt.Sprintf("Payment confirmed for order %s", ord.ID), map[string]any{
		"order_id":       ord.ID,
		"order_number":   ord.OrderNumber,
		"payment_method": ord.PaymentMethod.String(),
		"request_id":     corrID,
	})

	return ports.ConfirmPaymentResult{
		OrderID:       ord.ID,
		Status:        order.StatusOffering.String(),
		PaymentStatus: paymentStatus.String(),
		Message:       "Payment confirmed, looking for a driver",
	}, nil
}

// debitCustomerWallet takes the order total out of the customer's wallet,
// writing the balance and the PAYMENT journal row in the caller's tx.
func (service *orderService) debitCustomerWallet(ctx context.Context, ord *order.Order) error {
	if _, err := service.walletRepo.GetOrCreateForOwner(ctx, ord.CustomerID); err != nil {
		return err
	}

	w, err := service.walletRepo.GetForOwnerLocked(ctx, ord.CustomerID)
	if err != nil {
		return err
	}

	walletTx, err := wallet.NewTransaction(
		w.ID,
		wallet.TxPayment,
		ord.TotalAmount,
		&ord.ID,
		"Payment for order "+ord.OrderNumber,
	)
	if err != nil {
		return err
	}

	if err := w.Apply(walletTx.Amount); err != nil {
		return err
	}
	if err := service.walletRepo.UpdateBalance(ctx, w.ID, w.Balance); err != nil {
		return err
	}
	return service.walletRepo.InsertTransaction(ctx, walletTx)
}
