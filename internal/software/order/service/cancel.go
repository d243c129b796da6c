package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/domain/wallet"
	"food-dispatch/internal/general/contracts"
	"food-dispatch/internal/ports"
)

// CancelOrder cancels an order and refunds prepaid money back to the
// customer's wallet in the same transaction.
func (service *orderService) CancelOrder(ctx context.Context, orderID, reason string) (ports.CancelOrderResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return ports.CancelOrderResult{}, fmt.Errorf("orderservice: orderID is required to cancel order")
	}
	corrID := generateCorrelationID()

	var (
		driverID   string
		refunded   bool
		cancelTime = time.Now().UTC()
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		ord, err := service.orderRepo.GetByID(txCtx, orderID)
		if err != nil {
			return err
		}
		if ord.DriverID != nil {
			driverID = *ord.DriverID
		}

		if err := service.orderRepo.Cancel(txCtx, orderID, reason, cancelTime); err != nil {
			return err
		}

		// prepaid money goes back to the wallet; COD never left the customer
		if ord.PaymentMethod.Prepaid() && ord.PaymentStatus == order.PaymentPaid {
			if err := service.refundToWallet(txCtx, ord); err != nil {
				return err
			}
			refunded = true
		}

		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "order_cancel_failed", "Failed to cancel order", err, map[string]any{
			"order_id":   orderID,
			"reason":     reason,
			"request_id": corrID,
		})
		return ports.CancelOrderResult{}, err
	}

	// fan-out: publish CANCELLED status (best-effort, outside tx)
	if err := service.publishOrderStatus(ctx, contracts.OrderStatusMessage{
		OrderID:   orderID,
		Status:    order.StatusCancelled.String(),
		Timestamp: time.Now().UTC(),
		DriverID:  driverID, // empty if none
		Envelope: contracts.Envelope{
			CorrelationID: corrID,
			Producer:      "order-service",
		},
	}); err != nil {
		service.logger.Error(ctx, "order_status_publish_failed", "Failed to publish CANCELLED status", err, map[string]any{
			"order_id":   orderID,
			"request_id": corrID,
		})
	}

	service.logger.Info(ctx, "order_cancelled",
		fmt.Sprintf("Order %s cancelled", orderID),
		map[string]any{
			"order_id":   orderID,
			"reason":     reason,
			"refunded":   refunded,
			"request_id": corrID,
		},
	)

	msg := "Order cancelled successfully"
	if refunded {
		msg = "Order cancelled, payment refunded to wallet"
	}

	return ports.CancelOrderResult{
		OrderID:     orderID,
		Status:      "CANCELLED",
		CancelledAt: cancelTime.Format(time.RFC3339),
		Refunded:    refunded,
		Message:     msg,
	}, nil
}

// refundToWallet credits the full order total back as a REFUND row.
func (service *orderService) refundToWallet(ctx context.Context, ord *order.Order) error {
	if _, err := service.walletRepo.GetOrCreateForOwner(ctx, ord.CustomerID); err != nil {
		return err
	}

	w, err := service.walletRepo.GetForOwnerLocked(ctx, ord.CustomerID)
	if err != nil {
		return err
	}

	walletTx, err := wallet.NewTransaction(
		w.ID,
		wallet.TxRefund,
		ord.TotalAmount,
		&ord.ID,
		"Refund for cancelled order "+ord.OrderNumber,
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
