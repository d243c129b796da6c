package service

import (
	"context"
	"time"

	"food-dispatch/internal/domain/order"
)

// startStalePaymentCleaner cancels VNPAY orders whose gateway callback
// never arrived. Runs on cfg.Cleanup.Interval; an order counts as stale
// after cfg.Cleanup.StalePaymentAge in PENDING/UNPAID.
func (service *orderService) startStalePaymentCleaner(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(service.cfg.Cleanup.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				service.sweepStalePayments(ctx)
			}
		}
	}()
}

func (service *orderService) sweepStalePayments(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-service.cfg.Cleanup.StalePaymentAge)

	var stale []*order.Order
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		stale, err = service.orderRepo.ListStaleUnpaid(txCtx, order.PaymentVNPay, cutoff, 100)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "stale_payment_scan_failed",
			"Failed to list stale unpaid orders", err, nil)
		return
	}

	for _, ord := range stale {
		if _, err := service.CancelOrder(ctx, ord.ID, "PAYMENT_TIMEOUT"); err != nil {
			service.logger.Error(ctx, "stale_payment_cancel_failed",
				"Failed to cancel stale unpaid order", err,
				map[string]any{"order_id": ord.ID})
			continue
		}
		service.logger.Info(ctx, "stale_payment_cancelled",
			"Cancelled order with stale unpaid payment",
			map[string]any{"order_id": ord.ID, "order_number": ord.OrderNumber})
	}
}
