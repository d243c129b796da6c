package service

import (
	"context"

	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/domain/wallet"

	"github.com/shopspring/decimal"
)

// settleOrder splits a delivered order's money between restaurant, driver
// and platform and credits both payout wallets. Must run inside the same
// transaction as MarkDelivered. The unique order_id column on the
// earnings table makes a replay a no-op.
func (service *dispatchService) settleOrder(ctx context.Context, ord *order.Order) (*wallet.EarningsSummary, error) {
	if existing, err := service.earnings.GetByOrderID(ctx, ord.ID); err != nil {
		return nil, err
	} else if existing != nil {
		// already settled
		return existing, nil
	}

	summary, err := wallet.ComputeSettlement(
		ord.ID,
		ord.RestaurantID,
		*ord.DriverID,
		ord.Subtotal,
		ord.DeliveryFee,
		service.cfg.Settlement.CommissionRate,
		service.cfg.Settlement.PlatformDriverFee,
	)
	if err != nil {
		return nil, err
	}

	if err := service.earnings.Insert(ctx, summary); err != nil {
		return nil, err
	}

	// subtotal minus commission goes to the restaurant as a PAYOUT row
	if summary.RestaurantNet.IsPositive() {
		if err := service.creditEarnings(ctx, summary.RestaurantID, summary.RestaurantNet,
			summary.OrderID, "Restaurant payout for order "+summary.OrderID); err != nil {
			return nil, err
		}
	}

	// the courier's cut lands in their wallet the same way
	if summary.DriverNet.IsPositive() {
		if err := service.creditEarnings(ctx, summary.DriverID, summary.DriverNet,
			summary.OrderID, "Delivery earnings for order "+summary.OrderID); err != nil {
			return nil, err
		}
	}

	// aggregate counters on the driver row
	if err := service.drivers.IncrementCountersOnDelivery(ctx, summary.DriverID, summary.DriverNet); err != nil {
		return nil, err
	}

	// per-shift counters, when a session is open
	if session, err := service.sessions.GetActiveForDriver(ctx, summary.DriverID); err == nil && session != nil {
		if err := session.AddDelivery(summary.DriverNet); err == nil {
			if err := service.sessions.IncrementCounters(ctx, session.ID, session.TotalDeliveries, session.TotalEarnings); err != nil {
				return nil, err
			}
		}
	}

	// journal the settlement on the order's event timeline
	event, err := order.NewEvent(ord.ID, order.EventOrderSettled, map[string]any{
		"commission":          summary.Commission.StringFixed(2),
		"platform_driver_fee": summary.PlatformDriverFee.StringFixed(2),
		"restaurant_net":      summary.RestaurantNet.StringFixed(2),
		"driver_net":          summary.DriverNet.StringFixed(2),
		"platform_total":      summary.PlatformTotal.StringFixed(2),
	})
	if err != nil {
		return nil, err
	}
	if err := service.events.Append(ctx, event); err != nil {
		return nil, err
	}

	return summary, nil
}

// creditEarnings appends a PAYOUT transaction to the owner's wallet and
// bumps the cached balance under the wallet row lock.
func (service *dispatchService) creditEarnings(ctx context.Context, ownerID string, amount decimal.Decimal, orderID, description string) error {
	if _, err := service.wallets.GetOrCreateForOwner(ctx, ownerID); err != nil {
		return err
	}

	w, err := service.wallets.GetForOwnerLocked(ctx, ownerID)
	if err != nil {
		return err
	}

	walletTx, err := wallet.NewTransaction(w.ID, wallet.TxPayout, amount, &orderID, description)
	if err != nil {
		return err
	}

	if err := w.Apply(walletTx.Amount); err != nil {
		return err
	}
	if err := service.wallets.UpdateBalance(ctx, w.ID, w.Balance); err != nil {
		return err
	}
	return service.wallets.InsertTransaction(ctx, walletTx)
}
