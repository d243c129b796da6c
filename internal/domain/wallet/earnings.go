package wallet

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EarningsSummary is the domain entity corresponding to the
// `order_earnings_summaries` table. One row per delivered order; the
// unique order_id column makes settlement idempotent.
type EarningsSummary struct {
	ID        string
	CreatedAt time.Time

	OrderID      string
	RestaurantID string
	DriverID     string

	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal

	Commission        decimal.Decimal // platform's cut of the subtotal
	PlatformDriverFee decimal.Decimal // platform's cut of the delivery fee
	RestaurantNet     decimal.Decimal
	DriverNet         decimal.Decimal
	PlatformTotal     decimal.Decimal
}

var (
	ErrSummaryOrderRequired      = errors.New("order id is required")
	ErrSummaryRestaurantRequired = errors.New("restaurant id is required")
	ErrSummaryDriverRequired     = errors.New("driver id is required")
	ErrInvalidCommissionRate     = errors.New("commission rate must be between 0 and 1")
	ErrDriverFeeExceedsDelivery  = errors.New("platform driver fee exceeds delivery fee")
)

// ComputeSettlement splits an order's money between restaurant, driver and
// platform. commissionRate is a fraction of the subtotal (0.20 = 20%);
// platformDriverFee is the flat slice of the delivery fee kept by the
// platform. All outputs are rounded to 2 decimal places.
func ComputeSettlement(
	orderID, restaurantID, driverID string,
	subtotal, deliveryFee decimal.Decimal,
	commissionRate decimal.Decimal,
	platformDriverFee decimal.Decimal,
) (*EarningsSummary, error) {
	if orderID = strings.TrimSpace(orderID); orderID == "" {
		return nil, ErrSummaryOrderRequired
	}
	if restaurantID = strings.TrimSpace(restaurantID); restaurantID == "" {
		return nil, ErrSummaryRestaurantRequired
	}
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return nil, ErrSummaryDriverRequired
	}
	if commissionRate.IsNegative() || commissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, ErrInvalidCommissionRate
	}
	if platformDriverFee.GreaterThan(deliveryFee) {
		return nil, ErrDriverFeeExceedsDelivery
	}

	commission := subtotal.Mul(commissionRate).Round(2)
	restaurantNet := subtotal.Sub(commission)
	driverNet := deliveryFee.Sub(platformDriverFee)
	platformTotal := commission.Add(platformDriverFee)

	return &EarningsSummary{
		CreatedAt:         time.Now().UTC(),
		OrderID:           orderID,
		RestaurantID:      restaurantID,
		DriverID:          driverID,
		Subtotal:          subtotal,
		DeliveryFee:       deliveryFee,
		Commission:        commission,
		PlatformDriverFee: platformDriverFee,
		RestaurantNet:     restaurantNet,
		DriverNet:         driverNet,
		PlatformTotal:     platformTotal,
	}, nil
}
