package postgres

import (
	"context"
	"errors"
	"time"

	"food-dispatch/internal/domain/wallet"
	"food-dispatch/internal/ports"

	"github.com/jackc/pgx/v5"
)

// EarningsRepo persists per-order settlement summaries using pgx and plain SQL.
type EarningsRepo struct{}

// NewEarningsRepo constructs a new EarningsRepo.
func NewEarningsRepo() ports.EarningsRepository {
	return &EarningsRepo{}
}

// GetByOrderID returns the settlement summary for an order, or nil when the
// order has not been settled yet.
func (repo *EarningsRepo) GetByOrderID(ctx context.Context, orderID string) (*wallet.EarningsSummary, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var out wallet.EarningsSummary
	err = tx.QueryRow(ctx, `
		SELECT
			id, created_at, order_id, restaurant_id, driver_id,
			subtotal, delivery_fee,
			commission, platform_driver_fee, restaurant_net, driver_net, platform_total
		FROM order_earnings_summaries
		WHERE order_id = $1
	`, orderID).Scan(
		&out.ID, &out.CreatedAt, &out.OrderID, &out.RestaurantID, &out.DriverID,
		&out.Subtotal, &out.DeliveryFee,
		&out.Commission, &out.PlatformDriverFee, &out.RestaurantNet, &out.DriverNet, &out.PlatformTotal,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &out, nil
}

// Insert writes one settlement row. order_id is unique, so settling the same
// order twice fails at the database and the caller can treat it as done.
func (repo *EarningsRepo) Insert(ctx context.Context, summary *wallet.EarningsSummary) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO order_earnings_summaries (
			order_id, restaurant_id, driver_id,
			subtotal, delivery_fee,
			commission, platform_driver_fee, restaurant_net, driver_net, platform_total
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`,
		summary.OrderID,
		summary.RestaurantID,
		summary.DriverID,
		summary.Subtotal,
		summary.DeliveryFee,
		summary.Commission,
		summary.PlatformDriverFee,
		summary.RestaurantNet,
		summary.DriverNet,
		summary.PlatformTotal,
	).Scan(&summary.ID, &summary.CreatedAt)
	return err
}

// TotalsBetween sums every settlement row created in [from, to).
func (repo *EarningsRepo) TotalsBetween(ctx context.Context, from, to time.Time) (ports.EarningsTotals, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return ports.EarningsTotals{}, err
	}

	var out ports.EarningsTotals
	err = tx.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(subtotal), 0),
			COALESCE(SUM(delivery_fee), 0),
			COALESCE(SUM(commission), 0),
			COALESCE(SUM(platform_driver_fee), 0),
			COALESCE(SUM(restaurant_net), 0),
			COALESCE(SUM(driver_net), 0),
			COALESCE(SUM(platform_total), 0)
		FROM order_earnings_summaries
		WHERE created_at >= $1 AND created_at < $2
	`, from, to).Scan(
		&out.SettledOrders,
		&out.Subtotal, &out.DeliveryFees,
		&out.Commission, &out.PlatformDriverFees,
		&out.RestaurantNet, &out.DriverNet, &out.PlatformTotal,
	)
	if err != nil {
		return ports.EarningsTotals{}, err
	}
	return out, nil
}

// DriverTotalsBetween returns per-driver delivery earnings in [from, to),
// highest first.
func (repo *EarningsRepo) DriverTotalsBetween(ctx context.Context, from, to time.Time, limit int) ([]ports.EarningsByOwner, error) {
	return repo.ownerTotalsBetween(ctx, "driver_id", "driver_net", from, to, limit)
}

// RestaurantTotalsBetween returns per-restaurant payouts in [from, to),
// highest first.
func (repo *EarningsRepo) RestaurantTotalsBetween(ctx context.Context, from, to time.Time, limit int) ([]ports.EarningsByOwner, error) {
	return repo.ownerTotalsBetween(ctx, "restaurant_id", "restaurant_net", from, to, limit)
}

// ownerTotalsBetween groups settlement rows by idCol and sums netCol. Both
// column names come from the two callers above, never from user input.
func (repo *EarningsRepo) ownerTotalsBetween(ctx context.Context, idCol, netCol string, from, to time.Time, limit int) ([]ports.EarningsByOwner, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+idCol+`, COUNT(*), COALESCE(SUM(`+netCol+`), 0)
		FROM order_earnings_summaries
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY `+idCol+`
		ORDER BY SUM(`+netCol+`) DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.EarningsByOwner
	for rows.Next() {
		var row ports.EarningsByOwner
		if err := rows.Scan(&row.OwnerID, &row.Orders, &row.Net); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
