package postgres

import (
	"context"
	"time"

	"food-dispatch/internal/ports"

	"github.com/shopspring/decimal"
)

// CountActive returns the number of orders in non-terminal states.
func (repo *OrderRepo) CountActive(ctx context.Context) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM orders
		WHERE status IN ('PENDING', 'UNASSIGNED', 'OFFERING', 'OFFERED', 'ASSIGNED', 'PICKED_UP')
	`).Scan(&n)
	if err != nil {
		return 0, err
	}

	return n, nil
}

// CountCreatedBetween returns the number of orders placed within the specified time range [start, end).
func (repo *OrderRepo) CountCreatedBetween(ctx context.Context, start, end time.Time) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM orders
		WHERE placed_at >= $1 AND placed_at < $2
	`, start, end).Scan(&n)
	if err != nil {
		return 0, err
	}

	return n, nil
}

// CancellationRateBetween returns the cancellation rate for orders placed within [start, end).
func (repo *OrderRepo) CancellationRateBetween(ctx context.Context, start, end time.Time) (float64, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var total, cancelled int64
	err = tx.QueryRow(ctx, `
    SELECT
        COUNT(*) FILTER (WHERE placed_at >= $1 AND placed_at < $2) AS total_cnt,
        COUNT(*) FILTER (WHERE placed_at >= $1 AND placed_at < $2 AND status = 'CANCELLED') AS cancelled_cnt
    FROM orders
`, start, end).Scan(&total, &cancelled)
	if err != nil {
		return 0, err
	}

	if total == 0 {
		return 0, nil
	}
	return float64(cancelled) / float64(total), nil
}

// SumDeliveredTotalBetween returns order volume (total_amount) for orders delivered within [start, end).
func (repo *OrderRepo) SumDeliveredTotalBetween(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	var total decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM orders
		WHERE status = 'DELIVERED'
		  AND delivered_at >= $1 AND delivered_at < $2
	`, start, end).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}

	return total, nil
}

// AvgDispatchMinutesBetween returns the average time from dispatch start to
// driver assignment for orders assigned within [start, end).
func (repo *OrderRepo) AvgDispatchMinutesBetween(ctx context.Context, start, end time.Time) (float64, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var avg float64
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (assigned_at - offering_since)) / 60.0), 0)
		FROM orders
		WHERE assigned_at IS NOT NULL
		  AND offering_since IS NOT NULL
		  AND assigned_at >= $1 AND assigned_at < $2
	`, start, end).Scan(&avg)
	if err != nil {
		return 0, err
	}

	return avg, nil
}

// AvgDeliveryMinutesBetween returns the average pickup-to-delivery time for
// orders delivered within [start, end).
func (repo *OrderRepo) AvgDeliveryMinutesBetween(ctx context.Context, start, end time.Time) (float64, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var avg float64
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (delivered_at - picked_up_at)) / 60.0), 0)
		FROM orders
		WHERE status = 'DELIVERED'
		  AND picked_up_at IS NOT NULL
		  AND delivered_at IS NOT NULL
		  AND delivered_at >= $1 AND delivered_at < $2
	`, start, end).Scan(&avg)
	if err != nil {
		return 0, err
	}

	return avg, nil
}

// CountNeedingManualDispatch returns how many orders are parked for an operator.
func (repo *OrderRepo) CountNeedingManualDispatch(ctx context.Context) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM orders
		WHERE status = 'OFFERING'
		  AND needs_manual_dispatch = true
	`).Scan(&n)
	if err != nil {
		return 0, err
	}

	return n, nil
}

// HydrateActiveRows returns a page of active orders with the assigned
// driver's freshest known coordinates joined in.
func (repo *OrderRepo) HydrateActiveRows(ctx context.Context, offset, limit int) ([]ports.ActiveOrderRow, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := tx.Query(ctx, `
		WITH base AS (
			SELECT
				o.id,
				o.order_number,
				o.status,
				o.customer_id,
				o.restaurant_id,
				o.driver_id,
				o.pickup_address,
				o.dropoff_address,
				o.placed_at,
				o.needs_manual_dispatch,
				o.dispatch_attempts
			FROM orders o
			WHERE o.status IN ('OFFERING', 'OFFERED', 'ASSIGNED', 'PICKED_UP')
			ORDER BY o.placed_at DESC
			OFFSET $1
			LIMIT  $2
		),
		cur AS (
			SELECT
				c.entity_id AS driver_id,
				c.latitude  AS cur_lat,
				c.longitude AS cur_lng
			FROM coordinates c
			WHERE c.entity_type = 'driver' AND c.is_current = true
		)
		SELECT
			b.id,
			b.order_number,
			b.status,
			b.customer_id,
			b.restaurant_id,
			COALESCE(b.driver_id, '')       AS driver_id,
			COALESCE(b.pickup_address, '')  AS pickup_address,
			COALESCE(b.dropoff_address, '') AS dropoff_address,
			b.placed_at,
			b.needs_manual_dispatch,
			b.dispatch_attempts,
			COALESCE(cur.cur_lat, 0.0)      AS cur_lat,
			COALESCE(cur.cur_lng, 0.0)      AS cur_lng
		FROM base b
		LEFT JOIN cur ON cur.driver_id = b.driver_id
	`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.ActiveOrderRow
	for rows.Next() {
		var r ports.ActiveOrderRow
		if err := rows.Scan(
			&r.OrderID,
			&r.OrderNumber,
			&r.Status,
			&r.CustomerID,
			&r.RestaurantID,
			&r.DriverID,
			&r.PickupAddress,
			&r.DropoffAddress,
			&r.PlacedAt,
			&r.NeedsManualDispatch,
			&r.DispatchAttempts,
			&r.CurrentDriverLocation.Latitude,
			&r.CurrentDriverLocation.Longitude,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
