package postgres

import (
	"context"

	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/ports"
)

// RejectionRepo persists driver rejections using pgx and plain SQL.
type RejectionRepo struct{}

// NewRejectionRepo constructs a new RejectionRepo.
func NewRejectionRepo() ports.RejectionRepository {
	return &RejectionRepo{}
}

// Append inserts a new order_driver_rejections row. The (order_id, driver_id)
// pair is unique; re-recording the same rejection is a no-op.
func (repo *RejectionRepo) Append(ctx context.Context, rejection *order.Rejection) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_driver_rejections (order_id, driver_id, reason, rejected_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, driver_id) DO NOTHING
	`,
		rejection.OrderID,
		rejection.DriverID,
		rejection.Reason,
		rejection.RejectedAt,
	)
	return err
}

// DriverIDsForOrder returns every driver that already turned the order down.
func (repo *RejectionRepo) DriverIDsForOrder(ctx context.Context, orderID string) ([]string, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT driver_id
		FROM order_driver_rejections
		WHERE order_id = $1
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountForOrder returns how many distinct drivers rejected the order.
func (repo *RejectionRepo) CountForOrder(ctx context.Context, orderID string) (int, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var n int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM order_driver_rejections
		WHERE order_id = $1
	`, orderID).Scan(&n)
	if err != nil {
		return 0, err
	}

	return n, nil
}
