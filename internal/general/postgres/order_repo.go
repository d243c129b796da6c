package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/ports"

	"github.com/jackc/pgx/v5"
)

// OrderRepo persists orders using pgx and plain SQL.
type OrderRepo struct{}

// NewOrderRepo constructs a new OrderRepo.
func NewOrderRepo() ports.OrderRepository {
	return &OrderRepo{}
}

const orderColumns = `
	id, created_at, updated_at, order_number, customer_id, restaurant_id, driver_id,
	status, payment_method, payment_status, subtotal, delivery_fee, total_amount,
	pickup_address, pickup_latitude, pickup_longitude,
	dropoff_address, dropoff_latitude, dropoff_longitude,
	offered_driver_id, offer_expires_at, offering_since, dispatch_attempts, needs_manual_dispatch,
	placed_at, assigned_at, picked_up_at, delivered_at, cancelled_at, cancellation_reason`

func scanOrder(row pgx.Row) (*order.Order, error) {
	var out order.Order
	var status, method, paymentStatus string

	err := row.Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt, &out.OrderNumber, &out.CustomerID, &out.RestaurantID, &out.DriverID,
		&status, &method, &paymentStatus, &out.Subtotal, &out.DeliveryFee, &out.TotalAmount,
		&out.PickupAddress, &out.PickupLatitude, &out.PickupLongitude,
		&out.DropoffAddress, &out.DropoffLatitude, &out.DropoffLongitude,
		&out.OfferedDriverID, &out.OfferExpiresAt, &out.OfferingSince, &out.DispatchAttempts, &out.NeedsManualDispatch,
		&out.PlacedAt, &out.AssignedAt, &out.PickedUpAt, &out.DeliveredAt, &out.CancelledAt, &out.CancellationReason,
	)
	if err != nil {
		return nil, err
	}

	out.Status = order.Status(status)
	out.PaymentMethod = order.PaymentMethod(method)
	out.PaymentStatus = order.PaymentStatus(paymentStatus)
	return &out, nil
}

// CreateOrder inserts a new order row and writes an initial ORDER_PLACED event.
func (repo *OrderRepo) CreateOrder(ctx context.Context, o *order.Order) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	// insert only the columns we actually have values for at creation time
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (
			order_number, customer_id, restaurant_id, status,
			payment_method, payment_status, subtotal, delivery_fee, total_amount,
			pickup_address, pickup_latitude, pickup_longitude,
			dropoff_address, dropoff_latitude, dropoff_longitude
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at, placed_at
	`,
		o.OrderNumber,
		o.CustomerID,
		o.RestaurantID,
		o.Status.String(), // typically "PENDING"
		o.PaymentMethod.String(),
		o.PaymentStatus.String(),
		o.Subtotal,
		o.DeliveryFee,
		o.TotalAmount,
		o.PickupAddress,
		o.PickupLatitude,
		o.PickupLongitude,
		o.DropoffAddress,
		o.DropoffLatitude,
		o.DropoffLongitude,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt, &o.PlacedAt)
	if err != nil {
		return err
	}

	eventData := map[string]any{
		"new_status":     o.Status.String(),
		"payment_method": o.PaymentMethod.String(),
		"total_amount":   o.TotalAmount.String(),
	}
	return insertOrderEvent(ctx, tx, o.ID, "ORDER_PLACED", eventData)
}

// GetByID fetches an order by primary key (uuid).
func (repo *OrderRepo) GetByID(ctx context.Context, id string) (*order.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	out, err := scanOrder(tx.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, err
	}
	return out, nil
}

// GetActiveForDriver fetches the most recent active (non-terminal) order for a given driver.
func (repo *OrderRepo) GetActiveForDriver(ctx context.Context, driverID string) (*order.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	out, err := scanOrder(tx.QueryRow(ctx, `
		SELECT`+orderColumns+`
		FROM orders
		WHERE driver_id = $1
		  AND status IN ('ASSIGNED', 'PICKED_UP')
		ORDER BY created_at DESC
		LIMIT 1
	`, driverID))
	if err != nil {
		// no active order found
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// GetOrdersByDriver returns recent orders for a driver.
func (repo *OrderRepo) GetOrdersByDriver(ctx context.Context, driverID string, limit int) ([]*order.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("get transaction from context: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT`+orderColumns+`
		FROM orders
		WHERE driver_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, driverID, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders by driver: %w", err)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateStatus sets the order status and stamps the corresponding timeline column.
func (repo *OrderRepo) UpdateStatus(ctx context.Context, id string, status order.Status, updatedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	// lock the row and read current status to enforce transitions
	var current string
	err = tx.QueryRow(ctx, `
		SELECT status
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&current)
	if err != nil {
		return err
	}

	// idempotent success
	if current == status.String() {
		return nil
	}

	if !status.Valid() {
		return errors.New("invalid order status")
	}

	// lifecycle checks: do not move out of terminal states
	if order.Status(current).Terminal() {
		return errors.New("cannot transition from a terminal state")
	}
	if !order.Status(current).CanTransitionTo(status) {
		return fmt.Errorf("cannot transition %s -> %s", current, status)
	}

	timelineColumn := timelineColumnFor(status)

	query := `
	UPDATE orders
	SET status = $1,
	    updated_at = now()
	`
	if timelineColumn != "updated_at" {
		query += `, ` + timelineColumn + ` = $2
		WHERE id = $3`
	} else {
		// don't assign updated_at twice
		query += `
		WHERE id = $3`
	}

	if _, err = tx.Exec(ctx, query, status.String(), updatedAt, id); err != nil {
		return err
	}

	eventData := map[string]any{
		"old_status": current,
		"new_status": status.String(),
		"timestamp":  updatedAt.UTC().Format(time.RFC3339),
	}
	return insertOrderEvent(ctx, tx, id, specificEventTypeFor(status), eventData)
}

// StartDispatch moves UNASSIGNED -> OFFERING and stamps offering_since.
// ConfirmPayment moves PENDING -> UNASSIGNED. Prepaid methods become PAID
// here; COD stays UNPAID until delivery.
func (repo *OrderRepo) ConfirmPayment(ctx context.Context, orderID string, ts time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current, method string
	err = tx.QueryRow(ctx, `
		SELECT status, payment_method
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&current, &method)
	if err != nil {
		return err
	}

	// idempotent success
	if current == "UNASSIGNED" {
		return nil
	}
	if current != "PENDING" {
		return errors.New("payment can only be confirmed from PENDING")
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET status = 'UNASSIGNED',
		    payment_status = CASE WHEN payment_method = 'COD' THEN payment_status ELSE 'PAID' END,
		    updated_at = now()
		WHERE id = $1
	`, orderID)
	if err != nil {
		return err
	}

	return insertOrderEvent(ctx, tx, orderID, "PAYMENT_CONFIRMED", map[string]any{
		"old_status":     current,
		"new_status":     "UNASSIGNED",
		"payment_method": method,
		"timestamp":      ts.UTC().Format(time.RFC3339),
	})
}

func (repo *OrderRepo) StartDispatch(ctx context.Context, orderID string, ts time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	err = tx.QueryRow(ctx, `
		SELECT status
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&current)
	if err != nil {
		return err
	}

	// idempotent success
	if current == "OFFERING" {
		return nil
	}
	if current != "UNASSIGNED" {
		return errors.New("dispatch can only start from UNASSIGNED")
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET status = 'OFFERING',
		    offering_since = $1,
		    updated_at = now()
		WHERE id = $2
	`, ts, orderID)
	if err != nil {
		return err
	}

	return insertOrderEvent(ctx, tx, orderID, "DISPATCH_STARTED", map[string]any{
		"old_status": current,
		"new_status": "OFFERING",
		"timestamp":  ts.UTC().Format(time.RFC3339),
	})
}

// OfferToDriver records an outstanding offer and moves OFFERING -> OFFERED.
func (repo *OrderRepo) OfferToDriver(ctx context.Context, orderID, driverID string, expiresAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	var existingDriver *string
	err = tx.QueryRow(ctx, `
		SELECT status, driver_id
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&current, &existingDriver)
	if err != nil {
		return err
	}

	if existingDriver != nil && *existingDriver != "" {
		return errors.New("driver already assigned")
	}
	if current != "OFFERING" {
		return errors.New("offers can only go out while the order is in OFFERING")
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET status = 'OFFERED',
		    offered_driver_id = $1,
		    offer_expires_at = $2,
		    dispatch_attempts = dispatch_attempts + 1,
		    updated_at = now()
		WHERE id = $3
	`, driverID, expiresAt, orderID)
	if err != nil {
		return err
	}

	return insertOrderEvent(ctx, tx, orderID, "DRIVER_OFFERED", map[string]any{
		"old_status": current,
		"new_status": "OFFERED",
		"driver_id":  driverID,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

// AcceptOffer assigns the offered driver, stamps assigned_at, moves status to ASSIGNED.
func (repo *OrderRepo) AcceptOffer(ctx context.Context, orderID, driverID string, assignedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	var offeredDriver *string
	var expiresAt *time.Time
	err = tx.QueryRow(ctx, `
		SELECT status, offered_driver_id, offer_expires_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&current, &offeredDriver, &expiresAt)
	if err != nil {
		return err
	}

	// idempotent success if already assigned to the same driver
	if current == "ASSIGNED" {
		existing, err := repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if existing.DriverID != nil && *existing.DriverID == driverID {
			return nil
		}
		return errors.New("order already assigned to another driver")
	}

	if current != "OFFERED" {
		return errors.New("accept is only allowed while the order is OFFERED")
	}
	if offeredDriver == nil || *offeredDriver != driverID {
		return order.ErrOfferDriverMismatch
	}
	if expiresAt != nil && assignedAt.After(*expiresAt) {
		return order.ErrOfferExpired
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET driver_id = $1,
		    status = 'ASSIGNED',
		    assigned_at = $2,
		    offered_driver_id = NULL,
		    offer_expires_at = NULL,
		    updated_at = now()
		WHERE id = $3
	`, driverID, assignedAt, orderID)
	if err != nil {
		return err
	}

	return insertOrderEvent(ctx, tx, orderID, "DRIVER_ASSIGNED", map[string]any{
		"old_status":  current,
		"new_status":  "ASSIGNED",
		"driver_id":   driverID,
		"assigned_at": assignedAt.UTC().Format(time.RFC3339),
	})
}

// WithdrawOffer clears an outstanding offer and moves OFFERED back to
// OFFERING. driverID must match the offered driver under the row lock;
// a concurrent re-offer to someone else must survive a stale withdraw.
func (repo *OrderRepo) WithdrawOffer(ctx context.Context, orderID, driverID string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	var offeredDriver *string
	err = tx.QueryRow(ctx, `
		SELECT status, offered_driver_id
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&current, &offeredDriver)
	if err != nil {
		return err
	}

	// idempotent success
	if current == "OFFERING" {
		return nil
	}
	if current != "OFFERED" {
		return errors.New("withdraw is only allowed while the order is OFFERED")
	}
	if offeredDriver == nil || *offeredDriver != driverID {
		return order.ErrOfferDriverMismatch
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET status = 'OFFERING',
		    offered_driver_id = NULL,
		    offer_expires_at = NULL,
		    updated_at = now()
		WHERE id = $1
	`, orderID)
	return err
}

// MarkPickedUp stamps picked_up_at and moves ASSIGNED -> PICKED_UP.
func (repo *OrderRepo) MarkPickedUp(ctx context.Context, orderID string, ts time.Time) error {
	return repo.UpdateStatus(ctx, orderID, order.StatusPickedUp, ts)
}

// MarkDelivered finalizes a delivery: stamps delivered_at exactly once,
// flips a COD order to PAID, and moves to DELIVERED.
func (repo *OrderRepo) MarkDelivered(ctx context.Context, orderID string, deliveredAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current, method string
	err = tx.QueryRow(ctx, `
		SELECT status, payment_method
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&current, &method)
	if err != nil {
		return err
	}

	// idempotent success
	if current == "DELIVERED" {
		return nil
	}
	if current == "CANCELLED" {
		return errors.New("cannot deliver a cancelled order")
	}
	if current != "PICKED_UP" {
		return errors.New("deliver is only allowed from PICKED_UP")
	}

	// delivered_at is set once and never overwritten
	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET status = 'DELIVERED',
		    delivered_at = COALESCE(delivered_at, $1),
		    payment_status = CASE WHEN payment_method = 'COD' THEN 'PAID' ELSE payment_status END,
		    updated_at = now()
		WHERE id = $2
	`, deliveredAt, orderID)
	if err != nil {
		return err
	}

	return insertOrderEvent(ctx, tx, orderID, "ORDER_DELIVERED", map[string]any{
		"old_status":   current,
		"new_status":   "DELIVERED",
		"delivered_at": deliveredAt.UTC().Format(time.RFC3339),
	})
}

// Cancel sets cancellation_reason, stamps cancelled_at, and moves to CANCELLED.
func (repo *OrderRepo) Cancel(ctx context.Context, orderID, reason string, cancelledAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	var current string
	err = tx.QueryRow(ctx, `
		SELECT status
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&current)
	if err != nil {
		return err
	}

	// idempotent success
	if current == "CANCELLED" {
		return nil
	}

	// delivered orders can never be cancelled
	if current == "DELIVERED" {
		return errors.New("cannot cancel a delivered order")
	}

	_, err = tx.Exec(ctx, `
		UPDATE orders
		SET status = 'CANCELLED',
		    cancellation_reason = $1,
		    cancelled_at = $2,
		    offered_driver_id = NULL,
		    offer_expires_at = NULL,
		    updated_at = now()
		WHERE id = $3
	`, reason, cancelledAt, orderID)
	if err != nil {
		return err
	}

	return insertOrderEvent(ctx, tx, orderID, "ORDER_CANCELLED", map[string]any{
		"old_status":   current,
		"new_status":   "CANCELLED",
		"reason":       reason,
		"cancelled_at": cancelledAt.UTC().Format(time.RFC3339),
	})
}

// FlagManualDispatch parks an OFFERING order for an operator.
func (repo *OrderRepo) FlagManualDispatch(ctx context.Context, orderID string) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET needs_manual_dispatch = true,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'OFFERING'
		  AND needs_manual_dispatch = false
	`, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// already flagged or not in OFFERING; nothing to record
		return nil
	}

	return insertOrderEvent(ctx, tx, orderID, "MANUAL_DISPATCH_REQUIRED", map[string]any{
		"status": "OFFERING",
	})
}

// ListAwaitingOffer returns OFFERING orders with no outstanding offer,
// oldest first, skipping those parked for manual dispatch.
func (repo *OrderRepo) ListAwaitingOffer(ctx context.Context, limit int) ([]*order.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT`+orderColumns+`
		FROM orders
		WHERE status = 'OFFERING'
		  AND offered_driver_id IS NULL
		  AND needs_manual_dispatch = false
		ORDER BY offering_since ASC NULLS LAST
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListExpiredOffers returns OFFERED orders whose accept window has passed.
func (repo *OrderRepo) ListExpiredOffers(ctx context.Context, now time.Time, limit int) ([]*order.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT`+orderColumns+`
		FROM orders
		WHERE status = 'OFFERED'
		  AND offer_expires_at IS NOT NULL
		  AND offer_expires_at < $1
		ORDER BY offer_expires_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListStaleUnpaid returns PENDING orders of the given payment method whose
// payment never arrived before olderThan.
func (repo *OrderRepo) ListStaleUnpaid(ctx context.Context, method order.PaymentMethod, olderThan time.Time, limit int) ([]*order.Order, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT`+orderColumns+`
		FROM orders
		WHERE status = 'PENDING'
		  AND payment_status = 'UNPAID'
		  AND payment_method = $1
		  AND placed_at < $2
		ORDER BY placed_at ASC
		LIMIT $3
	`, method.String(), olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// --- helpers ---

// insertOrderEvent writes a row into order_events with encoded event_data.
func insertOrderEvent(ctx context.Context, tx pgx.Tx, orderID, eventType string, eventData any) error {
	body, err := json.Marshal(eventData)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO order_events (order_id, event_type, event_data)
		VALUES ($1, $2, $3::jsonb)
	`, orderID, eventType, string(body))
	return err
}

// timelineColumnFor maps a status to the timeline column that must be stamped.
func timelineColumnFor(status order.Status) string {
	switch status {
	case order.StatusAssigned:
		return "assigned_at"
	case order.StatusPickedUp:
		return "picked_up_at"
	case order.StatusDelivered:
		return "delivered_at"
	case order.StatusCancelled:
		return "cancelled_at"
	default:
		// no dedicated timeline column for the remaining statuses
		return "updated_at"
	}
}

// specificEventTypeFor returns a more precise event name when appropriate.
func specificEventTypeFor(status order.Status) string {
	switch status {
	case order.StatusUnassigned:
		return "PAYMENT_CONFIRMED"
	case order.StatusOffering:
		return "DISPATCH_STARTED"
	case order.StatusOffered:
		return "DRIVER_OFFERED"
	case order.StatusAssigned:
		return "DRIVER_ASSIGNED"
	case order.StatusPickedUp:
		return "ORDER_PICKED_UP"
	case order.StatusDelivered:
		return "ORDER_DELIVERED"
	case order.StatusCancelled:
		return "ORDER_CANCELLED"
	default:
		return "STATUS_CHANGED"
	}
}
