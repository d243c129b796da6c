package websocket

import (
	"context"
	"fmt"

	"food-dispatch/internal/general/contracts"

	"github.com/gorilla/websocket"
)

// NotifyCustomerOrderStatus sends a JSON status packet to a connected customer.
func (ws *WebSocket) NotifyCustomerOrderStatus(ctx context.Context, customerID string, msg contracts.WSCustomerOrderStatus) error {
	v, ok := ws.customers.Load(customerID)
	if !ok {
		return fmt.Errorf("customer %s not connected", customerID)
	}
	conn, _ := v.(*websocket.Conn)
	if conn == nil {
		return fmt.Errorf("no connection for customer %s", customerID)
	}

	if err := ws.writeJSON(conn, msg); err != nil {
		ws.logger.Error(ctx, "ws_write_failed", "Failed to push order status to customer", err, map[string]any{
			"customer_id": customerID,
		})
		return err
	}

	return nil
}

// NotifyCustomerLocationUpdate streams the courier position to a connected customer.
func (ws *WebSocket) NotifyCustomerLocationUpdate(ctx context.Context, customerID string, msg contracts.WSCustomerLocationUpdate) error {
	v, ok := ws.customers.Load(customerID)
	if !ok {
		return fmt.Errorf("customer %s not connected", customerID)
	}
	conn, _ := v.(*websocket.Conn)
	if conn == nil {
		return fmt.Errorf("no connection for customer %s", customerID)
	}

	if err := ws.writeJSON(conn, msg); err != nil {
		ws.logger.Error(ctx, "ws_location_send_failed",
			"Failed to send location update to customer", err,
			map[string]any{"customer_id": customerID})
		return err
	}

	return nil
}
