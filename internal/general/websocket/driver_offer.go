package websocket

import (
	"context"

	"food-dispatch/internal/general/contracts"
)

// PushDeliveryOffer sends a delivery offer to a connected driver. The caller
// falls back to RabbitMQ routing when the driver has no live socket.
func (ws *WebSocket) PushDeliveryOffer(ctx context.Context, driverID string, offer contracts.WSDriverDeliveryOffer) error {
	if err := ws.SendToDriver(driverID, offer); err != nil {
		ws.logger.Error(ctx, "delivery_offer_push_failed", "Failed to push delivery offer to driver", err, map[string]any{
			"driver_id": driverID,
			"order_id":  offer.OrderID,
			"offer_id":  offer.OfferID,
		})
		return err
	}

	ws.logger.Info(ctx, "delivery_offer_pushed", "Delivery offer pushed to driver", map[string]any{
		"driver_id": driverID,
		"order_id":  offer.OrderID,
		"offer_id":  offer.OfferID,
	})
	return nil
}
