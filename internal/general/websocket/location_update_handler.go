package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"food-dispatch/internal/domain/geo"
	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/general/contracts"

	"github.com/gorilla/websocket"
)

func (ws *WebSocket) handleLocationUpdate(ctx context.Context, conn *websocket.Conn, driverID string, data json.RawMessage, lastLocAt *time.Time) error {
	// rate limit: at most one update per 3 seconds per connection
	now := time.Now()
	if now.Sub(*lastLocAt) < 3*time.Second {
		ws.logger.Debug(ctx, "location_update_throttled", "Location update throttled", map[string]any{
			"driver_id": driverID,
			"interval":  now.Sub(*lastLocAt).String(),
		})
		return nil
	}
	*lastLocAt = now

	var locationData struct {
		Latitude       float64 `json:"latitude"`
		Longitude      float64 `json:"longitude"`
		AccuracyMeters float64 `json:"accuracy_meters,omitempty"`
		SpeedKmh       float64 `json:"speed_kmh,omitempty"`
		HeadingDegrees float64 `json:"heading_degrees,omitempty"`
		Address        string  `json:"address,omitempty"`
	}

	if err := json.Unmarshal(data, &locationData); err != nil {
		ws.logger.Error(ctx, "location_update_parse_failed", "Failed to parse location data", err, map[string]any{
			"driver_id": driverID,
		})
		_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"invalid location data"}`))
		return err
	}

	if err := geo.ValidateLatLng(locationData.Latitude, locationData.Longitude); err != nil {
		ws.logger.Error(ctx, "location_update_invalid_coords", "Invalid coordinates received", err, map[string]any{
			"driver_id": driverID,
			"latitude":  locationData.Latitude,
			"longitude": locationData.Longitude,
		})
		_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"invalid coordinates"}`))
		return fmt.Errorf("invalid coordinates")
	}

	ws.UpdateLastLocation(driverID, &LocationData{
		Latitude:       locationData.Latitude,
		Longitude:      locationData.Longitude,
		AccuracyMeters: locationData.AccuracyMeters,
		SpeedKmh:       locationData.SpeedKmh,
		HeadingDegrees: locationData.HeadingDegrees,
	})

	// persist the fix and look up the driver's active order in one transaction
	var activeOrder *order.Order
	err := ws.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if _, err := ws.coordinatesRepo.SaveDriverLocation(txCtx, driverID,
			locationData.Latitude, locationData.Longitude,
			locationData.AccuracyMeters, locationData.SpeedKmh, locationData.HeadingDegrees,
			locationData.Address); err != nil {
			return err
		}

		var lookupErr error
		activeOrder, lookupErr = ws.ordersRepo.GetActiveForDriver(txCtx, driverID)
		return lookupErr
	})
	if err != nil {
		ws.logger.Error(ctx, "location_update_db_failed", "Failed to save location to database", err, map[string]any{
			"driver_id": driverID,
		})
		_ = ws.wsWriteMessage(conn, websocket.TextMessage, []byte(`{"type":"error","error":"failed to save location"}`))
		return err
	}

	// refresh the live position index (best effort)
	if ws.locStore != nil {
		if err := ws.locStore.Update(ctx, driverID, locationData.Latitude, locationData.Longitude); err != nil {
			ws.logger.Error(ctx, "location_index_update_failed", "Failed to refresh live position index", err, map[string]any{
				"driver_id": driverID,
			})
		}
	}

	// broadcast over the fanout exchange
	locMsg := contracts.LocationUpdateMessage{
		DriverID: driverID,
		Location: contracts.GeoPoint{
			Lat:     locationData.Latitude,
			Lng:     locationData.Longitude,
			Address: locationData.Address,
		},
		SpeedKMH:       locationData.SpeedKmh,
		HeadingDegrees: locationData.HeadingDegrees,
		Timestamp:      time.Now().UTC(),
		Envelope: contracts.Envelope{
			Producer: "dispatch-service",
			SentAt:   time.Now().UTC(),
		},
	}
	if activeOrder != nil {
		locMsg.OrderID = activeOrder.ID
	}

	messageBytes, err := json.Marshal(locMsg)
	if err != nil {
		ws.logger.Error(ctx, "location_update_marshal_failed", "Failed to marshal location message", err, map[string]any{
			"driver_id": driverID,
		})
		return err
	}

	if err := ws.pub.Publish(contracts.ExchangeLocationFanout, "", messageBytes); err != nil {
		ws.logger.Error(ctx, "location_update_publish_failed", "Failed to publish location update", err, map[string]any{
			"driver_id": driverID,
		})
		return err
	}

	// stream the position straight to the waiting customer
	if activeOrder != nil {
		custMsg := contracts.WSCustomerLocationUpdate{
			Type:           "driver_location_update",
			OrderID:        activeOrder.ID,
			Location:       locMsg.Location,
			SpeedKMH:       locationData.SpeedKmh,
			HeadingDegrees: locationData.HeadingDegrees,
			Timestamp:      locMsg.Timestamp,
		}
		if err := ws.NotifyCustomerLocationUpdate(ctx, activeOrder.CustomerID, custMsg); err != nil {
			ws.logger.Debug(ctx, "customer_location_push_skipped", "Customer not reachable for location push", map[string]any{
				"order_id":    activeOrder.ID,
				"customer_id": activeOrder.CustomerID,
			})
		}
	}

	ws.logger.Info(ctx, "location_update_published", "Location update published", map[string]any{
		"driver_id": driverID,
		"latitude":  locationData.Latitude,
		"longitude": locationData.Longitude,
		"order_id":  locMsg.OrderID,
		"exchange":  contracts.ExchangeLocationFanout,
	})

	ackMsg := map[string]interface{}{
		"type":    "location_update_ack",
		"status":  "success",
		"message": "Location updated and broadcasted",
	}
	ackBytes, _ := json.Marshal(ackMsg)
	_ = ws.wsWriteMessage(conn, websocket.TextMessage, ackBytes)

	return nil
}
