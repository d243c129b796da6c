package service

import (
	"context"
	"time"

	"food-dispatch/internal/domain/geo"
	"food-dispatch/internal/general/contracts"
	"food-dispatch/internal/ports"
)

// UpdateLocation upserts a new "current" coordinate, archives a history
// record, refreshes the live geo index and broadcasts the position.
func (service *dispatchService) UpdateLocation(ctx context.Context, in ports.UpdateLocationInput) (ports.UpdateLocationResult, error) {
	var out ports.UpdateLocationResult
	var orderIDPtr *string
	corrID := generateCorrelationID()

	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		// ensure that driver exists
		if _, err := service.drivers.GetByID(ctx, in.DriverID); err != nil {
			return err
		}

		// tag the update with the order the courier is carrying, if any
		if ord, err := service.orders.GetActiveForDriver(ctx, in.DriverID); err == nil && ord != nil {
			oid := ord.ID
			orderIDPtr = &oid
		}

		// simple rate limit: skip writes if the last update is < 3s ago
		if cur, err := service.coords.GetCurrentForDriver(ctx, in.DriverID); err == nil && cur != nil {
			if time.Since(cur.UpdatedAt) < 3*time.Second {
				out.CoordinateID = cur.ID
				out.UpdatedAt = cur.UpdatedAt
				return nil
			}
		}

		// upsert a fresh "current" coordinate
		coord := geo.Coordinate{
			EntityID:   in.DriverID,
			EntityType: geo.EntityTypeDriver,
			Address:    "N/A",
			Latitude:   in.Latitude,
			Longitude:  in.Longitude,
			IsCurrent:  true,
		}
		coordID, updatedAt, err := service.coords.UpsertForDriver(ctx, in.DriverID, coord, true)
		if err != nil {
			return err
		}

		out.CoordinateID = coordID
		out.UpdatedAt = updatedAt

		// archive new record to location_history
		lh, err := geo.NewLocationHistory(
			in.DriverID,
			orderIDPtr,
			in.Latitude,
			in.Longitude,
			in.AccuracyMeters,
			in.SpeedKmh,
			in.HeadingDegrees,
			time.Now().UTC(),
		)
		if err != nil {
			return err
		}
		return service.locHistory.Archive(ctx, lh)
	})
	if err != nil {
		service.logger.Error(ctx, "driver_location_update_failed", "Failed to update driver location", err, map[string]any{
			"driver_id":  in.DriverID,
			"latitude":   in.Latitude,
			"longitude":  in.Longitude,
			"request_id": corrID,
		})
		return ports.UpdateLocationResult{}, err
	}

	// refresh the geo index used by the candidate selector
	if err := service.locStore.Update(ctx, in.DriverID, in.Latitude, in.Longitude); err != nil {
		service.logger.Error(ctx, "geo_index_update_failed", "Failed to refresh live location index", err, map[string]any{
			"driver_id":  in.DriverID,
			"request_id": corrID,
		})
	}

	var speed float64
	if in.SpeedKmh != nil {
		speed = *in.SpeedKmh
	}
	var heading float64
	if in.HeadingDegrees != nil {
		heading = *in.HeadingDegrees
	}

	locMsg := contracts.LocationUpdateMessage{
		DriverID: in.DriverID,
		Location: contracts.GeoPoint{
			Lat: in.Latitude,
			Lng: in.Longitude,
		},
		SpeedKMH:       speed,
		HeadingDegrees: heading,
		Timestamp:      time.Now().UTC(),
		Envelope: contracts.Envelope{
			Producer:      "dispatch-service",
			CorrelationID: corrID,
		},
	}
	if orderIDPtr != nil {
		locMsg.OrderID = *orderIDPtr
	}

	// publish to fanout exchange (no routing key)
	if err = service.broadcastLocationUpdate(ctx, locMsg); err != nil {
		service.logger.Error(ctx, "location_update_publish_failed", "Failed to broadcast location update to RabbitMQ", err, map[string]any{
			"driver_id":  in.DriverID,
			"order_id":   locMsg.OrderID,
			"request_id": corrID,
		})
	}

	service.logger.Info(ctx, "driver_location_updated", "Driver location updated and broadcast", map[string]any{
		"driver_id":     in.DriverID,
		"coordinate_id": out.CoordinateID,
		"updated_at":    out.UpdatedAt,
		"order_id":      locMsg.OrderID,
		"lat":           in.Latitude,
		"lng":           in.Longitude,
		"speed_kmh":     speed,
		"heading_deg":   heading,
		"request_id":    corrID,
	})

	return out, err
}
