package service

import (
	"context"
	"time"

	"food-dispatch/internal/domain/driver"
	"food-dispatch/internal/domain/geo"
	"food-dispatch/internal/general/contracts"
	"food-dispatch/internal/ports"
)

// GoOnline brings the driver ONLINE, starts a session, records the
// current location and seeds the live location index. An ONLINE driver
// is immediately dispatch-eligible.
func (service *dispatchService) GoOnline(ctx context.Context, in ports.GoOnlineInput) (ports.GoOnlineResult, error) {
	var out ports.GoOnlineResult
	corrID := generateCorrelationID()

	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		drv, err := service.drivers.GetByID(ctx, in.DriverID)
		if err != nil {
			return err
		}

		// the entity owns the shift state machine; going online twice
		// is an error, not a silent reset
		if err := drv.GoOnline(); err != nil {
			return err
		}
		if err := service.drivers.UpdateStatus(ctx, in.DriverID, drv.Status); err != nil {
			return err
		}

		// start a new driver session
		sessionID, err := service.sessions.Start(ctx, in.DriverID)
		if err != nil {
			return err
		}

		// upsert current coordinates and mark them as current
		coord := geo.Coordinate{
			EntityID:   in.DriverID,
			EntityType: geo.EntityTypeDriver,
			Address:    "N/A",
			Latitude:   in.Latitude,
			Longitude:  in.Longitude,
			IsCurrent:  true,
		}
		if _, _, err := service.coords.UpsertForDriver(ctx, in.DriverID, coord, true); err != nil {
			return err
		}

		out = ports.GoOnlineResult{
			Status:    driver.DriverStatusOnline.String(),
			SessionID: sessionID,
			Message:   "You are now online and ready to accept deliveries",
		}
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "driver_go_online_failed", "Failed to bring driver online", err, map[string]any{
			"driver_id":  in.DriverID,
			"latitude":   in.Latitude,
			"longitude":  in.Longitude,
			"request_id": corrID,
		})
		return ports.GoOnlineResult{}, err
	}

	// seed the geo index; the next location update repairs a miss
	if err := service.locStore.Update(ctx, in.DriverID, in.Latitude, in.Longitude); err != nil {
		service.logger.Error(ctx, "geo_index_update_failed", "Failed to seed live location index", err, map[string]any{
			"driver_id":  in.DriverID,
			"request_id": corrID,
		})
	}

	statusMsg := contracts.DriverStatusMessage{
		DriverID:  in.DriverID,
		Status:    driver.DriverStatusOnline.String(),
		Timestamp: time.Now().UTC(),
		Envelope: contracts.Envelope{
			Producer:      "dispatch-service",
			CorrelationID: corrID,
		},
	}
	if err = service.publishDriverStatus(ctx, statusMsg); err != nil {
		service.logger.Error(ctx, "driver_status_publish_failed", "Failed to publish driver status to RabbitMQ", err, map[string]any{
			"driver_id":  in.DriverID,
			"status":     statusMsg.Status,
			"request_id": corrID,
		})
	}

	service.logger.Info(ctx, "driver_online", "Driver successfully went online", map[string]any{
		"driver_id":  in.DriverID,
		"session_id": out.SessionID,
		"status":     out.Status,
		"timestamp":  time.Now().UTC(),
		"request_id": corrID,
	})

	return out, err
}
