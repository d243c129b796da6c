package service

import (
	"context"
	"time"

	"food-dispatch/internal/domain/driver"
	"food-dispatch/internal/general/contracts"
	"food-dispatch/internal/ports"
)

// GoOffline marks the driver OFFLINE, finalizes the active session with a
// summary and drops the driver from the live location index.
func (service *dispatchService) GoOffline(ctx context.Context, in ports.GoOfflineInput) (ports.GoOfflineResult, error) {
	var out ports.GoOfflineResult
	corrID := generateCorrelationID()

	err := service.uow.WithinTx(ctx, func(ctx context.Context) error {
		drv, err := service.drivers.GetByID(ctx, in.DriverID)
		if err != nil {
			return err
		}
		if err := drv.GoOffline(); err != nil {
			return err
		}

		// find the active session for this driver
		activeSession, err := service.sessions.GetActiveForDriver(ctx, in.DriverID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		summary := driver.DriverSession{
			ID:              activeSession.ID,
			DriverID:        activeSession.DriverID,
			StartedAt:       activeSession.StartedAt,
			EndedAt:         &now,
			TotalDeliveries: activeSession.TotalDeliveries,
			TotalEarnings:   activeSession.TotalEarnings,
		}
		if err := service.sessions.End(ctx, activeSession.ID, summary); err != nil {
			return err
		}

		if err := service.drivers.UpdateStatus(ctx, in.DriverID, drv.Status); err != nil {
			return err
		}

		out = ports.GoOfflineResult{
			Status:    string(driver.DriverStatusOffline),
			SessionID: activeSession.ID,
			SessionSummary: ports.SessionSummary{
				DurationHours:       now.Sub(activeSession.StartedAt).Hours(),
				DeliveriesCompleted: activeSession.TotalDeliveries,
				Earnings:            activeSession.TotalEarnings,
			},
			Message: "You are now offline",
		}
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "driver_go_offline_failed", "Failed to bring driver offline", err, map[string]any{
			"driver_id":  in.DriverID,
			"request_id": corrID,
		})
		return ports.GoOfflineResult{}, err
	}

	// stop offering to this driver immediately
	if err := service.locStore.Remove(ctx, in.DriverID); err != nil {
		service.logger.Error(ctx, "geo_index_remove_failed", "Failed to remove driver from live location index", err, map[string]any{
			"driver_id":  in.DriverID,
			"request_id": corrID,
		})
	}

	statusMsg := contracts.DriverStatusMessage{
		DriverID:  in.DriverID,
		Status:    driver.DriverStatusOffline.String(),
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

	service.logger.Info(ctx, "driver_offline", "Driver successfully went offline", map[string]any{
		"driver_id":  in.DriverID,
		"session_id": out.SessionID,
		"status":     out.Status,
		"timestamp":  time.Now().UTC(),
		"request_id": corrID,
	})

	return out, err
}
