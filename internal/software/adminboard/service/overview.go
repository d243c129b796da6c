package service

import (
	"context"
	"time"

	"food-dispatch/internal/domain/driver"
	"food-dispatch/internal/ports"
)

// GetSystemOverview collects a set of aggregate metrics about the current state of the system.
func (service *adminService) GetSystemOverview(ctx context.Context) (ports.SystemOverviewResult, error) {
	var res ports.SystemOverviewResult
	now := time.Now().UTC()
	res.Timestamp = now

	// define the start and end of the day
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	endOfDay := startOfDay.Add(24 * time.Hour)

	// collect the metrics within a transaction
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// ----- Order metrics -----

		nActive, err := service.orderRepo.CountActive(txCtx)
		if err != nil {
			return err
		}
		res.Metrics.ActiveOrders = nActive

		totalToday, err := service.orderRepo.CountCreatedBetween(txCtx, startOfDay, endOfDay)
		if err != nil {
			return err
		}
		res.Metrics.TotalOrdersToday = totalToday

		revenueToday, err := service.orderRepo.SumDeliveredTotalBetween(txCtx, startOfDay, endOfDay)
		if err != nil {
			return err
		}
		res.Metrics.TotalRevenueToday = revenueToday

		avgDispatch, err := service.orderRepo.AvgDispatchMinutesBetween(txCtx, startOfDay, endOfDay)
		if err != nil {
			return err
		}
		res.Metrics.AverageDispatchMinutes = avgDispatch

		avgDelivery, err := service.orderRepo.AvgDeliveryMinutesBetween(txCtx, startOfDay, endOfDay)
		if err != nil {
			return err
		}
		res.Metrics.AverageDeliveryMinutes = avgDelivery

		cancelRate, err := service.orderRepo.CancellationRateBetween(txCtx, startOfDay, endOfDay)
		if err != nil {
			return err
		}
		res.Metrics.CancellationRate = cancelRate

		nManual, err := service.orderRepo.CountNeedingManualDispatch(txCtx)
		if err != nil {
			return err
		}
		res.Metrics.OrdersNeedingManualDispatch = nManual

		// ----- Driver metrics -----

		nAvailable, err := service.driverRepo.CountByStatus(txCtx, driver.DriverStatusAvailable)
		if err != nil {
			return err
		}
		res.Metrics.AvailableDrivers = nAvailable

		nBusy, err := service.driverRepo.CountByStatus(txCtx, driver.DriverStatusBusy)
		if err != nil {
			return err
		}
		res.Metrics.BusyDrivers = nBusy

		return nil
	})
	if err != nil {
		return ports.SystemOverviewResult{}, err
	}

	return res, nil
}
