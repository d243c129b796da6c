package service

import (
	"context"
	"fmt"
	"time"

	"food-dispatch/internal/ports"
)

// topEarnersLimit caps the per-driver and per-restaurant breakdown rows.
const topEarnersLimit = 10

// GetEarningsReport aggregates settled orders over a date range. from and
// to are optional YYYY-MM-DD strings; an empty range means today (UTC).
// to is exclusive at day granularity, so from=to covers that single day.
func (service *adminService) GetEarningsReport(ctx context.Context, from, to string) (ports.EarningsReportResult, error) {
	fromTime, toTime, err := parseReportRange(from, to)
	if err != nil {
		return ports.EarningsReportResult{}, err
	}

	res := ports.EarningsReportResult{From: fromTime, To: toTime}

	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		totals, err := service.earningsRepo.TotalsBetween(txCtx, fromTime, toTime)
		if err != nil {
			return err
		}
		res.Totals = totals

		drivers, err := service.earningsRepo.DriverTotalsBetween(txCtx, fromTime, toTime, topEarnersLimit)
		if err != nil {
			return err
		}
		res.TopDrivers = drivers

		restaurants, err := service.earningsRepo.RestaurantTotalsBetween(txCtx, fromTime, toTime, topEarnersLimit)
		if err != nil {
			return err
		}
		res.TopRestaurants = restaurants

		return nil
	})
	if err != nil {
		return ports.EarningsReportResult{}, err
	}

	return res, nil
}

// parseReportRange turns optional YYYY-MM-DD bounds into UTC instants.
func parseReportRange(from, to string) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	fromTime := startOfToday
	if from != "" {
		parsed, err := time.ParseInLocation("2006-01-02", from, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q: %w", from, err)
		}
		fromTime = parsed
	}

	toTime := startOfToday.Add(24 * time.Hour)
	if to != "" {
		parsed, err := time.ParseInLocation("2006-01-02", to, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q: %w", to, err)
		}
		toTime = parsed.Add(24 * time.Hour)
	}

	if !toTime.After(fromTime) {
		return time.Time{}, time.Time{}, fmt.Errorf("date range is empty: from %s, to %s", from, to)
	}
	return fromTime, toTime, nil
}
