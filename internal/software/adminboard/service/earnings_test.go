package service

import (
	"context"
	"testing"
	"time"

	"food-dispatch/internal/ports"

	"github.com/shopspring/decimal"
)

// passUow runs the function directly; there is no real transaction in tests.
type passUow struct{}

func (passUow) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeEarnings records the windows it was asked about and serves canned rows.
type fakeEarnings struct {
	ports.EarningsRepository

	totals      ports.EarningsTotals
	drivers     []ports.EarningsByOwner
	restaurants []ports.EarningsByOwner

	gotFrom time.Time
	gotTo   time.Time
	limits  []int
}

func (f *fakeEarnings) TotalsBetween(ctx context.Context, from, to time.Time) (ports.EarningsTotals, error) {
	f.gotFrom, f.gotTo = from, to
	return f.totals, nil
}

func (f *fakeEarnings) DriverTotalsBetween(ctx context.Context, from, to time.Time, limit int) ([]ports.EarningsByOwner, error) {
	f.limits = append(f.limits, limit)
	return f.drivers, nil
}

func (f *fakeEarnings) RestaurantTotalsBetween(ctx context.Context, from, to time.Time, limit int) ([]ports.EarningsByOwner, error) {
	f.limits = append(f.limits, limit)
	return f.restaurants, nil
}

func TestEarningsReportForExplicitRange(t *testing.T) {
	repo := &fakeEarnings{
		totals: ports.EarningsTotals{
			SettledOrders: 3,
			PlatformTotal: decimal.NewFromInt(75),
		},
		drivers:     []ports.EarningsByOwner{{OwnerID: "drv-1", Orders: 2, Net: decimal.NewFromInt(30)}},
		restaurants: []ports.EarningsByOwner{{OwnerID: "res-1", Orders: 3, Net: decimal.NewFromInt(240)}},
	}
	svc := NewAdminService(passUow{}, nil, nil, repo)

	res, err := svc.GetEarningsReport(context.Background(), "2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("GetEarningsReport: %v", err)
	}

	wantFrom := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if !res.From.Equal(wantFrom) || !res.To.Equal(wantTo) {
		t.Fatalf("range = [%v, %v), want [%v, %v)", res.From, res.To, wantFrom, wantTo)
	}
	if !repo.gotFrom.Equal(wantFrom) || !repo.gotTo.Equal(wantTo) {
		t.Fatalf("repo queried [%v, %v), want [%v, %v)", repo.gotFrom, repo.gotTo, wantFrom, wantTo)
	}

	if res.Totals.SettledOrders != 3 || !res.Totals.PlatformTotal.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("unexpected totals: %+v", res.Totals)
	}
	if len(res.TopDrivers) != 1 || res.TopDrivers[0].OwnerID != "drv-1" {
		t.Fatalf("unexpected driver rows: %+v", res.TopDrivers)
	}
	if len(res.TopRestaurants) != 1 || res.TopRestaurants[0].OwnerID != "res-1" {
		t.Fatalf("unexpected restaurant rows: %+v", res.TopRestaurants)
	}
	for _, limit := range repo.limits {
		if limit != topEarnersLimit {
			t.Fatalf("breakdown limit = %d, want %d", limit, topEarnersLimit)
		}
	}
}

func TestEarningsReportDefaultsToToday(t *testing.T) {
	repo := &fakeEarnings{}
	svc := NewAdminService(passUow{}, nil, nil, repo)

	res, err := svc.GetEarningsReport(context.Background(), "", "")
	if err != nil {
		t.Fatalf("GetEarningsReport: %v", err)
	}

	if !res.To.Equal(res.From.Add(24 * time.Hour)) {
		t.Fatalf("default window = [%v, %v), want one day", res.From, res.To)
	}
	if res.From.Hour() != 0 || res.From.Location() != time.UTC {
		t.Fatalf("default window should start at UTC midnight, got %v", res.From)
	}
}

func TestEarningsReportRejectsBadRanges(t *testing.T) {
	svc := NewAdminService(passUow{}, nil, nil, &fakeEarnings{})

	cases := []struct {
		name     string
		from, to string
	}{
		{"malformed from", "08/01/2026", "2026-08-31"},
		{"malformed to", "2026-08-01", "yesterday"},
		{"inverted range", "2026-08-31", "2026-08-01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.GetEarningsReport(context.Background(), tc.from, tc.to); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
