package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"food-dispatch/internal/domain/driver"
	"food-dispatch/internal/general/config"
	"food-dispatch/internal/general/logger"
	"food-dispatch/internal/ports"

	"github.com/shopspring/decimal"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Dispatch.OfferTimeout = 30 * time.Second
	cfg.Dispatch.RetryDelay = 5 * time.Second
	cfg.Dispatch.MaxRejections = 5
	cfg.Dispatch.EscalateAfter = 15 * time.Minute
	cfg.Dispatch.SearchRadiiKM = []float64{2, 5, 10}
	cfg.Dispatch.MaxCandidates = 20
	cfg.Dispatch.OracleCallBudget = 3 * time.Second
	cfg.Settlement.CommissionRate = decimal.NewFromFloat(0.20)
	cfg.Settlement.PlatformDriverFee = decimal.NewFromInt(5)
	return cfg
}

func availableDriver(id string, rating float64, codLimit int64) driver.Driver {
	return driver.Driver{
		ID:            id,
		Status:        driver.DriverStatusAvailable,
		IsVerified:    true,
		AverageRating: rating,
		CODLimit:      decimal.NewFromInt(codLimit),
	}
}

func hit(id string, distKM float64) ports.NearbyDriver {
	return ports.NearbyDriver{DriverID: id, Latitude: 10.76, Longitude: 106.66, DistanceKM: distKM, ObservedAt: time.Now()}
}

func newSelectorService(locStore *fakeLocStore, drivers *fakeDrivers, rejections *fakeRejections, oracle ports.DistanceOracle) *dispatchService {
	return &dispatchService{
		logger:     logger.New("test"),
		cfg:        testConfig(),
		uow:        passUow{},
		drivers:    drivers,
		rejections: rejections,
		locStore:   locStore,
		oracle:     oracle,
	}
}

func TestSelectCandidatesFiltersAndRanks(t *testing.T) {
	locStore := &fakeLocStore{rings: [][]ports.NearbyDriver{{
		hit("close", 0.5),
		hit("far", 1.8),
		hit("rejected", 0.2),
		hit("offline", 0.3),
		hit("unverified", 0.4),
		hit("cod-capped", 0.6),
	}}}

	offline := availableDriver("offline", 4.9, 1000)
	offline.Status = driver.DriverStatusOffline
	unverified := availableDriver("unverified", 4.9, 1000)
	unverified.IsVerified = false

	drivers := &fakeDrivers{byID: map[string]driver.Driver{
		"close":      availableDriver("close", 4.0, 1000),
		"far":        availableDriver("far", 5.0, 1000),
		"rejected":   availableDriver("rejected", 5.0, 1000),
		"offline":    offline,
		"unverified": unverified,
		"cod-capped": availableDriver("cod-capped", 4.8, 50),
	}}
	rejections := &fakeRejections{rejected: []string{"rejected"}}

	svc := newSelectorService(locStore, drivers, rejections, nil)

	got, err := svc.selectCandidates(context.Background(), "ord-1", 10.76, 106.66, decimal.NewFromInt(120))
	if err != nil {
		t.Fatalf("selectCandidates: %v", err)
	}

	want := []string{"close", "far"}
	if len(got) != len(want) {
		t.Fatalf("candidates = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].DriverID != id {
			t.Errorf("candidate[%d] = %s, want %s", i, got[i].DriverID, id)
		}
	}
}

func TestSelectCandidatesExpandsRings(t *testing.T) {
	locStore := &fakeLocStore{rings: [][]ports.NearbyDriver{
		{},               // 2 km: empty
		{hit("d1", 4.2)}, // 5 km
	}}
	drivers := &fakeDrivers{byID: map[string]driver.Driver{
		"d1": availableDriver("d1", 4.5, 0),
	}}

	svc := newSelectorService(locStore, drivers, &fakeRejections{}, nil)

	got, err := svc.selectCandidates(context.Background(), "ord-1", 10.76, 106.66, decimal.Zero)
	if err != nil {
		t.Fatalf("selectCandidates: %v", err)
	}
	if len(got) != 1 || got[0].DriverID != "d1" {
		t.Fatalf("candidates = %+v, want only d1", got)
	}
	if locStore.calls != 2 {
		t.Errorf("Nearby calls = %d, want 2", locStore.calls)
	}
}

func TestSelectCandidatesNoneEligible(t *testing.T) {
	locStore := &fakeLocStore{rings: [][]ports.NearbyDriver{{hit("busy", 1.0)}, {}, {}}}
	busy := availableDriver("busy", 4.5, 1000)
	busy.Status = driver.DriverStatusBusy
	drivers := &fakeDrivers{byID: map[string]driver.Driver{"busy": busy}}

	svc := newSelectorService(locStore, drivers, &fakeRejections{}, nil)

	got, err := svc.selectCandidates(context.Background(), "ord-1", 10.76, 106.66, decimal.Zero)
	if err != nil {
		t.Fatalf("selectCandidates: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("candidates = %+v, want none", got)
	}
	if locStore.calls != 3 {
		t.Errorf("Nearby calls = %d, want all 3 rings searched", locStore.calls)
	}
}

func TestOracleReordersByDrivingDistance(t *testing.T) {
	locStore := &fakeLocStore{rings: [][]ports.NearbyDriver{{
		hit("straight-close", 0.5),
		hit("road-close", 0.9),
	}}}
	drivers := &fakeDrivers{byID: map[string]driver.Driver{
		"straight-close": availableDriver("straight-close", 4.0, 0),
		"road-close":     availableDriver("road-close", 4.0, 0),
	}}
	// across the river: the straight-line winner drives twice as far
	oracle := &fakeOracle{dists: []float64{2.4, 1.1}}

	svc := newSelectorService(locStore, drivers, &fakeRejections{}, oracle)

	got, err := svc.selectCandidates(context.Background(), "ord-1", 10.76, 106.66, decimal.Zero)
	if err != nil {
		t.Fatalf("selectCandidates: %v", err)
	}
	if oracle.calls != 1 {
		t.Fatalf("oracle calls = %d, want 1", oracle.calls)
	}
	if got[0].DriverID != "road-close" {
		t.Errorf("best candidate = %s, want road-close", got[0].DriverID)
	}
}

func TestOracleFailureKeepsStraightLineOrder(t *testing.T) {
	locStore := &fakeLocStore{rings: [][]ports.NearbyDriver{{
		hit("a", 0.5),
		hit("b", 0.9),
	}}}
	drivers := &fakeDrivers{byID: map[string]driver.Driver{
		"a": availableDriver("a", 4.0, 0),
		"b": availableDriver("b", 4.0, 0),
	}}
	oracle := &fakeOracle{err: errors.New("quota exceeded")}

	svc := newSelectorService(locStore, drivers, &fakeRejections{}, oracle)

	got, err := svc.selectCandidates(context.Background(), "ord-1", 10.76, 106.66, decimal.Zero)
	if err != nil {
		t.Fatalf("selectCandidates: %v", err)
	}
	if got[0].DriverID != "a" || got[1].DriverID != "b" {
		t.Errorf("order = [%s %s], want [a b]", got[0].DriverID, got[1].DriverID)
	}
}

func TestSortCandidatesTiebreakOnRating(t *testing.T) {
	candidates := []ports.Candidate{
		{DriverID: "low", StraightLineKM: 1.0, DrivingKM: -1, Rating: 3.9},
		{DriverID: "high", StraightLineKM: 1.0, DrivingKM: -1, Rating: 4.8},
		{DriverID: "partial", StraightLineKM: 3.0, DrivingKM: 0.7, Rating: 4.0},
	}

	sortCandidates(candidates)

	// the driver with an oracle answer of 0.7 km beats both 1.0 km
	// straight-line drivers; equal distances fall back to rating
	want := []string{"partial", "high", "low"}
	for i, id := range want {
		if candidates[i].DriverID != id {
			t.Errorf("sorted[%d] = %s, want %s", i, candidates[i].DriverID, id)
		}
	}
}

func TestSelectCandidatesIncludesOnlineDrivers(t *testing.T) {
	locStore := &fakeLocStore{rings: [][]ports.NearbyDriver{{
		hit("fresh-online", 0.7),
	}}}
	fresh := availableDriver("fresh-online", 4.5, 1000)
	fresh.Status = driver.DriverStatusOnline
	drivers := &fakeDrivers{byID: map[string]driver.Driver{"fresh-online": fresh}}

	svc := newSelectorService(locStore, drivers, &fakeRejections{}, nil)

	got, err := svc.selectCandidates(context.Background(), "ord-1", 10.76, 106.66, decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("selectCandidates: %v", err)
	}
	// a driver fresh on shift has not completed a delivery yet and is
	// still ONLINE rather than AVAILABLE; both may receive offers
	if len(got) != 1 || got[0].DriverID != "fresh-online" {
		t.Fatalf("candidates = %v, want the ONLINE driver", got)
	}
}
