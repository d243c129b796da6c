package service

import (
	"context"
	"time"

	"food-dispatch/internal/domain/driver"
	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/domain/wallet"
	"food-dispatch/internal/general/contracts"
	"food-dispatch/internal/ports"

	"github.com/shopspring/decimal"
)

// passUow runs the function directly; there is no real transaction in tests.
type passUow struct{}

func (passUow) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeLocStore serves one prepared result set per Nearby call, in order.
type fakeLocStore struct {
	rings   [][]ports.NearbyDriver
	calls   int
	updated []string
	removed []string
}

func (s *fakeLocStore) Update(ctx context.Context, driverID string, lat, lng float64) error {
	s.updated = append(s.updated, driverID)
	return nil
}

func (s *fakeLocStore) Remove(ctx context.Context, driverID string) error {
	s.removed = append(s.removed, driverID)
	return nil
}

func (s *fakeLocStore) Nearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]ports.NearbyDriver, error) {
	if s.calls >= len(s.rings) {
		s.calls++
		return nil, nil
	}
	hits := s.rings[s.calls]
	s.calls++
	return hits, nil
}

type fakeRejections struct {
	ports.RejectionRepository
	rejected []string
	count    int
	appended []*order.Rejection
}

func (r *fakeRejections) Append(ctx context.Context, rejection *order.Rejection) error {
	r.appended = append(r.appended, rejection)
	r.rejected = append(r.rejected, rejection.DriverID)
	r.count++
	return nil
}

func (r *fakeRejections) DriverIDsForOrder(ctx context.Context, orderID string) ([]string, error) {
	return r.rejected, nil
}

func (r *fakeRejections) CountForOrder(ctx context.Context, orderID string) (int, error) {
	return r.count, nil
}

type fakeDrivers struct {
	ports.DriverRepository
	byID        map[string]driver.Driver
	statusSet   map[string]driver.DriverStatus
	incremented []string
}

func (d *fakeDrivers) GetByID(ctx context.Context, driverID string) (*driver.Driver, error) {
	drv, ok := d.byID[driverID]
	if !ok {
		return nil, driver.ErrDriverNotFound
	}
	return &drv, nil
}

func (d *fakeDrivers) GetManyByIDs(ctx context.Context, driverIDs []string) ([]driver.Driver, error) {
	var out []driver.Driver
	for _, id := range driverIDs {
		if drv, ok := d.byID[id]; ok {
			out = append(out, drv)
		}
	}
	return out, nil
}

func (d *fakeDrivers) UpdateStatus(ctx context.Context, driverID string, status driver.DriverStatus) error {
	if d.statusSet == nil {
		d.statusSet = map[string]driver.DriverStatus{}
	}
	d.statusSet[driverID] = status
	return nil
}

func (d *fakeDrivers) IncrementCountersOnDelivery(ctx context.Context, driverID string, earnings decimal.Decimal) error {
	d.incremented = append(d.incremented, driverID)
	return nil
}

type fakeNotifier struct {
	connected map[string]bool
	pushed    []contracts.WSDriverDeliveryOffer
}

func (n *fakeNotifier) IsDriverConnected(driverID string) bool {
	return n.connected[driverID]
}

func (n *fakeNotifier) PushDeliveryOffer(ctx context.Context, driverID string, offer contracts.WSDriverDeliveryOffer) error {
	n.pushed = append(n.pushed, offer)
	return nil
}

type fakeOracle struct {
	dists []float64
	err   error
	calls int
}

func (o *fakeOracle) DrivingDistances(ctx context.Context, origins []ports.GeoPoint, dest ports.GeoPoint) ([]float64, error) {
	o.calls++
	if o.err != nil {
		return nil, o.err
	}
	return o.dists, nil
}

type offerRecord struct {
	orderID  string
	driverID string
}

type fakeOrders struct {
	ports.OrderRepository
	byID      map[string]*order.Order
	offered   []offerRecord
	withdrawn []string
	flagged   []string
	expired   []*order.Order
	awaiting  []*order.Order
}

func (o *fakeOrders) GetByID(ctx context.Context, id string) (*order.Order, error) {
	ord, ok := o.byID[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return ord, nil
}

func (o *fakeOrders) OfferToDriver(ctx context.Context, orderID, driverID string, expiresAt time.Time) error {
	o.offered = append(o.offered, offerRecord{orderID: orderID, driverID: driverID})
	return nil
}

func (o *fakeOrders) AcceptOffer(ctx context.Context, orderID, driverID string, assignedAt time.Time) error {
	ord, ok := o.byID[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	return ord.AcceptOffer(driverID, assignedAt)
}

func (o *fakeOrders) WithdrawOffer(ctx context.Context, orderID, driverID string) error {
	if ord, ok := o.byID[orderID]; ok {
		if ord.OfferedDriverID == nil || *ord.OfferedDriverID != driverID {
			return order.ErrOfferDriverMismatch
		}
		ord.Status = order.StatusOffering
		ord.OfferedDriverID = nil
		ord.OfferExpiresAt = nil
	}
	o.withdrawn = append(o.withdrawn, orderID)
	return nil
}

func (o *fakeOrders) FlagManualDispatch(ctx context.Context, orderID string) error {
	o.flagged = append(o.flagged, orderID)
	if ord, ok := o.byID[orderID]; ok {
		ord.NeedsManualDispatch = true
	}
	return nil
}

func (o *fakeOrders) ListExpiredOffers(ctx context.Context, now time.Time, limit int) ([]*order.Order, error) {
	return o.expired, nil
}

func (o *fakeOrders) ListAwaitingOffer(ctx context.Context, limit int) ([]*order.Order, error) {
	return o.awaiting, nil
}

type fakeEarnings struct {
	ports.EarningsRepository
	existing *wallet.EarningsSummary
	inserted *wallet.EarningsSummary
}

func (e *fakeEarnings) GetByOrderID(ctx context.Context, orderID string) (*wallet.EarningsSummary, error) {
	return e.existing, nil
}

func (e *fakeEarnings) Insert(ctx context.Context, summary *wallet.EarningsSummary) error {
	e.inserted = summary
	return nil
}

type fakeWallets struct {
	ports.WalletRepository
	byOwner  map[string]*wallet.Wallet
	balances map[string]decimal.Decimal
	inserted []*wallet.Transaction
}

func (w *fakeWallets) GetOrCreateForOwner(ctx context.Context, ownerID string) (*wallet.Wallet, error) {
	if w.byOwner == nil {
		w.byOwner = map[string]*wallet.Wallet{}
	}
	if existing, ok := w.byOwner[ownerID]; ok {
		return existing, nil
	}
	created := &wallet.Wallet{ID: "wal-" + ownerID, OwnerID: ownerID}
	w.byOwner[ownerID] = created
	return created, nil
}

func (w *fakeWallets) GetForOwnerLocked(ctx context.Context, ownerID string) (*wallet.Wallet, error) {
	return w.GetOrCreateForOwner(ctx, ownerID)
}

func (w *fakeWallets) UpdateBalance(ctx context.Context, walletID string, balance decimal.Decimal) error {
	if w.balances == nil {
		w.balances = map[string]decimal.Decimal{}
	}
	w.balances[walletID] = balance
	return nil
}

func (w *fakeWallets) InsertTransaction(ctx context.Context, tx *wallet.Transaction) error {
	w.inserted = append(w.inserted, tx)
	return nil
}

type fakeSessions struct {
	ports.DriverSessionRepository
	active      *driver.DriverSession
	deliveries  int
	earningsSum decimal.Decimal
}

func (s *fakeSessions) GetActiveForDriver(ctx context.Context, driverID string) (*driver.DriverSession, error) {
	return s.active, nil
}

func (s *fakeSessions) IncrementCounters(ctx context.Context, sessionID string, totalDeliveries int, totalEarnings decimal.Decimal) error {
	s.deliveries = totalDeliveries
	s.earningsSum = totalEarnings
	return nil
}

type fakeEvents struct {
	appended []*order.Event
}

func (e *fakeEvents) Append(ctx context.Context, event *order.Event) error {
	e.appended = append(e.appended, event)
	return nil
}
