package service

import (
	"context"
	"testing"
	"time"

	"food-dispatch/internal/domain/driver"
	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/general/logger"
	"food-dispatch/internal/general/rabbitmq"
	"food-dispatch/internal/ports"

	"github.com/shopspring/decimal"
)

func offeringOrder(id string) *order.Order {
	since := time.Now().UTC().Add(-1 * time.Minute)
	return &order.Order{
		ID:              id,
		OrderNumber:     "ORD_TEST_" + id,
		CustomerID:      "cus-1",
		RestaurantID:    "res-1",
		Status:          order.StatusOffering,
		PaymentMethod:   order.PaymentCOD,
		OfferingSince:   &since,
		Subtotal:        decimal.NewFromInt(100),
		DeliveryFee:     decimal.NewFromInt(20),
		TotalAmount:     decimal.NewFromInt(120),
		PickupLatitude:  10.76,
		PickupLongitude: 106.66,
	}
}

func newCoordinatorService(orders *fakeOrders, rejections *fakeRejections, locStore *fakeLocStore) *dispatchService {
	return &dispatchService{
		logger:     logger.New("test"),
		cfg:        testConfig(),
		uow:        passUow{},
		drivers:    &fakeDrivers{byID: map[string]driver.Driver{}},
		orders:     orders,
		rejections: rejections,
		locStore:   locStore,
		notifier:   &fakeNotifier{},
		pub:        rabbitmq.NewMQPublisher(&rabbitmq.Client{}),
	}
}

func TestTryOfferEscalatesAfterRejectionCap(t *testing.T) {
	ord := offeringOrder("ord-1")
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": ord}}
	rejections := &fakeRejections{count: 5} // at the cap

	svc := newCoordinatorService(orders, rejections, &fakeLocStore{})

	if err := svc.tryOffer(context.Background(), "ord-1"); err != nil {
		t.Fatalf("tryOffer: %v", err)
	}
	if len(orders.flagged) != 1 || orders.flagged[0] != "ord-1" {
		t.Fatalf("flagged = %v, want [ord-1]", orders.flagged)
	}
	if len(orders.offered) != 0 {
		t.Errorf("offered = %v, want no offers after escalation", orders.offered)
	}
}

func TestTryOfferEscalatesAfterWaitingTooLong(t *testing.T) {
	ord := offeringOrder("ord-1")
	stale := time.Now().UTC().Add(-16 * time.Minute)
	ord.OfferingSince = &stale
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": ord}}

	svc := newCoordinatorService(orders, &fakeRejections{}, &fakeLocStore{})

	if err := svc.tryOffer(context.Background(), "ord-1"); err != nil {
		t.Fatalf("tryOffer: %v", err)
	}
	if len(orders.flagged) != 1 {
		t.Fatalf("flagged = %v, want [ord-1]", orders.flagged)
	}
}

func TestTryOfferSkipsOrdersNoLongerOffering(t *testing.T) {
	ord := offeringOrder("ord-1")
	ord.Status = order.StatusAssigned
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": ord}}
	rejections := &fakeRejections{count: 99}

	svc := newCoordinatorService(orders, rejections, &fakeLocStore{})

	if err := svc.tryOffer(context.Background(), "ord-1"); err != nil {
		t.Fatalf("tryOffer: %v", err)
	}
	if len(orders.flagged) != 0 || len(orders.offered) != 0 {
		t.Errorf("assigned order was touched: flagged=%v offered=%v", orders.flagged, orders.offered)
	}
}

func TestTryOfferNoCandidatesLeavesOrderWaiting(t *testing.T) {
	ord := offeringOrder("ord-1")
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": ord}}

	svc := newCoordinatorService(orders, &fakeRejections{}, &fakeLocStore{})

	if err := svc.tryOffer(context.Background(), "ord-1"); err != nil {
		t.Fatalf("tryOffer: %v", err)
	}
	if len(orders.offered) != 0 || len(orders.flagged) != 0 {
		t.Errorf("empty pool must not offer or flag: offered=%v flagged=%v", orders.offered, orders.flagged)
	}
}

func TestSweepExpiredOffersWithdrawsAndRecordsTimeout(t *testing.T) {
	silent := "drv-silent"
	ord := offeringOrder("ord-1")
	ord.Status = order.StatusOffered
	ord.OfferedDriverID = &silent

	orders := &fakeOrders{
		byID:    map[string]*order.Order{"ord-1": ord},
		expired: []*order.Order{ord},
	}
	rejections := &fakeRejections{}

	svc := newCoordinatorService(orders, rejections, &fakeLocStore{})
	svc.sweepExpiredOffers(context.Background())

	if len(orders.withdrawn) != 1 || orders.withdrawn[0] != "ord-1" {
		t.Fatalf("withdrawn = %v, want [ord-1]", orders.withdrawn)
	}
	if len(rejections.appended) != 1 {
		t.Fatalf("appended rejections = %d, want 1", len(rejections.appended))
	}
	rejection := rejections.appended[0]
	if rejection.DriverID != silent || rejection.Reason != order.RejectionOfferTimeout {
		t.Errorf("rejection = %s/%s, want %s/%s", rejection.DriverID, rejection.Reason, silent, order.RejectionOfferTimeout)
	}
}

func TestTryOfferSendsOfferToConnectedCandidate(t *testing.T) {
	ord := offeringOrder("ord-1")
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": ord}}
	locStore := &fakeLocStore{rings: [][]ports.NearbyDriver{{
		hit("drv-near", 0.5),
		hit("drv-far", 1.5),
	}}}

	svc := newCoordinatorService(orders, &fakeRejections{}, locStore)
	svc.drivers = &fakeDrivers{byID: map[string]driver.Driver{
		"drv-near": availableDriver("drv-near", 4.8, 1000),
		"drv-far":  availableDriver("drv-far", 4.9, 1000),
	}}
	notifier := &fakeNotifier{connected: map[string]bool{"drv-near": true, "drv-far": true}}
	svc.notifier = notifier

	if err := svc.tryOffer(context.Background(), "ord-1"); err != nil {
		t.Fatalf("tryOffer: %v", err)
	}

	if len(orders.offered) != 1 {
		t.Fatalf("offered = %v, want exactly one offer", orders.offered)
	}
	if got := orders.offered[0]; got.orderID != "ord-1" || got.driverID != "drv-near" {
		t.Fatalf("offer went to %s/%s, want ord-1/drv-near", got.orderID, got.driverID)
	}
	if len(notifier.pushed) != 1 {
		t.Fatalf("pushed = %d offers, want 1", len(notifier.pushed))
	}
	pushed := notifier.pushed[0]
	if pushed.OrderID != "ord-1" || pushed.Type != "delivery_offer" {
		t.Errorf("pushed offer = %s/%s, want ord-1/delivery_offer", pushed.OrderID, pushed.Type)
	}
	if len(orders.flagged) != 0 {
		t.Errorf("flagged = %v, want none on the happy path", orders.flagged)
	}
}

func TestTryOfferSkipsDisconnectedTopCandidate(t *testing.T) {
	ord := offeringOrder("ord-1")
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": ord}}
	locStore := &fakeLocStore{rings: [][]ports.NearbyDriver{{
		hit("drv-near", 0.5),
		hit("drv-far", 1.5),
	}}}

	svc := newCoordinatorService(orders, &fakeRejections{}, locStore)
	svc.drivers = &fakeDrivers{byID: map[string]driver.Driver{
		"drv-near": availableDriver("drv-near", 4.8, 1000),
		"drv-far":  availableDriver("drv-far", 4.9, 1000),
	}}
	svc.notifier = &fakeNotifier{connected: map[string]bool{"drv-far": true}}

	if err := svc.tryOffer(context.Background(), "ord-1"); err != nil {
		t.Fatalf("tryOffer: %v", err)
	}
	if len(orders.offered) != 1 || orders.offered[0].driverID != "drv-far" {
		t.Fatalf("offered = %v, want the reachable runner-up drv-far", orders.offered)
	}
}

func TestSweepLeavesFreshOfferAlone(t *testing.T) {
	// listed as expired in an earlier snapshot, but re-offered to a new
	// driver with a live deadline before the sweep got to it
	newDriver := "drv-new"
	future := time.Now().UTC().Add(25 * time.Second)
	ord := offeringOrder("ord-1")
	ord.Status = order.StatusOffered
	ord.OfferedDriverID = &newDriver
	ord.OfferExpiresAt = &future

	orders := &fakeOrders{
		byID:    map[string]*order.Order{"ord-1": ord},
		expired: []*order.Order{ord},
	}
	rejections := &fakeRejections{}

	svc := newCoordinatorService(orders, rejections, &fakeLocStore{})
	svc.sweepExpiredOffers(context.Background())

	if len(orders.withdrawn) != 0 {
		t.Fatalf("withdrawn = %v, want the fresh offer untouched", orders.withdrawn)
	}
	if len(rejections.appended) != 0 {
		t.Fatalf("appended rejections = %d, want none", len(rejections.appended))
	}
	if ord.Status != order.StatusOffered || ord.OfferedDriverID == nil {
		t.Errorf("fresh offer was disturbed: status=%s", ord.Status)
	}
}

var _ ports.DispatchService = (*dispatchService)(nil)
