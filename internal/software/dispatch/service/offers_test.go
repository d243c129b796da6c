package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"food-dispatch/internal/domain/driver"
	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/general/logger"
	"food-dispatch/internal/general/rabbitmq"
	"food-dispatch/internal/ports"
)

func offeredOrder(id, driverID string) *order.Order {
	ord := offeringOrder(id)
	deadline := time.Now().UTC().Add(25 * time.Second)
	ord.Status = order.StatusOffered
	ord.OfferedDriverID = &driverID
	ord.OfferExpiresAt = &deadline
	return ord
}

func newOfferService(orders *fakeOrders, drivers *fakeDrivers, rejections *fakeRejections) *dispatchService {
	return &dispatchService{
		logger:     logger.New("test"),
		cfg:        testConfig(),
		uow:        passUow{},
		drivers:    drivers,
		orders:     orders,
		rejections: rejections,
		locStore:   &fakeLocStore{},
		pub:        rabbitmq.NewMQPublisher(&rabbitmq.Client{}),
	}
}

func TestRejectOfferRequiresTheOfferedDriver(t *testing.T) {
	ord := offeredOrder("ord-1", "drv-legit")
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": ord}}
	rejections := &fakeRejections{}

	svc := newOfferService(orders, &fakeDrivers{}, rejections)

	_, err := svc.RejectOffer(context.Background(), ports.OfferDecisionInput{
		OrderID:  "ord-1",
		DriverID: "drv-intruder",
		Reason:   "too far",
	})
	if !errors.Is(err, order.ErrOfferDriverMismatch) {
		t.Fatalf("err = %v, want ErrOfferDriverMismatch", err)
	}

	// a stranger's decline must leave no trace: no ledger row counting
	// toward escalation, no withdrawn offer
	if len(rejections.appended) != 0 {
		t.Fatalf("appended rejections = %d, want 0", len(rejections.appended))
	}
	if len(orders.withdrawn) != 0 {
		t.Fatalf("withdrawn = %v, want none", orders.withdrawn)
	}
	if ord.Status != order.StatusOffered || *ord.OfferedDriverID != "drv-legit" {
		t.Errorf("offer disturbed: status=%s driver=%v", ord.Status, ord.OfferedDriverID)
	}
}

func TestRejectOfferRequiresAnOutstandingOffer(t *testing.T) {
	ord := offeringOrder("ord-1") // nothing offered yet
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": ord}}
	rejections := &fakeRejections{}

	svc := newOfferService(orders, &fakeDrivers{}, rejections)

	_, err := svc.RejectOffer(context.Background(), ports.OfferDecisionInput{
		OrderID:  "ord-1",
		DriverID: "drv-1",
	})
	if !errors.Is(err, order.ErrNoOfferOutstanding) {
		t.Fatalf("err = %v, want ErrNoOfferOutstanding", err)
	}
	if len(rejections.appended) != 0 {
		t.Fatalf("appended rejections = %d, want 0", len(rejections.appended))
	}
}

func TestRejectOfferReleasesTheOrder(t *testing.T) {
	ord := offeredOrder("ord-1", "drv-1")
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": ord}}
	rejections := &fakeRejections{}

	svc := newOfferService(orders, &fakeDrivers{}, rejections)

	res, err := svc.RejectOffer(context.Background(), ports.OfferDecisionInput{
		OrderID:  "ord-1",
		DriverID: "drv-1",
		Reason:   "busy elsewhere",
	})
	if err != nil {
		t.Fatalf("RejectOffer: %v", err)
	}

	if res.Status != order.StatusOffering.String() {
		t.Errorf("result status = %s, want OFFERING", res.Status)
	}
	if len(rejections.appended) != 1 || rejections.appended[0].DriverID != "drv-1" {
		t.Fatalf("appended = %+v, want one rejection by drv-1", rejections.appended)
	}
	if ord.Status != order.StatusOffering || ord.OfferedDriverID != nil {
		t.Errorf("order not released: status=%s driver=%v", ord.Status, ord.OfferedDriverID)
	}
}

func TestAcceptOfferAssignsAndMarksDriverBusy(t *testing.T) {
	ord := offeredOrder("ord-1", "drv-1")
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": ord}}
	drv := availableDriver("drv-1", 4.8, 1000)
	drv.Status = driver.DriverStatusOnline
	drivers := &fakeDrivers{byID: map[string]driver.Driver{"drv-1": drv}}

	svc := newOfferService(orders, drivers, &fakeRejections{})

	res, err := svc.AcceptOffer(context.Background(), ports.OfferDecisionInput{
		OrderID:  "ord-1",
		DriverID: "drv-1",
	})
	if err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}

	if res.Status != order.StatusAssigned.String() {
		t.Errorf("result status = %s, want ASSIGNED", res.Status)
	}
	if ord.Status != order.StatusAssigned || ord.DriverID == nil || *ord.DriverID != "drv-1" {
		t.Fatalf("order = %s/%v, want ASSIGNED to drv-1", ord.Status, ord.DriverID)
	}
	if got := drivers.statusSet["drv-1"]; got != driver.DriverStatusBusy {
		t.Errorf("driver status = %s, want BUSY", got)
	}
}

func TestAcceptOfferRejectsWrongDriver(t *testing.T) {
	ord := offeredOrder("ord-1", "drv-legit")
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": ord}}
	drv := availableDriver("drv-intruder", 4.8, 1000)
	drivers := &fakeDrivers{byID: map[string]driver.Driver{"drv-intruder": drv}}

	svc := newOfferService(orders, drivers, &fakeRejections{})

	_, err := svc.AcceptOffer(context.Background(), ports.OfferDecisionInput{
		OrderID:  "ord-1",
		DriverID: "drv-intruder",
	})
	if !errors.Is(err, order.ErrOfferDriverMismatch) {
		t.Fatalf("err = %v, want ErrOfferDriverMismatch", err)
	}
	if ord.Status != order.StatusOffered {
		t.Errorf("order status = %s, want still OFFERED", ord.Status)
	}
}
