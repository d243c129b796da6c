package service

import (
	"context"
	"testing"

	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/ports"

	"github.com/shopspring/decimal"
)

func createInput() ports.CreateOrderInput {
	return ports.CreateOrderInput{
		CustomerID:       "cus-1",
		RestaurantID:     "res-1",
		PaymentMethod:    order.PaymentCOD,
		Subtotal:         decimal.NewFromInt(100),
		DeliveryFee:      decimal.NewFromInt(20),
		PickupAddress:    "12 Nguyen Hue",
		PickupLatitude:   10.7769,
		PickupLongitude:  106.7009,
		DropoffAddress:   "45 Le Loi",
		DropoffLatitude:  10.7721,
		DropoffLongitude: 106.6983,
	}
}

func TestCreateOrderPersistsOrder(t *testing.T) {
	orders := &fakeOrders{}
	coords := &fakeCoords{}
	svc := newTestService(orders, &fakeWallets{}, coords)

	res, err := svc.CreateOrder(context.Background(), createInput())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if res.Status != "PENDING" {
		t.Errorf("status = %s, want PENDING", res.Status)
	}
	if want := decimal.NewFromInt(120); !res.TotalAmount.Equal(want) {
		t.Errorf("total = %s, want %s", res.TotalAmount, want)
	}

	if len(orders.created) != 1 {
		t.Fatalf("orders created = %d, want 1", len(orders.created))
	}
	o := orders.created[0]
	if o.CustomerID != "cus-1" || o.RestaurantID != "res-1" {
		t.Errorf("order parties = %s/%s", o.CustomerID, o.RestaurantID)
	}
	if o.DropoffAddress != "45 Le Loi" || o.PickupLatitude != 10.7769 {
		t.Errorf("order route not carried over: %+v", o)
	}

	// the pickup point doubles as the restaurant's current coordinate
	if len(coords.upserted) != 1 {
		t.Fatalf("restaurant coordinates upserted = %d, want 1", len(coords.upserted))
	}
	if coords.upserted[0].Latitude != 10.7769 {
		t.Errorf("upserted latitude = %f", coords.upserted[0].Latitude)
	}
}

func TestCreateOrderRejectsBadDropoff(t *testing.T) {
	orders := &fakeOrders{}
	svc := newTestService(orders, &fakeWallets{}, &fakeCoords{})

	in := createInput()
	in.DropoffLatitude = 123.4

	if _, err := svc.CreateOrder(context.Background(), in); err == nil {
		t.Fatal("expected out-of-range dropoff to fail")
	}
	if len(orders.created) != 0 {
		t.Errorf("invalid order was still persisted")
	}
}

func TestCreateOrderRejectsMissingCustomer(t *testing.T) {
	orders := &fakeOrders{}
	svc := newTestService(orders, &fakeWallets{}, &fakeCoords{})

	in := createInput()
	in.CustomerID = "  "

	if _, err := svc.CreateOrder(context.Background(), in); err == nil {
		t.Fatal("expected blank customer to fail")
	}
	if len(orders.created) != 0 {
		t.Errorf("invalid order was still persisted")
	}
}
