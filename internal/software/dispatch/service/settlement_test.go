package service

import (
	"context"
	"testing"
	"time"

	"food-dispatch/internal/domain/driver"
	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/domain/wallet"
	"food-dispatch/internal/general/logger"

	"github.com/shopspring/decimal"
)

func deliveredOrder(driverID string) *order.Order {
	now := time.Now().UTC()
	return &order.Order{
		ID:           "ord-1",
		OrderNumber:  "ORD_TEST_1",
		CustomerID:   "cus-1",
		RestaurantID: "res-1",
		DriverID:     &driverID,
		Status:       order.StatusDelivered,
		Subtotal:     decimal.NewFromInt(100),
		DeliveryFee:  decimal.NewFromInt(20),
		TotalAmount:  decimal.NewFromInt(120),
		DeliveredAt:  &now,
	}
}

func newSettlementService(earnings *fakeEarnings, wallets *fakeWallets, drivers *fakeDrivers, sessions *fakeSessions, events *fakeEvents) *dispatchService {
	return &dispatchService{
		logger:   logger.New("test"),
		cfg:      testConfig(),
		uow:      passUow{},
		drivers:  drivers,
		sessions: sessions,
		wallets:  wallets,
		earnings: earnings,
		events:   events,
	}
}

func TestSettleOrderCreditsPayoutWallets(t *testing.T) {
	earnings := &fakeEarnings{}
	wallets := &fakeWallets{byOwner: map[string]*wallet.Wallet{
		"drv-1": {ID: "wal-drv", OwnerID: "drv-1", Balance: decimal.NewFromInt(10)},
	}}
	drivers := &fakeDrivers{byID: map[string]driver.Driver{"drv-1": availableDriver("drv-1", 4.5, 0)}}
	sessions := &fakeSessions{active: &driver.DriverSession{ID: "ses-1", DriverID: "drv-1", StartedAt: time.Now()}}
	events := &fakeEvents{}

	svc := newSettlementService(earnings, wallets, drivers, sessions, events)

	summary, err := svc.settleOrder(context.Background(), deliveredOrder("drv-1"))
	if err != nil {
		t.Fatalf("settleOrder: %v", err)
	}

	// commission 20% of 100 = 20; driver gets 20 - 5 platform fee = 15
	if want := decimal.NewFromInt(15); !summary.DriverNet.Equal(want) {
		t.Errorf("driver net = %s, want %s", summary.DriverNet, want)
	}
	if earnings.inserted == nil {
		t.Fatal("settlement summary was not persisted")
	}
	// one PAYOUT row each for the restaurant (80) and the driver (15)
	if len(wallets.inserted) != 2 {
		t.Fatalf("wallet transactions = %d, want 2", len(wallets.inserted))
	}
	if tx := wallets.inserted[0]; tx.Type != wallet.TxPayout || !tx.Amount.Equal(decimal.NewFromInt(80)) {
		t.Errorf("restaurant tx = %s %s, want PAYOUT 80", tx.Type, tx.Amount)
	}
	if tx := wallets.inserted[1]; tx.Type != wallet.TxPayout || !tx.Amount.Equal(decimal.NewFromInt(15)) {
		t.Errorf("driver tx = %s %s, want PAYOUT 15", tx.Type, tx.Amount)
	}
	if want := decimal.NewFromInt(25); !wallets.balances["wal-drv"].Equal(want) {
		t.Errorf("driver balance = %s, want %s", wallets.balances["wal-drv"], want)
	}
	if want := decimal.NewFromInt(80); !wallets.balances["wal-res-1"].Equal(want) {
		t.Errorf("restaurant balance = %s, want %s", wallets.balances["wal-res-1"], want)
	}
	if len(drivers.incremented) != 1 {
		t.Errorf("driver counters incremented %d times, want 1", len(drivers.incremented))
	}
	if sessions.deliveries != 1 || !sessions.earningsSum.Equal(decimal.NewFromInt(15)) {
		t.Errorf("session counters = %d/%s, want 1/15", sessions.deliveries, sessions.earningsSum)
	}
	if len(events.appended) != 1 || events.appended[0].Type != order.EventOrderSettled {
		t.Errorf("expected one ORDER_SETTLED event, got %+v", events.appended)
	}
}

func TestSettleOrderIsIdempotent(t *testing.T) {
	already := &wallet.EarningsSummary{OrderID: "ord-1", DriverID: "drv-1", DriverNet: decimal.NewFromInt(15)}
	earnings := &fakeEarnings{existing: already}
	wallets := &fakeWallets{}
	events := &fakeEvents{}

	svc := newSettlementService(earnings, wallets, &fakeDrivers{}, &fakeSessions{}, events)

	summary, err := svc.settleOrder(context.Background(), deliveredOrder("drv-1"))
	if err != nil {
		t.Fatalf("settleOrder: %v", err)
	}
	if summary != already {
		t.Error("expected the existing summary to be returned unchanged")
	}
	if earnings.inserted != nil || len(wallets.inserted) != 0 || len(events.appended) != 0 {
		t.Error("replay must not write anything")
	}
}
