package service

import (
	"context"
	"testing"

	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/domain/wallet"

	"github.com/shopspring/decimal"
)

func TestCancelRefundsPrepaidOrder(t *testing.T) {
	ord := pendingOrder(order.PaymentWallet)
	ord.Status = order.StatusOffering
	ord.PaymentStatus = order.PaymentPaid
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": ord}}
	wallets := &fakeWallets{wallet: &wallet.Wallet{ID: "wal-1", OwnerID: "cus-1", Balance: decimal.NewFromInt(10)}}
	svc := newTestService(orders, wallets, &fakeCoords{})

	res, err := svc.CancelOrder(context.Background(), "ord-1", "customer changed plans")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if !res.Refunded {
		t.Error("prepaid cancel reported Refunded = false")
	}
	if len(orders.cancelled) != 1 {
		t.Fatalf("cancel calls = %d, want 1", len(orders.cancelled))
	}

	if len(wallets.inserted) != 1 {
		t.Fatalf("wallet rows = %d, want 1", len(wallets.inserted))
	}
	tx := wallets.inserted[0]
	if tx.Type != wallet.TxRefund || !tx.Amount.Equal(decimal.NewFromInt(120)) {
		t.Errorf("wallet row = %s %s, want REFUND +120", tx.Type, tx.Amount)
	}
	if want := decimal.NewFromInt(130); !wallets.balance.Equal(want) {
		t.Errorf("balance = %s, want %s", wallets.balance, want)
	}
}

func TestCancelCODSkipsRefund(t *testing.T) {
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": pendingOrder(order.PaymentCOD)}}
	wallets := &fakeWallets{}
	svc := newTestService(orders, wallets, &fakeCoords{})

	res, err := svc.CancelOrder(context.Background(), "ord-1", "restaurant closed")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if res.Refunded {
		t.Error("COD cancel reported Refunded = true")
	}
	if res.Status != "CANCELLED" {
		t.Errorf("status = %s, want CANCELLED", res.Status)
	}
	if len(wallets.inserted) != 0 {
		t.Errorf("COD cancel wrote %d wallet rows", len(wallets.inserted))
	}
}

func TestCancelUnpaidVNPaySkipsRefund(t *testing.T) {
	// gateway order that never completed payment has nothing to give back
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": pendingOrder(order.PaymentVNPay)}}
	wallets := &fakeWallets{}
	svc := newTestService(orders, wallets, &fakeCoords{})

	res, err := svc.CancelOrder(context.Background(), "ord-1", "payment abandoned")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if res.Refunded {
		t.Error("unpaid gateway cancel reported Refunded = true")
	}
	if len(wallets.inserted) != 0 {
		t.Errorf("unpaid cancel wrote %d wallet rows", len(wallets.inserted))
	}
}

func TestCancelUnknownOrderFails(t *testing.T) {
	orders := &fakeOrders{byID: map[string]*order.Order{}}
	svc := newTestService(orders, &fakeWallets{}, &fakeCoords{})

	if _, err := svc.CancelOrder(context.Background(), "ord-missing", "typo"); err == nil {
		t.Fatal("expected unknown order to fail")
	}
}
