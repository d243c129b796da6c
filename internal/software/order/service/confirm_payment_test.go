package service

import (
	"context"
	"errors"
	"testing"

	"food-dispatch/internal/domain/order"
	"food-dispatch/internal/domain/wallet"

	"github.com/shopspring/decimal"
)

func pendingOrder(method order.PaymentMethod) *order.Order {
	return &order.Order{
		ID:            "ord-1",
		OrderNumber:   "ORD_20260831_120000_001",
		CustomerID:    "cus-1",
		RestaurantID:  "res-1",
		Status:        order.StatusPending,
		PaymentMethod: method,
		PaymentStatus: order.PaymentUnpaid,
		Subtotal:      decimal.NewFromInt(100),
		DeliveryFee:   decimal.NewFromInt(20),
		TotalAmount:   decimal.NewFromInt(120),
	}
}

func TestConfirmPaymentCODStartsDispatch(t *testing.T) {
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": pendingOrder(order.PaymentCOD)}}
	wallets := &fakeWallets{}
	svc := newTestService(orders, wallets, &fakeCoords{})

	res, err := svc.ConfirmPayment(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if res.Status != "OFFERING" {
		t.Errorf("status = %s, want OFFERING", res.Status)
	}
	// COD money changes hands at the door, not now
	if res.PaymentStatus != "UNPAID" {
		t.Errorf("payment status = %s, want UNPAID", res.PaymentStatus)
	}
	if len(wallets.inserted) != 0 {
		t.Errorf("COD confirm wrote %d wallet rows", len(wallets.inserted))
	}
	if len(orders.confirmed) != 1 || len(orders.dispatchStarted) != 1 {
		t.Errorf("confirm/dispatch calls = %d/%d, want 1/1", len(orders.confirmed), len(orders.dispatchStarted))
	}
}

func TestConfirmPaymentWalletDebitsCustomer(t *testing.T) {
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": pendingOrder(order.PaymentWallet)}}
	wallets := &fakeWallets{wallet: &wallet.Wallet{ID: "wal-1", OwnerID: "cus-1", Balance: decimal.NewFromInt(200)}}
	svc := newTestService(orders, wallets, &fakeCoords{})

	res, err := svc.ConfirmPayment(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if res.PaymentStatus != "PAID" {
		t.Errorf("payment status = %s, want PAID", res.PaymentStatus)
	}

	if len(wallets.inserted) != 1 {
		t.Fatalf("wallet rows = %d, want 1", len(wallets.inserted))
	}
	tx := wallets.inserted[0]
	if tx.Type != wallet.TxPayment || !tx.Amount.Equal(decimal.NewFromInt(-120)) {
		t.Errorf("wallet row = %s %s, want PAYMENT -120", tx.Type, tx.Amount)
	}
	if tx.OrderID == nil || *tx.OrderID != "ord-1" {
		t.Errorf("wallet row not linked to the order")
	}
	if want := decimal.NewFromInt(80); !wallets.balance.Equal(want) {
		t.Errorf("balance = %s, want %s", wallets.balance, want)
	}
}

func TestConfirmPaymentWalletRejectsInsufficientFunds(t *testing.T) {
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": pendingOrder(order.PaymentWallet)}}
	wallets := &fakeWallets{wallet: &wallet.Wallet{ID: "wal-1", OwnerID: "cus-1", Balance: decimal.NewFromInt(50)}}
	svc := newTestService(orders, wallets, &fakeCoords{})

	_, err := svc.ConfirmPayment(context.Background(), "ord-1")
	var insufficient *wallet.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientBalanceError", err)
	}
	if len(orders.confirmed) != 0 || len(orders.dispatchStarted) != 0 {
		t.Errorf("order progressed despite failed debit")
	}
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	paid := pendingOrder(order.PaymentWallet)
	paid.Status = order.StatusOffering
	paid.PaymentStatus = order.PaymentPaid
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": paid}}
	wallets := &fakeWallets{}
	svc := newTestService(orders, wallets, &fakeCoords{})

	res, err := svc.ConfirmPayment(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if res.Message != "Payment already confirmed" {
		t.Errorf("message = %q", res.Message)
	}
	if len(wallets.inserted) != 0 || len(orders.confirmed) != 0 {
		t.Errorf("re-confirm touched state")
	}
}

func TestConfirmPaymentRejectsCancelledOrder(t *testing.T) {
	cancelled := pendingOrder(order.PaymentCOD)
	cancelled.Status = order.StatusCancelled
	orders := &fakeOrders{byID: map[string]*order.Order{"ord-1": cancelled}}
	svc := newTestService(orders, &fakeWallets{}, &fakeCoords{})

	if _, err := svc.ConfirmPayment(context.Background(), "ord-1"); err == nil {
		t.Fatal("expected confirm on a cancelled order to fail")
	}
}
