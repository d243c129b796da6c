package order

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newTestOrder(t *testing.T, method PaymentMethod) *Order {
	t.Helper()
	o, err := NewOrder("ORD_20250101_120000_001", "cust-1", "rest-1", method,
		decimal.NewFromInt(100), decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}
	return o
}

func TestCODLifecycle(t *testing.T) {
	o := newTestOrder(t, PaymentCOD)

	if o.Status != StatusPending || o.PaymentStatus != PaymentUnpaid {
		t.Fatalf("fresh order: got %s/%s", o.Status, o.PaymentStatus)
	}
	if !o.TotalAmount.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("total = %s, want 120", o.TotalAmount)
	}
	if !o.CODAmount().Equal(decimal.NewFromInt(120)) {
		t.Fatalf("cod amount = %s, want 120", o.CODAmount())
	}

	if err := o.ConfirmPayment(); err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	// COD stays unpaid until delivery
	if o.Status != StatusUnassigned || o.PaymentStatus != PaymentUnpaid {
		t.Fatalf("after confirm: got %s/%s", o.Status, o.PaymentStatus)
	}

	if err := o.StartDispatch(); err != nil {
		t.Fatalf("StartDispatch: %v", err)
	}
	deadline := time.Now().Add(30 * time.Second)
	if err := o.OfferTo("drv-1", deadline); err != nil {
		t.Fatalf("OfferTo: %v", err)
	}
	if o.DispatchAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", o.DispatchAttempts)
	}
	if err := o.AcceptOffer("drv-1", time.Now()); err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}
	if o.DriverID == nil || *o.DriverID != "drv-1" {
		t.Fatal("driver not assigned after accept")
	}
	if o.OfferedDriverID != nil || o.OfferExpiresAt != nil {
		t.Fatal("offer fields not cleared after accept")
	}

	if err := o.MarkPickedUp(); err != nil {
		t.Fatalf("MarkPickedUp: %v", err)
	}
	if err := o.MarkDelivered(); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if o.PaymentStatus != PaymentPaid {
		t.Fatalf("COD order should be PAID after delivery, got %s", o.PaymentStatus)
	}
	if o.DeliveredAt == nil {
		t.Fatal("DeliveredAt not set")
	}
}

func TestPrepaidConfirmMarksPaid(t *testing.T) {
	for _, method := range []PaymentMethod{PaymentWallet, PaymentVNPay} {
		o := newTestOrder(t, method)
		if err := o.ConfirmPayment(); err != nil {
			t.Fatalf("%s ConfirmPayment: %v", method, err)
		}
		if o.PaymentStatus != PaymentPaid {
			t.Errorf("%s: payment status = %s, want PAID", method, o.PaymentStatus)
		}
		if !o.CODAmount().IsZero() {
			t.Errorf("%s: cod amount = %s, want 0", method, o.CODAmount())
		}
	}
}

func TestOfferGuards(t *testing.T) {
	o := newTestOrder(t, PaymentWallet)
	mustConfirmAndDispatch(t, o)

	deadline := time.Now().Add(30 * time.Second)
	if err := o.OfferTo("drv-1", deadline); err != nil {
		t.Fatalf("OfferTo: %v", err)
	}

	// wrong driver cannot accept
	if err := o.AcceptOffer("drv-2", time.Now()); !errors.Is(err, ErrOfferDriverMismatch) {
		t.Fatalf("wrong driver accept: got %v, want ErrOfferDriverMismatch", err)
	}

	// decline sends the order back into the loop
	if err := o.WithdrawOffer(); err != nil {
		t.Fatalf("WithdrawOffer: %v", err)
	}
	if o.Status != StatusOffering || o.OfferedDriverID != nil {
		t.Fatalf("after withdraw: status=%s offered=%v", o.Status, o.OfferedDriverID)
	}

	// expired offer cannot be accepted
	past := time.Now().Add(-time.Minute)
	if err := o.OfferTo("drv-3", past); err != nil {
		t.Fatalf("OfferTo: %v", err)
	}
	if !o.OfferExpired(time.Now()) {
		t.Fatal("OfferExpired should report true")
	}
	if err := o.AcceptOffer("drv-3", time.Now()); !errors.Is(err, ErrOfferExpired) {
		t.Fatalf("expired accept: got %v, want ErrOfferExpired", err)
	}
}

func TestCancelGuards(t *testing.T) {
	o := newTestOrder(t, PaymentCOD)
	if err := o.Cancel("customer changed mind"); err != nil {
		t.Fatalf("Cancel pending: %v", err)
	}
	if o.Status != StatusCancelled || o.CancellationReason == nil {
		t.Fatalf("after cancel: status=%s reason=%v", o.Status, o.CancellationReason)
	}
	if err := o.Cancel("again"); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("double cancel: got %v", err)
	}

	delivered := newTestOrder(t, PaymentCOD)
	mustConfirmAndDispatch(t, delivered)
	if err := delivered.OfferTo("drv-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := delivered.AcceptOffer("drv-1", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := delivered.MarkPickedUp(); err != nil {
		t.Fatal(err)
	}
	if err := delivered.MarkDelivered(); err != nil {
		t.Fatal(err)
	}
	if err := delivered.Cancel("too late"); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("cancel after delivery: got %v", err)
	}
}

func TestManualDispatchFlag(t *testing.T) {
	o := newTestOrder(t, PaymentWallet)
	if err := o.FlagManualDispatch(); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("flag before offering: got %v", err)
	}
	mustConfirmAndDispatch(t, o)
	if err := o.FlagManualDispatch(); err != nil {
		t.Fatalf("FlagManualDispatch: %v", err)
	}
	if !o.NeedsManualDispatch || o.Status != StatusOffering {
		t.Fatalf("after flag: manual=%v status=%s", o.NeedsManualDispatch, o.Status)
	}
}

func TestNewOrderValidation(t *testing.T) {
	cases := []struct {
		name       string
		number     string
		customer   string
		restaurant string
		method     PaymentMethod
		subtotal   int64
		wantErr    error
	}{
		{"missing number", "", "c", "r", PaymentCOD, 10, ErrOrderNumberRequired},
		{"missing customer", "N", "", "r", PaymentCOD, 10, ErrCustomerRequired},
		{"missing restaurant", "N", "c", "", PaymentCOD, 10, ErrRestaurantRequired},
		{"bad method", "N", "c", "r", PaymentMethod("CHECK"), 10, ErrInvalidPaymentMethod},
		{"negative subtotal", "N", "c", "r", PaymentCOD, -1, ErrNegativeAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewOrder(tc.number, tc.customer, tc.restaurant, tc.method,
				decimal.NewFromInt(tc.subtotal), decimal.NewFromInt(5))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func mustConfirmAndDispatch(t *testing.T, o *Order) {
	t.Helper()
	if err := o.ConfirmPayment(); err != nil {
		t.Fatal(err)
	}
	if err := o.StartDispatch(); err != nil {
		t.Fatal(err)
	}
}
