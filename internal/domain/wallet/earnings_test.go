package wallet

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeSettlement(t *testing.T) {
	summary, err := ComputeSettlement("ord-1", "rest-1", "drv-1",
		decimal.NewFromInt(100), decimal.NewFromInt(20),
		decimal.NewFromFloat(0.20), decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("ComputeSettlement: %v", err)
	}

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"commission", summary.Commission, "20"},
		{"restaurant net", summary.RestaurantNet, "80"},
		{"driver net", summary.DriverNet, "15"},
		{"platform total", summary.PlatformTotal, "25"},
	}
	for _, c := range checks {
		if want := decimal.RequireFromString(c.want); !c.got.Equal(want) {
			t.Errorf("%s = %s, want %s", c.name, c.got, want)
		}
	}

	// the split never creates or destroys money
	total := summary.RestaurantNet.Add(summary.DriverNet).Add(summary.PlatformTotal)
	if want := decimal.NewFromInt(120); !total.Equal(want) {
		t.Errorf("split sums to %s, want %s", total, want)
	}
}

func TestComputeSettlementRounding(t *testing.T) {
	summary, err := ComputeSettlement("ord-1", "rest-1", "drv-1",
		decimal.RequireFromString("33.33"), decimal.NewFromInt(10),
		decimal.NewFromFloat(0.15), decimal.NewFromInt(2))
	if err != nil {
		t.Fatalf("ComputeSettlement: %v", err)
	}

	// 33.33 * 0.15 = 4.9995 -> 5.00
	if want := decimal.NewFromInt(5); !summary.Commission.Equal(want) {
		t.Errorf("commission = %s, want %s", summary.Commission, want)
	}
	if want := decimal.RequireFromString("28.33"); !summary.RestaurantNet.Equal(want) {
		t.Errorf("restaurant net = %s, want %s", summary.RestaurantNet, want)
	}
}

func TestComputeSettlementValidation(t *testing.T) {
	subtotal := decimal.NewFromInt(100)
	fee := decimal.NewFromInt(20)
	rate := decimal.NewFromFloat(0.2)
	platformFee := decimal.NewFromInt(5)

	cases := []struct {
		name    string
		run     func() error
		wantErr error
	}{
		{"missing order", func() error {
			_, err := ComputeSettlement("", "r", "d", subtotal, fee, rate, platformFee)
			return err
		}, ErrSummaryOrderRequired},
		{"missing driver", func() error {
			_, err := ComputeSettlement("o", "r", "", subtotal, fee, rate, platformFee)
			return err
		}, ErrSummaryDriverRequired},
		{"rate over 1", func() error {
			_, err := ComputeSettlement("o", "r", "d", subtotal, fee, decimal.NewFromInt(2), platformFee)
			return err
		}, ErrInvalidCommissionRate},
		{"platform fee over delivery fee", func() error {
			_, err := ComputeSettlement("o", "r", "d", subtotal, fee, rate, decimal.NewFromInt(21))
			return err
		}, ErrDriverFeeExceedsDelivery},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.run(); !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestWalletApply(t *testing.T) {
	w, err := NewWallet("user-1")
	if err != nil {
		t.Fatalf("NewWallet: %v", err)
	}

	if err := w.Apply(decimal.NewFromInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := w.Apply(decimal.NewFromInt(-50)); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if want := decimal.NewFromInt(50); !w.Balance.Equal(want) {
		t.Fatalf("balance = %s, want %s", w.Balance, want)
	}

	err = w.Apply(decimal.RequireFromString("-50.01"))
	var insufficient *InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("overdraw: got %v, want InsufficientBalanceError", err)
	}
	if !insufficient.Balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("error balance = %s, want 50", insufficient.Balance)
	}
	if !insufficient.Required.Equal(decimal.RequireFromString("50.01")) {
		t.Errorf("error required = %s, want 50.01", insufficient.Required)
	}
	// failed debit leaves the balance untouched
	if !w.Balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("balance after failed debit = %s, want 50", w.Balance)
	}
}

func TestNewTransactionSigns(t *testing.T) {
	cases := []struct {
		txType TxType
		want   string
	}{
		{TxDeposit, "30"},
		{TxRefund, "30"},
		{TxPayout, "30"},
		{TxWithdrawal, "-30"},
		{TxPayment, "-30"},
	}

	for _, tc := range cases {
		tx, err := NewTransaction("w-1", tc.txType, decimal.NewFromInt(30), nil, "")
		if err != nil {
			t.Fatalf("%s: %v", tc.txType, err)
		}
		if want := decimal.RequireFromString(tc.want); !tx.Amount.Equal(want) {
			t.Errorf("%s amount = %s, want %s", tc.txType, tx.Amount, want)
		}
		if tx.Status != TxSuccess {
			t.Errorf("%s status = %s, want SUCCESS", tc.txType, tx.Status)
		}
	}

	if _, err := NewTransaction("w-1", TxDeposit, decimal.Zero, nil, ""); !errors.Is(err, ErrNonPositiveAmount) {
		t.Fatalf("zero amount: got %v", err)
	}
}
