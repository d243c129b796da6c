package service

import (
	"context"
	"errors"
	"testing"

	"food-dispatch/internal/domain/wallet"
	"food-dispatch/internal/general/logger"
	"food-dispatch/internal/ports"

	"github.com/shopspring/decimal"
)

type passUow struct{}

func (passUow) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeWalletRepo struct {
	ports.WalletRepository
	wallet   *wallet.Wallet
	balance  decimal.Decimal
	inserted []*wallet.Transaction
}

func (r *fakeWalletRepo) GetOrCreateForOwner(ctx context.Context, ownerID string) (*wallet.Wallet, error) {
	return r.wallet, nil
}

func (r *fakeWalletRepo) GetForOwnerLocked(ctx context.Context, ownerID string) (*wallet.Wallet, error) {
	return r.wallet, nil
}

func (r *fakeWalletRepo) UpdateBalance(ctx context.Context, walletID string, balance decimal.Decimal) error {
	r.balance = balance
	return nil
}

func (r *fakeWalletRepo) InsertTransaction(ctx context.Context, tx *wallet.Transaction) error {
	r.inserted = append(r.inserted, tx)
	return nil
}

func newTestService(repo *fakeWalletRepo) ports.WalletService {
	return NewWalletService(logger.New("test"), passUow{}, repo)
}

func TestDepositCreditsBalance(t *testing.T) {
	repo := &fakeWalletRepo{wallet: &wallet.Wallet{ID: "wal-1", OwnerID: "cus-1", Balance: decimal.NewFromInt(50)}}
	svc := newTestService(repo)

	res, err := svc.Deposit(context.Background(), "cus-1", decimal.NewFromInt(30))
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if want := decimal.NewFromInt(80); !res.Balance.Equal(want) {
		t.Errorf("balance = %s, want %s", res.Balance, want)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("journal rows = %d, want 1", len(repo.inserted))
	}
	if tx := repo.inserted[0]; tx.Type != wallet.TxDeposit || !tx.Amount.Equal(decimal.NewFromInt(30)) {
		t.Errorf("journal row = %s %s, want DEPOSIT +30", tx.Type, tx.Amount)
	}
}

func TestWithdrawDebitsBalance(t *testing.T) {
	repo := &fakeWalletRepo{wallet: &wallet.Wallet{ID: "wal-1", OwnerID: "cus-1", Balance: decimal.NewFromInt(50)}}
	svc := newTestService(repo)

	res, err := svc.Withdraw(context.Background(), "cus-1", decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if want := decimal.NewFromInt(30); !res.Balance.Equal(want) {
		t.Errorf("balance = %s, want %s", res.Balance, want)
	}
	// WITHDRAWAL rows carry a negative signed amount
	if tx := repo.inserted[0]; !tx.Amount.Equal(decimal.NewFromInt(-20)) {
		t.Errorf("journal amount = %s, want -20", tx.Amount)
	}
}

func TestWithdrawRejectsOverdraft(t *testing.T) {
	repo := &fakeWalletRepo{wallet: &wallet.Wallet{ID: "wal-1", OwnerID: "cus-1", Balance: decimal.NewFromInt(10)}}
	svc := newTestService(repo)

	_, err := svc.Withdraw(context.Background(), "cus-1", decimal.NewFromInt(25))
	var insufficient *wallet.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientBalanceError", err)
	}
	if len(repo.inserted) != 0 {
		t.Errorf("overdraft still wrote %d journal rows", len(repo.inserted))
	}
}

func TestValidationErrors(t *testing.T) {
	repo := &fakeWalletRepo{wallet: &wallet.Wallet{ID: "wal-1", OwnerID: "cus-1"}}
	svc := newTestService(repo)

	cases := []struct {
		name    string
		ownerID string
		amount  decimal.Decimal
		want    error
	}{
		{"empty owner", "  ", decimal.NewFromInt(10), ErrOwnerRequired},
		{"zero amount", "cus-1", decimal.Zero, ErrNonPositiveAmount},
		{"negative amount", "cus-1", decimal.NewFromInt(-5), ErrNonPositiveAmount},
	}

	for _, tc := range cases {
		if _, err := svc.Deposit(context.Background(), tc.ownerID, tc.amount); !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestBalanceReadsWallet(t *testing.T) {
	repo := &fakeWalletRepo{wallet: &wallet.Wallet{ID: "wal-1", OwnerID: "cus-1", Balance: decimal.NewFromInt(42)}}
	svc := newTestService(repo)

	res, err := svc.Balance(context.Background(), "cus-1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if res.WalletID != "wal-1" || !res.Balance.Equal(decimal.NewFromInt(42)) {
		t.Errorf("balance result = %+v, want wal-1/42", res)
	}
}
