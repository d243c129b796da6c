package wallet

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the domain entity corresponding to the `wallets` table. The
// Balance column is a cached aggregate kept in sync with the transaction
// rows inside the same database transaction.
type Wallet struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
	OwnerID   string
	Balance   decimal.Decimal
}

var ErrOwnerIDRequired = errors.New("owner id is required")

// NewWallet creates an empty wallet for ownerID.
func NewWallet(ownerID string) (*Wallet, error) {
	if ownerID = strings.TrimSpace(ownerID); ownerID == "" {
		return nil, ErrOwnerIDRequired
	}

	now := time.Now().UTC()
	return &Wallet{
		CreatedAt: now,
		UpdatedAt: now,
		OwnerID:   ownerID,
		Balance:   decimal.Zero,
	}, nil
}

// Apply adds a signed transaction amount to the cached balance, rejecting
// a debit that would overdraw.
func (wallet *Wallet) Apply(amount decimal.Decimal) error {
	next := wallet.Balance.Add(amount)
	if next.IsNegative() {
		return &InsufficientBalanceError{
			Balance:  wallet.Balance,
			Required: amount.Neg(),
		}
	}
	wallet.Balance = next
	wallet.UpdatedAt = time.Now().UTC()
	return nil
}

// CanDebit reports whether the wallet covers an absolute debit amount.
func (wallet *Wallet) CanDebit(amount decimal.Decimal) bool {
	return wallet.Balance.GreaterThanOrEqual(amount)
}
