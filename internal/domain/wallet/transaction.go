package wallet

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TxType is a wallet transaction type as stored in the `wallet_tx_type` table.
type TxType string

const (
	TxDeposit    TxType = "DEPOSIT"
	TxWithdrawal TxType = "WITHDRAWAL"
	TxPayment    TxType = "PAYMENT"
	TxRefund     TxType = "REFUND"
	TxPayout     TxType = "PAYOUT"
)

var ErrInvalidTxType = errors.New("invalid wallet transaction type")

// ParseTxType normalizes (uppercases+trims) and validates a transaction type string.
func ParseTxType(in string) (TxType, error) {
	txType := TxType(strings.ToUpper(strings.TrimSpace(in)))
	if txType.Valid() {
		return txType, nil
	}
	return "", ErrInvalidTxType
}

// Valid reports whether txType is one of the allowed transaction type constants.
func (txType TxType) Valid() bool {
	switch txType {
	case TxDeposit, TxWithdrawal, TxPayment, TxRefund, TxPayout:
		return true
	default:
		return false
	}
}

// Debit reports whether the type takes money out of the wallet. Debits
// are stored with negative amounts.
func (txType TxType) Debit() bool {
	return txType == TxWithdrawal || txType == TxPayment
}

// String returns the string representation of the TxType.
func (txType TxType) String() string {
	return string(txType)
}

// TxStatus is a wallet transaction status as stored in the `wallet_tx_status` table.
type TxStatus string

const (
	TxPending TxStatus = "PENDING"
	TxSuccess TxStatus = "SUCCESS"
	TxFailed  TxStatus = "FAILED"
)

var ErrInvalidTxStatus = errors.New("invalid wallet transaction status")

// ParseTxStatus normalizes (uppercases+trims) and validates a transaction status string.
func ParseTxStatus(in string) (TxStatus, error) {
	status := TxStatus(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidTxStatus
}

// Valid reports whether status is one of the allowed transaction status constants.
func (status TxStatus) Valid() bool {
	switch status {
	case TxPending, TxSuccess, TxFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the TxStatus.
func (status TxStatus) String() string {
	return string(status)
}

// Transaction is the domain entity corresponding to the
// `wallet_transactions` table. Rows are append-only; the wallet balance is
// the sum of all SUCCESS amounts, so debits carry negative amounts.
type Transaction struct {
	ID          string
	CreatedAt   time.Time
	WalletID    string
	Type        TxType
	Status      TxStatus
	Amount      decimal.Decimal // signed: negative for debits
	OrderID     *string         // set for PAYMENT/REFUND/PAYOUT rows
	Description string
}

var (
	ErrWalletIDRequired  = errors.New("wallet id is required")
	ErrNonPositiveAmount = errors.New("transaction amount must be positive")
)

// NewTransaction builds a SUCCESS transaction row. amount is the absolute
// value; the sign is derived from the type.
func NewTransaction(walletID string, txType TxType, amount decimal.Decimal, orderID *string, description string) (*Transaction, error) {
	if walletID = strings.TrimSpace(walletID); walletID == "" {
		return nil, ErrWalletIDRequired
	}
	if !txType.Valid() {
		return nil, ErrInvalidTxType
	}
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}

	signed := amount
	if txType.Debit() {
		signed = amount.Neg()
	}

	tx := &Transaction{
		CreatedAt:   time.Now().UTC(),
		WalletID:    walletID,
		Type:        txType,
		Status:      TxSuccess,
		Amount:      signed,
		Description: strings.TrimSpace(description),
	}
	if orderID != nil {
		oID := strings.TrimSpace(*orderID)
		tx.OrderID = &oID
	}
	return tx, nil
}

// InsufficientBalanceError is returned when a debit would overdraw the wallet.
type InsufficientBalanceError struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient wallet balance: have %s, need %s",
		e.Balance.StringFixed(2), e.Required.StringFixed(2))
}
