package service

import (
	"context"
	"errors"
	"strings"

	"food-dispatch/internal/domain/wallet"
	"food-dispatch/internal/general/logger"
	"food-dispatch/internal/ports"

	"github.com/shopspring/decimal"
)

var (
	ErrOwnerRequired     = errors.New("owner id is required")
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

// walletService implements customer-facing wallet operations. Every write
// locks the wallet row so the cached balance and the journal stay in sync.
type walletService struct {
	logger     *logger.Logger
	uow        ports.UnitOfWork
	walletRepo ports.WalletRepository
}

// NewWalletService creates a new instance of the WalletService with the provided dependencies.
func NewWalletService(
	logger *logger.Logger,
	uow ports.UnitOfWork,
	walletRepo ports.WalletRepository,
) ports.WalletService {
	return &walletService{
		logger:     logger,
		uow:        uow,
		walletRepo: walletRepo,
	}
}

// Deposit credits amount to the owner's wallet, creating it on first touch.
func (service *walletService) Deposit(ctx context.Context, ownerID string, amount decimal.Decimal) (ports.WalletOpResult, error) {
	return service.apply(ctx, ownerID, wallet.TxDeposit, amount, "Wallet deposit")
}

// Withdraw debits amount from the owner's wallet, rejecting overdrafts.
func (service *walletService) Withdraw(ctx context.Context, ownerID string, amount decimal.Decimal) (ports.WalletOpResult, error) {
	return service.apply(ctx, ownerID, wallet.TxWithdrawal, amount, "Wallet withdrawal")
}

// Balance returns the cached balance, creating an empty wallet on first touch.
func (service *walletService) Balance(ctx context.Context, ownerID string) (ports.WalletBalanceResult, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return ports.WalletBalanceResult{}, ErrOwnerRequired
	}

	var w *wallet.Wallet
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		w, err = service.walletRepo.GetOrCreateForOwner(txCtx, ownerID)
		return err
	})
	if err != nil {
		service.logger.Error(ctx, "wallet_balance_failed", "Failed to read wallet balance", err,
			map[string]any{"owner_id": ownerID})
		return ports.WalletBalanceResult{}, err
	}

	return ports.WalletBalanceResult{
		WalletID: w.ID,
		Balance:  w.Balance,
	}, nil
}

// apply runs one signed journal write under the wallet row lock.
func (service *walletService) apply(
	ctx context.Context,
	ownerID string,
	txType wallet.TxType,
	amount decimal.Decimal,
	description string,
) (ports.WalletOpResult, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return ports.WalletOpResult{}, ErrOwnerRequired
	}
	if !amount.IsPositive() {
		return ports.WalletOpResult{}, ErrNonPositiveAmount
	}

	var (
		walletID      string
		transactionID string
		balance       decimal.Decimal
	)

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if _, err := service.walletRepo.GetOrCreateForOwner(txCtx, ownerID); err != nil {
			return err
		}

		w, err := service.walletRepo.GetForOwnerLocked(txCtx, ownerID)
		if err != nil {
			return err
		}

		walletTx, err := wallet.NewTransaction(w.ID, txType, amount, nil, description)
		if err != nil {
			return err
		}

		if err := w.Apply(walletTx.Amount); err != nil {
			return err
		}
		if err := service.walletRepo.UpdateBalance(txCtx, w.ID, w.Balance); err != nil {
			return err
		}
		if err := service.walletRepo.InsertTransaction(txCtx, walletTx); err != nil {
			return err
		}

		walletID = w.ID
		transactionID = walletTx.ID
		balance = w.Balance
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "wallet_op_failed", "Failed to apply wallet operation", err,
			map[string]any{"owner_id": ownerID, "type": txType.String()})
		return ports.WalletOpResult{}, err
	}

	service.logger.Info(ctx, "wallet_op_applied", "Wallet operation applied",
		map[string]any{
			"owner_id": ownerID,
			"type":     txType.String(),
			"amount":   amount.StringFixed(2),
			"balance":  balance.StringFixed(2),
		})

	return ports.WalletOpResult{
		WalletID:      walletID,
		TransactionID: transactionID,
		Balance:       balance,
		Message:       txType.String() + " successful",
	}, nil
}
