package postgres

import (
	"context"
	"errors"

	"food-dispatch/internal/domain/wallet"
	"food-dispatch/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo persists wallets and their transaction journal using pgx and plain SQL.
type WalletRepo struct{}

// NewWalletRepo constructs a new WalletRepo.
func NewWalletRepo() ports.WalletRepository {
	return &WalletRepo{}
}

// GetOrCreateForOwner returns the owner's wallet, inserting an empty one the
// first time the owner is seen.
func (repo *WalletRepo) GetOrCreateForOwner(ctx context.Context, ownerID string) (*wallet.Wallet, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	out, err := repo.scanOwnerWallet(ctx, tx, ownerID, false)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	fresh, err := wallet.NewWallet(ownerID)
	if err != nil {
		return nil, err
	}

	// concurrent first-touch races resolve on the unique owner_id column
	err = tx.QueryRow(ctx, `
		INSERT INTO wallets (owner_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (owner_id) DO UPDATE SET updated_at = now()
		RETURNING id, created_at, updated_at, owner_id, balance
	`, fresh.OwnerID, fresh.Balance).Scan(
		&fresh.ID, &fresh.CreatedAt, &fresh.UpdatedAt, &fresh.OwnerID, &fresh.Balance,
	)
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

// GetForOwnerLocked returns the owner's wallet under a row lock so the
// balance cannot move until the surrounding transaction commits.
func (repo *WalletRepo) GetForOwnerLocked(ctx context.Context, ownerID string) (*wallet.Wallet, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	return repo.scanOwnerWallet(ctx, tx, ownerID, true)
}

// UpdateBalance writes the cached balance aggregate.
func (repo *WalletRepo) UpdateBalance(ctx context.Context, walletID string, balance decimal.Decimal) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE wallets
		SET balance = $1,
		    updated_at = now()
		WHERE id = $2
	`, balance, walletID)
	return err
}

// InsertTransaction appends one journal row.
func (repo *WalletRepo) InsertTransaction(ctx context.Context, txRow *wallet.Transaction) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO wallet_transactions (wallet_id, tx_type, status, amount, order_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`,
		txRow.WalletID,
		txRow.Type.String(),
		txRow.Status.String(),
		txRow.Amount,
		txRow.OrderID,
		txRow.Description,
	).Scan(&txRow.ID, &txRow.CreatedAt)
	return err
}

// ListTransactions returns the newest journal rows for a wallet.
func (repo *WalletRepo) ListTransactions(ctx context.Context, walletID string, limit int) ([]*wallet.Transaction, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := tx.Query(ctx, `
		SELECT id, created_at, wallet_id, tx_type, status, amount, order_id, description
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, walletID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*wallet.Transaction
	for rows.Next() {
		var txRow wallet.Transaction
		var txType, status string
		if err := rows.Scan(
			&txRow.ID, &txRow.CreatedAt, &txRow.WalletID,
			&txType, &status, &txRow.Amount, &txRow.OrderID, &txRow.Description,
		); err != nil {
			return nil, err
		}
		txRow.Type = wallet.TxType(txType)
		txRow.Status = wallet.TxStatus(status)
		out = append(out, &txRow)
	}
	return out, rows.Err()
}

func (repo *WalletRepo) scanOwnerWallet(ctx context.Context, tx pgx.Tx, ownerID string, lock bool) (*wallet.Wallet, error) {
	query := `
		SELECT id, created_at, updated_at, owner_id, balance
		FROM wallets
		WHERE owner_id = $1
	`
	if lock {
		query += ` FOR UPDATE`
	}

	var out wallet.Wallet
	err := tx.QueryRow(ctx, query, ownerID).Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt, &out.OwnerID, &out.Balance,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
