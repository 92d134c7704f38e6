package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rxkart/checkout-api/internal/domain/wallet"
)

const getWalletBalanceSQL = `SELECT wallet_balance FROM customers WHERE id = $1`

var _ wallet.Repository = (*WalletRepository)(nil)

// WalletRepository implements wallet.Repository backed by PostgreSQL.
type WalletRepository struct {
	pool *pgxpool.Pool
}

// NewWalletRepository returns a WalletRepository that uses the given pool.
func NewWalletRepository(pool *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{pool: pool}
}

// Balance returns the customer's current wallet balance.
func (r *WalletRepository) Balance(ctx context.Context, customerID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.pool.QueryRow(ctx, getWalletBalanceSQL, customerID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("customer %q not found", customerID)
		}
		return decimal.Zero, fmt.Errorf("getting wallet balance of %q: %w", customerID, err)
	}
	return balance, nil
}

// Debit deducts amount from the customer's balance, conditional on the
// balance covering it. Returns wallet.ErrInsufficientFunds when it does not.
func (r *WalletRepository) Debit(ctx context.Context, customerID string, amount decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, debitWalletSQL, customerID, amount)
	if err != nil {
		return fmt.Errorf("debiting wallet of %q: %w", customerID, err)
	}
	if tag.RowsAffected() == 0 {
		return wallet.ErrInsufficientFunds
	}
	return nil
}
