package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const upsertCustomerSQL = `INSERT INTO customers (id, name, email, wallet_balance)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name, email = EXCLUDED.email`

// CustomerRepository provides customer account writes. Reads go through
// WalletRepository; orders reference customers by ID only.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// Upsert inserts a customer or refreshes their profile fields. The wallet
// balance of an existing customer is left untouched.
func (r *CustomerRepository) Upsert(ctx context.Context, id, name, email string, balance decimal.Decimal) error {
	_, err := r.pool.Exec(ctx, upsertCustomerSQL, id, name, email, balance)
	if err != nil {
		return fmt.Errorf("upserting customer %q: %w", id, err)
	}
	return nil
}
