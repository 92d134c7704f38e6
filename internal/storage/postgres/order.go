package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rxkart/checkout-api/internal/domain/coupon"
	"github.com/rxkart/checkout-api/internal/domain/order"
	"github.com/rxkart/checkout-api/internal/domain/wallet"
)

const (
	createOrderSQL = `INSERT INTO orders (id, customer_id, address_id, items, subtotal, discount, total, coupon_code, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	createPaymentSQL = `INSERT INTO payments (id, order_id, method, customer_id, gateway_order_ref, status, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	debitWalletSQL = `UPDATE customers SET wallet_balance = wallet_balance - $2
		WHERE id = $1 AND wallet_balance >= $2`

	getOrderSQL = `SELECT id, customer_id, address_id, items, subtotal, discount, total, coupon_code, status, created_at
		FROM orders WHERE id = $1`

	listOrdersByCustomerSQL = `SELECT id, customer_id, address_id, items, subtotal, discount, total, coupon_code, status, created_at
		FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateCheckout persists an order, its payment and the side effects the
// payment method demands in one transaction. The coupon redemption and the
// wallet debit are both conditional updates; when either matches no row the
// transaction rolls back and the matching sentinel error is returned.
func (r *OrderRepository) CreateCheckout(ctx context.Context, c order.Checkout) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning checkout transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o := c.Order
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	if _, err := tx.Exec(ctx, createOrderSQL,
		o.ID, o.CustomerID, o.AddressID, itemsJSON,
		o.Subtotal, o.Discount, o.Total, o.CouponCode, string(o.Status),
	); err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	if c.RedeemCoupon != "" {
		tag, err := tx.Exec(ctx, redeemCouponSQL, c.RedeemCoupon)
		if err != nil {
			return fmt.Errorf("redeeming coupon %q: %w", c.RedeemCoupon, err)
		}
		if tag.RowsAffected() == 0 {
			return coupon.ErrInvalidCoupon
		}
	}

	if d := c.DebitWallet; d != nil {
		tag, err := tx.Exec(ctx, debitWalletSQL, d.CustomerID, d.Amount)
		if err != nil {
			return fmt.Errorf("debiting wallet of %q: %w", d.CustomerID, err)
		}
		if tag.RowsAffected() == 0 {
			return wallet.ErrInsufficientFunds
		}
	}

	p := c.Payment
	customerID, orderRef := methodColumns(p.Method)
	if _, err := tx.Exec(ctx, createPaymentSQL,
		p.ID, p.OrderID, p.Method.Name(), customerID, orderRef, string(p.Status), p.Amount,
	); err != nil {
		return fmt.Errorf("creating payment for order %q: %w", p.OrderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing checkout for order %q: %w", o.ID, err)
	}
	return nil
}

// Get returns a single order by its identifier. Returns order.ErrNotFound
// when no such order exists.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByCustomer returns the customer's orders, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByCustomerSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for customer %q: %w", customerID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus records a fulfillment status change. Returns
// order.ErrNotFound when no such order exists.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		status    string
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.AddressID, &itemsJSON,
		&o.Subtotal, &o.Discount, &o.Total, &o.CouponCode, &status, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items of order %q: %w", o.ID, err)
	}
	return o, nil
}
