package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rxkart/checkout-api/internal/domain/payment"
)

const (
	getPaymentByOrderRefSQL = `SELECT id, order_id, method, customer_id, gateway_order_ref, external_ref, status, amount, created_at
		FROM payments WHERE order_id = $1 AND gateway_order_ref = $2`

	// Settling is guarded on the Pending state so a replayed callback can
	// never overwrite a terminal row.
	settlePaymentSQL = `UPDATE payments SET status = $2, external_ref = $3
		WHERE id = $1 AND status = 'Pending'`
)

var _ payment.Repository = (*PaymentRepository)(nil)

// PaymentRepository implements payment.Repository backed by PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a PaymentRepository that uses the given pool.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// FindByOrderRef returns the payment created for the given order and gateway
// order reference.
func (r *PaymentRepository) FindByOrderRef(ctx context.Context, orderID, orderRef string) (*payment.Payment, error) {
	rows, err := r.pool.Query(ctx, getPaymentByOrderRefSQL, orderID, orderRef)
	if err != nil {
		return nil, fmt.Errorf("finding payment for order %q: %w", orderID, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPayment)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment for order %q ref %q: %w", orderID, orderRef, payment.ErrNotFound)
		}
		return nil, fmt.Errorf("finding payment for order %q: %w", orderID, err)
	}
	return &p, nil
}

// Settle persists a terminal transition for a Pending payment. Returns
// payment.ErrAlreadySettled when the row is already terminal.
func (r *PaymentRepository) Settle(ctx context.Context, id string, status payment.Status, externalRef string) error {
	tag, err := r.pool.Exec(ctx, settlePaymentSQL, id, string(status), externalRef)
	if err != nil {
		return fmt.Errorf("settling payment %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return payment.ErrAlreadySettled
	}
	return nil
}

func scanPayment(row pgx.CollectableRow) (payment.Payment, error) {
	var (
		p          payment.Payment
		method     string
		customerID string
		orderRef   string
		status     string
	)
	err := row.Scan(
		&p.ID, &p.OrderID, &method, &customerID, &orderRef,
		&p.ExternalRef, &status, &p.Amount, &p.CreatedAt,
	)
	p.Status = payment.Status(status)
	p.Method = methodFromColumns(method, customerID, orderRef)
	return p, err
}

// methodColumns flattens a payment method variant into the customer_id and
// gateway_order_ref columns.
func methodColumns(m payment.Method) (customerID, orderRef string) {
	switch v := m.(type) {
	case payment.Wallet:
		return v.CustomerID, ""
	case payment.Gateway:
		return "", v.OrderRef
	default:
		return "", ""
	}
}

// methodFromColumns is the inverse of methodColumns.
func methodFromColumns(name, customerID, orderRef string) payment.Method {
	switch name {
	case "Wallet":
		return payment.Wallet{CustomerID: customerID}
	case "Gateway":
		return payment.Gateway{OrderRef: orderRef}
	default:
		return payment.COD{}
	}
}
