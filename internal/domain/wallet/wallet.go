// Package wallet defines the customer wallet balance operations used by
// wallet payments.
package wallet

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInsufficientFunds is returned when a debit would drive a wallet
// balance below zero.
var ErrInsufficientFunds = errors.New("insufficient wallet balance")

// Repository provides transactional wallet balance operations.
//
// Debit must be implemented as an atomic conditional update
// (balance >= amount) so two concurrent debits can never both read a stale
// balance; it returns ErrInsufficientFunds when the condition fails.
type Repository interface {
	Balance(ctx context.Context, customerID string) (decimal.Decimal, error)
	Debit(ctx context.Context, customerID string, amount decimal.Decimal) error
}
