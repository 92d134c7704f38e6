// Package payment models a payment's lifecycle: created Pending, moved
// exactly once to a terminal state (Completed or Failed). No transition
// leaves a terminal state.
package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is a payment's lifecycle state.
type Status string

const (
	// StatusPending is the initial state of every payment.
	StatusPending Status = "Pending"
	// StatusCompleted is the terminal success state.
	StatusCompleted Status = "Completed"
	// StatusFailed is the terminal failure state.
	StatusFailed Status = "Failed"
)

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var (
	// ErrNotFound is returned when no payment matches the given references.
	ErrNotFound = errors.New("payment not found")
	// ErrAlreadySettled is returned by any transition attempted on a payment
	// that has already reached a terminal state.
	ErrAlreadySettled = errors.New("payment already settled")
	// ErrSignatureMismatch is returned when a gateway callback signature does
	// not match the expected HMAC.
	ErrSignatureMismatch = errors.New("gateway signature mismatch")
)

// Method is the tagged payment method variant. Each concrete method carries
// only the data relevant to it.
type Method interface {
	// Name is the stable identifier persisted with the payment.
	Name() string

	sealed()
}

// COD is cash on delivery. The payment stays Pending until fulfillment is
// confirmed manually.
type COD struct{}

func (COD) Name() string { return "COD" }
func (COD) sealed()      {}

// Wallet pays from a customer's stored balance. The debit and the Completed
// transition commit together or not at all.
type Wallet struct {
	CustomerID string
}

func (Wallet) Name() string { return "Wallet" }
func (Wallet) sealed()      {}

// Gateway pays through an external payment gateway. OrderRef is the
// gateway-side order identifier the later callback refers to.
type Gateway struct {
	OrderRef string
}

func (Gateway) Name() string { return "Gateway" }
func (Gateway) sealed()      {}

// Payment tracks a single payment attempt for an order.
type Payment struct {
	ID      string
	OrderID string
	Method  Method
	Status  Status
	// ExternalRef is the gateway payment identifier, set when a gateway
	// callback settles the payment. Empty for COD and Wallet.
	ExternalRef string
	Amount      decimal.Decimal
	CreatedAt   time.Time
}

// New creates a Pending payment for the given order and method.
func New(orderID string, method Method, amount decimal.Decimal) *Payment {
	return &Payment{
		ID:      uuid.New().String(),
		OrderID: orderID,
		Method:  method,
		Status:  StatusPending,
		Amount:  amount,
	}
}

// Settle moves a Pending payment to Completed or Failed. Calling Settle on
// a payment that is already terminal returns ErrAlreadySettled and leaves
// the payment unchanged.
func (p *Payment) Settle(succeeded bool) error {
	if p.Status.Terminal() {
		return ErrAlreadySettled
	}
	if succeeded {
		p.Status = StatusCompleted
	} else {
		p.Status = StatusFailed
	}
	return nil
}

// VerifyCallback settles the payment from a gateway callback. The signature
// is recomputed from the order and payment references (see Sign) and
// compared in constant time. A match completes the payment; a mismatch
// fails it and returns ErrSignatureMismatch. Terminal payments are left
// untouched and report ErrAlreadySettled.
func (p *Payment) VerifyCallback(secret []byte, orderRef, paymentRef, provided string) error {
	if p.Status.Terminal() {
		return ErrAlreadySettled
	}
	if !VerifySignature(secret, orderRef, paymentRef, provided) {
		p.Status = StatusFailed
		return ErrSignatureMismatch
	}
	p.Status = StatusCompleted
	p.ExternalRef = paymentRef
	return nil
}

// Repository defines persistence operations for payments.
type Repository interface {
	// FindByOrderRef returns the payment created for the given gateway
	// order reference.
	FindByOrderRef(ctx context.Context, orderID, orderRef string) (*Payment, error)
	// Settle persists a terminal transition, guarded so only a Pending row
	// is updated. Returns ErrAlreadySettled when the row is already terminal.
	Settle(ctx context.Context, id string, status Status, externalRef string) error
}
