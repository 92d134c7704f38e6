package order

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rxkart/checkout-api/internal/domain/payment"
)

// Status is an order's fulfillment state.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusOnRoute   Status = "On Route"
	StatusCompleted Status = "Completed"
)

// Known reports whether s is one of the defined order statuses.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusApproved, StatusOnRoute, StatusCompleted:
		return true
	}
	return false
}

// Item is an order line with its price captured at placement time, so later
// catalog changes never alter a placed order.
type Item struct {
	ProductID   string          `json:"product_id"`
	AttributeID string          `json:"attribute_id,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Surcharge   decimal.Decimal `json:"surcharge"`
}

// Order is a placed customer order with its pricing breakdown.
type Order struct {
	ID         string
	CustomerID string
	AddressID  string
	Items      []Item
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	CouponCode string
	Status     Status
	CreatedAt  time.Time
}

// WalletDebit is a balance deduction that must commit with the checkout.
type WalletDebit struct {
	CustomerID string
	Amount     decimal.Decimal
}

// Checkout is everything that must be persisted atomically when an order is
// placed: the order, its payment, and optionally the coupon redemption and
// the wallet debit. Either the whole checkout commits or none of it does.
type Checkout struct {
	Order   *Order
	Payment *payment.Payment
	// RedeemCoupon is the coupon code to redeem, empty when no coupon was
	// applied. Redemption is conditional on the coupon still being
	// redeemable at commit time.
	RedeemCoupon string
	// DebitWallet is the wallet deduction for Wallet payments, nil otherwise.
	DebitWallet *WalletDebit
}

// Repository defines persistence operations for orders.
type Repository interface {
	// CreateCheckout commits a checkout in a single transaction. It returns
	// coupon.ErrInvalidCoupon when the coupon redemption condition fails and
	// wallet.ErrInsufficientFunds when the wallet debit condition fails; in
	// both cases nothing is persisted.
	CreateCheckout(ctx context.Context, c Checkout) error
	Get(ctx context.Context, id string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}

// Sentinel errors for order validation.
var (
	ErrEmptyCart = fmt.Errorf("cart is empty")
	ErrNotFound  = fmt.Errorf("order not found")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// MethodDisabledError indicates the requested payment method is switched
// off in configuration.
type MethodDisabledError struct {
	Method string
}

func (e *MethodDisabledError) Error() string {
	return fmt.Sprintf("payment method %s is disabled", e.Method)
}

// UnknownMethodError indicates the request named a payment method this
// service does not support.
type UnknownMethodError struct {
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("unknown payment method %q", e.Method)
}
