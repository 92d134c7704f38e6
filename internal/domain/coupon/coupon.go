// Package coupon implements discount coupon validity and discount
// calculation. Computing a discount never mutates a coupon; redemption
// (incrementing the usage counter) is a separate repository operation
// performed only when an order commit actually consumes the coupon.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported discount kinds.
type Kind string

const (
	// KindFlat subtracts a fixed currency amount, capped at the subtotal.
	KindFlat Kind = "flat"
	// KindPercentage subtracts a percentage of the subtotal.
	KindPercentage Kind = "percentage"
)

var (
	// ErrInvalidCoupon is returned when a coupon code does not exist or the
	// coupon can no longer be applied. Expiry and exhaustion refinements
	// wrap this sentinel, so errors.Is(err, ErrInvalidCoupon) catches all.
	ErrInvalidCoupon = errors.New("invalid coupon")
	// ErrExpired is returned when a coupon's expiry date has passed.
	ErrExpired = errors.Wrap(ErrInvalidCoupon, "coupon expired")
	// ErrUsageLimitReached is returned when a coupon has no redemptions left.
	ErrUsageLimitReached = errors.Wrap(ErrInvalidCoupon, "coupon usage limit reached")
)

// UnsupportedKindError indicates a coupon record carries a discount kind
// this code does not know how to apply.
type UnsupportedKindError struct {
	Kind Kind
}

func (e *UnsupportedKindError) Error() string {
	return "unsupported discount kind: " + string(e.Kind)
}

// Coupon is a discount code bounded by an expiry date and a usage cap.
// TimesUsed <= UsageLimit holds after every successful redemption.
type Coupon struct {
	Code       string
	Kind       Kind
	Amount     decimal.Decimal
	ExpiryDate time.Time
	UsageLimit int
	TimesUsed  int
}

// Valid reports whether the coupon can be applied as of the given time.
// Both conditions are required: the expiry date (date precision, inclusive)
// must not have passed and the usage cap must not be reached. Returns nil
// when valid, or the specific invalidity reason.
func (c *Coupon) Valid(asOf time.Time) error {
	if dateOf(c.ExpiryDate).Before(dateOf(asOf)) {
		return ErrExpired
	}
	if c.TimesUsed >= c.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// dateOf truncates a timestamp to its calendar date in UTC.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Repository provides lookup and redemption of coupons.
type Repository interface {
	// FindByCode returns the coupon for the given code, or ErrInvalidCoupon
	// when no such coupon exists.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// Redeem atomically increments the usage counter, but only while the
	// coupon is still redeemable (under its usage cap and not expired).
	// Returns ErrInvalidCoupon when the conditional update matches no row,
	// so two concurrent redemptions of a limit-1 coupon cannot both succeed.
	Redeem(ctx context.Context, code string) error
}
