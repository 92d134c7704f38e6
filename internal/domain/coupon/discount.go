package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount computes the discount amount this coupon grants on the given
// subtotal, as of the given time. It fails with the coupon's invalidity
// reason rather than silently discounting an expired or exhausted coupon.
//
// Percentage discounts are rounded half-up to 2 decimal places; flat
// discounts are already in currency units. The result is always clamped
// into [0, subtotal] so a coupon can never produce a negative total.
func (c *Coupon) Discount(subtotal decimal.Decimal, asOf time.Time) (decimal.Decimal, error) {
	if err := c.Valid(asOf); err != nil {
		return decimal.Zero, err
	}

	var amount decimal.Decimal
	switch c.Kind {
	case KindPercentage:
		// Round is half away from zero, i.e. half-up for non-negative money.
		amount = subtotal.Mul(c.Amount).Div(hundred).Round(2)
	case KindFlat:
		amount = c.Amount
	default:
		return decimal.Zero, &UnsupportedKindError{Kind: c.Kind}
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return decimal.Min(amount, subtotal), nil
}
