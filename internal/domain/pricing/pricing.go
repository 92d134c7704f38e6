// Package pricing computes order money amounts. All arithmetic is done in
// fixed-point decimals; binary floats are never used for currency values.
package pricing

import (
	"github.com/shopspring/decimal"
)

// LineItem is a single priced cart line. The surcharge is the additional
// price of the selected product attribute, zero when none is selected.
// A LineItem is immutable for the duration of a pricing pass.
type LineItem struct {
	ProductID string
	UnitPrice decimal.Decimal
	Surcharge decimal.Decimal
	Quantity  int
}

// LineTotal returns (UnitPrice + Surcharge) * Quantity.
func (it LineItem) LineTotal() decimal.Decimal {
	unit := it.UnitPrice.Add(it.Surcharge)
	return unit.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Subtotal sums the line totals of all items. An empty slice yields zero;
// whether an empty cart is an error is the caller's policy.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// Result is the derived outcome of a pricing pass. It always holds
// 0 <= Discount <= Subtotal and Total = Subtotal - Discount.
type Result struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// NewResult builds a Result from a subtotal and a requested discount,
// clamping the discount into [0, subtotal] and rounding every amount to
// 2 decimal places.
func NewResult(subtotal, discount decimal.Decimal) Result {
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	subtotal = subtotal.Round(2)
	discount = discount.Round(2)

	return Result{
		Subtotal: subtotal,
		Discount: discount,
		Total:    subtotal.Sub(discount),
	}
}
