package promo

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop-checkout/internal/money"
)

// Discount is the result of applying a promo code to a subtotal.
type Discount struct {
	// Amount is the discount taken off, within [0, subtotal].
	Amount decimal.Decimal
	// Total is subtotal minus Amount.
	Total decimal.Decimal
}

// ApplyDiscount computes the discounted total for subtotal. It depends only on
// its arguments, so applying it again to the same subtotal yields the same
// result.
func ApplyDiscount(subtotal decimal.Decimal, p *PromoCode) (Discount, error) {
	var raw decimal.Decimal
	switch p.Type {
	case TypePercentage:
		raw = money.Percent(subtotal, p.Discount)
	case TypeFixed:
		raw = p.Discount
	default:
		return Discount{}, errors.Errorf("unsupported promo type: %q", p.Type)
	}

	amount := money.Round(money.Clamp(raw, subtotal))
	return Discount{
		Amount: amount,
		Total:  subtotal.Sub(amount),
	}, nil
}
