package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop-checkout/internal/domain/inventory"
	"github.com/xenking/shop-checkout/internal/domain/promo"
	"github.com/xenking/shop-checkout/internal/money"
)

// Totals are the derived money fields of an order.
type Totals struct {
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
	BonusAmount decimal.Decimal
}

// RecomputeTotal derives the order totals from frozen line totals and an
// optional promo code. It has no side effects; callers decide when to store
// the result. Promo validity is the caller's concern.
func RecomputeTotal(items []LineItem, p *promo.PromoCode) (Totals, error) {
	var t Totals
	for _, it := range items {
		t.Subtotal = t.Subtotal.Add(it.LineTotal)
		if it.BonusFunded {
			t.BonusAmount = t.BonusAmount.Add(it.LineTotal)
		}
	}
	t.Subtotal = money.Round(t.Subtotal)
	t.BonusAmount = money.Round(t.BonusAmount)
	t.Total = t.Subtotal

	if p != nil {
		d, err := promo.ApplyDiscount(t.Subtotal, p)
		if err != nil {
			return Totals{}, errors.Wrap(err, "apply promo")
		}
		t.Discount = d.Amount
		t.Total = d.Total
	}
	return t, nil
}

// GetTotalAmount re-derives the pre-discount amount of o from the current
// catalog prices. Lines whose variant no longer exists keep their frozen
// total. The stored totals stay authoritative; this is for reconciliation.
func GetTotalAmount(ctx context.Context, o *Order, variants inventory.Repository) (decimal.Decimal, error) {
	ids := make([]int64, 0, len(o.Items))
	for _, it := range o.Items {
		if it.VariantID != 0 {
			ids = append(ids, it.VariantID)
		}
	}

	current := make(map[int64]inventory.Variant, len(ids))
	if len(ids) > 0 {
		vs, err := variants.GetVariants(ctx, ids)
		if err != nil {
			return decimal.Zero, errors.Wrap(err, "get variants")
		}
		for _, v := range vs {
			current[v.ID] = v
		}
	}

	total := decimal.Zero
	for _, it := range o.Items {
		v, ok := current[it.VariantID]
		if !ok {
			total = total.Add(it.LineTotal)
			continue
		}
		total = total.Add(money.LineTotal(money.Round(inventory.UnitPrice(v, it.BonusFunded)), it.Quantity))
	}
	return money.Round(total), nil
}
