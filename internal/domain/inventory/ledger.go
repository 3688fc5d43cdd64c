package inventory

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Ledger prices variants and reserves stock on top of a Repository. Bind it to
// a transactional repository so reservations roll back with the order.
type Ledger struct {
	repo Repository
}

// NewLedger returns a Ledger over repo.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// UnitPrice resolves the variant and the unit price for a line.
func (l *Ledger) UnitPrice(ctx context.Context, variantID int64, bonusFunded bool) (decimal.Decimal, *Variant, error) {
	v, err := l.repo.GetVariant(ctx, variantID)
	if err != nil {
		var nf *VariantNotFoundError
		if errors.As(err, &nf) {
			return decimal.Zero, nil, nf
		}
		return decimal.Zero, nil, errors.Wrapf(err, "get variant %d", variantID)
	}
	return UnitPrice(*v, bonusFunded), v, nil
}

// Reserve takes qty units of the variant out of stock.
func (l *Ledger) Reserve(ctx context.Context, variantID int64, qty int) error {
	if qty <= 0 {
		return &InvalidQuantityError{VariantID: variantID, Quantity: qty}
	}

	if _, err := l.repo.Decrement(ctx, variantID, qty); err != nil {
		var (
			ise *InsufficientStockError
			nf  *VariantNotFoundError
		)
		switch {
		case errors.As(err, &ise):
			return ise
		case errors.As(err, &nf):
			return nf
		}
		return errors.Wrapf(err, "decrement variant %d", variantID)
	}
	return nil
}
