package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Variant is a purchasable product × size × color combination together with
// its stock record.
type Variant struct {
	ID              int64
	ProductID       int64
	ProductName     string
	SizeName        string
	ColorName       string
	Price           decimal.Decimal
	DiscountedPrice decimal.NullDecimal
	BonusPrice      decimal.NullDecimal
	QuantityOnHand  int
}

// UnitPrice resolves the price charged per unit of v. The bonus price is used
// when the line is paid with bonus points and the variant has one, then the
// discounted price, then the list price.
func UnitPrice(v Variant, bonusFunded bool) decimal.Decimal {
	if bonusFunded && v.BonusPrice.Valid {
		return v.BonusPrice.Decimal
	}
	if v.DiscountedPrice.Valid {
		return v.DiscountedPrice.Decimal
	}
	return v.Price
}

// VariantNotFoundError indicates a cart references a variant that does not exist.
type VariantNotFoundError struct {
	VariantID int64
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("variant %d not found", e.VariantID)
}

// InsufficientStockError indicates a reservation asked for more units than
// are on hand. Nothing is decremented when it is returned.
type InsufficientStockError struct {
	VariantID int64
	Product   string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (variant %d): requested %d, available %d",
		e.Product, e.VariantID, e.Requested, e.Available)
}

// InvalidQuantityError indicates a non-positive reservation quantity.
type InvalidQuantityError struct {
	VariantID int64
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for variant %d, got %d", e.VariantID, e.Quantity)
}

// Repository reads variants and mutates their stock records.
type Repository interface {
	// GetVariant returns *VariantNotFoundError for unknown ids.
	GetVariant(ctx context.Context, id int64) (*Variant, error)
	// GetVariants returns the variants that exist among ids, in any order.
	GetVariants(ctx context.Context, ids []int64) ([]Variant, error)
	// Decrement atomically subtracts qty from the variant's stock if at least
	// qty units are on hand. It returns *InsufficientStockError otherwise and
	// *VariantNotFoundError for unknown ids.
	Decrement(ctx context.Context, id int64, qty int) (remaining int, err error)
}
