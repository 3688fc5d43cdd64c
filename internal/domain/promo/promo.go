package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported promo discount strategies.
type Type string

const (
	// TypePercentage takes Discount percent off the subtotal.
	TypePercentage Type = "percentage"
	// TypeFixed takes a fixed amount off the subtotal, capped at the subtotal.
	TypeFixed Type = "fixed"
)

// Valid reports whether t is a known discount type.
func (t Type) Valid() bool {
	return t == TypePercentage || t == TypeFixed
}

var (
	// ErrNotFound is returned by repositories when no promo code matches.
	ErrNotFound = errors.New("promo code not found")
	// ErrInvalidPromoCode is returned when a supplied code is unknown,
	// inactive or outside its validity window.
	ErrInvalidPromoCode = errors.New("invalid promo code")
)

// PromoCode is an operator-defined discount. Orders only read it.
type PromoCode struct {
	Code      string
	Type      Type
	Discount  decimal.Decimal
	ValidFrom time.Time
	ValidTo   time.Time
	Active    bool
}

// IsValid reports whether the code is active and now lies within
// [ValidFrom, ValidTo].
func (p *PromoCode) IsValid(now time.Time) bool {
	return p.Active && !now.Before(p.ValidFrom) && !now.After(p.ValidTo)
}

// Repository looks promo codes up by code.
type Repository interface {
	// FindByCode matches case-insensitively and returns ErrNotFound when
	// nothing matches.
	FindByCode(ctx context.Context, code string) (*PromoCode, error)
}
