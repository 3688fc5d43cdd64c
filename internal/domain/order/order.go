package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop-checkout/internal/domain/account"
	"github.com/xenking/shop-checkout/internal/domain/bonus"
	"github.com/xenking/shop-checkout/internal/domain/inventory"
	"github.com/xenking/shop-checkout/internal/domain/promo"
	"github.com/xenking/shop-checkout/internal/money"
)

// PaymentMethod is how the customer pays the cash part of an order.
type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentCash   PaymentMethod = "cash"
	PaymentOnline PaymentMethod = "online"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentCash, PaymentOnline:
		return true
	}
	return false
}

// RequiresGateway reports whether paying with m goes through the payment
// gateway.
func (m PaymentMethod) RequiresGateway() bool {
	return m == PaymentCard || m == PaymentOnline
}

// Source is the channel an order was placed through.
type Source = bonus.Source

const (
	SourceMobile  = bonus.SourceMobile
	SourceWeb     = bonus.SourceWeb
	SourceUnknown = bonus.SourceUnknown
)

// LineItem is one cart line frozen at order time. Names and prices are
// snapshots and do not follow later catalog edits.
type LineItem struct {
	ID int64
	// VariantID is zero when the variant was deleted after the order was placed.
	VariantID   int64
	ProductName string
	SizeName    string
	ColorName   string
	Quantity    int
	BonusFunded bool
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// Order is a placed customer order.
type Order struct {
	ID            uuid.UUID
	UserID        int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Status        Status
	IsPickup      bool
	AddressID     *int64
	WarehouseID   *int64
	PaymentMethod PaymentMethod
	Change        decimal.Decimal
	Source        Source
	Comment       string
	// PromoCode is empty when no code was applied.
	PromoCode string

	Subtotal         decimal.Decimal
	Discount         decimal.Decimal
	TotalAmount      decimal.Decimal
	TotalBonusAmount decimal.Decimal
	// BonusApplied is set once earned cashback has been credited.
	BonusApplied bool

	Items []LineItem
}

// CashAmount is the part of the total not paid with bonus points.
func (o *Order) CashAmount() decimal.Decimal {
	return money.Clamp(o.TotalAmount.Sub(o.TotalBonusAmount), o.TotalAmount)
}

func (o *Order) applyTotals(t Totals) {
	o.Subtotal = t.Subtotal
	o.Discount = t.Discount
	o.TotalAmount = t.Total
	o.TotalBonusAmount = t.BonusAmount
}

// Page selects a window of a listing.
type Page struct {
	Limit  int
	Offset int
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Repository persists orders and their line items.
type Repository interface {
	// Create stores o with its items. Item ids are assigned in place.
	Create(ctx context.Context, o *Order) error
	// Get returns ErrNotFound for unknown ids.
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	// GetForUpdate is Get that also locks the order until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID int64, page Page) ([]Order, error)
	UpdateStatus(ctx context.Context, o *Order) error
}

// UnitOfWork groups the repositories a checkout touches. Repositories taken
// from the same UnitOfWork share one transaction.
type UnitOfWork interface {
	Inventory() inventory.Repository
	Promos() promo.Repository
	Bonus() bonus.Repository
	Accounts() account.Repository
	Orders() Repository
}

// Store opens units of work. Its own repositories run outside any transaction.
type Store interface {
	UnitOfWork
	// InTx runs fn in one transaction, committing when fn returns nil and
	// rolling back otherwise.
	InTx(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}
