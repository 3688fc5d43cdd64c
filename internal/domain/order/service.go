package order

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop-checkout/internal/domain/account"
	"github.com/xenking/shop-checkout/internal/domain/bonus"
	"github.com/xenking/shop-checkout/internal/domain/inventory"
	"github.com/xenking/shop-checkout/internal/domain/promo"
	"github.com/xenking/shop-checkout/internal/money"
)

// ItemRequest is one requested cart line.
type ItemRequest struct {
	VariantID   int64
	Quantity    int
	BonusFunded bool
}

// CreateRequest carries everything needed to place an order.
type CreateRequest struct {
	UserID        int64
	Items         []ItemRequest
	IsPickup      bool
	AddressID     *int64
	WarehouseID   *int64
	PaymentMethod PaymentMethod
	Change        decimal.Decimal
	Source        Source
	PromoCode     string
	Comment       string
}

// Service places orders and drives them through their lifecycle.
type Service struct {
	store    Store
	cashback bonus.CashbackConfig
	now      func() time.Time
	newID    func() uuid.UUID
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for timestamps and promo validity.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an order service over store.
func NewService(store Store, cashback bonus.CashbackConfig, opts ...Option) *Service {
	s := &Service{
		store:    store,
		cashback: cashback,
		now:      time.Now,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder prices, reserves and persists an order in one transaction.
// Any failure leaves stock, bonus balances and orders unchanged.
func (s *Service) CreateOrder(ctx context.Context, req CreateRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = PaymentCard
	}
	if !req.PaymentMethod.Valid() {
		return nil, errors.Wrapf(ErrInvalidPaymentMethod, "%q", req.PaymentMethod)
	}
	if !req.Source.Valid() {
		req.Source = SourceUnknown
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, &inventory.InvalidQuantityError{VariantID: it.VariantID, Quantity: it.Quantity}
		}
	}

	var created *Order
	err := s.store.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		o, err := s.create(ctx, uow, req)
		if err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) create(ctx context.Context, uow UnitOfWork, req CreateRequest) (*Order, error) {
	now := s.now()
	o := &Order{
		ID:            s.newID(),
		UserID:        req.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
		Status:        StatusPending,
		IsPickup:      req.IsPickup,
		PaymentMethod: req.PaymentMethod,
		Change:        req.Change,
		Source:        req.Source,
		Comment:       req.Comment,
	}

	if err := s.resolveTarget(ctx, uow.Accounts(), req, o); err != nil {
		return nil, err
	}

	stock := inventory.NewLedger(uow.Inventory())
	reserve := make(map[int64]int, len(req.Items))
	for _, it := range req.Items {
		price, v, err := stock.UnitPrice(ctx, it.VariantID, it.BonusFunded)
		if err != nil {
			return nil, err
		}
		unit := money.Round(price)
		o.Items = append(o.Items, LineItem{
			VariantID:   v.ID,
			ProductName: v.ProductName,
			SizeName:    v.SizeName,
			ColorName:   v.ColorName,
			Quantity:    it.Quantity,
			BonusFunded: it.BonusFunded,
			UnitPrice:   unit,
			LineTotal:   money.LineTotal(unit, it.Quantity),
		})
		reserve[v.ID] += it.Quantity
	}

	// Ascending variant order keeps concurrent checkouts from deadlocking
	// on row locks.
	for _, id := range slices.Sorted(maps.Keys(reserve)) {
		if err := stock.Reserve(ctx, id, reserve[id]); err != nil {
			return nil, err
		}
	}

	var code *promo.PromoCode
	if strings.TrimSpace(req.PromoCode) != "" {
		p, err := promo.NewEngineAt(uow.Promos(), s.now).Validate(ctx, req.PromoCode)
		if err != nil {
			return nil, err
		}
		code = p
		o.PromoCode = p.Code
	}

	totals, err := RecomputeTotal(o.Items, code)
	if err != nil {
		return nil, err
	}
	o.applyTotals(totals)

	if err := bonus.NewLedger(uow.Bonus(), s.cashback).Debit(ctx, o.UserID, o.TotalBonusAmount); err != nil {
		return nil, err
	}

	if err := uow.Orders().Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "store order")
	}
	return o, nil
}

func (s *Service) resolveTarget(ctx context.Context, accounts account.Repository, req CreateRequest, o *Order) error {
	if req.IsPickup {
		var (
			w   *account.Warehouse
			err error
		)
		if req.WarehouseID != nil {
			w, err = accounts.GetWarehouse(ctx, *req.WarehouseID)
		} else {
			w, err = accounts.PrimaryWarehouse(ctx)
		}
		if err != nil {
			if errors.Is(err, account.ErrWarehouseNotFound) {
				return errors.Wrap(ErrMissingDeliveryTarget, "pickup warehouse")
			}
			return errors.Wrap(err, "get warehouse")
		}
		o.WarehouseID = &w.ID
		return nil
	}

	if req.AddressID == nil {
		return errors.Wrap(ErrMissingDeliveryTarget, "delivery address")
	}
	a, err := accounts.GetAddress(ctx, *req.AddressID)
	if err != nil {
		if errors.Is(err, account.ErrAddressNotFound) {
			return ErrInvalidAddress
		}
		return errors.Wrap(err, "get address")
	}
	if !a.BelongsTo(req.UserID) {
		return ErrInvalidAddress
	}
	o.AddressID = &a.ID
	return nil
}

// Get returns an order by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.store.Orders().Get(ctx, id)
}

// ListByUser returns a page of the user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID int64, page Page) ([]Order, error) {
	return s.store.Orders().ListByUser(ctx, userID, page.Normalize())
}

// TransitionResult describes an applied status change.
type TransitionResult struct {
	Order *Order
	From  Status
	// Earned is the cashback credited by this transition, if any.
	Earned int64
}

// Transition moves an order to a new status. Entering completed credits the
// earned cashback exactly once.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to Status) (*TransitionResult, error) {
	var res *TransitionResult
	err := s.store.InTx(ctx, func(ctx context.Context, uow UnitOfWork) error {
		o, err := uow.Orders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from := o.Status
		if err := o.Transition(to); err != nil {
			return err
		}

		var earned int64
		if o.Status == StatusCompleted && !o.BonusApplied {
			earned = s.EstimateEarnedBonus(o)
			if err := bonus.NewLedger(uow.Bonus(), s.cashback).Credit(ctx, o.UserID, decimal.NewFromInt(earned)); err != nil {
				return err
			}
			o.BonusApplied = true
		}

		o.UpdatedAt = s.now()
		if err := uow.Orders().UpdateStatus(ctx, o); err != nil {
			return errors.Wrap(err, "update status")
		}
		res = &TransitionResult{Order: o, From: from, Earned: earned}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// EstimateEarnedBonus returns the cashback o earns on completion. It is
// computed on the subtotal before promo discounts.
func (s *Service) EstimateEarnedBonus(o *Order) int64 {
	return bonus.ComputeEarned(o.Subtotal, o.Source, s.cashback)
}

// Reconciliation compares stored totals with a fresh computation.
type Reconciliation struct {
	OrderID       uuid.UUID
	StoredTotal   decimal.Decimal
	Recomputed    Totals
	LiveSubtotal  decimal.Decimal
	Drift         decimal.Decimal
	Consistent    bool
	PromoResolved bool
}

// Reconcile re-derives the totals of an order from its frozen lines and from
// current catalog prices. It never modifies the order.
func (s *Service) Reconcile(ctx context.Context, id uuid.UUID) (*Reconciliation, error) {
	o, err := s.store.Orders().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rec := &Reconciliation{OrderID: o.ID, StoredTotal: o.TotalAmount}

	var code *promo.PromoCode
	if o.PromoCode != "" {
		p, err := promo.NewEngine(s.store.Promos()).Lookup(ctx, o.PromoCode)
		switch {
		case err == nil:
			code = p
			rec.PromoResolved = true
		case !errors.Is(err, promo.ErrNotFound):
			return nil, err
		}
	}

	rec.Recomputed, err = RecomputeTotal(o.Items, code)
	if err != nil {
		return nil, err
	}
	if code == nil {
		rec.Recomputed.Discount = o.Discount
		rec.Recomputed.Total = rec.Recomputed.Subtotal.Sub(o.Discount)
	}

	rec.LiveSubtotal, err = GetTotalAmount(ctx, o, s.store.Inventory())
	if err != nil {
		return nil, err
	}
	rec.Drift = rec.LiveSubtotal.Sub(o.Subtotal)
	rec.Consistent = rec.Recomputed.Total.Equal(o.TotalAmount) &&
		o.TotalAmount.Equal(o.Subtotal.Sub(o.Discount))
	return rec, nil
}
