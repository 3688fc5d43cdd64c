package order_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/shop-checkout/internal/domain/account"
	"github.com/xenking/shop-checkout/internal/domain/bonus"
	"github.com/xenking/shop-checkout/internal/domain/inventory"
	"github.com/xenking/shop-checkout/internal/domain/order"
	"github.com/xenking/shop-checkout/internal/domain/promo"
	"github.com/xenking/shop-checkout/internal/storage/memstore"
)

const userID = 7

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

var cashback = bonus.CashbackConfig{MobilePercent: 5, WebPercent: 3, MinOrderPrice: 100}

func newFixture(t *testing.T) (*order.Service, *memstore.Store) {
	t.Helper()

	s := memstore.New()
	s.PutVariant(inventory.Variant{ID: 1, ProductName: "Tee", SizeName: "M", ColorName: "Black", Price: d("500"), QuantityOnHand: 10})
	s.PutVariant(inventory.Variant{ID: 2, ProductName: "Cap", Price: d("200"), BonusPrice: decimal.NewNullDecimal(d("150")), QuantityOnHand: 3})
	s.PutVariant(inventory.Variant{ID: 3, ProductName: "Socks", Price: d("90"), DiscountedPrice: decimal.NewNullDecimal(d("75")), QuantityOnHand: 100})
	s.PutPromo(promo.PromoCode{Code: "SALE10", Type: promo.TypePercentage, Discount: d("10"), ValidFrom: now.Add(-time.Hour), ValidTo: now.Add(time.Hour), Active: true})
	s.PutPromo(promo.PromoCode{Code: "BIG", Type: promo.TypeFixed, Discount: d("2000"), ValidFrom: now.Add(-time.Hour), ValidTo: now.Add(time.Hour), Active: true})
	s.PutPromo(promo.PromoCode{Code: "OLD", Type: promo.TypeFixed, Discount: d("10"), ValidFrom: now.Add(-48 * time.Hour), ValidTo: now.Add(-24 * time.Hour), Active: true})
	s.SetBalance(userID, d("200"))
	s.SetBalance(8, d("0"))
	s.PutAddress(account.Address{ID: 1, UserID: userID, City: "Almaty"})
	s.PutAddress(account.Address{ID: 2, UserID: 8, City: "Astana"})
	s.PutWarehouse(account.Warehouse{ID: 10, City: "Almaty", IsPrimary: true})
	s.PutWarehouse(account.Warehouse{ID: 11, City: "Astana"})

	return order.NewService(s, cashback, order.WithClock(func() time.Time { return now })), s
}

func delivery(items ...order.ItemRequest) order.CreateRequest {
	return order.CreateRequest{
		UserID:        userID,
		Items:         items,
		AddressID:     ptr(int64(1)),
		PaymentMethod: order.PaymentCash,
		Source:        order.SourceMobile,
	}
}

func TestCreateOrder_TwoUnits(t *testing.T) {
	svc, s := newFixture(t)

	o, err := svc.CreateOrder(context.Background(), delivery(order.ItemRequest{VariantID: 1, Quantity: 2}))
	require.NoError(t, err)

	assert.True(t, d("1000").Equal(o.TotalAmount))
	assert.True(t, o.Discount.IsZero())
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, now, o.CreatedAt)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Tee", o.Items[0].ProductName)
	assert.True(t, d("500").Equal(o.Items[0].UnitPrice))
	assert.Equal(t, 8, s.Stock(1))

	stored, err := svc.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(o.TotalAmount))
	assert.NotZero(t, stored.Items[0].ID)
}

func TestCreateOrder_Promo(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		wantTotal string
		wantDisc  string
	}{
		{name: "percentage", code: "SALE10", wantTotal: "900", wantDisc: "100"},
		{name: "case insensitive", code: "sale10", wantTotal: "900", wantDisc: "100"},
		{name: "fixed larger than subtotal", code: "BIG", wantTotal: "0", wantDisc: "1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newFixture(t)
			req := delivery(order.ItemRequest{VariantID: 1, Quantity: 2})
			req.PromoCode = tt.code

			o, err := svc.CreateOrder(context.Background(), req)
			require.NoError(t, err)
			assert.True(t, d(tt.wantTotal).Equal(o.TotalAmount), "total %s", o.TotalAmount)
			assert.True(t, d(tt.wantDisc).Equal(o.Discount), "discount %s", o.Discount)
			assert.True(t, o.TotalAmount.Equal(o.Subtotal.Sub(o.Discount)))
		})
	}
}

func TestCreateOrder_InvalidPromoRejected(t *testing.T) {
	for _, c := range []string{"OLD", "NOPE"} {
		t.Run(c, func(t *testing.T) {
			svc, s := newFixture(t)
			req := delivery(order.ItemRequest{VariantID: 1, Quantity: 2})
			req.PromoCode = c

			_, err := svc.CreateOrder(context.Background(), req)
			require.ErrorIs(t, err, promo.ErrInvalidPromoCode)
			assert.Equal(t, 10, s.Stock(1))
			assert.Zero(t, s.OrderCount())
		})
	}
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	svc, s := newFixture(t)

	_, err := svc.CreateOrder(context.Background(), delivery(order.ItemRequest{VariantID: 2, Quantity: 5}))
	var ise *inventory.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 3, ise.Available)
	assert.Equal(t, "Cap", ise.Product)
	assert.Equal(t, 3, s.Stock(2))
	assert.Zero(t, s.OrderCount())
}

func TestCreateOrder_FailureRollsBackEverything(t *testing.T) {
	svc, s := newFixture(t)

	// Tee and the bonus-funded cap reserve fine; the second cap line exceeds stock.
	_, err := svc.CreateOrder(context.Background(), delivery(
		order.ItemRequest{VariantID: 1, Quantity: 4},
		order.ItemRequest{VariantID: 2, Quantity: 1, BonusFunded: true},
		order.ItemRequest{VariantID: 2, Quantity: 3},
	))
	var ise *inventory.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, 4, ise.Requested)

	assert.Equal(t, 10, s.Stock(1))
	assert.Equal(t, 3, s.Stock(2))
	assert.True(t, d("200").Equal(s.BalanceOf(userID)))
	assert.Zero(t, s.OrderCount())
}

func TestCreateOrder_InsufficientBonusBalance(t *testing.T) {
	svc, s := newFixture(t)
	s.PutVariant(inventory.Variant{ID: 4, ProductName: "Hoodie", Price: d("400"), BonusPrice: decimal.NewNullDecimal(d("300")), QuantityOnHand: 5})

	_, err := svc.CreateOrder(context.Background(), delivery(order.ItemRequest{VariantID: 4, Quantity: 1, BonusFunded: true}))
	var ibe *bonus.InsufficientBonusBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.True(t, d("200").Equal(ibe.Available))
	assert.True(t, d("300").Equal(ibe.Requested))

	assert.True(t, d("200").Equal(s.BalanceOf(userID)))
	assert.Equal(t, 5, s.Stock(4))
	assert.Zero(t, s.OrderCount())
}

func TestCreateOrder_BonusFundedLine(t *testing.T) {
	svc, s := newFixture(t)

	o, err := svc.CreateOrder(context.Background(), delivery(
		order.ItemRequest{VariantID: 2, Quantity: 1, BonusFunded: true},
		order.ItemRequest{VariantID: 3, Quantity: 2},
	))
	require.NoError(t, err)

	assert.True(t, d("150").Equal(o.TotalBonusAmount))
	assert.True(t, d("300").Equal(o.TotalAmount), "150 bonus + 2*75 discounted")
	assert.True(t, d("50").Equal(s.BalanceOf(userID)))
	assert.True(t, d("150").Equal(o.CashAmount()))
}

func TestCreateOrder_FulfillmentTarget(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(r *order.CreateRequest)
		wantErr       error
		wantWarehouse *int64
		wantAddress   *int64
	}{
		{
			name:        "delivery to own address",
			mutate:      func(*order.CreateRequest) {},
			wantAddress: ptr(int64(1)),
		},
		{
			name:    "delivery without address",
			mutate:  func(r *order.CreateRequest) { r.AddressID = nil },
			wantErr: order.ErrMissingDeliveryTarget,
		},
		{
			name:    "delivery to foreign address",
			mutate:  func(r *order.CreateRequest) { r.AddressID = ptr(int64(2)) },
			wantErr: order.ErrInvalidAddress,
		},
		{
			name:    "delivery to unknown address",
			mutate:  func(r *order.CreateRequest) { r.AddressID = ptr(int64(99)) },
			wantErr: order.ErrInvalidAddress,
		},
		{
			name: "pickup at chosen warehouse",
			mutate: func(r *order.CreateRequest) {
				r.IsPickup, r.AddressID, r.WarehouseID = true, nil, ptr(int64(11))
			},
			wantWarehouse: ptr(int64(11)),
		},
		{
			name: "pickup falls back to primary warehouse",
			mutate: func(r *order.CreateRequest) {
				r.IsPickup, r.AddressID = true, nil
			},
			wantWarehouse: ptr(int64(10)),
		},
		{
			name: "pickup at unknown warehouse",
			mutate: func(r *order.CreateRequest) {
				r.IsPickup, r.WarehouseID = true, ptr(int64(99))
			},
			wantErr: order.ErrMissingDeliveryTarget,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, s := newFixture(t)
			req := delivery(order.ItemRequest{VariantID: 1, Quantity: 1})
			tt.mutate(&req)

			o, err := svc.CreateOrder(context.Background(), req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 10, s.Stock(1))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWarehouse, o.WarehouseID)
			assert.Equal(t, tt.wantAddress, o.AddressID)
		})
	}
}

func TestCreateOrder_InputErrors(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.CreateOrder(context.Background(), delivery())
	require.ErrorIs(t, err, order.ErrEmptyItems)

	_, err = svc.CreateOrder(context.Background(), delivery(order.ItemRequest{VariantID: 1, Quantity: 0}))
	var iq *inventory.InvalidQuantityError
	require.ErrorAs(t, err, &iq)

	_, err = svc.CreateOrder(context.Background(), delivery(order.ItemRequest{VariantID: 99, Quantity: 1}))
	var nf *inventory.VariantNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(99), nf.VariantID)

	req := delivery(order.ItemRequest{VariantID: 1, Quantity: 1})
	req.PaymentMethod = "barter"
	_, err = svc.CreateOrder(context.Background(), req)
	require.ErrorIs(t, err, order.ErrInvalidPaymentMethod)
}

func TestCreateOrder_Defaults(t *testing.T) {
	svc, _ := newFixture(t)
	req := delivery(order.ItemRequest{VariantID: 1, Quantity: 1})
	req.PaymentMethod = ""
	req.Source = ""

	o, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentCard, o.PaymentMethod)
	assert.Equal(t, order.SourceUnknown, o.Source)
}

func TestCreateOrder_ConcurrentReservationsNeverOversell(t *testing.T) {
	svc, s := newFixture(t)

	const buyers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateOrder(context.Background(), delivery(order.ItemRequest{VariantID: 2, Quantity: 1}))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			var ise *inventory.InsufficientStockError
			assert.True(t, errors.As(err, &ise), "unexpected error: %v", err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 0, s.Stock(2))
	assert.Equal(t, 3, s.OrderCount())
}

func TestTransition_CompletedCreditsOnce(t *testing.T) {
	svc, s := newFixture(t)
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, delivery(order.ItemRequest{VariantID: 1, Quantity: 2}))
	require.NoError(t, err)
	assert.Equal(t, int64(50), svc.EstimateEarnedBonus(o))

	for _, st := range []order.Status{order.StatusInProgress, order.StatusDelivery} {
		res, err := svc.Transition(ctx, o.ID, st)
		require.NoError(t, err)
		assert.Zero(t, res.Earned)
	}

	res, err := svc.Transition(ctx, o.ID, order.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivery, res.From)
	assert.Equal(t, int64(50), res.Earned)
	assert.True(t, res.Order.BonusApplied)
	assert.True(t, d("250").Equal(s.BalanceOf(userID)))

	_, err = svc.Transition(ctx, o.ID, order.StatusCompleted)
	var ite *order.InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.True(t, d("250").Equal(s.BalanceOf(userID)))

	stored, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCompleted, stored.Status)
	assert.True(t, stored.BonusApplied)
}

func TestTransition_Errors(t *testing.T) {
	svc, _ := newFixture(t)
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, delivery(order.ItemRequest{VariantID: 1, Quantity: 1}))
	require.NoError(t, err)

	_, err = svc.Transition(ctx, o.ID, order.StatusCompleted)
	var ite *order.InvalidTransitionError
	require.ErrorAs(t, err, &ite)

	_, err = svc.Transition(ctx, o.ID, order.StatusCancelled)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, o.ID, order.StatusInProgress)
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, order.StatusCancelled, ite.From)

	_, err = svc.Transition(ctx, uuid.New(), order.StatusInProgress)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestListByUser_NewestFirst(t *testing.T) {
	s := memstore.New()
	s.PutVariant(inventory.Variant{ID: 1, ProductName: "Tee", Price: d("10"), QuantityOnHand: 100})
	s.SetBalance(userID, d("0"))
	s.PutAddress(account.Address{ID: 1, UserID: userID})

	clock := now
	svc := order.NewService(s, cashback, order.WithClock(func() time.Time { return clock }))

	var ids []string
	for i := range 5 {
		clock = now.Add(time.Duration(i) * time.Minute)
		o, err := svc.CreateOrder(context.Background(), delivery(order.ItemRequest{VariantID: 1, Quantity: 1}))
		require.NoError(t, err)
		ids = append(ids, o.ID.String())
	}

	page, err := svc.ListByUser(context.Background(), userID, order.Page{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID.String())
	assert.Equal(t, ids[2], page[1].ID.String())

	other, err := svc.ListByUser(context.Background(), 8, order.Page{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestReconcile(t *testing.T) {
	svc, s := newFixture(t)
	ctx := context.Background()

	req := delivery(order.ItemRequest{VariantID: 1, Quantity: 2})
	req.PromoCode = "SALE10"
	o, err := svc.CreateOrder(ctx, req)
	require.NoError(t, err)

	rec, err := svc.Reconcile(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.True(t, rec.PromoResolved)
	assert.True(t, rec.Drift.IsZero())

	s.PutVariant(inventory.Variant{ID: 1, ProductName: "Tee", Price: d("550"), QuantityOnHand: 8})

	rec, err = svc.Reconcile(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, d("1100").Equal(rec.LiveSubtotal))
	assert.True(t, d("100").Equal(rec.Drift))
	assert.True(t, rec.Consistent, "stored totals do not follow catalog changes")

	stored, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, d("900").Equal(stored.TotalAmount))
}

func TestReconcile_PromoGoneKeepsStoredDiscount(t *testing.T) {
	svc, s := newFixture(t)
	ctx := context.Background()

	req := delivery(order.ItemRequest{VariantID: 1, Quantity: 2})
	req.PromoCode = "SALE10"
	o, err := svc.CreateOrder(ctx, req)
	require.NoError(t, err)

	s.DeletePromo("SALE10")

	rec, err := svc.Reconcile(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, rec.PromoResolved)
	assert.True(t, d("1000").Equal(rec.Recomputed.Subtotal))
	assert.True(t, d("100").Equal(rec.Recomputed.Discount))
	assert.True(t, d("900").Equal(rec.Recomputed.Total))
	assert.True(t, rec.Consistent)
}

func TestEstimateEarnedBonus_UsesSubtotal(t *testing.T) {
	tests := []struct {
		name     string
		minPrice int64
		promo    string
		want     int64
	}{
		{name: "promo does not shrink base", minPrice: 100, promo: "SALE10", want: 50},
		{name: "threshold on subtotal with promo", minPrice: 1000, promo: "SALE10", want: 50},
		{name: "below threshold", minPrice: 1001, promo: "SALE10", want: 0},
		{name: "no promo at threshold", minPrice: 1000, want: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, s := newFixture(t)
			cfg := cashback
			cfg.MinOrderPrice = tt.minPrice
			svc := order.NewService(s, cfg, order.WithClock(func() time.Time { return now }))

			req := delivery(order.ItemRequest{VariantID: 1, Quantity: 2})
			req.PromoCode = tt.promo
			o, err := svc.CreateOrder(context.Background(), req)
			require.NoError(t, err)

			assert.True(t, d("1000").Equal(o.Subtotal))
			assert.Equal(t, tt.want, svc.EstimateEarnedBonus(o))
		})
	}
}

func TestEstimateEarnedBonus_BonusFundedLines(t *testing.T) {
	svc, _ := newFixture(t)

	o, err := svc.CreateOrder(context.Background(), delivery(
		order.ItemRequest{VariantID: 1, Quantity: 2},
		order.ItemRequest{VariantID: 2, Quantity: 1, BonusFunded: true},
	))
	require.NoError(t, err)

	assert.True(t, d("1150").Equal(o.Subtotal))
	assert.Equal(t, int64(57), svc.EstimateEarnedBonus(o))
}

func TestCreateOrder_LineTotalFromRoundedUnitPrice(t *testing.T) {
	svc, s := newFixture(t)
	s.PutVariant(inventory.Variant{ID: 4, ProductName: "Pin", Price: d("33.335"), QuantityOnHand: 10})

	o, err := svc.CreateOrder(context.Background(), delivery(order.ItemRequest{VariantID: 4, Quantity: 3}))
	require.NoError(t, err)

	require.Len(t, o.Items, 1)
	it := o.Items[0]
	assert.True(t, d("33.34").Equal(it.UnitPrice), "unit %s", it.UnitPrice)
	assert.True(t, d("100.02").Equal(it.LineTotal), "line %s", it.LineTotal)
	assert.True(t, it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Equal(it.LineTotal))
	assert.True(t, d("100.02").Equal(o.TotalAmount))
}
