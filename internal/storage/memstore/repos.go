package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop-checkout/internal/domain/account"
	"github.com/xenking/shop-checkout/internal/domain/bonus"
	"github.com/xenking/shop-checkout/internal/domain/inventory"
	"github.com/xenking/shop-checkout/internal/domain/order"
	"github.com/xenking/shop-checkout/internal/domain/promo"
)

type inventoryRepo struct{ v view }

func (r inventoryRepo) GetVariant(_ context.Context, id int64) (*inventory.Variant, error) {
	var out *inventory.Variant
	err := r.v.do(func(st *state) error {
		v, ok := st.variants[id]
		if !ok {
			return &inventory.VariantNotFoundError{VariantID: id}
		}
		out = &v
		return nil
	})
	return out, err
}

func (r inventoryRepo) GetVariants(_ context.Context, ids []int64) ([]inventory.Variant, error) {
	var out []inventory.Variant
	err := r.v.do(func(st *state) error {
		for _, id := range ids {
			if v, ok := st.variants[id]; ok {
				out = append(out, v)
			}
		}
		return nil
	})
	return out, err
}

func (r inventoryRepo) Decrement(_ context.Context, id int64, qty int) (int, error) {
	var remaining int
	err := r.v.do(func(st *state) error {
		v, ok := st.variants[id]
		if !ok {
			return &inventory.VariantNotFoundError{VariantID: id}
		}
		if v.QuantityOnHand < qty {
			remaining = v.QuantityOnHand
			return &inventory.InsufficientStockError{
				VariantID: id,
				Product:   v.ProductName,
				Requested: qty,
				Available: v.QuantityOnHand,
			}
		}
		v.QuantityOnHand -= qty
		st.variants[id] = v
		remaining = v.QuantityOnHand
		return nil
	})
	return remaining, err
}

type promoRepo struct{ v view }

func (r promoRepo) FindByCode(_ context.Context, code string) (*promo.PromoCode, error) {
	var out *promo.PromoCode
	err := r.v.do(func(st *state) error {
		p, ok := st.promos[strings.ToUpper(code)]
		if !ok {
			return promo.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

type bonusRepo struct{ v view }

func (r bonusRepo) Balance(_ context.Context, userID int64) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := r.v.do(func(st *state) error {
		b, ok := st.balances[userID]
		if !ok {
			return bonus.ErrUserNotFound
		}
		out = b
		return nil
	})
	return out, err
}

func (r bonusRepo) Debit(_ context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := r.v.do(func(st *state) error {
		b, ok := st.balances[userID]
		if !ok {
			return bonus.ErrUserNotFound
		}
		if b.LessThan(amount) {
			out = b
			return &bonus.InsufficientBonusBalanceError{UserID: userID, Available: b, Requested: amount}
		}
		out = b.Sub(amount)
		st.balances[userID] = out
		return nil
	})
	return out, err
}

func (r bonusRepo) Credit(_ context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := r.v.do(func(st *state) error {
		b, ok := st.balances[userID]
		if !ok {
			return bonus.ErrUserNotFound
		}
		out = b.Add(amount)
		st.balances[userID] = out
		return nil
	})
	return out, err
}

type accountRepo struct{ v view }

func (r accountRepo) GetAddress(_ context.Context, id int64) (*account.Address, error) {
	var out *account.Address
	err := r.v.do(func(st *state) error {
		a, ok := st.addresses[id]
		if !ok {
			return account.ErrAddressNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r accountRepo) GetWarehouse(_ context.Context, id int64) (*account.Warehouse, error) {
	var out *account.Warehouse
	err := r.v.do(func(st *state) error {
		w, ok := st.warehouses[id]
		if !ok {
			return account.ErrWarehouseNotFound
		}
		out = &w
		return nil
	})
	return out, err
}

func (r accountRepo) PrimaryWarehouse(_ context.Context) (*account.Warehouse, error) {
	var out *account.Warehouse
	err := r.v.do(func(st *state) error {
		for _, w := range st.warehouses {
			if w.IsPrimary {
				out = &w
				return nil
			}
		}
		return account.ErrWarehouseNotFound
	})
	return out, err
}

type orderRepo struct{ v view }

func (r orderRepo) Create(_ context.Context, o *order.Order) error {
	return r.v.do(func(st *state) error {
		for i := range o.Items {
			st.nextItemID++
			o.Items[i].ID = st.nextItemID
		}
		st.orders[o.ID] = copyOrder(*o)
		return nil
	})
}

func (r orderRepo) Get(_ context.Context, id uuid.UUID) (*order.Order, error) {
	var out *order.Order
	err := r.v.do(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return order.ErrNotFound
		}
		o = copyOrder(o)
		out = &o
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking: transactions are already serialized.
func (r orderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.Get(ctx, id)
}

func (r orderRepo) ListByUser(_ context.Context, userID int64, page order.Page) ([]order.Order, error) {
	var out []order.Order
	err := r.v.do(func(st *state) error {
		for _, o := range st.orders {
			if o.UserID == userID {
				out = append(out, copyOrder(o))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if page.Offset >= len(out) {
		return []order.Order{}, nil
	}
	out = out[page.Offset:]
	if page.Limit > 0 && page.Limit < len(out) {
		out = out[:page.Limit]
	}
	return out, nil
}

func (r orderRepo) UpdateStatus(_ context.Context, o *order.Order) error {
	return r.v.do(func(st *state) error {
		cur, ok := st.orders[o.ID]
		if !ok {
			return order.ErrNotFound
		}
		cur.Status = o.Status
		cur.BonusApplied = o.BonusApplied
		cur.UpdatedAt = o.UpdatedAt
		st.orders[o.ID] = cur
		return nil
	})
}
