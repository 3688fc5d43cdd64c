// Package memstore is an in-memory implementation of the checkout storage
// contracts. Transactions are serialized and applied copy-on-write, so a
// failed unit of work leaves no trace.
package memstore

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop-checkout/internal/domain/account"
	"github.com/xenking/shop-checkout/internal/domain/auth"
	"github.com/xenking/shop-checkout/internal/domain/bonus"
	"github.com/xenking/shop-checkout/internal/domain/inventory"
	"github.com/xenking/shop-checkout/internal/domain/order"
	"github.com/xenking/shop-checkout/internal/domain/promo"
)

type state struct {
	variants   map[int64]inventory.Variant
	promos     map[string]promo.PromoCode
	balances   map[int64]decimal.Decimal
	addresses  map[int64]account.Address
	warehouses map[int64]account.Warehouse
	orders     map[uuid.UUID]order.Order
	apiKeys    map[string]auth.APIKeyInfo
	nextItemID int64
}

func newState() *state {
	return &state{
		variants:   make(map[int64]inventory.Variant),
		promos:     make(map[string]promo.PromoCode),
		balances:   make(map[int64]decimal.Decimal),
		addresses:  make(map[int64]account.Address),
		warehouses: make(map[int64]account.Warehouse),
		orders:     make(map[uuid.UUID]order.Order),
		apiKeys:    make(map[string]auth.APIKeyInfo),
	}
}

func (s *state) clone() *state {
	c := &state{
		variants:   maps.Clone(s.variants),
		promos:     maps.Clone(s.promos),
		balances:   maps.Clone(s.balances),
		addresses:  maps.Clone(s.addresses),
		warehouses: maps.Clone(s.warehouses),
		orders:     make(map[uuid.UUID]order.Order, len(s.orders)),
		apiKeys:    maps.Clone(s.apiKeys),
		nextItemID: s.nextItemID,
	}
	for id, o := range s.orders {
		c.orders[id] = copyOrder(o)
	}
	return c
}

func copyOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

// Store keeps all data in memory. The zero value is not usable; call New.
type Store struct {
	mu sync.Mutex
	st *state
}

var (
	_ order.Store     = (*Store)(nil)
	_ auth.Repository = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{st: newState()}
}

// InTx runs fn against a private copy of the data and publishes the copy
// only when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, uow order.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := s.st.clone()
	if err := fn(ctx, view{tx: tx}); err != nil {
		return err
	}
	s.st = tx
	return nil
}

func (s *Store) live() view { return view{s: s} }

func (s *Store) Inventory() inventory.Repository { return inventoryRepo{s.live()} }
func (s *Store) Promos() promo.Repository        { return promoRepo{s.live()} }
func (s *Store) Bonus() bonus.Repository         { return bonusRepo{s.live()} }
func (s *Store) Accounts() account.Repository    { return accountRepo{s.live()} }
func (s *Store) Orders() order.Repository        { return orderRepo{s.live()} }

// FindByHash implements auth.Repository.
func (s *Store) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.st.apiKeys[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	k.Scopes = slices.Clone(k.Scopes)
	return &k, nil
}

// view reads either the committed state under the store lock or a
// transaction's private copy.
type view struct {
	s  *Store
	tx *state
}

func (v view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return fn(v.s.st)
}

func (v view) Inventory() inventory.Repository { return inventoryRepo{v} }
func (v view) Promos() promo.Repository        { return promoRepo{v} }
func (v view) Bonus() bonus.Repository         { return bonusRepo{v} }
func (v view) Accounts() account.Repository    { return accountRepo{v} }
func (v view) Orders() order.Repository        { return orderRepo{v} }

func (s *Store) mutate(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

// PutVariant adds or replaces a variant.
func (s *Store) PutVariant(v inventory.Variant) {
	s.mutate(func(st *state) { st.variants[v.ID] = v })
}

// DeleteVariant removes a variant from the catalog.
func (s *Store) DeleteVariant(id int64) {
	s.mutate(func(st *state) { delete(st.variants, id) })
}

// PutPromo adds or replaces a promo code.
func (s *Store) PutPromo(p promo.PromoCode) {
	s.mutate(func(st *state) { st.promos[strings.ToUpper(p.Code)] = p })
}

// DeletePromo removes a promo code.
func (s *Store) DeletePromo(code string) {
	s.mutate(func(st *state) { delete(st.promos, strings.ToUpper(code)) })
}

// SetBalance sets a user's bonus balance, creating the user if needed.
func (s *Store) SetBalance(userID int64, amount decimal.Decimal) {
	s.mutate(func(st *state) { st.balances[userID] = amount })
}

// PutAddress adds or replaces an address.
func (s *Store) PutAddress(a account.Address) {
	s.mutate(func(st *state) { st.addresses[a.ID] = a })
}

// PutWarehouse adds or replaces a warehouse.
func (s *Store) PutWarehouse(w account.Warehouse) {
	s.mutate(func(st *state) { st.warehouses[w.ID] = w })
}

// PutAPIKey registers an API key under its hash.
func (s *Store) PutAPIKey(k auth.APIKeyInfo) {
	s.mutate(func(st *state) { st.apiKeys[k.KeyHash] = k })
}

// Stock returns the quantity on hand of a variant, or -1 if it is unknown.
func (s *Store) Stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.st.variants[id]
	if !ok {
		return -1
	}
	return v.QuantityOnHand
}

// BalanceOf returns a user's bonus balance.
func (s *Store) BalanceOf(userID int64) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.balances[userID]
}

// OrderCount returns the number of stored orders.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}
