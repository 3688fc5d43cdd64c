package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop-checkout/internal/domain/account"
	"github.com/xenking/shop-checkout/internal/domain/auth"
	"github.com/xenking/shop-checkout/internal/domain/inventory"
)

// Seeder inserts reference data: users, catalog, warehouses and keys.
type Seeder struct {
	db DBTX
}

// NewSeeder returns a Seeder using db.
func NewSeeder(db DBTX) *Seeder {
	return &Seeder{db: db}
}

func (s *Seeder) returningID(ctx context.Context, what, sql string, args ...any) (int64, error) {
	var id int64
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "insert %s", what)
	}
	return id, nil
}

// User creates a user with the given bonus balance.
func (s *Seeder) User(ctx context.Context, phone string, balance decimal.Decimal) (int64, error) {
	return s.returningID(ctx, "user",
		`INSERT INTO users (phone, bonus_balance) VALUES ($1, $2) RETURNING id`,
		phone, balance)
}

// Address creates a delivery address. a.ID is ignored.
func (s *Seeder) Address(ctx context.Context, a account.Address) (int64, error) {
	return s.returningID(ctx, "address",
		`INSERT INTO user_addresses (user_id, city, apartment_number, entrance, floor, intercom)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		a.UserID, a.City, a.ApartmentNumber, a.Entrance, a.Floor, a.Intercom)
}

// Warehouse creates a pickup point. w.ID is ignored.
func (s *Seeder) Warehouse(ctx context.Context, w account.Warehouse) (int64, error) {
	return s.returningID(ctx, "warehouse",
		`INSERT INTO warehouses (city, is_primary) VALUES ($1, $2) RETURNING id`,
		w.City, w.IsPrimary)
}

// Product creates a catalog product.
func (s *Seeder) Product(ctx context.Context, name, description string) (int64, error) {
	return s.returningID(ctx, "product",
		`INSERT INTO products (name, description) VALUES ($1, $2) RETURNING id`,
		name, description)
}

// Variant creates a product variant. v.ID and v.ProductName are ignored.
func (s *Seeder) Variant(ctx context.Context, v inventory.Variant) (int64, error) {
	return s.returningID(ctx, "variant",
		`INSERT INTO product_variants (product_id, size_name, color_name, price, discounted_price, bonus_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		v.ProductID, v.SizeName, v.ColorName, v.Price, v.DiscountedPrice, v.BonusPrice, v.QuantityOnHand)
}

// APIKey registers an already hashed API key.
func (s *Seeder) APIKey(ctx context.Context, k auth.APIKeyInfo) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, key_hash, name, scopes) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		k.ID, k.UserID, k.KeyHash, k.Name, k.Scopes)
	if err != nil {
		return errors.Wrapf(err, "insert api key %s", k.ID)
	}
	return nil
}
