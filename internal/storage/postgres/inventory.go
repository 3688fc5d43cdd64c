package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/shop-checkout/internal/domain/inventory"
)

const variantColumns = `v.id, v.product_id, p.name, v.size_name, v.color_name,
	v.price, v.discounted_price, v.bonus_price, v.quantity`

const getVariantSQL = `SELECT ` + variantColumns + `
	FROM product_variants v JOIN products p ON p.id = v.product_id
	WHERE v.id = $1`

const getVariantsSQL = `SELECT ` + variantColumns + `
	FROM product_variants v JOIN products p ON p.id = v.product_id
	WHERE v.id = ANY($1)
	ORDER BY v.id`

// The guard in the WHERE clause makes check-and-decrement a single atomic
// statement; concurrent reservations can never drive stock negative.
const decrementStockSQL = `UPDATE product_variants
	SET quantity = quantity - $2
	WHERE id = $1 AND quantity >= $2
	RETURNING quantity`

const stockSQL = `SELECT p.name, v.quantity
	FROM product_variants v JOIN products p ON p.id = v.product_id
	WHERE v.id = $1`

var _ inventory.Repository = (*InventoryRepository)(nil)

// InventoryRepository implements inventory.Repository.
type InventoryRepository struct {
	db DBTX
}

// NewInventoryRepository returns an InventoryRepository using db.
func NewInventoryRepository(db DBTX) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func scanVariant(row pgx.Row) (inventory.Variant, error) {
	var v inventory.Variant
	err := row.Scan(
		&v.ID, &v.ProductID, &v.ProductName, &v.SizeName, &v.ColorName,
		&v.Price, &v.DiscountedPrice, &v.BonusPrice, &v.QuantityOnHand,
	)
	return v, err
}

// GetVariant returns *inventory.VariantNotFoundError for unknown ids.
func (r *InventoryRepository) GetVariant(ctx context.Context, id int64) (*inventory.Variant, error) {
	v, err := scanVariant(r.db.QueryRow(ctx, getVariantSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &inventory.VariantNotFoundError{VariantID: id}
		}
		return nil, errors.Wrapf(err, "get variant %d", id)
	}
	return &v, nil
}

// GetVariants returns the existing variants among ids, skipping unknown ones.
func (r *InventoryRepository) GetVariants(ctx context.Context, ids []int64) ([]inventory.Variant, error) {
	rows, err := r.db.Query(ctx, getVariantsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "query variants")
	}
	defer rows.Close()

	var out []inventory.Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan variant")
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate variants")
	}
	return out, nil
}

// Decrement atomically takes qty units off the variant's stock.
func (r *InventoryRepository) Decrement(ctx context.Context, id int64, qty int) (int, error) {
	var remaining int
	err := r.db.QueryRow(ctx, decrementStockSQL, id, qty).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, errors.Wrapf(err, "decrement variant %d", id)
	}

	var (
		name      string
		available int
	)
	if err := r.db.QueryRow(ctx, stockSQL, id).Scan(&name, &available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &inventory.VariantNotFoundError{VariantID: id}
		}
		return 0, errors.Wrapf(err, "get stock of variant %d", id)
	}
	return available, &inventory.InsufficientStockError{
		VariantID: id,
		Product:   name,
		Requested: qty,
		Available: available,
	}
}
