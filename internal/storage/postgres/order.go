package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/shop-checkout/internal/domain/order"
)

const insertOrderSQL = `INSERT INTO orders (
		id, user_id, status, is_pickup, address_id, warehouse_id, payment_method,
		change_amount, order_source, comment, promo_code, subtotal, discount,
		total_amount, total_bonus_amount, bonus_applied, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

const insertOrderItemSQL = `INSERT INTO order_items (
		order_id, variant_id, product_name, size_name, color_name, quantity,
		is_bonus, unit_price, line_total
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id`

const orderColumns = `id, user_id, status, is_pickup, address_id, warehouse_id, payment_method,
	change_amount, order_source, comment, promo_code, subtotal, discount,
	total_amount, total_bonus_amount, bonus_applied, created_at, updated_at`

const getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

const getOrderForUpdateSQL = getOrderSQL + ` FOR UPDATE`

const listOrdersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
	WHERE user_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2 OFFSET $3`

const listOrderItemsSQL = `SELECT id, order_id, variant_id, product_name, size_name, color_name,
		quantity, is_bonus, unit_price, line_total
	FROM order_items WHERE order_id = ANY($1)
	ORDER BY id`

const updateOrderStatusSQL = `UPDATE orders
	SET status = $2, bonus_applied = $3, updated_at = $4
	WHERE id = $1`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository with line items in a child
// table.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository returns an OrderRepository using db.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists o and its items. Item ids are assigned in place.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.db.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, string(o.Status), o.IsPickup, o.AddressID, o.WarehouseID, string(o.PaymentMethod),
		o.Change, string(o.Source), o.Comment, o.PromoCode, o.Subtotal, o.Discount,
		o.TotalAmount, o.TotalBonusAmount, o.BonusApplied, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %s", o.ID)
	}
	if len(o.Items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, it := range o.Items {
		var variantID *int64
		if it.VariantID != 0 {
			variantID = &it.VariantID
		}
		batch.Queue(insertOrderItemSQL,
			o.ID, variantID, it.ProductName, it.SizeName, it.ColorName, it.Quantity,
			it.BonusFunded, it.UnitPrice, it.LineTotal,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for i := range o.Items {
		if err := br.QueryRow().Scan(&o.Items[i].ID); err != nil {
			return errors.Wrapf(err, "insert item %d of order %s", i, o.ID)
		}
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.get(ctx, getOrderSQL, id)
}

// GetForUpdate locks the order row until the transaction ends.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.get(ctx, getOrderForUpdateSQL, id)
}

func (r *OrderRepository) get(ctx context.Context, sql string, id uuid.UUID) (*order.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	orders := []order.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListByUser returns the user's orders newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64, page order.Page) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, listOrdersByUserSQL, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	out := []order.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}
	rows.Close()

	if err := r.attachItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, o *order.Order) error {
	tag, err := r.db.Exec(ctx, updateOrderStatusSQL, o.ID, string(o.Status), o.BonusApplied, o.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "update order %s", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.Status, &o.IsPickup, &o.AddressID, &o.WarehouseID, &o.PaymentMethod,
		&o.Change, &o.Source, &o.Comment, &o.PromoCode, &o.Subtotal, &o.Discount,
		&o.TotalAmount, &o.TotalBonusAmount, &o.BonusApplied, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.db.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "query order items")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it        order.LineItem
			orderID   uuid.UUID
			variantID *int64
		)
		if err := rows.Scan(
			&it.ID, &orderID, &variantID, &it.ProductName, &it.SizeName, &it.ColorName,
			&it.Quantity, &it.BonusFunded, &it.UnitPrice, &it.LineTotal,
		); err != nil {
			return errors.Wrap(err, "scan order item")
		}
		if variantID != nil {
			it.VariantID = *variantID
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate order items")
	}
	return nil
}
