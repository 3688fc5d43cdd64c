package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/shop-checkout/internal/domain/account"
)

const getAddressSQL = `SELECT id, user_id, city, apartment_number, entrance, floor, intercom
	FROM user_addresses WHERE id = $1`

const getWarehouseSQL = `SELECT id, city, is_primary FROM warehouses WHERE id = $1`

const primaryWarehouseSQL = `SELECT id, city, is_primary FROM warehouses
	WHERE is_primary ORDER BY id LIMIT 1`

var _ account.Repository = (*AccountRepository)(nil)

// AccountRepository implements account.Repository.
type AccountRepository struct {
	db DBTX
}

// NewAccountRepository returns an AccountRepository using db.
func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetAddress(ctx context.Context, id int64) (*account.Address, error) {
	var a account.Address
	err := r.db.QueryRow(ctx, getAddressSQL, id).Scan(
		&a.ID, &a.UserID, &a.City, &a.ApartmentNumber, &a.Entrance, &a.Floor, &a.Intercom,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAddressNotFound
		}
		return nil, errors.Wrapf(err, "get address %d", id)
	}
	return &a, nil
}

func (r *AccountRepository) GetWarehouse(ctx context.Context, id int64) (*account.Warehouse, error) {
	return r.warehouse(ctx, getWarehouseSQL, id)
}

func (r *AccountRepository) PrimaryWarehouse(ctx context.Context) (*account.Warehouse, error) {
	return r.warehouse(ctx, primaryWarehouseSQL)
}

func (r *AccountRepository) warehouse(ctx context.Context, sql string, args ...any) (*account.Warehouse, error) {
	var w account.Warehouse
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&w.ID, &w.City, &w.IsPrimary); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrWarehouseNotFound
		}
		return nil, errors.Wrap(err, "get warehouse")
	}
	return &w, nil
}
