package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/shop-checkout/internal/domain/promo"
)

const findPromoSQL = `SELECT code, discount_type, discount, valid_from, valid_to, is_active
	FROM promo_codes WHERE UPPER(code) = UPPER($1)`

const insertPromoSQL = `INSERT INTO promo_codes (code, discount_type, discount, valid_from, valid_to, is_active)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT DO NOTHING`

const listPromoCodesSQL = `SELECT code FROM promo_codes`

var _ promo.Repository = (*PromoRepository)(nil)

// PromoRepository implements promo.Repository.
type PromoRepository struct {
	db DBTX
}

// NewPromoRepository returns a PromoRepository using db.
func NewPromoRepository(db DBTX) *PromoRepository {
	return &PromoRepository{db: db}
}

// FindByCode matches codes case-insensitively.
func (r *PromoRepository) FindByCode(ctx context.Context, code string) (*promo.PromoCode, error) {
	var p promo.PromoCode
	err := r.db.QueryRow(ctx, findPromoSQL, code).Scan(
		&p.Code, &p.Type, &p.Discount, &p.ValidFrom, &p.ValidTo, &p.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, errors.Wrap(err, "find promo code")
	}
	return &p, nil
}

// InsertBatch stores codes in one round trip, skipping codes that already
// exist. It returns the number of inserted rows.
func (r *PromoRepository) InsertBatch(ctx context.Context, codes []promo.PromoCode) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, p := range codes {
		batch.Queue(insertPromoSQL, p.Code, string(p.Type), p.Discount, p.ValidFrom, p.ValidTo, p.Active)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	var inserted int64
	for range codes {
		tag, err := br.Exec()
		if err != nil {
			return inserted, errors.Wrap(err, "insert promo code")
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// ForEachCode calls fn with every stored code.
func (r *PromoRepository) ForEachCode(ctx context.Context, fn func(code string) error) error {
	rows, err := r.db.Query(ctx, listPromoCodesSQL)
	if err != nil {
		return errors.Wrap(err, "query promo codes")
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return errors.Wrap(err, "scan promo code")
		}
		if err := fn(code); err != nil {
			return err
		}
	}
	return rows.Err()
}
