package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop-checkout/internal/domain/bonus"
)

const balanceSQL = `SELECT bonus_balance FROM users WHERE id = $1`

const debitSQL = `UPDATE users
	SET bonus_balance = bonus_balance - $2
	WHERE id = $1 AND bonus_balance >= $2
	RETURNING bonus_balance`

const creditSQL = `UPDATE users
	SET bonus_balance = bonus_balance + $2
	WHERE id = $1
	RETURNING bonus_balance`

var _ bonus.Repository = (*BonusRepository)(nil)

// BonusRepository implements bonus.Repository on users.bonus_balance.
type BonusRepository struct {
	db DBTX
}

// NewBonusRepository returns a BonusRepository using db.
func NewBonusRepository(db DBTX) *BonusRepository {
	return &BonusRepository{db: db}
}

func (r *BonusRepository) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var b decimal.Decimal
	if err := r.db.QueryRow(ctx, balanceSQL, userID).Scan(&b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, bonus.ErrUserNotFound
		}
		return decimal.Zero, errors.Wrapf(err, "get balance of user %d", userID)
	}
	return b, nil
}

func (r *BonusRepository) Debit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var remaining decimal.Decimal
	err := r.db.QueryRow(ctx, debitSQL, userID, amount).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, errors.Wrapf(err, "debit user %d", userID)
	}

	available, err := r.Balance(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return available, &bonus.InsufficientBonusBalanceError{
		UserID:    userID,
		Available: available,
		Requested: amount,
	}
}

func (r *BonusRepository) Credit(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var b decimal.Decimal
	if err := r.db.QueryRow(ctx, creditSQL, userID, amount).Scan(&b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, bonus.ErrUserNotFound
		}
		return decimal.Zero, errors.Wrapf(err, "credit user %d", userID)
	}
	return b, nil
}
