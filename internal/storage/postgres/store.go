package postgres

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xenking/shop-checkout/internal/domain/account"
	"github.com/xenking/shop-checkout/internal/domain/bonus"
	"github.com/xenking/shop-checkout/internal/domain/inventory"
	"github.com/xenking/shop-checkout/internal/domain/order"
	"github.com/xenking/shop-checkout/internal/domain/promo"
)

// RetryConfig bounds how transactions that lost a concurrency race are
// retried.
type RetryConfig struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig is used for zero RetryConfig fields.
var DefaultRetryConfig = RetryConfig{
	MaxTries:        3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
}

type unit struct {
	db DBTX
}

func (u unit) Inventory() inventory.Repository { return &InventoryRepository{db: u.db} }
func (u unit) Promos() promo.Repository        { return &PromoRepository{db: u.db} }
func (u unit) Bonus() bonus.Repository         { return &BonusRepository{db: u.db} }
func (u unit) Accounts() account.Repository    { return &AccountRepository{db: u.db} }
func (u unit) Orders() order.Repository        { return &OrderRepository{db: u.db} }

// Store implements order.Store on a connection pool.
type Store struct {
	unit
	pool  *pgxpool.Pool
	retry RetryConfig
}

var _ order.Store = (*Store)(nil)

// NewStore returns a Store using pool.
func NewStore(pool *pgxpool.Pool, retry RetryConfig) *Store {
	if retry.MaxTries == 0 {
		retry.MaxTries = DefaultRetryConfig.MaxTries
	}
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = DefaultRetryConfig.InitialInterval
	}
	if retry.MaxInterval <= 0 {
		retry.MaxInterval = DefaultRetryConfig.MaxInterval
	}
	return &Store{unit: unit{db: pool}, pool: pool, retry: retry}
}

// InTx runs fn in a READ COMMITTED transaction. Serialization failures,
// deadlocks and lock timeouts restart the whole transaction with
// exponential backoff; every other error is returned as is.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, uow order.UnitOfWork) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retry.InitialInterval
	b.MaxInterval = s.retry.MaxInterval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
			return fn(ctx, unit{db: tx})
		})
		if err == nil {
			return struct{}{}, nil
		}
		if !IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		zctx.From(ctx).Debug("Retrying transaction", zap.Int("attempt", attempt), zap.Error(err))
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.retry.MaxTries))
	return err
}

// IsRetryable reports whether err is a transient PostgreSQL concurrency
// failure.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"55P03": // lock_not_available
		return true
	}
	return false
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
