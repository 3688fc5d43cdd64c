package bonus

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeEarned returns the whole bonus points earned by an order of the given
// amount. Amounts below the configured minimum earn nothing; the result is
// rounded down.
func ComputeEarned(amount decimal.Decimal, source Source, cfg CashbackConfig) int64 {
	if amount.IsNegative() || amount.LessThan(decimal.NewFromInt(cfg.MinOrderPrice)) {
		return 0
	}
	pct := cfg.PercentFor(source)
	if pct <= 0 {
		return 0
	}
	return amount.Mul(decimal.NewFromInt(int64(pct))).Div(hundred).Floor().IntPart()
}

// Ledger debits and credits user bonus balances.
type Ledger struct {
	repo Repository
	cfg  CashbackConfig
}

// NewLedger returns a Ledger over repo using cfg for cashback rates.
func NewLedger(repo Repository, cfg CashbackConfig) *Ledger {
	return &Ledger{repo: repo, cfg: cfg}
}

// ComputeEarned applies the ledger's cashback config to amount.
func (l *Ledger) ComputeEarned(amount decimal.Decimal, source Source) int64 {
	return ComputeEarned(amount, source, l.cfg)
}

// Balance returns the user's current balance.
func (l *Ledger) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	b, err := l.repo.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, errors.Wrapf(err, "get balance of user %d", userID)
	}
	return b, nil
}

// Debit pays amount out of the user's balance. A zero amount is a no-op.
func (l *Ledger) Debit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return errors.Errorf("debit amount must not be negative, got %s", amount)
	}
	if amount.IsZero() {
		return nil
	}

	if _, err := l.repo.Debit(ctx, userID, amount); err != nil {
		var ibe *InsufficientBonusBalanceError
		if errors.As(err, &ibe) {
			return ibe
		}
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return errors.Wrapf(err, "debit user %d", userID)
	}
	return nil
}

// Credit adds amount to the user's balance. Callers guarantee it runs at
// most once per order.
func (l *Ledger) Credit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	if _, err := l.repo.Credit(ctx, userID, amount); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return errors.Wrapf(err, "credit user %d", userID)
	}
	return nil
}
