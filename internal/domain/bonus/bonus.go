package bonus

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Source identifies the channel an order was placed through. Cashback rates
// differ per channel.
type Source string

const (
	SourceMobile  Source = "mobile"
	SourceWeb     Source = "web"
	SourceUnknown Source = "unknown"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceMobile, SourceWeb, SourceUnknown:
		return true
	}
	return false
}

// ErrUserNotFound is returned when the balance owner does not exist.
var ErrUserNotFound = errors.New("user not found")

// InsufficientBonusBalanceError indicates a debit larger than the balance.
// The balance is left untouched when it is returned.
type InsufficientBonusBalanceError struct {
	UserID    int64
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBonusBalanceError) Error() string {
	return fmt.Sprintf("insufficient bonus balance for user %d: available %s, requested %s",
		e.UserID, e.Available.String(), e.Requested.String())
}

// CashbackConfig holds the cashback rates in whole percent and the minimum
// order amount, in whole currency units, that earns anything.
type CashbackConfig struct {
	MobilePercent  int
	WebPercent     int
	UnknownPercent int
	MinOrderPrice  int64
}

// PercentFor returns the cashback percent configured for source.
func (c CashbackConfig) PercentFor(source Source) int {
	switch source {
	case SourceMobile:
		return c.MobilePercent
	case SourceWeb:
		return c.WebPercent
	default:
		return c.UnknownPercent
	}
}

// Repository stores user bonus balances.
type Repository interface {
	// Balance returns ErrUserNotFound for unknown users.
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	// Debit subtracts amount only when the balance covers it and returns
	// *InsufficientBonusBalanceError otherwise.
	Debit(ctx context.Context, userID int64, amount decimal.Decimal) (remaining decimal.Decimal, err error)
	// Credit adds amount to the balance.
	Credit(ctx context.Context, userID int64, amount decimal.Decimal) (balance decimal.Decimal, err error)
}
