package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order placement and lookup.
var (
	ErrEmptyItems            = errors.New("items required")
	ErrMissingDeliveryTarget = errors.New("missing delivery target")
	ErrInvalidAddress        = errors.New("invalid address or address does not belong to user")
	ErrInvalidPaymentMethod  = errors.New("invalid payment method")
	ErrNotFound              = errors.New("order not found")
)

// InvalidTransitionError indicates a status change the state machine forbids.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}
