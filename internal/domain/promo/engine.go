package promo

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// Engine validates promo codes against a clock.
type Engine struct {
	repo Repository
	now  func() time.Time
}

// NewEngine creates an Engine backed by repo using the wall clock.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// NewEngineAt creates an Engine whose notion of "now" comes from clock.
func NewEngineAt(repo Repository, clock func() time.Time) *Engine {
	return &Engine{repo: repo, now: clock}
}

// Lookup returns the promo code regardless of its validity.
func (e *Engine) Lookup(ctx context.Context, code string) (*PromoCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrNotFound
	}
	p, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup promo code")
	}
	return p, nil
}

// Validate returns the promo code when it can be applied right now and
// ErrInvalidPromoCode when it is unknown, inactive or expired.
func (e *Engine) Validate(ctx context.Context, code string) (*PromoCode, error) {
	p, err := e.Lookup(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, errors.Wrapf(ErrInvalidPromoCode, "code %q not found", code)
		}
		return nil, err
	}
	if !p.IsValid(e.now()) {
		return nil, errors.Wrapf(ErrInvalidPromoCode, "code %q is not active", p.Code)
	}
	return p, nil
}
