package postgres

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/xenking/shop-checkout/internal/domain/inventory"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "deadlock", err: errors.Wrap(&pgconn.PgError{Code: "40P01"}, "commit"), want: true},
		{name: "lock timeout", err: &pgconn.PgError{Code: "55P03"}, want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: false},
		{name: "domain error", err: &inventory.InsufficientStockError{}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestNewStore_Defaults(t *testing.T) {
	s := NewStore(nil, RetryConfig{MaxTries: 5})
	assert.Equal(t, uint(5), s.retry.MaxTries)
	assert.Equal(t, DefaultRetryConfig.InitialInterval, s.retry.InitialInterval)
	assert.Equal(t, DefaultRetryConfig.MaxInterval, s.retry.MaxInterval)
}
