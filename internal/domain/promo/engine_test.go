package promo

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPromoRepo struct {
	promo *PromoCode
	err   error
	code  string
}

func (m *mockPromoRepo) FindByCode(_ context.Context, code string) (*PromoCode, error) {
	m.code = code
	return m.promo, m.err
}

func TestEngine_Validate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	window := func(from, to time.Time, active bool) *PromoCode {
		return &PromoCode{
			Code: "SAVE10", Type: TypePercentage, Discount: d("10"),
			ValidFrom: from, ValidTo: to, Active: active,
		}
	}

	tests := []struct {
		name    string
		repo    *mockPromoRepo
		code    string
		wantErr error
	}{
		{
			name: "valid code",
			repo: &mockPromoRepo{promo: window(fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour), true)},
			code: "SAVE10",
		},
		{
			name: "window bounds are inclusive",
			repo: &mockPromoRepo{promo: window(fixedNow, fixedNow, true)},
			code: "SAVE10",
		},
		{
			name:    "inactive code",
			repo:    &mockPromoRepo{promo: window(fixedNow.Add(-time.Hour), fixedNow.Add(time.Hour), false)},
			code:    "SAVE10",
			wantErr: ErrInvalidPromoCode,
		},
		{
			name:    "not yet valid",
			repo:    &mockPromoRepo{promo: window(fixedNow.Add(time.Hour), fixedNow.Add(2*time.Hour), true)},
			code:    "SAVE10",
			wantErr: ErrInvalidPromoCode,
		},
		{
			name:    "expired",
			repo:    &mockPromoRepo{promo: window(fixedNow.Add(-2*time.Hour), fixedNow.Add(-time.Hour), true)},
			code:    "SAVE10",
			wantErr: ErrInvalidPromoCode,
		},
		{
			name:    "unknown code",
			repo:    &mockPromoRepo{err: ErrNotFound},
			code:    "BOGUS",
			wantErr: ErrInvalidPromoCode,
		},
		{
			name:    "blank code",
			repo:    &mockPromoRepo{},
			code:    "  ",
			wantErr: ErrInvalidPromoCode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngineAt(tt.repo, func() time.Time { return fixedNow })

			p, err := e.Validate(context.Background(), tt.code)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "SAVE10", p.Code)
		})
	}
}

func TestEngine_Validate_RepoError(t *testing.T) {
	e := NewEngine(&mockPromoRepo{err: errors.New("connection refused")})

	_, err := e.Validate(context.Background(), "SAVE10")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidPromoCode)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestEngine_Lookup_TrimsCode(t *testing.T) {
	repo := &mockPromoRepo{promo: &PromoCode{Code: "SAVE10"}}
	e := NewEngine(repo)

	_, err := e.Lookup(context.Background(), " SAVE10 ")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", repo.code)
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Regexp(t, `^[A-Z0-9]{6}$`, code)

	_, err = GenerateCode(0)
	require.Error(t, err)
	_, err = GenerateCode(MaxCodeLength + 1)
	require.Error(t, err)
}
