package promo

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		name       string
		subtotal   string
		promo      PromoCode
		wantAmount string
		wantTotal  string
	}{
		{
			name:       "percentage",
			subtotal:   "1000",
			promo:      PromoCode{Type: TypePercentage, Discount: d("10")},
			wantAmount: "100",
			wantTotal:  "900",
		},
		{
			name:       "percentage rounds half up",
			subtotal:   "10.05",
			promo:      PromoCode{Type: TypePercentage, Discount: d("50")},
			wantAmount: "5.03",
			wantTotal:  "5.02",
		},
		{
			name:       "fixed below subtotal",
			subtotal:   "1000",
			promo:      PromoCode{Type: TypeFixed, Discount: d("150")},
			wantAmount: "150",
			wantTotal:  "850",
		},
		{
			name:       "fixed clamped to subtotal",
			subtotal:   "1000",
			promo:      PromoCode{Type: TypeFixed, Discount: d("2000")},
			wantAmount: "1000",
			wantTotal:  "0",
		},
		{
			name:       "percentage over one hundred clamped",
			subtotal:   "80",
			promo:      PromoCode{Type: TypePercentage, Discount: d("150")},
			wantAmount: "80",
			wantTotal:  "0",
		},
		{
			name:       "zero subtotal",
			subtotal:   "0",
			promo:      PromoCode{Type: TypeFixed, Discount: d("10")},
			wantAmount: "0",
			wantTotal:  "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyDiscount(d(tt.subtotal), &tt.promo)
			require.NoError(t, err)
			assert.True(t, d(tt.wantAmount).Equal(got.Amount), "amount: got %s, want %s", got.Amount, tt.wantAmount)
			assert.True(t, d(tt.wantTotal).Equal(got.Total), "total: got %s, want %s", got.Total, tt.wantTotal)
		})
	}
}

func TestApplyDiscount_Idempotent(t *testing.T) {
	p := &PromoCode{Type: TypePercentage, Discount: d("10")}
	subtotal := d("1000")

	first, err := ApplyDiscount(subtotal, p)
	require.NoError(t, err)
	second, err := ApplyDiscount(subtotal, p)
	require.NoError(t, err)

	assert.True(t, first.Total.Equal(second.Total))
	assert.True(t, d("900").Equal(second.Total))
}

func TestApplyDiscount_UnsupportedType(t *testing.T) {
	_, err := ApplyDiscount(d("10"), &PromoCode{Type: "bogus", Discount: d("1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported promo type")
}
