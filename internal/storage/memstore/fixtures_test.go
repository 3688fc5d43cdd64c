package memstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/shop-checkout/internal/domain/promo"
)

func promoFixture(code string) promo.PromoCode {
	now := time.Now()
	return promo.PromoCode{
		Code:      code,
		Type:      promo.TypePercentage,
		Discount:  decimal.NewFromInt(10),
		ValidFrom: now.Add(-time.Hour),
		ValidTo:   now.Add(time.Hour),
		Active:    true,
	}
}
