package checkout

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"

	"github.com/xenking/shop-checkout/internal/domain/bonus"
	"github.com/xenking/shop-checkout/internal/domain/inventory"
	"github.com/xenking/shop-checkout/internal/domain/order"
	"github.com/xenking/shop-checkout/internal/domain/promo"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&ValidationError{}, KindValidationFailed},
		{&inventory.InvalidQuantityError{}, KindValidationFailed},
		{order.ErrEmptyItems, KindValidationFailed},
		{errors.Wrap(order.ErrMissingDeliveryTarget, "pickup warehouse"), KindMissingDeliveryTarget},
		{order.ErrInvalidAddress, KindInvalidAddress},
		{&inventory.VariantNotFoundError{VariantID: 1}, KindVariantNotFound},
		{&inventory.InsufficientStockError{}, KindInsufficientStock},
		{errors.Wrap(promo.ErrInvalidPromoCode, "expired"), KindInvalidPromoCode},
		{&bonus.InsufficientBonusBalanceError{}, KindInsufficientBonusBalance},
		{&order.InvalidTransitionError{}, KindInvalidTransition},
		{order.ErrNotFound, KindNotFound},
		{errors.New("connection reset"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}
