package checkout

import (
	"github.com/go-faster/errors"

	"github.com/xenking/shop-checkout/internal/domain/account"
	"github.com/xenking/shop-checkout/internal/domain/bonus"
	"github.com/xenking/shop-checkout/internal/domain/inventory"
	"github.com/xenking/shop-checkout/internal/domain/order"
	"github.com/xenking/shop-checkout/internal/domain/promo"
)

// Error kinds reported to clients and used as metric labels.
const (
	KindValidationFailed         = "validation_failed"
	KindMissingDeliveryTarget    = "missing_delivery_target"
	KindInvalidAddress           = "invalid_address"
	KindVariantNotFound          = "variant_not_found"
	KindInsufficientStock        = "insufficient_stock"
	KindInvalidPromoCode         = "invalid_promo_code"
	KindInsufficientBonusBalance = "insufficient_bonus_balance"
	KindInvalidTransition        = "invalid_transition"
	KindNotFound                 = "not_found"
	KindInternal                 = "internal"
)

// ErrorKind classifies an error returned by the checkout and order services.
func ErrorKind(err error) string {
	var (
		validation *ValidationError
		quantity   *inventory.InvalidQuantityError
		variant    *inventory.VariantNotFoundError
		stock      *inventory.InsufficientStockError
		balance    *bonus.InsufficientBonusBalanceError
		transition *order.InvalidTransitionError
	)
	switch {
	case errors.As(err, &validation),
		errors.As(err, &quantity),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidPaymentMethod):
		return KindValidationFailed
	case errors.Is(err, order.ErrMissingDeliveryTarget):
		return KindMissingDeliveryTarget
	case errors.Is(err, order.ErrInvalidAddress):
		return KindInvalidAddress
	case errors.As(err, &variant):
		return KindVariantNotFound
	case errors.As(err, &stock):
		return KindInsufficientStock
	case errors.Is(err, promo.ErrInvalidPromoCode):
		return KindInvalidPromoCode
	case errors.As(err, &balance):
		return KindInsufficientBonusBalance
	case errors.As(err, &transition):
		return KindInvalidTransition
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, promo.ErrNotFound),
		errors.Is(err, bonus.ErrUserNotFound),
		errors.Is(err, account.ErrAddressNotFound):
		return KindNotFound
	}
	return KindInternal
}
