package checkout

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xenking/shop-checkout/internal/domain/order"
)

// Item is one requested cart line.
type Item struct {
	VariantID int64 `json:"variant_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1"`
	IsBonus   bool  `json:"is_bonus"`
}

// Request is the checkout payload submitted by a customer.
type Request struct {
	Products      []Item `json:"products" validate:"required,min=1,dive"`
	IsPickup      bool   `json:"is_pickup"`
	UserAddressID *int64 `json:"user_address_id" validate:"omitempty,gt=0"`
	WarehouseID   *int64 `json:"warehouse_id" validate:"omitempty,gt=0"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,oneof=card cash online"`
	// Change is the banknote amount the courier should bring change for.
	Change      int64  `json:"change" validate:"min=0"`
	OrderSource string `json:"order_source" validate:"omitempty,oneof=mobile web unknown"`
	Comment     string `json:"comment" validate:"max=1000"`
	PromoCode   string `json:"promo_code" validate:"max=10"` // promo.MaxCodeLength
}

func (r Request) toCreate(userID int64) order.CreateRequest {
	items := make([]order.ItemRequest, len(r.Products))
	for i, p := range r.Products {
		items[i] = order.ItemRequest{VariantID: p.VariantID, Quantity: p.Quantity, BonusFunded: p.IsBonus}
	}
	return order.CreateRequest{
		UserID:        userID,
		Items:         items,
		IsPickup:      r.IsPickup,
		AddressID:     r.UserAddressID,
		WarehouseID:   r.WarehouseID,
		PaymentMethod: order.PaymentMethod(r.PaymentMethod),
		Change:        decimal.NewFromInt(r.Change),
		Source:        order.Source(r.OrderSource),
		PromoCode:     strings.TrimSpace(r.PromoCode),
		Comment:       strings.TrimSpace(r.Comment),
	}
}

// ValidationError lists request fields that failed validation, keyed by
// their JSON path.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidator returns a validator reporting JSON field names.
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(requestStructValidation, Request{})
	return v
}

// requestStructValidation only allows change for cash payments.
func requestStructValidation(sl validatorv10.StructLevel) {
	r := sl.Current().Interface().(Request)
	if r.Change > 0 && order.PaymentMethod(r.PaymentMethod) != order.PaymentCash {
		sl.ReportError(r.Change, "change", "Change", "cash_only", "")
	}
}

func validate(v *validatorv10.Validate, r Request) error {
	err := v.Struct(r)
	if err == nil {
		return nil
	}
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return errors.Wrap(err, "validate request")
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		fields[path] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "cash_only":
		return "is only accepted for cash payments"
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}
