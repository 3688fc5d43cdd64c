package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/shop-checkout/internal/checkout"
	"github.com/xenking/shop-checkout/internal/domain/promo"
	"github.com/xenking/shop-checkout/internal/money"
)

type promoView struct {
	Code      string    `json:"code"`
	Type      string    `json:"type"`
	Discount  string    `json:"discount"`
	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`
}

// getPromoCode reports a code only while it can be applied.
func (h *Handler) getPromoCode(w http.ResponseWriter, r *http.Request) error {
	p, err := h.promos.Validate(r.Context(), r.PathValue("code"))
	if err != nil {
		if errors.Is(err, promo.ErrInvalidPromoCode) {
			return &apiError{Status: http.StatusNotFound, Kind: checkout.KindNotFound, Message: "promo code not found"}
		}
		return err
	}
	writeJSON(w, http.StatusOK, promoView{
		Code:      p.Code,
		Type:      string(p.Type),
		Discount:  money.Format(p.Discount),
		ValidFrom: p.ValidFrom,
		ValidTo:   p.ValidTo,
	})
	return nil
}
