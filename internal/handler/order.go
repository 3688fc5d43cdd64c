package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/shop-checkout/internal/checkout"
	"github.com/xenking/shop-checkout/internal/domain/auth"
	"github.com/xenking/shop-checkout/internal/domain/order"
	"github.com/xenking/shop-checkout/internal/money"
)

type checkoutResponse struct {
	Order        orderView `json:"order"`
	PaymentURL   string    `json:"payment_url,omitempty"`
	PaymentError string    `json:"payment_error,omitempty"`
	EarnedBonus  int64     `json:"earned_bonus"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) error {
	var req checkout.Request
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}

	res, err := h.checkout.Checkout(r.Context(), principal(r).UserID, req)
	if err != nil {
		return err
	}

	resp := checkoutResponse{
		Order:       h.viewer().order(r.Context(), res.Order),
		PaymentURL:  res.PaymentURL,
		EarnedBonus: res.EarnedBonus,
	}
	if res.PaymentErr != nil {
		resp.PaymentError = "payment could not be started, retry from the order page"
	}
	writeJSON(w, http.StatusCreated, resp)
	return nil
}

type orderList struct {
	Orders []orderView `json:"orders"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(name + " must be an integer")
	}
	return n, nil
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) error {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return err
	}
	page := order.Page{Limit: limit, Offset: offset}.Normalize()

	orders, err := h.orders.ListByUser(r.Context(), principal(r).UserID, page)
	if err != nil {
		return err
	}
	v := h.viewer()
	out := orderList{Orders: make([]orderView, len(orders)), Limit: page.Limit, Offset: page.Offset}
	for i := range orders {
		out.Orders[i] = v.order(r.Context(), &orders[i])
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func orderID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, errOrderMissing
	}
	return id, nil
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) error {
	id, err := orderID(r)
	if err != nil {
		return err
	}
	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return errOrderMissing
		}
		return err
	}
	// Other customers' orders are indistinguishable from missing ones.
	if key := principal(r); o.UserID != key.UserID && !key.HasScope(auth.ScopeOperator) {
		return errOrderMissing
	}
	writeJSON(w, http.StatusOK, h.viewer().order(r.Context(), o))
	return nil
}

type statusRequest struct {
	Status string `json:"status"`
}

type statusResponse struct {
	Order         orderView `json:"order"`
	From          string    `json:"from"`
	BonusCredited int64     `json:"bonus_credited"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) error {
	id, err := orderID(r)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	to := order.Status(req.Status)
	if !to.Valid() {
		return badRequest("unknown status " + strconv.Quote(req.Status))
	}

	res, err := h.checkout.Advance(r.Context(), id, to)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Order:         h.viewer().order(r.Context(), res.Order),
		From:          string(res.From),
		BonusCredited: res.Earned,
	})
	return nil
}

type reconciliationView struct {
	OrderID           uuid.UUID `json:"order_id"`
	StoredTotal       string    `json:"stored_total"`
	RecomputedTotal   string    `json:"recomputed_total"`
	Subtotal          string    `json:"subtotal"`
	Discount          string    `json:"discount"`
	LiveSubtotal      string    `json:"live_subtotal"`
	Drift             string    `json:"drift"`
	Consistent        bool      `json:"consistent"`
	PromoCodeResolved bool      `json:"promo_code_resolved"`
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) error {
	id, err := orderID(r)
	if err != nil {
		return err
	}
	rec, err := h.orders.Reconcile(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			return errOrderMissing
		}
		return err
	}
	writeJSON(w, http.StatusOK, reconciliationView{
		OrderID:           rec.OrderID,
		StoredTotal:       money.Format(rec.StoredTotal),
		RecomputedTotal:   money.Format(rec.Recomputed.Total),
		Subtotal:          money.Format(rec.Recomputed.Subtotal),
		Discount:          money.Format(rec.Recomputed.Discount),
		LiveSubtotal:      money.Format(rec.LiveSubtotal),
		Drift:             money.Format(rec.Drift),
		Consistent:        rec.Consistent,
		PromoCodeResolved: rec.PromoResolved,
	})
	return nil
}
