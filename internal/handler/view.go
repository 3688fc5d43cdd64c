package handler

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/shop-checkout/internal/domain/order"
	"github.com/xenking/shop-checkout/internal/money"
)

// orderView is the single JSON rendering of an order.
type orderView struct {
	ID               uuid.UUID  `json:"id"`
	UserID           int64      `json:"user_id"`
	Status           string     `json:"status"`
	StatusLabel      string     `json:"status_label"`
	IsPickup         bool       `json:"is_pickup"`
	UserAddressID    *int64     `json:"user_address_id,omitempty"`
	WarehouseID      *int64     `json:"warehouse_id,omitempty"`
	WarehouseCity    string     `json:"warehouse_city,omitempty"`
	DeliveryInfo     string     `json:"delivery_info,omitempty"`
	PaymentMethod    string     `json:"payment_method"`
	Change           string     `json:"change"`
	OrderSource      string     `json:"order_source"`
	Comment          string     `json:"comment,omitempty"`
	PromoCode        string     `json:"promo_code,omitempty"`
	Subtotal         string     `json:"subtotal"`
	Discount         string     `json:"discount"`
	TotalAmount      string     `json:"total_amount"`
	TotalBonusAmount string     `json:"total_bonus_amount"`
	CashAmount       string     `json:"cash_amount"`
	EstimatedBonus   int64      `json:"estimated_bonus"`
	BonusApplied     bool       `json:"bonus_applied"`
	Items            []itemView `json:"items"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type itemView struct {
	ID          int64  `json:"id"`
	VariantID   int64  `json:"variant_id,omitempty"`
	ProductName string `json:"product_name"`
	SizeName    string `json:"size_name,omitempty"`
	ColorName   string `json:"color_name,omitempty"`
	Quantity    int    `json:"quantity"`
	IsBonus     bool   `json:"is_bonus"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

// viewer renders orders, caching warehouse cities for one response.
type viewer struct {
	h      *Handler
	cities map[int64]string
}

func (h *Handler) viewer() *viewer {
	return &viewer{h: h, cities: make(map[int64]string)}
}

func (v *viewer) city(ctx context.Context, id int64) string {
	if c, ok := v.cities[id]; ok {
		return c
	}
	w, err := v.h.accounts.GetWarehouse(ctx, id)
	if err != nil {
		zctx.From(ctx).Warn("Warehouse lookup failed", zap.Int64("warehouse_id", id), zap.Error(err))
		return ""
	}
	v.cities[id] = w.City
	return w.City
}

func (v *viewer) order(ctx context.Context, o *order.Order) orderView {
	out := orderView{
		ID:               o.ID,
		UserID:           o.UserID,
		Status:           string(o.Status),
		StatusLabel:      o.Status.Label(),
		IsPickup:         o.IsPickup,
		UserAddressID:    o.AddressID,
		WarehouseID:      o.WarehouseID,
		PaymentMethod:    string(o.PaymentMethod),
		Change:           money.Format(o.Change),
		OrderSource:      string(o.Source),
		Comment:          o.Comment,
		PromoCode:        o.PromoCode,
		Subtotal:         money.Format(o.Subtotal),
		Discount:         money.Format(o.Discount),
		TotalAmount:      money.Format(o.TotalAmount),
		TotalBonusAmount: money.Format(o.TotalBonusAmount),
		CashAmount:       money.Format(o.CashAmount()),
		EstimatedBonus:   v.h.orders.EstimateEarnedBonus(o),
		BonusApplied:     o.BonusApplied,
		Items:            make([]itemView, len(o.Items)),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
	if o.IsPickup {
		if o.WarehouseID != nil {
			out.WarehouseCity = v.city(ctx, *o.WarehouseID)
		}
	} else {
		out.DeliveryInfo = v.h.deliveryInfo
	}
	for i, it := range o.Items {
		out.Items[i] = itemView{
			ID:          it.ID,
			VariantID:   it.VariantID,
			ProductName: it.ProductName,
			SizeName:    it.SizeName,
			ColorName:   it.ColorName,
			Quantity:    it.Quantity,
			IsBonus:     it.BonusFunded,
			UnitPrice:   money.Format(it.UnitPrice),
			LineTotal:   money.Format(it.LineTotal),
		}
	}
	return out
}
