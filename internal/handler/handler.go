// Package handler exposes the checkout and order services over HTTP.
package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/shop-checkout/internal/checkout"
	"github.com/xenking/shop-checkout/internal/domain/account"
	"github.com/xenking/shop-checkout/internal/domain/auth"
	"github.com/xenking/shop-checkout/internal/domain/order"
	"github.com/xenking/shop-checkout/internal/domain/promo"
)

// DefaultDeliveryInfo is shown on delivery orders when no message is
// configured.
const DefaultDeliveryInfo = "Confirm the delivery fee with the operator"

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// APIKeyPepper is the HMAC key API keys are hashed with.
	APIKeyPepper []byte
	// DeliveryInfo is attached to orders that are not picked up.
	DeliveryInfo string
}

// Handler serves the /api routes.
type Handler struct {
	checkout *checkout.Service
	orders   *order.Service
	promos   *promo.Engine
	accounts account.Repository
	keys     auth.Repository

	pepper       []byte
	deliveryInfo string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg Config,
	checkoutSvc *checkout.Service,
	orders *order.Service,
	promos *promo.Engine,
	accounts account.Repository,
	keys auth.Repository,
) *Handler {
	if cfg.DeliveryInfo == "" {
		cfg.DeliveryInfo = DefaultDeliveryInfo
	}
	return &Handler{
		checkout:     checkoutSvc,
		orders:       orders,
		promos:       promos,
		accounts:     accounts,
		keys:         keys,
		pepper:       cfg.APIKeyPepper,
		deliveryInfo: cfg.DeliveryInfo,
	}
}

type access int

const (
	public access = iota
	customer
	operator
)

// handlerFunc is an endpoint; a returned error is rendered by writeError.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	h.route(mux, "POST /api/orders", customer, h.createOrder)
	h.route(mux, "GET /api/orders", customer, h.listOrders)
	h.route(mux, "GET /api/orders/{id}", customer, h.getOrder)
	h.route(mux, "PATCH /api/orders/{id}/status", operator, h.updateStatus)
	h.route(mux, "GET /api/orders/{id}/reconciliation", operator, h.reconcile)
	h.route(mux, "GET /api/promo-codes/{code}", public, h.getPromoCode)
}

func (h *Handler) route(mux *http.ServeMux, pattern string, level access, fn handlerFunc) {
	_, path, _ := strings.Cut(pattern, " ")
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		trace.SpanFromContext(ctx).SetName(pattern)
		if labeler, ok := otelhttp.LabelerFromContext(ctx); ok {
			labeler.Add(attribute.String("http.route", path))
		}

		if level != public {
			key, err := h.authenticate(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if level == operator && !key.HasScope(auth.ScopeOperator) {
				writeError(w, r, errForbidden)
				return
			}
			lg := zctx.From(ctx).With(zap.Int64("user_id", key.UserID), zap.String("api_key_id", key.ID))
			ctx = zctx.Base(auth.WithPrincipal(ctx, key), lg)
			r = r.WithContext(ctx)
		}

		if err := fn(w, r); err != nil {
			writeError(w, r, err)
		}
	}))
}
