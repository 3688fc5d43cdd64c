// Package checkout turns customer carts into orders and runs the post-commit
// side effects: payment initiation and notifications.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/shop-checkout/internal/domain/order"
	"github.com/xenking/shop-checkout/internal/money"
	"github.com/xenking/shop-checkout/internal/notify"
	"github.com/xenking/shop-checkout/internal/payment"
)

const instrumentationName = "github.com/xenking/shop-checkout/internal/checkout"

// Options configures a Service. Nil providers fall back to the otel globals.
type Options struct {
	Gateway        payment.Gateway
	Notifier       notify.Notifier
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	// NotifyTimeout bounds each notification delivery.
	NotifyTimeout time.Duration
}

// Result is a placed order plus the outcome of its side effects.
type Result struct {
	Order *order.Order
	// PaymentURL is set when a gateway payment was started.
	PaymentURL string
	// PaymentErr is set when starting the payment failed. The order stands.
	PaymentErr error
	// EarnedBonus is the cashback the order will earn on completion.
	EarnedBonus int64
}

// Service is the checkout use case.
type Service struct {
	orders        *order.Service
	gateway       payment.Gateway
	notifier      notify.Notifier
	validate      *validatorv10.Validate
	notifyTimeout time.Duration

	tracer  trace.Tracer
	created metric.Int64Counter
	failed  metric.Int64Counter

	wg sync.WaitGroup
}

// NewService wires the checkout use case.
func NewService(orders *order.Service, opts Options) (*Service, error) {
	if opts.Gateway == nil {
		return nil, errors.New("payment gateway is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.LogNotifier{}
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = otel.GetMeterProvider()
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 5 * time.Second
	}

	meter := opts.MeterProvider.Meter(instrumentationName)
	created, err := meter.Int64Counter("checkout.orders.created",
		metric.WithDescription("Orders placed successfully"))
	if err != nil {
		return nil, errors.Wrap(err, "create counter")
	}
	failed, err := meter.Int64Counter("checkout.orders.failed",
		metric.WithDescription("Checkouts rejected, by reason"))
	if err != nil {
		return nil, errors.Wrap(err, "create counter")
	}

	return &Service{
		orders:        orders,
		gateway:       opts.Gateway,
		notifier:      opts.Notifier,
		validate:      NewValidator(),
		notifyTimeout: opts.NotifyTimeout,
		tracer:        opts.TracerProvider.Tracer(instrumentationName),
		created:       created,
		failed:        failed,
	}, nil
}

// Checkout validates req, places the order and then runs best-effort side
// effects. Side-effect failures never undo the order.
func (s *Service) Checkout(ctx context.Context, userID int64, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Checkout",
		trace.WithAttributes(attribute.Int64("user.id", userID)))
	defer span.End()

	o, err := s.place(ctx, userID, req)
	if err != nil {
		kind := ErrorKind(err)
		s.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", kind)))
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		return nil, err
	}
	s.created.Add(ctx, 1, metric.WithAttributes(attribute.String("source", string(o.Source))))
	span.SetAttributes(attribute.String("order.id", o.ID.String()))

	lg := zctx.From(ctx).With(zap.Stringer("order_id", o.ID))
	lg.Info("Order created",
		zap.Int64("user_id", userID),
		zap.String("total_amount", money.Format(o.TotalAmount)),
		zap.String("discount", money.Format(o.Discount)),
		zap.Int("items", len(o.Items)),
	)

	res := &Result{Order: o, EarnedBonus: s.orders.EstimateEarnedBonus(o)}

	if o.PaymentMethod.RequiresGateway() && o.CashAmount().IsPositive() {
		res.PaymentURL, res.PaymentErr = s.gateway.Initiate(ctx, payment.Intent{
			OrderID: o.ID,
			UserID:  o.UserID,
			Amount:  o.CashAmount(),
		})
		if res.PaymentErr != nil {
			lg.Warn("Payment initiation failed", zap.Error(res.PaymentErr))
		}
	}

	s.notify(ctx, notify.OrderCreated(o))
	return res, nil
}

func (s *Service) place(ctx context.Context, userID int64, req Request) (*order.Order, error) {
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}
	return s.orders.CreateOrder(ctx, req.toCreate(userID))
}

// Advance moves an order to a new status and notifies the customer.
func (s *Service) Advance(ctx context.Context, id uuid.UUID, to order.Status) (*order.TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Advance",
		trace.WithAttributes(attribute.String("order.id", id.String()), attribute.String("order.status", string(to))))
	defer span.End()

	res, err := s.orders.Transition(ctx, id, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorKind(err))
		return nil, err
	}

	zctx.From(ctx).Info("Order status changed",
		zap.Stringer("order_id", id),
		zap.String("from", string(res.From)),
		zap.String("to", string(res.Order.Status)),
		zap.Int64("bonus_credited", res.Earned),
	)
	s.notify(ctx, notify.StatusChanged(res.Order))
	return res, nil
}

// notify delivers e in the background, detached from the request lifetime.
func (s *Service) notify(ctx context.Context, e notify.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if err := s.notifier.Notify(ctx, e); err != nil {
			zctx.From(ctx).Warn("Notification failed",
				zap.Stringer("order_id", e.OrderID),
				zap.String("kind", string(e.Kind)),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until pending notifications finish.
func (s *Service) Wait() {
	s.wg.Wait()
}
