package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/shop-checkout/internal/checkout"
	"github.com/xenking/shop-checkout/internal/domain/order"
	"github.com/xenking/shop-checkout/internal/domain/promo"
	"github.com/xenking/shop-checkout/internal/handler"
	"github.com/xenking/shop-checkout/internal/notify"
	"github.com/xenking/shop-checkout/internal/payment"
	"github.com/xenking/shop-checkout/internal/storage/postgres"
	"github.com/xenking/shop-checkout/pkg/health"
	"github.com/xenking/shop-checkout/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	store := postgres.NewStore(pool, cfg.Tx.retry())

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(store))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Side-effect adapters.
	gateway, err := payment.NewRedirectGateway(cfg.Payment.URL, cfg.Payment.Currency)
	if err != nil {
		return errors.Wrap(err, "payment gateway")
	}
	if cfg.Payment.URL == "" {
		lg.Warn("Payment URL is not configured, card and online orders get no payment link")
	}
	notifier, err := newNotifier(ctx, lg, cfg.Notify)
	if err != nil {
		return err
	}

	// Domain services.
	orderService := order.NewService(store, cfg.Cashback.domain())
	checkoutService, err := checkout.NewService(orderService, checkout.Options{
		Gateway:        gateway,
		Notifier:       notifier,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
		NotifyTimeout:  cfg.Notify.Timeout,
	})
	if err != nil {
		return errors.Wrap(err, "create checkout service")
	}

	// HTTP handlers.
	h := handler.NewHandler(
		handler.Config{APIKeyPepper: []byte(cfg.APIKeyPepper), DeliveryInfo: cfg.DeliveryInfo},
		checkoutService,
		orderService,
		promo.NewEngine(store.Promos()),
		store.Accounts(),
		postgres.NewAPIKeyRepository(pool),
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key", httpmiddleware.HeaderRequestID},
				ExposeHeaders:    []string{httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("shop-api", m),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		checkoutService.Wait()
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

func newNotifier(ctx context.Context, lg *zap.Logger, cfg NotifyConfig) (notify.Notifier, error) {
	if cfg.QueueURL == "" {
		lg.Info("Notification queue is not configured, logging events")
		return notify.LogNotifier{}, nil
	}
	client, err := notify.NewSQSClient(ctx, notify.SQSConfig{Region: cfg.Region, Endpoint: cfg.Endpoint})
	if err != nil {
		return nil, errors.Wrap(err, "create sqs client")
	}
	lg.Info("Publishing order events to SQS", zap.String("queue_url", cfg.QueueURL))
	return notify.NewSQSNotifier(client, cfg.QueueURL), nil
}
