// Package app wires the application together: configuration, storage,
// domain services, HTTP handlers, and graceful shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/rxkart/checkout-api/internal/domain/order"
	"github.com/rxkart/checkout-api/internal/gateway"
	"github.com/rxkart/checkout-api/internal/handler"
	"github.com/rxkart/checkout-api/internal/notify"
	"github.com/rxkart/checkout-api/internal/storage/postgres"
	"github.com/rxkart/checkout-api/pkg/health"
	"github.com/rxkart/checkout-api/pkg/httpmiddleware"
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

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	productRepo := postgres.NewProductRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)
	walletRepo := postgres.NewWalletRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)

	// Notification dispatch: in-app records always, push only when a
	// provider is configured.
	var pusher notify.Pusher
	if cfg.Push.AppID != "" {
		pusher = notify.NewPushClient(notify.PushConfig{
			Endpoint: cfg.Push.Endpoint,
			AppID:    cfg.Push.AppID,
			APIKey:   cfg.Push.APIKey,
		})
	}
	dispatcher := notify.NewDispatcher(notificationRepo, pusher)

	// Payment gateway client.
	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		KeyID:     cfg.Gateway.KeyID,
		KeySecret: cfg.Gateway.KeySecret,
	})

	// Order service.
	orderService := order.NewService(order.Config{
		CODEnabled:     cfg.Payments.CODEnabled,
		WalletEnabled:  cfg.Payments.WalletEnabled,
		GatewayEnabled: cfg.Payments.GatewayEnabled,
		GatewaySecret:  []byte(cfg.Gateway.KeySecret),
		Currency:       cfg.Payments.Currency,
	}, productRepo, couponRepo, orderRepo, paymentRepo, gatewayClient, dispatcher)

	// HTTP surface: health endpoints + API routes on one server. The
	// gateway callback is exempt from API key auth; it authenticates with
	// its own HMAC signature.
	h := handler.NewHandler(productRepo, orderService, walletRepo, notificationRepo)
	auth := handler.APIKeyAuth(apikeyRepo, []byte(cfg.APIKeyPepper), "/api/order/verify-payment")

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", auth(h.Routes()))

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
				AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
				AllowHeaders:     []string{"Content-Type", "Authorization", "api_key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("checkout-api", m.TracerProvider(), m.MeterProvider()),
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
