package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	stripelib "github.com/stripe/stripe-go/v82"

	"github.com/verzog/merchant/internal"
	"github.com/verzog/merchant/internal/catalog"
	"github.com/verzog/merchant/internal/events"
	"github.com/verzog/merchant/internal/gateway"
	"github.com/verzog/merchant/internal/handler/api"
	"github.com/verzog/merchant/internal/handler/webhook"
	"github.com/verzog/merchant/internal/locks"
	"github.com/verzog/merchant/internal/middleware"
	"github.com/verzog/merchant/internal/postgres"
	"github.com/verzog/merchant/internal/production"
	"github.com/verzog/merchant/internal/provision"
	"github.com/verzog/merchant/internal/router"
	"github.com/verzog/merchant/internal/routes"
	"github.com/verzog/merchant/internal/service"
	"github.com/verzog/merchant/internal/shipping"
	"github.com/verzog/merchant/internal/tax"
	"github.com/verzog/merchant/internal/telemetry"
	"github.com/verzog/merchant/internal/worker"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info().Msg("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	logger.Info().Msg("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	store := postgres.NewStore(pool)

	// Load the merchant rules: tax table, shipping zones, discount
	rules, err := internal.LoadRules(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("failed to load rules from %s: %w", cfg.RulesPath, err)
	}

	var taxes tax.Calculator = tax.NewZero()
	if len(rules.Tax) > 0 {
		taxes, err = tax.NewTable(rules.Tax)
		if err != nil {
			return fmt.Errorf("invalid tax rules: %w", err)
		}
	}

	var quoter shipping.Quoter = shipping.NewFree()
	if len(rules.Shipping) > 0 {
		quoter, err = shipping.NewResolver(rules.Zones, rules.Shipping, taxes)
		if err != nil {
			return fmt.Errorf("invalid shipping rules: %w", err)
		}
	}

	// Event publisher
	var publisher events.Publisher = events.NewNoop()
	if cfg.NATS.URL != "" {
		nc, err := events.ConnectNATS(cfg.NATS.URL, logger)
		if err != nil {
			return fmt.Errorf("nats connection failed: %w", err)
		}
		defer nc.Close()
		publisher = nc
	}

	// Business metrics
	telemetry.InitBusinessMetrics("merchant")

	// Production handlers. The directory implementation is deployment
	// specific; the in-memory one keeps development working end to end.
	directory := provision.NewMock()
	registry := production.NewRegistry()
	registry.Register(production.NewSeatsHandler(directory))
	registry.Register(production.NewRoleHandler(directory))

	resolver := catalog.NewResolver(store)
	controller := production.NewController(registry, resolver, store, publisher, logger)

	// Services
	keyed := locks.NewKeyed()
	bills := service.NewBillService(store, resolver, taxes, quoter, rules.Discount, publisher, keyed, logger)
	checkout := service.NewCheckoutService(store, bills, resolver, controller, publisher, logger)
	products := service.NewProductService(store, controller, publisher, logger)

	// Payment gateways
	processor := gateway.NewProcessor(bills, controller, store, logger)
	gateways := gateway.NewRegistry()
	if cfg.Paypal.Seller != "" {
		verifyURL := gateway.PaypalLiveVerifyURL
		if cfg.Paypal.Sandbox {
			verifyURL = gateway.PaypalSandboxVerifyURL
		}
		payURL := gateway.PaypalLivePayURL
		if cfg.Paypal.Sandbox {
			payURL = gateway.PaypalSandboxPayURL
		}
		gateways.Register(gateway.NewPaypal(processor, gateway.PaypalConfig{
			Seller:    cfg.Paypal.Seller,
			VerifyURL: verifyURL,
			PayURL:    payURL,
			BaseURL:   cfg.BaseURL,
		}, logger))
	}
	if cfg.Stripe.WebhookSecret != "" {
		stripelib.Key = cfg.Stripe.SecretKey
		gateways.Register(gateway.NewStripe(processor, gateway.StripeConfig{
			SigningSecret: cfg.Stripe.WebhookSecret,
			BaseURL:       cfg.BaseURL,
		}, logger))
	}
	if cfg.Env == "dev" {
		gateways.Register(gateway.NewDummy(processor, logger))
	}
	logger.Info().Strs("gateways", gateways.Names()).Msg("Payment gateways registered")

	// Handlers
	apiHandler := api.NewHandler(checkout, bills, products, controller, gateways, logger)
	webhookHandler := webhook.NewHandler(gateways, logger)

	// HTTP metrics
	metrics := middleware.NewMetrics("merchant")

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		metrics.Middleware,
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
	)

	// Metrics endpoint. Protect via firewall in production.
	r.Handle(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := pool.Ping(req.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	routes.RegisterAPIRoutes(r, routes.APIDeps{Handler: apiHandler})
	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{Handler: webhookHandler})

	// Stuck bill sweep
	sweep := worker.NewSweep(bills, controller, worker.Config{
		Interval:       time.Duration(cfg.Sweep.IntervalSeconds) * time.Second,
		MinAge:         time.Duration(cfg.Sweep.MinAgeSeconds) * time.Second,
		MaxConcurrency: cfg.Sweep.Concurrency,
	}, logger)
	go func() {
		if err := sweep.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("sweep stopped")
		}
	}()

	// Start server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", srv.Addr).Str("env", cfg.Env).Msg("Starting merchant server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
