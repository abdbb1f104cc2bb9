package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cache"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/storefront-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/inventory"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/logger"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/pricing"
)

const serviceName = "storefront-go"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{Service: serviceName, Env: cfg.AppEnv, Level: cfg.LogLevel})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		fatal(log, "db connect", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, log); err != nil {
			fatal(log, "db migrate", err)
		}
	}

	// --- cache ---
	var store cache.Cache
	rdb := cache.NewClient(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, using in-process cache", "addr", cfg.RedisAddr, "error", err)
		store = cache.NewMemory(serviceName)
	} else {
		store = cache.NewRedisCache(rdb, serviceName)
	}

	// --- mail ---
	sender, err := notify.NewSMTPSender(notify.SMTPOptions{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	})
	if err != nil {
		fatal(log, "smtp client", err)
	}
	mailer := notify.NewMailer(sender, cfg.MailFrom, cfg.AdminEmail, log)

	// --- AMQP ---
	var (
		lowStockPub notify.LowStockPublisher = notify.MailPublisher{Mailer: mailer}
		orderPub    order.Publisher
	)
	if cfg.EventsEnabled {
		conn, err := events.Dial(cfg.RabbitMQURL)
		if err != nil {
			fatal(log, "amqp", err)
		}
		defer conn.Close()

		pub, err := events.NewPublisher(conn)
		if err != nil {
			fatal(log, "amqp publisher", err)
		}
		defer pub.Close()
		lowStockPub, orderPub = pub, pub

		handler := events.LowStockMailHandler(store, mailer, log)
		if err := events.StartConsumer(ctx, conn, events.StockLowRoutingKey, handler, log); err != nil {
			fatal(log, "start low stock consumer", err)
		}
	} else {
		log.Info("events disabled, low stock alerts are mailed directly")
	}

	dispatcher := notify.NewDispatcher(lowStockPub, 256, log)
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()

	// --- domain ---
	calc, err := pricing.NewCalculator(cfg.TaxRate)
	if err != nil {
		fatal(log, "pricing", err)
	}
	ledger := inventory.NewLedger(pool, cfg.LowStockThreshold, dispatcher, log)
	log.Info("pricing configured", "taxRate", calc.Rate().String(), "currency", cfg.Currency, "lowStockThreshold", ledger.Threshold())

	catalogSvc := catalog.NewService(catalog.NewPostgresRepository(pool), store, cfg.CacheTTL, log)
	cartSvc := cart.NewService(cart.NewPostgresStore(pool), calc, log)
	orderSvc := order.NewService(order.NewPostgresStore(pool, ledger), calc, ledger, orderPub, log)

	if cfg.StripeSecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY is not set, checkout will fail")
	}
	checkoutSvc := checkout.NewService(
		cartSvc,
		orderSvc,
		checkout.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret),
		checkout.Options{Currency: cfg.Currency, PublicBaseURL: cfg.PublicBaseURL},
		log,
	)

	// --- HTTP ---
	h := httpapi.NewHandler(httpapi.Deps{
		Catalog:   catalogSvc,
		Carts:     cartSvc,
		Checkout:  checkoutSvc,
		Orders:    orderSvc,
		Inventory: ledger,
		Logger:    log,
	})
	r := httpapi.NewRouter(h, httpapi.RouterOptions{
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		Logger:           log,
		RequestLogging:   true,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal", "signal", sig.String())
	case err := <-errCh:
		log.Error("http server", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	cancel()

	select {
	case <-dispatcherDone:
	case <-shutdownCtx.Done():
		log.Warn("low stock dispatcher did not drain in time")
	}

	log.Info("shutdown complete")
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
