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

	"golang.org/x/sync/errgroup"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/httpapi"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/idempotency"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/logger"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/orderfeed"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/payment"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service: "storefront-service",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
	})

	if err := run(cfg, log); err != nil {
		log.Error("storefront-service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	if cfg.JWTAccessSecret == "" {
		return errors.New("JWT_ACCESS_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, log); err != nil {
			return err
		}
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	m := metrics.New()
	hub := orderfeed.NewHub(cfg.CORSAllowOrigins, log)
	defer hub.Close()
	notifiers := order.Notifiers{hub}

	// RabbitMQ
	if cfg.PublishEvents {
		conn, err := events.Dial(cfg.RabbitURL)
		if err != nil {
			return err
		}
		defer conn.Close()

		publisher, err := events.NewPublisher(conn, events.NewPostgresSequencer(pool), events.PublisherOptions{
			Producer: cfg.EventProducer,
			Logger:   log,
		})
		if err != nil {
			return err
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
	} else {
		log.Info("event publishing disabled")
	}

	gateway, err := payment.NewRazorpayClient(cfg.Payment.BaseURL, cfg.Payment.KeyID, cfg.Payment.KeySecret, cfg.Payment.Timeout)
	if err != nil {
		return err
	}

	catalogRepo := catalog.NewPostgresRepository(pool)
	cartRepo := cart.NewPostgresRepository(pool)
	orderRepo := order.NewPostgresRepository(pool)

	catalogSvc := catalog.NewService(catalogRepo)
	cartSvc := cart.NewService(cartRepo, catalogRepo, cart.Options{
		MaxAttempts: cfg.CartMaxAttempts,
		Logger:      log,
		OnConflict:  m.CartConflict,
	})
	orderSvc := order.NewService(orderRepo, catalogRepo, notifiers)
	checkoutSvc := checkout.NewService(
		cartSvc,
		orderRepo,
		gateway,
		payment.NewSigner(cfg.Payment.KeySecret, cfg.Payment.WebhookSecret),
		idempotency.NewPostgresStore(pool),
		checkout.Options{
			Currency: cfg.Payment.Currency,
			KeyID:    gateway.KeyID(),
			Notifier: notifiers,
			Recorder: m,
			Logger:   log,
		},
	)

	// HTTP
	router := httpapi.NewRouter(httpapi.Deps{
		Logger:   log,
		Cfg:      cfg,
		Verifier: auth.NewVerifier(cfg.JWTAccessSecret),
		Metrics:  m,
		Cart:     cartSvc,
		Checkout: checkoutSvc,
		Orders:   orderSvc,
		Catalog:  catalogSvc,
		Feed:     hub,
		DB:       pool,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Payment.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("storefront-service listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
