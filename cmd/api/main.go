package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/slick-storefront/internal/api"
	"github.com/example/slick-storefront/internal/auth"
	"github.com/example/slick-storefront/internal/checkout"
	"github.com/example/slick-storefront/internal/config"
	"github.com/example/slick-storefront/internal/domain/catalog"
	"github.com/example/slick-storefront/internal/domain/user"
	"github.com/example/slick-storefront/internal/infrastructure/kafka"
	"github.com/example/slick-storefront/internal/infrastructure/store"
	"github.com/example/slick-storefront/internal/logger"
	"github.com/example/slick-storefront/internal/notification"
	"github.com/example/slick-storefront/internal/query"
	"github.com/example/slick-storefront/internal/shutdown"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{Service: "storefront-api", Env: cfg.AppEnv, Level: cfg.LogLevel})

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	backend, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()
	log.Info("storage backend ready", "backend", backend.Name)

	// Catalog reads go through an optional Redis cache and a circuit breaker.
	var products catalog.Source = backend.Products
	devices := store.NewLocalCartRepository(store.NewMemoryKV())
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, serving without cache", "addr", cfg.RedisAddr, "error", err)
		} else {
			products = catalog.NewCachedSource(products, rdb, cfg.CatalogCacheTTL, log)
			devices = store.NewLocalCartRepository(store.NewRedisKV(rdb))
			log.Info("redis connected", "addr", cfg.RedisAddr)
		}
	}
	products = catalog.NewBreakerSource(products, catalog.BreakerSettings{}, log)
	reader := catalog.NewReader(products, backend.Testimonials, log)

	hub := notification.NewHub(cfg.ToastTTL)
	defer hub.Close()

	checkoutOpts := []checkout.Option{checkout.WithToaster(hub)}
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		defer producer.Close()
		checkoutOpts = append(checkoutOpts, checkout.WithPublisher(producer))
		log.Info("publishing order events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	handlers := api.NewHandlers(api.Deps{
		Catalog:  reader,
		Accounts: backend.Carts,
		Devices:  devices,
		Checkout: checkout.NewAssembler(reader, backend.Orders, log, checkoutOpts...),
		Orders:   query.NewHandler(backend.Orders, reader, log),
		Toasts:   hub,
		Logger:   log,
	})
	router := api.NewRouter(api.RouterConfig{
		Handlers:       handlers,
		Auth:           api.NewAuthHandlers(user.NewService(backend.Users, log), jwtService, hub, log),
		JWT:            jwtService,
		RequestTimeout: cfg.RequestTimeout,
		WebDir:         os.Getenv("WEB_DIR"),
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
