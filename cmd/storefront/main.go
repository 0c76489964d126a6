package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ErnestIssa/peak-mode/internal/cache"
	"github.com/ErnestIssa/peak-mode/internal/capture"
	"github.com/ErnestIssa/peak-mode/internal/cart"
	"github.com/ErnestIssa/peak-mode/internal/catalog"
	"github.com/ErnestIssa/peak-mode/internal/checkout"
	"github.com/ErnestIssa/peak-mode/internal/config"
	"github.com/ErnestIssa/peak-mode/internal/domain"
	"github.com/ErnestIssa/peak-mode/internal/gateway"
	h "github.com/ErnestIssa/peak-mode/internal/http"
	"github.com/ErnestIssa/peak-mode/internal/mail"
	"github.com/ErnestIssa/peak-mode/internal/publisher"
	"github.com/ErnestIssa/peak-mode/internal/repository"
	"github.com/ErnestIssa/peak-mode/pkg/logger"
	"github.com/ErnestIssa/peak-mode/pkg/metrics"
	"github.com/ErnestIssa/peak-mode/pkg/shutdown"
)

const (
	requestTimeout     = 30 * time.Second
	shutdownTimeout    = 10 * time.Second
	maxRequestBodySize = 1 << 20 // 1MB
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(logger.Options{
		Service:   "storefront",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: !cfg.IsProduction(),
	})

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	// Cart storage
	repo, cartCache, closeStorage, err := setupCartStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()
	store := cart.NewStore(repo, cartCache)

	// Catalog
	products, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer products.Close()
	if err := products.RunMigrations(); err != nil {
		return fmt.Errorf("catalog migrations: %w", err)
	}
	resolver := catalog.NewResolver()
	resolver.Register(domain.SourceInternal, products.ForSource(domain.SourceInternal))
	resolver.Register(domain.SourceTest, products.ForSource(domain.SourceTest))
	if cfg.PrintfulToken != "" {
		resolver.Register(domain.SourcePrintful, catalog.NewPrintfulClient(cfg.PrintfulAPIURL, cfg.PrintfulToken, nil))
	}
	if cfg.CJAccessToken != "" {
		resolver.Register(domain.SourceCJDropshipping, catalog.NewCJClient(cfg.CJAPIURL, cfg.CJAccessToken, nil))
	}
	log.Info("catalog ready", slog.Any("sources", resolver.Sources()))

	// Checkout
	reg := metrics.NewRegistry()
	opts := []checkout.Option{checkout.WithMetrics(metrics.NewCheckoutMetrics(reg))}
	if cfg.SMTPHost != "" {
		opts = append(opts, checkout.WithNotifier(mail.NewOrderMailer(mail.NewSMTPMailer(mail.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.SMTPFrom,
		}))))
	}
	if len(cfg.KafkaBrokers) > 0 {
		events := publisher.NewOrderEvents(cfg.KafkaBrokers...)
		defer events.Close()
		opts = append(opts, checkout.WithNotifier(events))
	}

	orchestrator := checkout.New(
		gateway.NewClient(cfg.VornifyPayURL),
		capture.NewLibrary(capture.NewProcessorSDK(cfg.ProcessorScriptURL, cfg.ProcessorAPIURL, nil)),
		store,
		checkout.Config{
			CallTimeout:   cfg.CheckoutCallTimeout,
			RedirectDelay: cfg.CheckoutRedirectDelay,
			DialogTTL:     cfg.CheckoutDialogTTL,
		},
		opts...,
	)

	router := h.NewRouter(
		h.RouterConfig{
			RequestTimeout:     requestTimeout,
			MaxRequestBodySize: maxRequestBodySize,
			SecureCookies:      cfg.IsProduction(),
			Logger:             log,
		},
		h.NewProductHandler(resolver, requestTimeout),
		h.NewCartHandler(store, resolver, requestTimeout),
		h.NewCheckoutHandler(orchestrator),
		metrics.NewServerMetrics(reg, "storefront"),
		metrics.Handler(reg),
	)

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(router, "storefront"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// a pay request may wait on a confirm and a verify call
		WriteTimeout: 2*cfg.CheckoutCallTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return orchestrator.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	orchestrator.Wait()
	if sig, ok := shutdown.Signal(ctx); ok {
		log.Info("stopped by signal", slog.String("signal", sig.String()))
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func setupCartStorage(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.CartRepository, cache.CartCache, func(), error) {
	var (
		repo    repository.CartRepository
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.CartBackend {
	case "mongo":
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		closers = append(closers, func() { repository.DisconnectMongoDB(db) })
		repo = repository.NewMongoRepository(db)
		if err := repository.EnsureIndexes(ctx, repo); err != nil {
			closeAll()
			return nil, nil, nil, fmt.Errorf("cart indexes: %w", err)
		}
		log.Info("cart repository: mongo", slog.String("db", cfg.MongoDBName))
	case "memory", "":
		repo = repository.NewMemoryRepository()
		log.Warn("cart repository: memory, carts are lost on restart")
	default:
		return nil, nil, nil, fmt.Errorf("unknown CART_BACKEND %q", cfg.CartBackend)
	}

	var c cache.CartCache = cache.Noop{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			closeAll()
			return nil, nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		c = cache.NewRedisCache(client)
		log.Info("cart cache: redis", slog.String("addr", cfg.RedisAddr))
	}

	return repo, c, closeAll, nil
}
