package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/agristore-backend/api"
	"github.com/angelmondragon/agristore-backend/api/routes"
	"github.com/angelmondragon/agristore-backend/internal/auth"
	"github.com/angelmondragon/agristore-backend/internal/cart"
	"github.com/angelmondragon/agristore-backend/internal/catalog"
	"github.com/angelmondragon/agristore-backend/internal/checkout"
	product "github.com/angelmondragon/agristore-backend/internal/products"
	"github.com/angelmondragon/agristore-backend/internal/session"
	authsession "github.com/angelmondragon/agristore-backend/pkg/auth/session"
	"github.com/angelmondragon/agristore-backend/pkg/config"
	"github.com/angelmondragon/agristore-backend/pkg/instance"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
	"github.com/angelmondragon/agristore-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	backends, err := newBackends(ctx, cfg, registry, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap backend", err)
		os.Exit(1)
	}
	defer func() {
		if err := backends.Close(); err != nil {
			logg.Error(context.Background(), "error closing backend clients", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	tokenSessions, err := authsession.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create token session manager", err)
		os.Exit(1)
	}

	catalogStore, err := catalog.NewStore(backends.documents, logg)
	if err != nil {
		logg.Error(ctx, "failed to create catalog store", err)
		os.Exit(1)
	}
	if err := catalogStore.Start(ctx); err != nil {
		logg.Error(ctx, "failed to start catalog listener", err)
		os.Exit(1)
	}
	defer catalogStore.Stop()

	sessions, err := session.NewManager(catalogStore, backends.documents, logg)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}
	defer sessions.Close(context.Background())

	authParams := auth.ServiceParams{
		Auth:      backends.auth,
		Documents: backends.documents,
		Tokens:    tokenSessions,
		Sessions:  sessions,
		JWTConfig: cfg.JWT,
		Logger:    logg,
	}
	authService, err := auth.NewService(authParams)
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}
	adminRegisterService, err := auth.NewAdminRegisterService(authParams)
	if err != nil {
		logg.Error(ctx, "failed to create admin register service", err)
		os.Exit(1)
	}

	productService, err := product.NewService(backends.documents, backends.blobs, cfg.Media, logg)
	if err != nil {
		logg.Error(ctx, "failed to create product service", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(backends.documents, logg)
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}
	checkoutService, err := checkout.NewService(cfg.Storefront)
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(
		cfg,
		logg,
		backends.documents,
		redisClient,
		tokenSessions,
		sessions,
		catalogStore,
		authService,
		adminRegisterService,
		productService,
		cartService,
		checkoutService,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	)
	server := api.NewServer(cfg, router)
	// Event streams hold their request open; cancel them when shutdown starts.
	streamCtx, cancelStreams := context.WithCancel(context.Background())
	server.BaseContext = func(net.Listener) context.Context { return streamCtx }
	server.RegisterOnShutdown(cancelStreams)

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     server.Addr,
		"backend":  cfg.Backend.Driver,
		"instance": instance.GetID(),
	})
	logg.Info(logCtx, "starting api server")

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(logCtx, "graceful shutdown failed", err)
	}
}
