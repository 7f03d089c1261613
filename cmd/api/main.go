package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avelinehq/cartside/api/controllers"
	"github.com/avelinehq/cartside/api/routes"
	"github.com/avelinehq/cartside/internal/gateway"
	"github.com/avelinehq/cartside/internal/gateway/gormgw"
	"github.com/avelinehq/cartside/internal/gateway/httpgw"
	"github.com/avelinehq/cartside/internal/gateway/redisgw"
	"github.com/avelinehq/cartside/internal/identity"
	"github.com/avelinehq/cartside/internal/lifecycle"
	"github.com/avelinehq/cartside/pkg/config"
	"github.com/avelinehq/cartside/pkg/db"
	"github.com/avelinehq/cartside/pkg/logger"
	"github.com/avelinehq/cartside/pkg/metrics"
	"github.com/avelinehq/cartside/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cartside"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cartside",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	var (
		cartGateway gateway.Gateway
		tracker     gateway.Tracker
		creator     gateway.OrderCreator
		keyStore    identity.KeyStore
		readiness   []controllers.NamedPinger
	)

	switch cfg.Gateway.Mode {
	case config.GatewayModeHTTP:
		client, err := httpgw.New(cfg.Gateway)
		if err != nil {
			logg.Error(ctx, "failed to build http gateway", err)
			os.Exit(1)
		}
		cartGateway = client
		tracker = client
		creator = client

	case config.GatewayModeRedis:
		redisClient, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(ctx, "error closing redis", err)
			}
		}()
		store, err := redisgw.New(redisClient)
		if err != nil {
			logg.Error(ctx, "failed to build redis gateway", err)
			os.Exit(1)
		}
		cartGateway = store
		readiness = append(readiness, controllers.NamedPinger{Name: "redis", Pinger: redisClient})

		rs, err := identity.NewRedisStore(redisClient, "default")
		if err != nil {
			logg.Error(ctx, "failed to build redis key store", err)
			os.Exit(1)
		}
		keyStore = rs

	case config.GatewayModePostgres:
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap database", err)
			os.Exit(1)
		}
		defer func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(ctx, "error closing database", err)
			}
		}()
		if err := gormgw.AutoMigrate(dbClient.DB()); err != nil {
			logg.Error(ctx, "failed to migrate cart schema", err)
			os.Exit(1)
		}
		store, err := gormgw.New(dbClient.DB())
		if err != nil {
			logg.Error(ctx, "failed to build database gateway", err)
			os.Exit(1)
		}
		cartGateway = store
		readiness = append(readiness, controllers.NamedPinger{Name: "postgres", Pinger: dbClient})
	}

	if tracker == nil {
		t, err := gateway.NewLoggingTracker(logg)
		if err != nil {
			logg.Error(ctx, "failed to build tracker", err)
			os.Exit(1)
		}
		tracker = t
	}
	if creator == nil {
		c, err := gateway.NewLocalOrderCreator(logg)
		if err != nil {
			logg.Error(ctx, "failed to build order creator", err)
			os.Exit(1)
		}
		creator = c
	}
	if keyStore == nil {
		fs, err := identity.NewFileStore(cfg.Identity.StatePath)
		if err != nil {
			logg.Error(ctx, "failed to build session key store", err)
			os.Exit(1)
		}
		keyStore = fs
	}

	provider, err := identity.NewProvider(identity.Params{Store: keyStore, Logger: logg})
	if err != nil {
		logg.Error(ctx, "failed to build identity provider", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	cartMetrics := metrics.NewCartMetrics(registry)

	core, err := lifecycle.New(lifecycle.Params{
		Config:   cfg,
		Gateway:  cartGateway,
		Tracker:  tracker,
		Creator:  creator,
		Identity: provider,
		Logger:   logg,
		Metrics:  cartMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to assemble cart core", err)
		os.Exit(1)
	}
	if err := core.Start(ctx); err != nil {
		logg.Error(ctx, "failed to start cart core", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"gateway_mode": cfg.Gateway.Mode,
	})
	logg.Info(startCtx, "starting cartside server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, core, registry, readiness...),
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(startCtx, "server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(startCtx, "signal", sig.String()), "shutting down")
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(stopCtx); err != nil {
			logg.Error(startCtx, "graceful shutdown failed", err)
		}
		core.Shutdown(stopCtx)
	}
}
