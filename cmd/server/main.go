package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"LiveStore/internal/cart"
	"LiveStore/internal/catalog"
	"LiveStore/internal/config"
	"LiveStore/internal/realtime"
	"LiveStore/internal/server"
	"LiveStore/internal/storage"
	"LiveStore/pkg/kit"
)

const service = "livestore"

func main() {
	cfg, err := config.Load()
	if err != nil {
		kit.NewLogger(service, "info").Fatal("config load failed", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.Logging.Level)
	defer func() { _ = log.Sync() }()

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		log.Fatal("create data dir failed", zap.String("dir", cfg.Data.Dir), zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	products := catalog.NewManager(storage.NewFile[catalog.Product](cfg.Data.ProductsPath()), log)
	carts := cart.NewManager(storage.NewFile[cart.Cart](cfg.Data.CartsPath()), log)

	hub := realtime.NewHub(log, realtime.NewMetrics(registry))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("realtime hub stopped", zap.Error(err))
		}
	}()

	deps := server.Deps{
		Log:      log,
		Service:  service,
		Registry: registry,

		Catalog:  &catalog.Server{Manager: products, Log: log},
		Carts:    &cart.Server{Manager: carts, Log: log},
		Realtime: &realtime.Server{Hub: hub, Catalog: products, Log: log},

		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
	}
	if cfg.RateLimit.Enabled {
		deps.RateLimit = kit.NewIPRateLimiter(cfg.RateLimit.Limit, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)
	}

	if err := kit.RunHTTPServer(ctx, cfg.Server.Addr(), server.NewHandler(deps), log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
