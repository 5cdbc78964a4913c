package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Illuminatus66/byqr/internal/backend"
	"github.com/Illuminatus66/byqr/internal/config"
	"github.com/Illuminatus66/byqr/pkg/kit"
)

func main() {
	service := "backend"
	log := kit.NewLogger(service)
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load(os.Getenv("BYQR_CONFIG"))
	if err != nil {
		log.Fatal("load config failed", zap.Error(err))
	}
	if len(cfg.Backend.JWTSecret) < 32 {
		log.Warn("backend.jwtSecret is shorter than 32 chars; fine for local use only")
	}

	s := &backend.Server{
		Log:           log,
		Store:         backend.NewMemStore(backend.DemoCatalog()),
		JWT:           backend.NewTokenMaker(cfg.Backend.JWTSecret, cfg.Session.TTL),
		PaymentKeyID:  cfg.Backend.PaymentKeyID,
		PaymentSecret: cfg.Backend.PaymentSecret,
	}

	reg := prometheus.NewRegistry()
	h := backend.NewHandler(s, backend.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       reg,
		MetricsEnabled: cfg.Metrics.Enabled,
		MetricsToken:   cfg.Metrics.Token,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := kit.RunHTTPServer(ctx, ":"+cfg.Backend.Port, h, log); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
