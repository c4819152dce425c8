package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/strataworks/borevault/internal/daemon"
	"github.com/strataworks/borevault/internal/observability"
	"github.com/strataworks/borevault/internal/retry"
	"github.com/strataworks/borevault/internal/sweep"
	"github.com/strataworks/borevault/internal/worker"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct{}

func (s *ServeCmd) Run(root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	store, err := openStore(ctx, cfg, metrics)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	d := daemon.New(
		cfg,
		store,
		worker.New(store, metrics),
		sweep.New(store, cfg.Storage.BasePath, metrics),
		retry.FromConfig(cfg.Retry),
		metrics,
		registry,
	)
	return d.Run(ctx)
}
