// Package daemon runs the long-lived service: the upload-event consumer, the
// inbox watcher, the scheduled integrity sweep, and the metrics endpoint.
package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strataworks/borevault/internal/config"
	"github.com/strataworks/borevault/internal/objectstore"
	"github.com/strataworks/borevault/internal/observability"
	"github.com/strataworks/borevault/internal/retry"
	"github.com/strataworks/borevault/internal/sweep"
	"github.com/strataworks/borevault/internal/worker"
)

// Daemon wires the background components together. Every component is
// optional; an empty config field leaves it off.
type Daemon struct {
	cfg      *config.Config
	store    objectstore.Store
	worker   *worker.Worker
	sweeper  *sweep.Sweeper
	policy   retry.Policy
	metrics  *observability.Metrics
	registry *prometheus.Registry
}

// New assembles a daemon from already-constructed components.
func New(cfg *config.Config, store objectstore.Store, w *worker.Worker, sweeper *sweep.Sweeper, policy retry.Policy, metrics *observability.Metrics, registry *prometheus.Registry) *Daemon {
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	return &Daemon{
		cfg:      cfg,
		store:    store,
		worker:   w,
		sweeper:  sweeper,
		policy:   policy,
		metrics:  metrics,
		registry: registry,
	}
}

// Run starts every configured component and blocks until the context is
// cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if d.cfg.Daemon.MetricsAddr != "" && d.registry != nil {
		d.startMetricsServer(ctx)
	}

	scheduler, err := d.startSweepScheduler(ctx)
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() { _ = scheduler.Shutdown() }()
	}

	if d.cfg.Daemon.InboxDir != "" {
		watcher, err := d.startInboxWatcher(ctx)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	if d.cfg.NATS.URL != "" {
		// A missing broker degrades to inbox-only operation, mirroring the
		// store connectivity probe.
		stop, err := d.startConsumer(ctx)
		if err != nil {
			slog.Warn("Upload consumer unavailable, continuing without it", "error", err)
		} else {
			defer stop()
		}
	}

	observability.InfoContext(ctx, "Daemon started")
	<-ctx.Done()
	observability.InfoContext(context.Background(), "Daemon shutting down")
	return nil
}

func (d *Daemon) startMetricsServer(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: d.cfg.Daemon.MetricsAddr, Handler: mux}

	go func() {
		slog.Info("Metrics endpoint listening", "addr", d.cfg.Daemon.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics endpoint failed", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func (d *Daemon) startSweepScheduler(ctx context.Context) (gocron.Scheduler, error) {
	if d.cfg.Daemon.SweepSchedule == "" || d.sweeper == nil {
		return nil, nil
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	_, err = scheduler.NewJob(
		gocron.CronJob(d.cfg.Daemon.SweepSchedule, false),
		gocron.NewTask(func() {
			report, err := d.sweeper.Run(ctx)
			if err != nil {
				slog.Error("Scheduled sweep failed", "error", err)
				return
			}
			if len(report.Findings) > 0 {
				slog.Warn("Scheduled sweep reported findings",
					"records", report.RecordsChecked, "findings", len(report.Findings))
			}
		}),
	)
	if err != nil {
		return nil, err
	}
	scheduler.Start()
	slog.Info("Sweep scheduled", "cron", d.cfg.Daemon.SweepSchedule)
	return scheduler, nil
}
