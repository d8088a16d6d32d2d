// Package daemon assembles the long-running service: scheduler loop, REST
// API, and metrics endpoint, run as one group with shared shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/oklog/run"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/config"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/internal/api"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/notify"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/orchestrator"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/probes"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/schedule"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/scheduler"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/storage"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/telemetry"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// Daemon holds the wired-up service components.
type Daemon struct {
	cfg        *config.Config
	store      schedule.Store
	history    *storage.HistoryStore
	dispatcher *scheduler.Dispatcher
	router     http.Handler
	registry   *promclient.Registry
	meter      *sdkmetric.MeterProvider

	startTime time.Time
	ready     atomic.Bool
	logger    *telemetry.Logger
}

// New wires the full service from configuration. It needs AWS credentials
// in the environment, the same way the CLI scan does.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	logger := telemetry.NewLogger("daemon")

	registry, meter, err := setupMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	metrics, err := NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metric instruments: %w", err)
	}

	store, err := openScheduleStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	history, err := storage.NewHistoryStore(cfg.Store.Path + ".history")
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	history.WithKeep(cfg.Scan.HistoryLength)

	registryProbes, err := probes.New(ctx, cfg.AWS, cfg.Scan.IdleDays)
	if err != nil {
		_ = store.Close()
		_ = history.Close()
		return nil, fmt.Errorf("failed to build probes: %w", err)
	}

	orch := orchestrator.New(registryProbes.ProbeSet()).
		WithMaxInFlight(cfg.Scan.MaxInFlight).
		WithProbeTimeout(cfg.Scan.ProbeTimeout)

	fanout := buildFanout(cfg, store)
	notifier := &meteredNotifier{fanout: fanout, metrics: metrics}

	dispatcher := scheduler.New(store, orch, notifier, cfg.AWS.Regions).
		WithSink(history).
		WithMetrics(metrics)

	handlers := api.NewHandlers(store, dispatcher, history, fanout)

	return &Daemon{
		cfg:        cfg,
		store:      store,
		history:    history,
		dispatcher: dispatcher,
		router:     api.NewRouter(handlers, nil),
		registry:   registry,
		meter:      meter,
		startTime:  time.Now(),
		logger:     logger,
	}, nil
}

// setupMetrics installs a Prometheus-backed OTEL meter provider.
func setupMetrics() (*promclient.Registry, *sdkmetric.MeterProvider, error) {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return registry, provider, nil
}

func openScheduleStore(ctx context.Context, cfg *config.Config) (schedule.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		store, err := schedule.NewRedisStore(ctx, cfg.Store.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, nil
	default:
		store, err := schedule.NewBoltStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open schedule store: %w", err)
		}
		return store, nil
	}
}

func buildFanout(cfg *config.Config, store schedule.Store) *notify.Fanout {
	var senders []notify.Sender
	if cfg.SlackConfigured() {
		senders = append(senders, notify.NewSlackSender(cfg.Notify.SlackWebhookURL))
	}
	if cfg.EmailConfigured() {
		senders = append(senders, notify.NewEmailSender(cfg.Notify.Email))
	}

	fanout := notify.NewFanout(store, senders...)
	fanout.NotifyEmpty = cfg.Scan.NotifyEmpty
	return fanout
}

// Run starts all components and blocks until shutdown. Any component
// failing, or SIGINT/SIGTERM, stops the whole group.
func (d *Daemon) Run(ctx context.Context) error {
	var g run.Group

	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))

	// Scheduler loop.
	{
		loopCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			return d.dispatcher.Start(loopCtx)
		}, func(error) {
			cancel()
		})
	}

	// REST API.
	{
		server := &http.Server{
			Addr:              d.cfg.Server.ListenAddr,
			Handler:           d.router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Add(func() error {
			d.logger.Info().Str("addr", server.Addr).Msg("starting API server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		})
	}

	// Metrics and health.
	{
		server := &http.Server{
			Addr:              d.cfg.Server.MetricsAddr,
			Handler:           d.metricsMux(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Add(func() error {
			d.logger.Info().Str("addr", server.Addr).Msg("starting metrics server")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		})
	}

	d.ready.Store(true)
	defer d.ready.Store(false)

	err := g.Run()
	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		d.logger.Info().Str("signal", sigErr.Signal.String()).Msg("shutting down")
		return nil
	}
	return err
}

func (d *Daemon) metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", d.handleHealth)
	mux.HandleFunc("/-/healthy", d.handleHealth)
	mux.HandleFunc("/-/ready", func(w http.ResponseWriter, r *http.Request) {
		if !d.ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "healthy uptime=%ds state=%s\n",
		int64(time.Since(d.startTime).Seconds()), d.dispatcher.State())
}

// Close releases the stores and flushes metrics.
func (d *Daemon) Close() error {
	var errs []error
	if err := d.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("schedule store: %w", err))
	}
	if err := d.history.Close(); err != nil {
		errs = append(errs, fmt.Errorf("history store: %w", err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.meter.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("meter provider: %w", err))
	}
	return errors.Join(errs...)
}

// meteredNotifier wraps the fan-out so every delivery attempt lands in the
// notifications counter.
type meteredNotifier struct {
	fanout  *notify.Fanout
	metrics *Metrics
}

func (n *meteredNotifier) DispatchScheduled(ctx context.Context, report *types.ScanReport) map[types.Channel]bool {
	results := n.fanout.DispatchScheduled(ctx, report)
	n.record(ctx, results)
	return results
}

func (n *meteredNotifier) Dispatch(ctx context.Context, report *types.ScanReport, only *types.Channel) map[types.Channel]bool {
	results := n.fanout.Dispatch(ctx, report, only)
	n.record(ctx, results)
	return results
}

func (n *meteredNotifier) record(ctx context.Context, results map[types.Channel]bool) {
	for channel, delivered := range results {
		n.metrics.RecordNotification(ctx, channel, delivered)
	}
}
