// Package scheduler turns the stored ScheduleConfig into actual recurring
// scans. The loop re-reads the store on every poll, so cadence and channel
// changes take effect without a restart, and survives any single bad tick.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/schedule"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/telemetry"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// defaultPollInterval is how often the loop checks whether a scan is due.
// Mirrors a beat-style scheduler checking for schedule changes every few
// seconds rather than sleeping a whole cadence interval.
const defaultPollInterval = 5 * time.Second

// ErrScanInFlight rejects a manual trigger while another scan is running.
var ErrScanInFlight = errors.New("a scan is already in flight")

// State is the dispatcher lifecycle state.
type State string

const (
	StateStopped State = "stopped"
	StateWaiting State = "waiting"
	StateRunning State = "running"
)

// Runner executes one full sweep. Satisfied by *orchestrator.Orchestrator.
type Runner interface {
	RunScan(ctx context.Context, regions []string) *types.ScanReport
}

// Notifier fans a completed report out to channels. Satisfied by
// *notify.Fanout.
type Notifier interface {
	DispatchScheduled(ctx context.Context, report *types.ScanReport) map[types.Channel]bool
	Dispatch(ctx context.Context, report *types.ScanReport, only *types.Channel) map[types.Channel]bool
}

// ReportSink receives completed reports for history. Optional.
type ReportSink interface {
	RecordReport(report *types.ScanReport) error
}

// Metrics observes dispatcher events. Optional.
type Metrics interface {
	RecordScan(ctx context.Context, report *types.ScanReport, trigger string)
	RecordTickSkipped(ctx context.Context, reason string)
}

// Dispatcher drives scheduled and manual scans over one schedule.
type Dispatcher struct {
	store    schedule.Store
	runner   Runner
	notifier Notifier
	sink     ReportSink
	metrics  Metrics

	regions      []string
	pollInterval time.Duration

	inFlight     atomic.Bool
	skippedTicks atomic.Int64
	state        atomic.Value // State

	mu           sync.Mutex
	backoffUntil time.Time
	retryBackoff *backoff.ExponentialBackOff

	now    func() time.Time
	logger *telemetry.Logger
}

// New creates a dispatcher. sink and metrics may be nil.
func New(store schedule.Store, runner Runner, notifier Notifier, regions []string) *Dispatcher {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Minute
	bo.MaxInterval = time.Hour

	d := &Dispatcher{
		store:        store,
		runner:       runner,
		notifier:     notifier,
		regions:      regions,
		pollInterval: defaultPollInterval,
		retryBackoff: bo,
		now:          time.Now,
		logger:       telemetry.NewLogger("scheduler"),
	}
	d.state.Store(StateStopped)
	return d
}

// WithPollInterval overrides how often the loop checks the schedule.
func (d *Dispatcher) WithPollInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.pollInterval = interval
	}
	return d
}

// WithSink attaches a report history sink.
func (d *Dispatcher) WithSink(sink ReportSink) *Dispatcher {
	d.sink = sink
	return d
}

// WithMetrics attaches dispatcher metrics.
func (d *Dispatcher) WithMetrics(metrics Metrics) *Dispatcher {
	d.metrics = metrics
	return d
}

// State reports the current lifecycle state.
func (d *Dispatcher) State() State {
	return d.state.Load().(State)
}

// SkippedTicks counts ticks dropped because a scan was still in flight.
func (d *Dispatcher) SkippedTicks() int64 {
	return d.skippedTicks.Load()
}

// Start runs the scheduling loop until ctx is cancelled. A scan in flight
// at cancellation runs to completion; only future ticks stop.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.state.Store(StateWaiting)
	defer d.state.Store(StateStopped)

	d.logger.Info().
		Dur("poll_interval", d.pollInterval).
		Strs("regions", d.regions).
		Msg("scheduler started")

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("scheduler stopping")
			return nil
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick checks whether a scheduled scan is due and launches it without
// blocking the loop. Store failures skip this tick and retry on the next.
func (d *Dispatcher) tick(ctx context.Context) {
	cfg, err := d.store.Config(ctx)
	if errors.Is(err, schedule.ErrNotConfigured) {
		return
	}
	if err != nil {
		d.logger.LogStoreError(ctx, "tick_config", err)
		return
	}
	if !cfg.Enabled {
		return
	}

	status, err := d.store.Status(ctx)
	if err != nil {
		d.logger.LogStoreError(ctx, "tick_status", err)
		return
	}

	now := d.now()
	if !d.due(cfg, status.LastScanAt, now) {
		return
	}

	d.mu.Lock()
	deferredUntil := d.backoffUntil
	d.mu.Unlock()
	if now.Before(deferredUntil) {
		d.logger.Debug().
			Time("deferred_until", deferredUntil).
			Msg("scan due but deferred by failure backoff")
		return
	}

	if !d.inFlight.CompareAndSwap(false, true) {
		skipped := d.skippedTicks.Add(1)
		d.logger.Warn().
			Int64("skipped_total", skipped).
			Msg("tick skipped: previous scan still in flight")
		if d.metrics != nil {
			d.metrics.RecordTickSkipped(ctx, "scan_in_flight")
		}
		return
	}

	// The tick handler returns immediately; the scan owns the flag.
	go d.runScan(ctx, "scheduled")
}

// due reports whether the cadence has elapsed. A schedule that has never
// run is due immediately.
func (d *Dispatcher) due(cfg types.ScheduleConfig, lastScan *time.Time, now time.Time) bool {
	if lastScan == nil {
		return true
	}
	return !now.Before(lastScan.Add(cfg.Interval()))
}

// TriggerNow submits one ad-hoc scan and returns an opaque task handle
// immediately. It does not reset or perturb the recurring cadence: the
// completion stamp it writes is the same one the cadence keys off, exactly
// as a scheduled run's would be.
func (d *Dispatcher) TriggerNow(ctx context.Context) (string, error) {
	if !d.inFlight.CompareAndSwap(false, true) {
		return "", ErrScanInFlight
	}

	taskID := uuid.NewString()
	d.logger.Info().Str("task_id", taskID).Msg("manual scan triggered")

	go d.runScan(ctx, "manual")
	return taskID, nil
}

// runScan executes one sweep end to end: scan, record completion, then
// notify. The two completion steps are sequenced so last_scan_at means
// "scan finished", not "notifications delivered". Runs detached from the
// tick so cancellation of future ticks never cancels a scan in flight.
func (d *Dispatcher) runScan(ctx context.Context, trigger string) {
	defer d.inFlight.Store(false)

	d.state.Store(StateRunning)
	defer d.state.Store(StateWaiting)

	// Detach from the caller's cancellation: in-flight scans always run
	// to completion and still get recorded and delivered.
	scanCtx := context.WithoutCancel(ctx)

	report := d.runner.RunScan(scanCtx, d.regions)

	if err := d.store.RecordScanCompleted(scanCtx, report.CompletedAt); err != nil {
		d.logger.LogStoreError(scanCtx, "record_scan_completed", err)
	}

	if d.sink != nil {
		if err := d.sink.RecordReport(report); err != nil {
			d.logger.Error().Err(err).Msg("failed to record scan history")
		}
	}

	d.applyFailureBackoff(report)

	var results map[types.Channel]bool
	if trigger == "manual" {
		results = d.notifier.Dispatch(scanCtx, report, nil)
	} else {
		results = d.notifier.DispatchScheduled(scanCtx, report)
	}

	if d.metrics != nil {
		d.metrics.RecordScan(scanCtx, report, trigger)
	}

	event := d.logger.Info()
	if report.TotalFailure {
		event = d.logger.Error()
	}
	event.
		Str("trigger", trigger).
		Int("resources", report.TotalResources).
		Bool("partial_failure", report.PartialFailure).
		Bool("total_failure", report.TotalFailure).
		Int("channels_notified", len(results)).
		Msg("scan cycle complete")
}

// applyFailureBackoff defers the next automatic run after a total outage
// and resets the backoff as soon as any probe succeeds again.
func (d *Dispatcher) applyFailureBackoff(report *types.ScanReport) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if report.TotalFailure {
		delay := d.retryBackoff.NextBackOff()
		d.backoffUntil = d.now().Add(delay)
		d.logger.Warn().
			Dur("backoff", delay).
			Msg("total scan failure, deferring next automatic run")
		return
	}

	d.retryBackoff.Reset()
	d.backoffUntil = time.Time{}
}
