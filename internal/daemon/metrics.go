package daemon

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// Metrics holds operational metrics using OTEL semantic conventions.
type Metrics struct {
	scans          metric.Int64Counter
	scanDuration   metric.Float64Histogram
	resourcesFound metric.Int64Gauge
	savingsMonthly metric.Float64Gauge
	ticksSkipped   metric.Int64Counter
	notifications  metric.Int64Counter
}

// NewMetrics creates scan metrics following OTEL semantic conventions.
func NewMetrics() (*Metrics, error) {
	return newMetrics(otel.Meter("cloudcleaner.daemon"))
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	scans, err := meter.Int64Counter(
		"cloudcleaner.scans",
		metric.WithDescription("Number of completed scan runs"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return nil, err
	}

	scanDuration, err := meter.Float64Histogram(
		"cloudcleaner.scan.duration",
		metric.WithDescription("Duration of scan runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	resourcesFound, err := meter.Int64Gauge(
		"cloudcleaner.resources.found",
		metric.WithDescription("Unused resources found by the latest scan"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, err
	}

	savingsMonthly, err := meter.Float64Gauge(
		"cloudcleaner.savings.monthly",
		metric.WithDescription("Estimated monthly savings from the latest scan"),
		metric.WithUnit("USD"),
	)
	if err != nil {
		return nil, err
	}

	ticksSkipped, err := meter.Int64Counter(
		"cloudcleaner.scheduler.ticks_skipped",
		metric.WithDescription("Scheduler ticks dropped because a scan was still running"),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return nil, err
	}

	notifications, err := meter.Int64Counter(
		"cloudcleaner.notifications",
		metric.WithDescription("Notification delivery attempts by channel and outcome"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		scans:          scans,
		scanDuration:   scanDuration,
		resourcesFound: resourcesFound,
		savingsMonthly: savingsMonthly,
		ticksSkipped:   ticksSkipped,
		notifications:  notifications,
	}, nil
}

// RecordScan records a completed scan run.
func (m *Metrics) RecordScan(ctx context.Context, report *types.ScanReport, trigger string) {
	status := "ok"
	if report.TotalFailure {
		status = "total_failure"
	} else if report.PartialFailure {
		status = "partial_failure"
	}

	attrs := metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("status", status),
	)
	m.scans.Add(ctx, 1, attrs)
	m.scanDuration.Record(ctx, report.CompletedAt.Sub(report.StartedAt).Seconds(), attrs)
	m.resourcesFound.Record(ctx, int64(report.TotalResources))
	m.savingsMonthly.Record(ctx, report.TotalEstimatedSavings)
}

// RecordTickSkipped records a scheduler tick that was dropped.
func (m *Metrics) RecordTickSkipped(ctx context.Context, reason string) {
	m.ticksSkipped.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordNotification records one delivery attempt.
func (m *Metrics) RecordNotification(ctx context.Context, channel types.Channel, delivered bool) {
	status := "delivered"
	if !delivered {
		status = "failed"
	}
	m.notifications.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("channel", string(channel)),
			attribute.String("status", status),
		),
	)
}
