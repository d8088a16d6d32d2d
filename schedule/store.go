// Package schedule is the single source of truth for the recurring-scan
// policy and its observed status. The whole schedule lives in one versioned
// record so that enabled, cadence, and channels can never be observed
// half-updated.
package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

var (
	// ErrNotConfigured is returned by Config before the first-ever write.
	ErrNotConfigured = errors.New("schedule not configured")

	// ErrStoreUnavailable wraps infrastructure failures of the backing store.
	// Callers skip the current operation and retry later rather than crash.
	ErrStoreUnavailable = errors.New("schedule store unavailable")
)

// Store persists the ScheduleConfig and ScheduleStatus. Implementations
// must make every mutation atomic with respect to concurrent readers.
type Store interface {
	// Config returns the stored policy, or ErrNotConfigured before the
	// first write.
	Config(ctx context.Context) (types.ScheduleConfig, error)

	// SetConfig validates and atomically replaces the whole policy.
	SetConfig(ctx context.Context, cfg types.ScheduleConfig) error

	// Enable flips only the enabled flag, preserving every other field.
	Enable(ctx context.Context) error

	// Disable flips only the enabled flag, preserving every other field.
	Disable(ctx context.Context) error

	// Status returns the observed state with the derived next fire time.
	Status(ctx context.Context) (types.ScheduleStatus, error)

	// RecordScanCompleted stamps last_scan_at. Called exactly once per
	// completed scan, after the scan finishes.
	RecordScanCompleted(ctx context.Context, at time.Time) error

	Close() error
}

// record is the single versioned schedule document. Version increments on
// every write; a torn read can never pair a new enabled flag with a stale
// cadence because the whole record is replaced at once.
type record struct {
	Version    int64                `json:"version"`
	Config     types.ScheduleConfig `json:"config"`
	LastScanAt *time.Time           `json:"last_scan_at,omitempty"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

func (r *record) status(now time.Time) types.ScheduleStatus {
	return types.ScheduleStatus{
		LastScanAt: r.LastScanAt,
		NextScanAt: types.NextScanAt(r.Config, r.LastScanAt, now),
	}
}

// toggle returns a copy of the record with only the enabled flag changed.
func (r *record) toggle(enabled bool, now time.Time) record {
	next := *r
	next.Config.Enabled = enabled
	next.Version++
	next.UpdatedAt = now
	return next
}
