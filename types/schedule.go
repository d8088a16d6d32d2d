package types

import (
	"fmt"
	"time"
)

// Frequency is the recurrence cadence of scheduled scans.
type Frequency string

const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
	FrequencyCustom Frequency = "custom"
)

// ValidationError reports a malformed ScheduleConfig. The config is never
// partially applied when validation fails.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid schedule config: %s: %s", e.Field, e.Reason)
}

// ScheduleConfig is the user-controlled recurrence policy.
type ScheduleConfig struct {
	Enabled               bool      `json:"enabled" yaml:"enabled"`
	Frequency             Frequency `json:"frequency" yaml:"frequency"`
	CustomIntervalMinutes int       `json:"custom_interval_minutes,omitempty" yaml:"custom_interval_minutes,omitempty"`
	Channels              []Channel `json:"channels" yaml:"channels"`
}

// DefaultScheduleConfig is the policy applied on first boot: daily scans,
// disabled, nothing sent.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Enabled:   false,
		Frequency: FrequencyDaily,
		Channels:  []Channel{},
	}
}

// Validate enforces the config invariants: a known frequency, a positive
// custom interval present iff frequency is custom, and known channels.
func (c ScheduleConfig) Validate() error {
	switch c.Frequency {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly:
		if c.CustomIntervalMinutes != 0 {
			return &ValidationError{
				Field:  "custom_interval_minutes",
				Reason: fmt.Sprintf("only allowed with frequency=custom, got %s", c.Frequency),
			}
		}
	case FrequencyCustom:
		if c.CustomIntervalMinutes <= 0 {
			return &ValidationError{
				Field:  "custom_interval_minutes",
				Reason: "required and must be > 0 when frequency=custom",
			}
		}
	default:
		return &ValidationError{
			Field:  "frequency",
			Reason: fmt.Sprintf("must be one of hourly, daily, weekly, custom; got %q", c.Frequency),
		}
	}

	seen := make(map[Channel]bool)
	for _, ch := range c.Channels {
		if _, err := ParseChannel(string(ch)); err != nil {
			return &ValidationError{Field: "channels", Reason: err.Error()}
		}
		if seen[ch] {
			return &ValidationError{Field: "channels", Reason: fmt.Sprintf("duplicate channel %q", ch)}
		}
		seen[ch] = true
	}
	return nil
}

// Interval converts the frequency to a concrete duration. The config must
// have passed Validate.
func (c ScheduleConfig) Interval() time.Duration {
	switch c.Frequency {
	case FrequencyHourly:
		return time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyCustom:
		return time.Duration(c.CustomIntervalMinutes) * time.Minute
	default:
		return 24 * time.Hour
	}
}

// HasChannel reports whether the channel is configured.
func (c ScheduleConfig) HasChannel(ch Channel) bool {
	for _, got := range c.Channels {
		if got == ch {
			return true
		}
	}
	return false
}

// ScheduleStatus is the observed side of the schedule, distinct from the
// policy. NextScanAt is computed from the policy, never stored.
type ScheduleStatus struct {
	LastScanAt *time.Time `json:"last_scan_at,omitempty"`
	NextScanAt *time.Time `json:"next_scan_at,omitempty"`
}

// NextScanAt derives the next fire time for a schedule. Disabled schedules
// have no next scan. A schedule that never ran is due immediately.
func NextScanAt(cfg ScheduleConfig, lastScan *time.Time, now time.Time) *time.Time {
	if !cfg.Enabled {
		return nil
	}
	if lastScan == nil {
		return &now
	}
	next := lastScan.Add(cfg.Interval())
	return &next
}
