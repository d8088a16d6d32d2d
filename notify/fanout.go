package notify

import (
	"context"
	"errors"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/schedule"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/telemetry"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// Fanout dispatches one report to every currently-configured channel.
// The channel set is re-read from the schedule store at dispatch time, so
// an operator who disables a channel mid-scan is honored for the scan that
// just finished.
type Fanout struct {
	store   schedule.Store
	senders map[types.Channel]Sender

	// NotifyEmpty controls whether scheduled dispatch sends reports that
	// found nothing. Manual dispatch always sends.
	NotifyEmpty bool

	logger *telemetry.Logger
}

// NewFanout wires the available senders over the schedule store.
func NewFanout(store schedule.Store, senders ...Sender) *Fanout {
	byChannel := make(map[types.Channel]Sender, len(senders))
	for _, sender := range senders {
		byChannel[sender.Channel()] = sender
	}
	return &Fanout{
		store:   store,
		senders: byChannel,
		logger:  telemetry.NewLogger("notify"),
	}
}

// Configured lists the channels that have a working sender.
func (f *Fanout) Configured() []types.Channel {
	var channels []types.Channel
	for ch := range f.senders {
		channels = append(channels, ch)
	}
	return channels
}

// DispatchScheduled sends a completed scheduled scan to the channels
// currently configured in the store. Empty reports are skipped unless
// NotifyEmpty is set.
func (f *Fanout) DispatchScheduled(ctx context.Context, report *types.ScanReport) map[types.Channel]bool {
	if report.TotalResources == 0 && !report.TotalFailure && !report.PartialFailure && !f.NotifyEmpty {
		f.logger.WithContext(ctx).Debug().Msg("empty report, scheduled dispatch skipped")
		return map[types.Channel]bool{}
	}

	cfg, err := f.store.Config(ctx)
	if err != nil && !errors.Is(err, schedule.ErrNotConfigured) {
		f.logger.LogStoreError(ctx, "fanout_config", err)
		return map[types.Channel]bool{}
	}

	return f.dispatch(ctx, report, cfg.Channels)
}

// Dispatch sends an on-demand report. A nil channel means every channel
// configured in the store; a specific channel sends to just that one.
// Empty reports are always sent so users can confirm "nothing found".
func (f *Fanout) Dispatch(ctx context.Context, report *types.ScanReport, only *types.Channel) map[types.Channel]bool {
	if only != nil {
		return f.dispatch(ctx, report, []types.Channel{*only})
	}

	cfg, err := f.store.Config(ctx)
	if err != nil && !errors.Is(err, schedule.ErrNotConfigured) {
		f.logger.LogStoreError(ctx, "fanout_config", err)
		return map[types.Channel]bool{}
	}
	if len(cfg.Channels) == 0 {
		// Nothing selected in the schedule; fall back to every sender
		// that is actually configured.
		return f.dispatch(ctx, report, f.Configured())
	}
	return f.dispatch(ctx, report, cfg.Channels)
}

// dispatch delivers to each channel independently. A sender error is
// recorded as false for that channel and never aborts the others.
func (f *Fanout) dispatch(ctx context.Context, report *types.ScanReport, channels []types.Channel) map[types.Channel]bool {
	results := make(map[types.Channel]bool, len(channels))

	for _, channel := range channels {
		sender, ok := f.senders[channel]
		if !ok {
			f.logger.WithContext(ctx).Warn().
				Str("channel", string(channel)).
				Msg("channel configured but no sender available")
			results[channel] = false
			continue
		}

		if err := sender.Send(ctx, report); err != nil {
			f.logger.WithContext(ctx).Error().
				Err(err).
				Str("channel", string(channel)).
				Msg("notification delivery failed")
			results[channel] = false
			continue
		}

		f.logger.WithContext(ctx).Info().
			Str("channel", string(channel)).
			Int("resources", report.TotalResources).
			Msg("notification sent")
		results[channel] = true
	}

	return results
}
