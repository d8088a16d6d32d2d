package notify

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/schedule"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

type fakeSender struct {
	channel types.Channel
	err     error
	calls   int
}

func (s *fakeSender) Channel() types.Channel { return s.channel }

func (s *fakeSender) Send(ctx context.Context, report *types.ScanReport) error {
	s.calls++
	return s.err
}

func newFanoutStore(t *testing.T, channels []types.Channel) schedule.Store {
	t.Helper()
	store, err := schedule.NewBoltStore(filepath.Join(t.TempDir(), "sched.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := types.ScheduleConfig{Enabled: true, Frequency: types.FrequencyDaily, Channels: channels}
	require.NoError(t, store.SetConfig(context.Background(), cfg))
	return store
}

func reportWithResources(n int) *types.ScanReport {
	resources := make([]types.ResourceRecord, n)
	for i := range resources {
		resources[i] = types.ResourceRecord{ID: "r", EstimatedMonthlyCost: 10}
	}
	r := &types.ScanReport{
		StartedAt: time.Now().Add(-time.Minute),
		Outcomes: []types.ScanOutcome{
			{Target: types.ScanTarget{Region: "us-east-1", Kind: types.KindEC2},
				Status: types.StatusOK, Resources: resources},
		},
	}
	r.Finalize(time.Now())
	return r
}

func TestFanoutChannelIndependence(t *testing.T) {
	store := newFanoutStore(t, []types.Channel{types.ChannelSlack, types.ChannelEmail})
	slack := &fakeSender{channel: types.ChannelSlack, err: errors.New("webhook 500")}
	email := &fakeSender{channel: types.ChannelEmail}

	fanout := NewFanout(store, slack, email)
	results := fanout.DispatchScheduled(context.Background(), reportWithResources(3))

	assert.Equal(t, map[types.Channel]bool{
		types.ChannelSlack: false,
		types.ChannelEmail: true,
	}, results)
	assert.Equal(t, 1, slack.calls)
	assert.Equal(t, 1, email.calls)
}

func TestFanoutReadsChannelsAtDispatchTime(t *testing.T) {
	store := newFanoutStore(t, []types.Channel{types.ChannelSlack, types.ChannelEmail})
	slack := &fakeSender{channel: types.ChannelSlack}
	email := &fakeSender{channel: types.ChannelEmail}
	fanout := NewFanout(store, slack, email)

	// Operator drops Slack while the scan is running.
	cfg := types.ScheduleConfig{Enabled: true, Frequency: types.FrequencyDaily,
		Channels: []types.Channel{types.ChannelEmail}}
	require.NoError(t, store.SetConfig(context.Background(), cfg))

	results := fanout.DispatchScheduled(context.Background(), reportWithResources(1))

	assert.Equal(t, map[types.Channel]bool{types.ChannelEmail: true}, results)
	assert.Zero(t, slack.calls)
}

func TestFanoutScheduledSkipsEmptyReports(t *testing.T) {
	store := newFanoutStore(t, []types.Channel{types.ChannelSlack})
	slack := &fakeSender{channel: types.ChannelSlack}
	fanout := NewFanout(store, slack)

	results := fanout.DispatchScheduled(context.Background(), reportWithResources(0))

	assert.Empty(t, results)
	assert.Zero(t, slack.calls)
}

func TestFanoutScheduledSendsEmptyWhenOptedIn(t *testing.T) {
	store := newFanoutStore(t, []types.Channel{types.ChannelSlack})
	slack := &fakeSender{channel: types.ChannelSlack}
	fanout := NewFanout(store, slack)
	fanout.NotifyEmpty = true

	results := fanout.DispatchScheduled(context.Background(), reportWithResources(0))

	assert.Equal(t, map[types.Channel]bool{types.ChannelSlack: true}, results)
}

func TestFanoutScheduledAlwaysSendsFailures(t *testing.T) {
	store := newFanoutStore(t, []types.Channel{types.ChannelSlack})
	slack := &fakeSender{channel: types.ChannelSlack}
	fanout := NewFanout(store, slack)

	report := &types.ScanReport{
		Outcomes: []types.ScanOutcome{
			{Target: types.ScanTarget{Region: "us-east-1", Kind: types.KindEC2},
				Status: types.StatusFailed, Error: "denied"},
		},
	}
	report.Finalize(time.Now())

	results := fanout.DispatchScheduled(context.Background(), report)

	assert.Equal(t, map[types.Channel]bool{types.ChannelSlack: true}, results)
}

func TestFanoutManualDispatchAlwaysSendsEmpty(t *testing.T) {
	store := newFanoutStore(t, []types.Channel{types.ChannelEmail})
	email := &fakeSender{channel: types.ChannelEmail}
	fanout := NewFanout(store, email)

	results := fanout.Dispatch(context.Background(), reportWithResources(0), nil)

	assert.Equal(t, map[types.Channel]bool{types.ChannelEmail: true}, results)
}

func TestFanoutManualDispatchSingleChannel(t *testing.T) {
	store := newFanoutStore(t, []types.Channel{types.ChannelSlack, types.ChannelEmail})
	slack := &fakeSender{channel: types.ChannelSlack}
	email := &fakeSender{channel: types.ChannelEmail}
	fanout := NewFanout(store, slack, email)

	only := types.ChannelSlack
	results := fanout.Dispatch(context.Background(), reportWithResources(1), &only)

	assert.Equal(t, map[types.Channel]bool{types.ChannelSlack: true}, results)
	assert.Zero(t, email.calls)
}

func TestFanoutMissingSenderRecordedAsFalse(t *testing.T) {
	store := newFanoutStore(t, []types.Channel{types.ChannelSlack, types.ChannelEmail})
	// Only email has a sender; slack is configured in the schedule but
	// its webhook is not set up.
	email := &fakeSender{channel: types.ChannelEmail}
	fanout := NewFanout(store, email)

	results := fanout.DispatchScheduled(context.Background(), reportWithResources(1))

	assert.Equal(t, map[types.Channel]bool{
		types.ChannelSlack: false,
		types.ChannelEmail: true,
	}, results)
}
