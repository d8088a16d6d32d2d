package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ScheduleConfig
		wantErr bool
	}{
		{
			name: "valid daily",
			cfg:  ScheduleConfig{Enabled: true, Frequency: FrequencyDaily},
		},
		{
			name: "valid custom with interval",
			cfg:  ScheduleConfig{Frequency: FrequencyCustom, CustomIntervalMinutes: 45},
		},
		{
			name:    "custom without interval",
			cfg:     ScheduleConfig{Frequency: FrequencyCustom},
			wantErr: true,
		},
		{
			name:    "custom with negative interval",
			cfg:     ScheduleConfig{Frequency: FrequencyCustom, CustomIntervalMinutes: -5},
			wantErr: true,
		},
		{
			name:    "interval on non-custom frequency",
			cfg:     ScheduleConfig{Frequency: FrequencyHourly, CustomIntervalMinutes: 10},
			wantErr: true,
		},
		{
			name:    "unknown frequency",
			cfg:     ScheduleConfig{Frequency: "fortnightly"},
			wantErr: true,
		},
		{
			name: "valid channels",
			cfg:  ScheduleConfig{Frequency: FrequencyDaily, Channels: []Channel{ChannelSlack, ChannelEmail}},
		},
		{
			name:    "unknown channel",
			cfg:     ScheduleConfig{Frequency: FrequencyDaily, Channels: []Channel{"pager"}},
			wantErr: true,
		},
		{
			name:    "duplicate channel",
			cfg:     ScheduleConfig{Frequency: FrequencyDaily, Channels: []Channel{ChannelSlack, ChannelSlack}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				var verr *ValidationError
				assert.ErrorAs(t, err, &verr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScheduleConfigInterval(t *testing.T) {
	assert.Equal(t, time.Hour, ScheduleConfig{Frequency: FrequencyHourly}.Interval())
	assert.Equal(t, 24*time.Hour, ScheduleConfig{Frequency: FrequencyDaily}.Interval())
	assert.Equal(t, 7*24*time.Hour, ScheduleConfig{Frequency: FrequencyWeekly}.Interval())
	assert.Equal(t, 45*time.Minute,
		ScheduleConfig{Frequency: FrequencyCustom, CustomIntervalMinutes: 45}.Interval())
}

func TestNextScanAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("disabled has no next scan", func(t *testing.T) {
		cfg := ScheduleConfig{Enabled: false, Frequency: FrequencyDaily}
		assert.Nil(t, NextScanAt(cfg, nil, now))
	})

	t.Run("never ran is due immediately", func(t *testing.T) {
		cfg := ScheduleConfig{Enabled: true, Frequency: FrequencyHourly}
		next := NextScanAt(cfg, nil, now)
		require.NotNil(t, next)
		assert.Equal(t, now, *next)
	})

	t.Run("based on last scan when present", func(t *testing.T) {
		cfg := ScheduleConfig{Enabled: true, Frequency: FrequencyDaily}
		last := now.Add(-2 * time.Hour)
		next := NextScanAt(cfg, &last, now)
		require.NotNil(t, next)
		assert.Equal(t, last.Add(24*time.Hour), *next)
	})
}

func TestResourceKindIsGlobal(t *testing.T) {
	assert.False(t, KindEC2.IsGlobal())
	assert.False(t, KindEBS.IsGlobal())
	assert.True(t, KindS3.IsGlobal())
	assert.True(t, KindIAMRole.IsGlobal())
	assert.True(t, KindIAMUser.IsGlobal())
	assert.True(t, KindAccessKey.IsGlobal())
}

func TestParseChannel(t *testing.T) {
	ch, err := ParseChannel("slack")
	require.NoError(t, err)
	assert.Equal(t, ChannelSlack, ch)

	_, err = ParseChannel("carrier-pigeon")
	assert.Error(t, err)
}
