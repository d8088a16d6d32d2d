package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/schedule"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/scheduler"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/storage"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTrigger struct {
	taskID   string
	err      error
	state    scheduler.State
	skipped  int64
	triggers int
}

func (f *fakeTrigger) TriggerNow(ctx context.Context) (string, error) {
	f.triggers++
	return f.taskID, f.err
}

func (f *fakeTrigger) State() scheduler.State { return f.state }
func (f *fakeTrigger) SkippedTicks() int64    { return f.skipped }

type fakeHistory struct {
	summaries []*storage.ReportSummary
	last      *types.ScanReport
}

func (f *fakeHistory) Recent(n int) []*storage.ReportSummary {
	if n > len(f.summaries) {
		n = len(f.summaries)
	}
	return f.summaries[:n]
}

func (f *fakeHistory) LastReport() (*types.ScanReport, error) { return f.last, nil }

type fakeAlerter struct {
	configured []types.Channel
	results    map[types.Channel]bool
	lastOnly   *types.Channel
	dispatched int
}

func (f *fakeAlerter) Dispatch(ctx context.Context, report *types.ScanReport, only *types.Channel) map[types.Channel]bool {
	f.dispatched++
	f.lastOnly = only
	return f.results
}

func (f *fakeAlerter) Configured() []types.Channel { return f.configured }

type testServer struct {
	router  *gin.Engine
	store   schedule.Store
	trigger *fakeTrigger
	history *fakeHistory
	alerter *fakeAlerter
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := schedule.NewBoltStore(filepath.Join(t.TempDir(), "schedule.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	trigger := &fakeTrigger{taskID: "task-123", state: scheduler.StateWaiting}
	history := &fakeHistory{}
	alerter := &fakeAlerter{
		configured: []types.Channel{types.ChannelSlack},
		results:    map[types.Channel]bool{types.ChannelSlack: true},
	}

	h := NewHandlers(store, trigger, history, alerter)
	return &testServer{
		router:  NewRouter(h, nil),
		store:   store,
		trigger: trigger,
		history: history,
		alerter: alerter,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "waiting", body["scheduler_state"])
}

func TestGetScheduleConfigReturnsDefaultsWhenUnconfigured(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/schedule/config", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["enabled"])
	assert.Equal(t, "daily", body["frequency"])
}

func TestUpdateScheduleConfigRoundTrip(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/schedule/config", ScheduleConfigRequest{
		Enabled:               true,
		Frequency:             "custom",
		CustomIntervalMinutes: 90,
		Channels:              []string{"slack", "email"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	cfg, err := s.store.Config(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, types.FrequencyCustom, cfg.Frequency)
	assert.Equal(t, 90, cfg.CustomIntervalMinutes)
	assert.Equal(t, []types.Channel{types.ChannelSlack, types.ChannelEmail}, cfg.Channels)
}

func TestUpdateScheduleConfigRejectsInvalid(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		req  ScheduleConfigRequest
	}{
		{
			name: "custom without interval",
			req:  ScheduleConfigRequest{Frequency: "custom"},
		},
		{
			name: "interval without custom",
			req:  ScheduleConfigRequest{Frequency: "daily", CustomIntervalMinutes: 30},
		},
		{
			name: "unknown frequency",
			req:  ScheduleConfigRequest{Frequency: "fortnightly"},
		},
		{
			name: "unknown channel",
			req:  ScheduleConfigRequest{Frequency: "daily", Channels: []string{"pager"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/schedule/config", tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	// Nothing invalid was applied.
	_, err := s.store.Config(context.Background())
	assert.ErrorIs(t, err, schedule.ErrNotConfigured)
}

func TestEnableDisableSchedule(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/schedule/enable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["enabled"])

	w = s.do(t, http.MethodPost, "/api/v1/schedule/disable", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["enabled"])
}

func TestGetScheduleStatus(t *testing.T) {
	s := newTestServer(t)
	s.trigger.skipped = 4

	require.NoError(t, s.store.SetConfig(context.Background(), types.ScheduleConfig{
		Enabled:   true,
		Frequency: types.FrequencyHourly,
		Channels:  []types.Channel{types.ChannelSlack},
	}))
	scanTime := time.Now().Add(-10 * time.Minute)
	require.NoError(t, s.store.RecordScanCompleted(context.Background(), scanTime))

	w := s.do(t, http.MethodGet, "/api/v1/schedule/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["enabled"])
	assert.Equal(t, "hourly", body["frequency"])
	assert.NotNil(t, body["last_scan_at"])
	assert.NotNil(t, body["next_scan_at"])
	assert.Equal(t, float64(4), body["skipped_ticks"])
}

func TestTriggerScanReturnsTaskHandle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/schedule/trigger", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	body := decode(t, w)
	assert.Equal(t, "task-123", body["task_id"])
	assert.Equal(t, 1, s.trigger.triggers)
}

func TestTriggerScanConflictsWhileInFlight(t *testing.T) {
	s := newTestServer(t)
	s.trigger.err = scheduler.ErrScanInFlight

	w := s.do(t, http.MethodPost, "/api/v1/schedule/trigger", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSendAlertUsesLatestReport(t *testing.T) {
	s := newTestServer(t)
	report := &types.ScanReport{StartedAt: time.Now()}
	report.Finalize(time.Now())
	s.history.last = report

	w := s.do(t, http.MethodPost, "/api/v1/notifications/send-alert", SendAlertRequest{Channel: "slack"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1, s.alerter.dispatched)
	require.NotNil(t, s.alerter.lastOnly)
	assert.Equal(t, types.ChannelSlack, *s.alerter.lastOnly)
}

func TestSendAlertAllChannelsWhenBodyEmpty(t *testing.T) {
	s := newTestServer(t)
	report := &types.ScanReport{StartedAt: time.Now()}
	report.Finalize(time.Now())
	s.history.last = report

	w := s.do(t, http.MethodPost, "/api/v1/notifications/send-alert", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, s.alerter.lastOnly)
}

func TestSendAlertWithoutHistory(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/notifications/send-alert", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Zero(t, s.alerter.dispatched)
}

func TestSendAlertRejectsUnknownChannel(t *testing.T) {
	s := newTestServer(t)
	s.history.last = &types.ScanReport{}

	w := s.do(t, http.MethodPost, "/api/v1/notifications/send-alert", SendAlertRequest{Channel: "carrier-pigeon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNotificationConfig(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.SetConfig(context.Background(), types.ScheduleConfig{
		Frequency: types.FrequencyDaily,
		Channels:  []types.Channel{types.ChannelEmail},
	}))

	w := s.do(t, http.MethodGet, "/api/v1/notifications/config", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, []any{"slack"}, body["configured"])
	assert.Equal(t, []any{"email"}, body["selected"])
}

func TestGetRecentScans(t *testing.T) {
	s := newTestServer(t)
	now := time.Now()
	s.history.summaries = []*storage.ReportSummary{
		{Seq: 2, CompletedAt: now, TotalResources: 7, TotalSavings: 120.5},
		{Seq: 1, CompletedAt: now.Add(-time.Hour), TotalResources: 3},
	}

	w := s.do(t, http.MethodGet, "/api/v1/scans/recent?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])
}
