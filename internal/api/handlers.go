// Package api implements the REST endpoints the dashboard frontend uses
// to manage the scan schedule and notifications.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/schedule"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/scheduler"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/storage"
	"github.com/abhishekpanda0620/cloud-cleaner-dashboard/types"
)

// Trigger is the scheduler surface the API needs.
type Trigger interface {
	TriggerNow(ctx context.Context) (string, error)
	State() scheduler.State
	SkippedTicks() int64
}

// History is the scan history surface the API needs.
type History interface {
	Recent(n int) []*storage.ReportSummary
	LastReport() (*types.ScanReport, error)
}

// Alerter re-sends findings to notification channels on demand.
type Alerter interface {
	Dispatch(ctx context.Context, report *types.ScanReport, only *types.Channel) map[types.Channel]bool
	Configured() []types.Channel
}

// Handlers provides REST API endpoint handlers.
type Handlers struct {
	store   schedule.Store
	trigger Trigger
	history History
	alerter Alerter
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store schedule.Store, trigger Trigger, history History, alerter Alerter) *Handlers {
	return &Handlers{store: store, trigger: trigger, history: history, alerter: alerter}
}

// HealthCheck returns the service health status.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"service":         "cloud-cleaner",
		"scheduler_state": h.trigger.State(),
	})
}

// storeError maps store failures to the right status code.
func storeError(c *gin.Context, err error) {
	if errors.Is(err, schedule.ErrStoreUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// ScheduleConfigRequest represents the request body for updating the
// schedule configuration.
type ScheduleConfigRequest struct {
	Enabled               bool     `json:"enabled"`
	Frequency             string   `json:"frequency" binding:"required"`
	CustomIntervalMinutes int      `json:"custom_interval_minutes"`
	Channels              []string `json:"channels"`
}

// GetScheduleConfig returns the stored schedule configuration, or the
// defaults when nothing has been configured yet.
func (h *Handlers) GetScheduleConfig(c *gin.Context) {
	cfg, err := h.store.Config(c.Request.Context())
	if errors.Is(err, schedule.ErrNotConfigured) {
		cfg = types.DefaultScheduleConfig()
	} else if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// UpdateScheduleConfig validates and stores a full schedule configuration.
func (h *Handlers) UpdateScheduleConfig(c *gin.Context) {
	var req ScheduleConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channels := make([]types.Channel, 0, len(req.Channels))
	for _, raw := range req.Channels {
		ch, err := types.ParseChannel(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		channels = append(channels, ch)
	}

	cfg := types.ScheduleConfig{
		Enabled:               req.Enabled,
		Frequency:             types.Frequency(req.Frequency),
		CustomIntervalMinutes: req.CustomIntervalMinutes,
		Channels:              channels,
	}

	if err := h.store.SetConfig(c.Request.Context(), cfg); err != nil {
		var verr *types.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
			return
		}
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// GetScheduleStatus returns the schedule status plus scheduler runtime info.
func (h *Handlers) GetScheduleStatus(c *gin.Context) {
	cfg, err := h.store.Config(c.Request.Context())
	if errors.Is(err, schedule.ErrNotConfigured) {
		cfg = types.DefaultScheduleConfig()
	} else if err != nil {
		storeError(c, err)
		return
	}

	status, err := h.store.Status(c.Request.Context())
	if err != nil && !errors.Is(err, schedule.ErrNotConfigured) {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"enabled":         cfg.Enabled,
		"frequency":       cfg.Frequency,
		"channels":        cfg.Channels,
		"last_scan_at":    status.LastScanAt,
		"next_scan_at":    status.NextScanAt,
		"scheduler_state": h.trigger.State(),
		"skipped_ticks":   h.trigger.SkippedTicks(),
	})
}

// EnableSchedule atomically flips the schedule on.
func (h *Handlers) EnableSchedule(c *gin.Context) {
	h.setEnabled(c, true)
}

// DisableSchedule atomically flips the schedule off.
func (h *Handlers) DisableSchedule(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *Handlers) setEnabled(c *gin.Context, enabled bool) {
	var err error
	if enabled {
		err = h.store.Enable(c.Request.Context())
	} else {
		err = h.store.Disable(c.Request.Context())
	}
	if err != nil {
		storeError(c, err)
		return
	}

	cfg, err := h.store.Config(c.Request.Context())
	if err != nil {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// TriggerScan submits an ad-hoc scan and returns its task handle without
// waiting for the scan to finish.
func (h *Handlers) TriggerScan(c *gin.Context) {
	taskID, err := h.trigger.TriggerNow(c.Request.Context())
	if errors.Is(err, scheduler.ErrScanInFlight) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id":   taskID,
		"status":    "submitted",
		"submitted": time.Now().UTC(),
	})
}

// SendAlertRequest represents the request body for re-sending findings.
type SendAlertRequest struct {
	Channel string `json:"channel"`
}

// SendAlert re-sends the most recent scan findings, optionally to a single
// channel. Unlike scheduled dispatch, an empty report is still sent.
func (h *Handlers) SendAlert(c *gin.Context) {
	// An empty body means "all configured channels".
	var req SendAlertRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var only *types.Channel
	if req.Channel != "" {
		ch, err := types.ParseChannel(req.Channel)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		only = &ch
	}

	report, err := h.history.LastReport()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if report == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no scan report available yet, trigger a scan first"})
		return
	}

	results := h.alerter.Dispatch(c.Request.Context(), report, only)
	c.JSON(http.StatusOK, gin.H{
		"report_completed_at": report.CompletedAt,
		"results":             results,
	})
}

// GetNotificationConfig reports which channels have working senders and
// which are selected for scheduled dispatch.
func (h *Handlers) GetNotificationConfig(c *gin.Context) {
	selected := []types.Channel{}
	cfg, err := h.store.Config(c.Request.Context())
	if err == nil {
		selected = cfg.Channels
	} else if !errors.Is(err, schedule.ErrNotConfigured) {
		storeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"configured": h.alerter.Configured(),
		"selected":   selected,
	})
}

// GetRecentScans returns summaries of recent scan reports, newest first.
func (h *Handlers) GetRecentScans(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "10")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 100 {
		limit = 10
	}

	scans := h.history.Recent(limit)
	c.JSON(http.StatusOK, gin.H{
		"count": len(scans),
		"data":  scans,
	})
}
