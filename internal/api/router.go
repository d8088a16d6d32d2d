package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the handlers into a gin engine with CORS for the
// dashboard frontend.
func NewRouter(h *Handlers, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if len(allowOrigins) == 0 {
		allowOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", h.HealthCheck)

	v1 := r.Group("/api/v1")
	{
		sched := v1.Group("/schedule")
		{
			sched.GET("/config", h.GetScheduleConfig)
			sched.POST("/config", h.UpdateScheduleConfig)
			sched.GET("/status", h.GetScheduleStatus)
			sched.POST("/enable", h.EnableSchedule)
			sched.POST("/disable", h.DisableSchedule)
			sched.POST("/trigger", h.TriggerScan)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.POST("/send-alert", h.SendAlert)
			notifications.GET("/config", h.GetNotificationConfig)
		}

		v1.GET("/scans/recent", h.GetRecentScans)
	}

	return r
}
