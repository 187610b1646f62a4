// Package api provides HTTP handlers for revisor.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	storage       HealthChecker
	backend       string
	schemaVersion int
	log           *logrus.Logger
	version       string
	startTime     time.Time
	feed          FeedCounter
}

// FeedCounter reports connected feed subscribers.
type FeedCounter interface {
	ClientCount() int
}

// SetFeed adds the feed subscriber count to health responses.
func (h *HealthHandler) SetFeed(feed FeedCounter) {
	h.feed = feed
}

// NewHealthHandler creates a HealthHandler. storage may be nil.
func NewHealthHandler(storage HealthChecker, backend string, schemaVersion int, log *logrus.Logger, version string) *HealthHandler {
	return &HealthHandler{
		storage:       storage,
		backend:       backend,
		schemaVersion: schemaVersion,
		log:           log,
		version:       version,
		startTime:     time.Now(),
	}
}

// healthResponse is the JSON payload returned by the health endpoint.
type healthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Backend       string  `json:"backend"`
	Storage       string  `json:"storage"`
	SchemaVersion int     `json:"schema_version,omitempty"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Subscribers   *int    `json:"feed_subscribers,omitempty"`
}

// Liveness handles GET /api/v1/health. A storage failure is reported with 503.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		Backend:       h.backend,
		Storage:       "connected",
		SchemaVersion: h.schemaVersion,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	status := http.StatusOK

	if h.feed != nil {
		n := h.feed.ClientCount()
		resp.Subscribers = &n
	}

	if h.storage == nil {
		resp.Storage = "not_configured"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.storage.HealthCheck(ctx); err != nil {
			h.log.WithError(err).Error("health.storage_failed")
			resp.Status = "degraded"
			resp.Storage = "disconnected"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, resp)
}
