package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/courselab-api/internal/dto"
	"github.com/noah-isme/courselab-api/pkg/response"
)

type metricsSource interface {
	Handler() http.Handler
	Snapshot() dto.SystemMetrics
}

type queueStatsSource interface {
	Stats() dto.QueueStats
}

// Pinger checks a dependency for readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics metricsSource
	queue   queueStatsSource
	db      Pinger
}

// NewMetricsHandler constructs a metrics handler. queue and db may be nil.
func NewMetricsHandler(metrics metricsSource, queue queueStatsSource, db Pinger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, queue: queue, db: db}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Snapshot godoc
// @Summary Runtime counters
// @Tags Metrics
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /metrics/summary [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	snapshot := h.metrics.Snapshot()
	if h.queue != nil {
		stats := h.queue.Stats()
		snapshot.Queue = &stats
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Health responds with OK while the database answers.
func (h *MetricsHandler) Health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
