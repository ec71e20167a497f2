package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Neyfan/zama-dca-bot-batching/pkg/metrics"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck reports whether one dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// MetricsHandler provides Prometheus metrics and probe endpoints
type MetricsHandler struct {
	service  string
	registry *prometheus.Registry
	checks   map[string]ReadinessCheck
}

// NewMetricsHandler creates a new metrics handler on the shared registry.
func NewMetricsHandler(service string) *MetricsHandler {
	return &MetricsHandler{
		service:  service,
		registry: metrics.Registry,
		checks:   make(map[string]ReadinessCheck),
	}
}

// AddReadinessCheck registers a dependency probed by /ready.
func (h *MetricsHandler) AddReadinessCheck(name string, check ReadinessCheck) {
	h.checks[name] = check
}

// Register mounts /metrics, /health, /ready and /live.
func (h *MetricsHandler) Register(router gin.IRoutes) {
	router.GET("/metrics", h.MetricsEndpoint())
	router.GET("/health", h.HealthEndpoint())
	router.GET("/ready", h.ReadinessEndpoint())
	router.GET("/live", h.LivenessEndpoint())
}

// MetricsEndpoint returns the Prometheus metrics handler
func (h *MetricsHandler) MetricsEndpoint() gin.HandlerFunc {
	handler := promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})

	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// HealthEndpoint provides health check
func (h *MetricsHandler) HealthEndpoint() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   h.service,
			"timestamp": time.Now().Unix(),
		})
	}
}

// ReadinessEndpoint runs every registered check and fails on the first error.
func (h *MetricsHandler) ReadinessEndpoint() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		failed := gin.H{}
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}

		if len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not_ready",
				"checks": failed,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	}
}

// LivenessEndpoint provides liveness check
func (h *MetricsHandler) LivenessEndpoint() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "alive",
		})
	}
}
