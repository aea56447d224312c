package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashboard_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	filterRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_filter_runs_total",
		Help: "Dashboard filter operations by outcome.",
	}, []string{"outcome"})

	previewWarnings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_preview_warnings_total",
		Help: "Preview resolutions that failed for a single role.",
	}, []string{"role"})

	registerOnce sync.Once
)

// InitMetrics registers the dashboard collectors with the default registry.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, filterRuns, previewWarnings)
	})
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// Middleware records request counts and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// ObserveFilter counts a finished filter operation.
func ObserveFilter(outcome string) {
	filterRuns.WithLabelValues(outcome).Inc()
}

// ObservePreviewWarning counts a preview slot that could not be resolved.
func ObservePreviewWarning(role string) {
	previewWarnings.WithLabelValues(role).Inc()
}
