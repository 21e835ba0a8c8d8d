package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	PlaybackTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audio_channel_transitions_total",
			Help: "Shared audio channel state transitions",
		},
		[]string{"op"},
	)

	MediaResolves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_resolves_total",
			Help: "Media gateway resolutions by outcome",
		},
		[]string{"outcome"}, // passthrough / signed / cached / failed / stale
	)

	AssignmentSubmits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_submits_total",
			Help: "Assignment submissions by outcome",
		},
		[]string{"outcome"}, // success / failed / auto
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(PlaybackTransitions)
	prometheus.MustRegister(MediaResolves)
	prometheus.MustRegister(AssignmentSubmits)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
