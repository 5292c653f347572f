package monitoring

import (
	"strconv"
	"sync"
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

	ContestJoins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contest_joins_total",
			Help: "Contest joins by participation kind",
		},
		[]string{"kind"},
	)

	SubmissionsJudged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_judged_total",
			Help: "Judged submissions by result",
		},
		[]string{"result"},
	)

	ScoreboardCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scoreboard_cache_requests_total",
			Help: "Scoreboard cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	ScoreboardWatchers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scoreboard_watchers",
			Help: "Open scoreboard websocket connections",
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(ContestJoins)
		prometheus.MustRegister(SubmissionsJudged)
		prometheus.MustRegister(ScoreboardCache)
		prometheus.MustRegister(ScoreboardWatchers)
	})
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
