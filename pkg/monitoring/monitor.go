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

	DistributionJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distribution_jobs_total",
			Help: "Finished distribution jobs by final status",
		},
		[]string{"status"},
	)

	DistributionNodeOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distribution_node_outcomes_total",
			Help: "Per-node distribution outcomes",
		},
		[]string{"outcome"},
	)

	DistributionJobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "distribution_job_duration_seconds",
			Help:    "Wall time of a distribution fan-out",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)

	ContentVersionsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_versions_created_total",
			Help: "Content versions created by change type",
		},
		[]string{"change_type"},
	)

	// 在 review 中停留超过告警阈值的翻译请求数
	StaleTranslationReviews = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "translation_requests_stale_in_review",
			Help: "Translation requests waiting in review beyond the alert threshold",
		},
	)
)

func Init() {
	prometheus.MustRegister(
		RequestCounter,
		RequestDuration,
		DistributionJobs,
		DistributionNodeOutcomes,
		DistributionJobDuration,
		ContentVersionsCreated,
		StaleTranslationReviews,
	)
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
