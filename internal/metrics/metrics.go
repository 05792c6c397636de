package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_http_requests_total",
			Help: "Total number of HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	VerificationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_verification_transitions_total",
			Help: "Property verification actions applied, by action",
		},
		[]string{"action"},
	)

	BookingStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_booking_status_changes_total",
			Help: "Booking status changes, by resulting status",
		},
		[]string{"status"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_notifications_failed_total",
			Help: "Notification deliveries that failed, by channel",
		},
		[]string{"channel"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_rate_limited_total",
			Help: "Requests rejected by a rate limiter, by limiter name",
		},
		[]string{"limiter"},
	)

	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_job_runs_total",
			Help: "Scheduled job executions, by job and result",
		},
		[]string{"job", "result"},
	)
)

// Middleware records request counts and latencies per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
