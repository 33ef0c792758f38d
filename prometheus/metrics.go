package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradenet_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"service", "endpoint", "method", "status"},
	)

	// Responses by status category
	StatusCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradenet_http_status_category_total",
			Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
		},
		[]string{"service", "category"},
	)

	// Participant, product and user operations
	ResourceOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradenet_resource_operations_total",
			Help: "Total number of successful resource operations",
		},
		[]string{"resource", "operation"}, // operation can be "create", "update", "delete", "clear_debt"
	)

	// Hierarchy rule rejections
	HierarchyRejectionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradenet_hierarchy_rejections_total",
			Help: "Total number of participant changes rejected by a hierarchy rule",
		},
		[]string{"rule"},
	)

	// Login counter
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tradenet_login_total",
			Help: "Total number of successful logins",
		},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradenet_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // type can be "login_failure", "invalid_token", "missing_token", "forbidden"
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradenet_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradenet_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tradenet_info",
			Help: "Information about the tradenet service",
		},
		[]string{"version"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(StatusCategoryCounter)
	prometheus.MustRegister(ResourceOperationCounter)
	prometheus.MustRegister(HierarchyRejectionCounter)
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(AuthErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(InfoGauge)
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// statusCategory maps a status code to its metric label, empty for 1xx/3xx
func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return ""
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware(service string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// run the error handler first so the written status is observed
			if err := next(c); err != nil {
				c.Error(err)
			}

			duration := time.Since(start).Seconds()
			status := c.Response().Status
			labels := prometheus.Labels{
				"service":  service,
				"endpoint": c.Path(),
				"method":   c.Request().Method,
				"status":   strconv.Itoa(status),
			}

			RequestDuration.With(labels).Observe(duration)
			HTTPRequestCounter.With(labels).Inc()

			if category := statusCategory(status); category != "" {
				StatusCategoryCounter.WithLabelValues(service, category).Inc()
			}

			return nil
		}
	}
}

// RecordOperation records a successful operation on a resource
func RecordOperation(resource, operation string) {
	ResourceOperationCounter.With(prometheus.Labels{
		"resource":  resource,
		"operation": operation,
	}).Inc()
}

// RecordHierarchyRejection records a participant change rejected by rule
func RecordHierarchyRejection(rule string) {
	HierarchyRejectionCounter.With(prometheus.Labels{"rule": rule}).Inc()
}

// RecordLogin records a successful login
func RecordLogin() {
	LoginCounter.Inc()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}
