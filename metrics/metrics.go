package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crmhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crmhub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Realtime metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crmhub_websocket_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crmhub_events_published_total",
			Help: "Server-originated change events published to the relay",
		},
		[]string{"topic"},
	)

	eventsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crmhub_events_relayed_total",
			Help: "Client events echoed to other connections",
		},
		[]string{"topic"},
	)

	// CRUD metrics
	leadOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crmhub_lead_operations_total",
			Help: "Total number of lead operations",
		},
		[]string{"operation"}, // create, update, delete
	)

	dbQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crmhub_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"}, // select/insert/update/delete/upsert x success/error
	)

	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crmhub_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"},
	)
)

// PrometheusMiddleware creates a Fiber middleware that records request
// counts and latencies.
func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		method := c.Method()
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		statusCode := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// UpdateWebSocketConnections updates the WebSocket connections gauge.
func UpdateWebSocketConnections(count int) {
	websocketConnections.Set(float64(count))
}

// IncrementEventPublished counts a server-originated event by topic.
func IncrementEventPublished(topic string) {
	eventsPublished.WithLabelValues(topic).Inc()
}

// IncrementEventRelayed counts a client-originated echo by topic.
func IncrementEventRelayed(topic string) {
	eventsRelayed.WithLabelValues(topic).Inc()
}

// IncrementLeadOperation increments the lead operation counter.
func IncrementLeadOperation(operation string) {
	leadOperations.WithLabelValues(operation).Inc()
}

// IncrementDatabaseQuery increments the database query counter.
func IncrementDatabaseQuery(operation, status string) {
	dbQueriesTotal.WithLabelValues(operation, status).Inc()
}

// IncrementError increments the error counter.
func IncrementError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}
