package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bundle_app"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	webhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhooks",
			Name:      "deliveries_total",
			Help:      "Webhook deliveries by topic and outcome.",
		},
		[]string{"topic", "outcome"},
	)

	webhookReregistrations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhooks",
			Name:      "reregistrations_total",
			Help:      "Handler re-registrations triggered by a registry miss.",
		},
	)

	oauthCallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oauth",
			Name:      "callbacks_total",
			Help:      "OAuth callbacks by outcome.",
		},
		[]string{"outcome"},
	)

	invalidationsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidations_published_total",
			Help:      "Cache invalidation signals published by type.",
		},
		[]string{"type"},
	)

	invalidationsConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "invalidations_consumed_total",
			Help:      "Cache invalidation signals delivered to a poller.",
		},
	)

	shopifyCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "shopify",
			Name:      "admin_calls_total",
			Help:      "Shopify Admin API calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	shopifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "shopify",
			Name:      "admin_call_duration_seconds",
			Help:      "Duration of Shopify Admin API calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"operation"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		webhookDeliveries,
		webhookReregistrations,
		oauthCallbacks,
		invalidationsPublished,
		invalidationsConsumed,
		shopifyCalls,
		shopifyDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routePattern(r)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordWebhookDelivery counts a webhook delivery outcome
func RecordWebhookDelivery(topic, outcome string) {
	if topic == "" {
		topic = "unknown"
	}
	webhookDeliveries.WithLabelValues(topic, outcome).Inc()
}

// RecordReregistration counts a reactive handler re-registration
func RecordReregistration() {
	webhookReregistrations.Inc()
}

// RecordOAuthCallback counts an OAuth callback outcome
func RecordOAuthCallback(outcome string) {
	oauthCallbacks.WithLabelValues(outcome).Inc()
}

// RecordInvalidationPublished counts a published invalidation signal
func RecordInvalidationPublished(invalidationType string) {
	invalidationsPublished.WithLabelValues(invalidationType).Inc()
}

// RecordInvalidationConsumed counts a signal handed to a poller
func RecordInvalidationConsumed() {
	invalidationsConsumed.Inc()
}

// RecordShopifyCall records an Admin API call
func RecordShopifyCall(operation string, duration time.Duration, err error) {
	if operation == "" {
		operation = "anonymous"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	shopifyCalls.WithLabelValues(operation, outcome).Inc()
	shopifyDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// routePattern keeps label cardinality bounded by using the matched chi route
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
