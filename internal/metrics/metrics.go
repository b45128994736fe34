// Package metrics exposes Prometheus metrics for HTTP traffic and domain
// events.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the application metrics registered on one registry.
type Collector struct {
	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	events         *prometheus.CounterVec
	rateLimited    prometheus.Counter
	idempotentHits prometheus.Counter
}

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenantdesk_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tenantdesk_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tenantdesk_events_published_total",
			Help: "Domain events by type and outcome.",
		}, []string{"type", "outcome"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenantdesk_rate_limited_total",
			Help: "Requests rejected by the per-caller rate limiter.",
		}),
		idempotentHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tenantdesk_idempotency_replays_total",
			Help: "Requests rejected because their Idempotency-Key was already used.",
		}),
	}

	reg.MustRegister(c.requests, c.latency, c.events, c.rateLimited, c.idempotentHits)
	return c
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the gathered metrics for scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Middleware records request count and latency labelled with the chi route
// pattern, so path parameters do not explode label cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		c.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.latency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// EventPublished counts a publish attempt.
func (c *Collector) EventPublished(eventType string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.events.WithLabelValues(eventType, outcome).Inc()
}

func (c *Collector) RateLimited() {
	c.rateLimited.Inc()
}

func (c *Collector) IdempotentReplay() {
	c.idempotentHits.Inc()
}
