// internal/app/system/metrics/metrics.go

// Package metrics exposes fieldhub's Prometheus instrumentation: operation
// outcomes by kind, area aggregation latency, request latency, blob-store
// breaker state and store totals.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/fieldhub/internal/app/system/outcome"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldhub_operations_total",
			Help: "Core operations by name and outcome kind",
		},
		[]string{"operation", "outcome"},
	)

	AggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fieldhub_area_aggregation_seconds",
			Help:    "Time to compute statistics for all areas visible to a user",
			Buckets: prometheus.DefBuckets,
		},
	)

	AreasSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fieldhub_area_aggregation_skipped_total",
			Help: "Areas left out of aggregation because of malformed geometry",
		},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fieldhub_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fieldhub_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	BreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fieldhub_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result",
		},
		[]string{"name", "result"},
	)
)

// Observe counts one run of operation with the outcome kind of err.
func Observe(operation string, err error) {
	Operations.WithLabelValues(operation, Label(err)).Inc()
}

// Label is the outcome label for err: "ok", a kind name, or "internal".
func Label(err error) string {
	if err == nil {
		return "ok"
	}
	if k := outcome.KindOf(err); k != outcome.KindNone {
		return string(k)
	}
	return "internal"
}

// Middleware records request latency by chi route pattern so path
// parameters do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Totals are store-wide document counts reported on each scrape.
type Totals struct {
	Users       int64
	Communities int64
	Cameras     int64
	Sightings   int64
	Areas       int64
}

// TotalsCollector reports Totals as gauges, fetching them when scraped.
type TotalsCollector struct {
	fetch   func(ctx context.Context) Totals
	timeout time.Duration
	desc    *prometheus.Desc
}

// NewTotalsCollector returns a collector that calls fetch with a context
// bounded by timeout on every scrape.
func NewTotalsCollector(fetch func(ctx context.Context) Totals, timeout time.Duration) *TotalsCollector {
	return &TotalsCollector{
		fetch:   fetch,
		timeout: timeout,
		desc: prometheus.NewDesc(
			"fieldhub_store_documents",
			"Documents in the store by collection",
			[]string{"collection"}, nil,
		),
	}
}

func (c *TotalsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *TotalsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	t := c.fetch(ctx)
	for _, v := range []struct {
		name string
		n    int64
	}{
		{"users", t.Users},
		{"communities", t.Communities},
		{"cameras", t.Cameras},
		{"sightings", t.Sightings},
		{"geoareas", t.Areas},
	} {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(v.n), v.name)
	}
}
