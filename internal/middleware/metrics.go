package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records per-request Prometheus series: a request counter,
// a latency histogram, an in-flight gauge and a response size
// histogram, all labelled by method, normalized path and status.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
	respSize *prometheus.HistogramVec
}

// NewMetrics builds and registers the HTTP collectors under the given
// namespace on the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "merchant"
	}

	labels := []string{"method", "path", "status"}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served",
		}, labels),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Time spent serving HTTP requests",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, labels),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served",
		}),
		respSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_response_size_bytes",
			Help:      "Response body sizes",
			Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
		}, labels),
	}

	prometheus.MustRegister(m.requests, m.latency, m.inFlight, m.respSize)
	return m
}

// Middleware observes every request passing through it.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		ww := &countingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		path := normalizePath(r.URL.Path)
		status := strconv.Itoa(ww.status)
		m.requests.WithLabelValues(r.Method, path, status).Inc()
		m.latency.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		m.respSize.WithLabelValues(r.Method, path, status).Observe(float64(ww.written))
	})
}

// Handler exposes the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

type countingWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (w *countingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *countingWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}

// normalizePath collapses dynamic path segments so metric label
// cardinality stays bounded.
func normalizePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return path
	}

	switch segments[0] {
	case "webhooks":
		// /webhooks/{gateway} keeps the gateway name, it is a small
		// fixed set.
		return path
	case "pay":
		return path
	case "api":
		return normalizeAPIPath(segments)
	default:
		return path
	}
}

// normalizeAPIPath rewrites resource identifiers to placeholders.
//
//	/api/bills/{token}            -> /api/bills/:id
//	/api/bills/{token}/cancel     -> /api/bills/:id/cancel
//	/api/products/{id}/assign     -> /api/products/:id/assign
//	/api/catalogs/{id}/validate   -> /api/catalogs/:id/validate
func normalizeAPIPath(segments []string) string {
	if len(segments) < 3 {
		return "/" + strings.Join(segments, "/")
	}

	out := []string{segments[0], segments[1], ":id"}
	if len(segments) > 3 {
		out = append(out, segments[3:]...)
	}
	return "/" + strings.Join(out, "/")
}
