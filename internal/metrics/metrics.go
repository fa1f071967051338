// Package metrics exposes Prometheus collectors for the mail server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pgpmail"

// Metrics groups the server collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	CryptoOperations *prometheus.CounterVec
	CryptoDuration   *prometheus.HistogramVec
	LaneInFlight     *prometheus.GaugeVec
	LaneWait         *prometheus.HistogramVec
	Requests         *prometheus.CounterVec
	RateLimited      *prometheus.CounterVec
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		CryptoOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crypto_operations_total",
			Help:      "Cryptographic operations by operation and result.",
		}, []string{"op", "result"}),
		CryptoDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "crypto_duration_seconds",
			Help:      "Time spent inside cryptographic primitives.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		}, []string{"op"}),
		LaneInFlight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_lane_in_flight",
			Help:      "Operations currently running per worker lane.",
		}, []string{"lane"}),
		LaneWait: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_lane_wait_seconds",
			Help:      "Time spent waiting for a worker lane slot.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"lane"}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Handled gRPC requests by method and status code.",
		}, []string{"method", "code"}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"method"}),
	}
}

// ObserveCrypto records one cryptographic operation.
func (m *Metrics) ObserveCrypto(op string, start time.Time, result string) {
	if m == nil {
		return
	}
	m.CryptoOperations.WithLabelValues(op, result).Inc()
	m.CryptoDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// LaneAcquired records a lane slot being taken after waiting for wait.
func (m *Metrics) LaneAcquired(lane string, wait time.Duration) {
	if m == nil {
		return
	}
	m.LaneWait.WithLabelValues(lane).Observe(wait.Seconds())
	m.LaneInFlight.WithLabelValues(lane).Inc()
}

// LaneReleased records a lane slot being given back.
func (m *Metrics) LaneReleased(lane string) {
	if m == nil {
		return
	}
	m.LaneInFlight.WithLabelValues(lane).Dec()
}

// ObserveRequest records a finished gRPC request.
func (m *Metrics) ObserveRequest(method, code string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, code).Inc()
}

// ObserveRateLimited records a rejected request.
func (m *Metrics) ObserveRateLimited(method string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(method).Inc()
}

// NewHTTPServer serves the collectors of g on /metrics.
func NewHTTPServer(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
