// Package metrics defines Prometheus instrumentation for the gateway and
// the blob lifecycle.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics captures blob lifecycle outcomes.
type Metrics interface {
	IncUpload(status string)
	IncDownload(status string)
	IncOrphanReclaimed(kind string)
}

// GatewayMetrics captures request metrics for the HTTP gateway.
type GatewayMetrics interface {
	ObserveRequest(method, route, status string, durationSeconds float64)
}

// Orphan kinds reported by IncOrphanReclaimed.
const (
	OrphanBlob  = "blob"  // blob with no index entry, reclaimed by the sweeper
	OrphanIndex = "index" // index entry with no backing blob, healed on read
)

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncUpload(string)          {}
func (Noop) IncDownload(string)        {}
func (Noop) IncOrphanReclaimed(string) {}

// Prom implements Metrics backed by Prometheus counters.
type Prom struct {
	uploads   *prometheus.CounterVec
	downloads *prometheus.CounterVec
	orphans   *prometheus.CounterVec
	once      sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Blob uploads by outcome",
		}, []string{"status"}),
		downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloads_total",
			Help:      "Blob downloads by outcome",
		}, []string{"status"}),
		orphans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphans_reclaimed_total",
			Help:      "Orphaned records reclaimed by kind",
		}, []string{"kind"}),
	}
	p.once.Do(func() {
		prometheus.MustRegister(p.uploads, p.downloads, p.orphans)
	})
	return p
}

func (p *Prom) IncUpload(status string) {
	p.uploads.WithLabelValues(status).Inc()
}

func (p *Prom) IncDownload(status string) {
	p.downloads.WithLabelValues(status).Inc()
}

func (p *Prom) IncOrphanReclaimed(kind string) {
	p.orphans.WithLabelValues(kind).Inc()
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// --- Gateway metrics ---

type gatewayProm struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	once     sync.Once
}

// NewGatewayProm constructs a GatewayMetrics with counters/histograms.
func NewGatewayProm(namespace string) GatewayMetrics {
	g := &gatewayProm{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method/route/status",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method/route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	g.once.Do(func() {
		prometheus.MustRegister(g.requests, g.latency)
	})
	return g
}

func (g *gatewayProm) ObserveRequest(method, route, status string, durationSeconds float64) {
	g.requests.WithLabelValues(method, route, status).Inc()
	g.latency.WithLabelValues(method, route).Observe(durationSeconds)
}
