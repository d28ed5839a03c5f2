// Package metrics exposes scan and outbound-request metrics for Prometheus
// scraping. A nil *Recorder is valid and records nothing.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "openapi"

// Recorder owns a private registry and the collectors registered on it
type Recorder struct {
	registry *prometheus.Registry

	scansTotal       *prometheus.CounterVec
	scansInFlight    prometheus.Gauge
	scanDuration     prometheus.Histogram
	phaseDuration    *prometheus.HistogramVec
	findingsTotal    *prometheus.CounterVec
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	rejectedRequests prometheus.Counter
}

// NewRecorder creates and registers all collectors
func NewRecorder() (*Recorder, error) {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Total number of scans by outcome",
		},
		[]string{"status"},
	)
	r.scansInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scans_in_flight",
		Help:      "Number of scans currently running",
	})
	r.scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scan_duration_seconds",
		Help:      "Duration of complete scans",
		Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
	})
	r.phaseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of each scan phase",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"phase"},
	)
	r.findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Findings reported by kind",
		},
		[]string{"kind"},
	)
	r.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_requests_total",
			Help:      "Outbound HTTP requests by status code and method",
		},
		[]string{"code", "method"},
	)
	r.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "outbound_request_duration_seconds",
			Help:      "Outbound HTTP request latency",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		},
		[]string{"code", "method"},
	)
	r.rejectedRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejected_scan_requests_total",
		Help:      "Scan requests refused by admission control",
	})

	collectors := []prometheus.Collector{
		r.scansTotal,
		r.scansInFlight,
		r.scanDuration,
		r.phaseDuration,
		r.findingsTotal,
		r.requestsTotal,
		r.requestDuration,
		r.rejectedRequests,
	}
	for _, c := range collectors {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return r, nil
}

// Registry returns the private registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ScanStarted marks a scan as running
func (r *Recorder) ScanStarted() {
	if r == nil {
		return
	}
	r.scansInFlight.Inc()
}

// ScanFinished records the outcome of a scan started with ScanStarted
func (r *Recorder) ScanFinished(status string, d time.Duration) {
	if r == nil {
		return
	}
	r.scansInFlight.Dec()
	r.scansTotal.WithLabelValues(status).Inc()
	r.scanDuration.Observe(d.Seconds())
}

// ObservePhase records the duration of one phase
func (r *Recorder) ObservePhase(phase string, d time.Duration) {
	if r == nil {
		return
	}
	r.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// AddFindings adds n findings of a kind
func (r *Recorder) AddFindings(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.findingsTotal.WithLabelValues(kind).Add(float64(n))
}

// ScanRejected counts a request refused before a scan started
func (r *Recorder) ScanRejected() {
	if r == nil {
		return
	}
	r.rejectedRequests.Inc()
}

// InstrumentRoundTripper wraps next so every outbound request is counted and
// timed
func (r *Recorder) InstrumentRoundTripper(next http.RoundTripper) http.RoundTripper {
	if r == nil {
		return next
	}
	return promhttp.InstrumentRoundTripperCounter(r.requestsTotal,
		promhttp.InstrumentRoundTripperDuration(r.requestDuration, next))
}
