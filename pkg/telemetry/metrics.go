package telemetry

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for catalog and install operations.
// A disabled instance accepts every call and records nothing.
type Metrics struct {
	config MetricsConfig

	installs        *prometheus.CounterVec
	installDuration *prometheus.HistogramVec
	remoteFetches   *prometheus.CounterVec
	errorsByClass   *prometheus.CounterVec
	catalogPackages *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		installs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "installs_total",
				Help:      "Install requests by provenance and outcome",
			},
			[]string{"provenance", "status"},
		),
		installDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "install_duration_seconds",
				Help:      "Time spent in the external install step",
				Buckets:   buckets,
			},
			[]string{"provenance"},
		),
		remoteFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_fetch_total",
				Help:      "Remote metadata lookups by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Command failures by error class",
			},
			[]string{"class"},
		),
		catalogPackages: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "catalog_packages",
				Help:      "Catalog entries by provenance kind",
			},
			[]string{"provenance"},
		),
	}

	collectors := []prometheus.Collector{
		m.installs,
		m.installDuration,
		m.remoteFetches,
		m.errorsByClass,
		m.catalogPackages,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// RecordInstall counts one install outcome and, for attempts that ran the
// external step, its duration.
func (m *Metrics) RecordInstall(provenance, status string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.installs.WithLabelValues(provenance, status).Inc()
	if duration > 0 {
		m.installDuration.WithLabelValues(provenance).Observe(duration.Seconds())
	}
}

// RecordRemoteFetch counts one remote metadata lookup.
func (m *Metrics) RecordRemoteFetch(operation, status string) {
	if !m.enabled() {
		return
	}
	m.remoteFetches.WithLabelValues(operation, status).Inc()
}

// RecordError counts a failure by error class.
func (m *Metrics) RecordError(class string) {
	if !m.enabled() {
		return
	}
	m.errorsByClass.WithLabelValues(class).Inc()
}

// SetCatalogPackages records the number of catalog entries of a kind.
func (m *Metrics) SetCatalogPackages(provenance string, count int) {
	if !m.enabled() {
		return
	}
	m.catalogPackages.WithLabelValues(provenance).Set(float64(count))
}

// Registry returns the underlying registry, or nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if !m.enabled() {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// NewServer builds an HTTP server exposing the metrics endpoint on addr.
func (m *Metrics) NewServer(addr string) *http.Server {
	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// WriteTextfile writes the registry to the configured textfile, if any.
func (m *Metrics) WriteTextfile() error {
	if !m.enabled() || m.config.Textfile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.config.Textfile), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(m.config.Textfile, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
