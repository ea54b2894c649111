package telemetry

import (
	"fmt"
	"time"
)

// Config contains the telemetry configuration.
type Config struct {
	// ServiceName identifies the tool in traces and metric namespaces.
	ServiceName string `yaml:"service_name" json:"service_name"`

	// ServiceVersion is set from build information, not from config files.
	ServiceVersion string `yaml:"-" json:"-"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	Level string `yaml:"level" json:"level"`

	// Format is console or json.
	Format string `yaml:"format" json:"format"`

	// Output is stderr, stdout or a file path.
	Output string `yaml:"output" json:"output"`

	// EnableCaller adds file:line caller information to logs.
	EnableCaller bool `yaml:"caller" json:"caller"`

	// TimeFormat is rfc3339, kitchen or unix.
	TimeFormat string `yaml:"time_format" json:"time_format"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Exporter is none, stdout or otlp.
	Exporter string `yaml:"exporter" json:"exporter"`

	// Endpoint is the OTLP gRPC collector address.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// SamplingRate is the trace sampling rate (0.0 to 1.0).
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate"`

	// Insecure disables TLS for the OTLP connection.
	Insecure bool `yaml:"insecure" json:"insecure"`

	Headers map[string]string `yaml:"headers" json:"headers"`

	ExportTimeout time.Duration `yaml:"-" json:"-"`
}

// Enabled reports whether spans are exported.
func (c TracingConfig) Enabled() bool {
	return c.Exporter != "" && c.Exporter != "none"
}

// MetricsConfig configures metrics collection.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected at all.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Namespace prefixes every metric name.
	Namespace string `yaml:"namespace" json:"namespace"`

	// Path is the HTTP path used when metrics are served.
	Path string `yaml:"path" json:"path"`

	// Textfile, when set, receives the registry contents at exit in the
	// node-exporter textfile format.
	Textfile string `yaml:"textfile" json:"textfile"`

	// Buckets are the install duration histogram buckets in seconds.
	Buckets []float64 `yaml:"buckets" json:"buckets"`
}

// DefaultConfig returns the default telemetry configuration.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "modman",
		ServiceVersion: "dev",
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			TimeFormat: "kitchen",
		},
		Tracing: TracingConfig{
			Exporter:      "none",
			SamplingRate:  1.0,
			Insecure:      true,
			Headers:       make(map[string]string),
			ExportTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "modman",
			Path:      "/metrics",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'console' or 'json')", c.Logging.Format)
	}

	switch c.Tracing.Exporter {
	case "", "none", "stdout":
	case "otlp":
		if c.Tracing.Endpoint == "" {
			return fmt.Errorf("otlp trace exporter requires an endpoint")
		}
	default:
		return fmt.Errorf("invalid trace exporter: %s", c.Tracing.Exporter)
	}

	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0 and 1, got: %f", c.Tracing.SamplingRate)
	}

	return nil
}
