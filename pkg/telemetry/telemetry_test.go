package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"otlp without endpoint", func(c *Config) { c.Tracing.Exporter = "otlp" }, true},
		{"otlp with endpoint", func(c *Config) {
			c.Tracing.Exporter = "otlp"
			c.Tracing.Endpoint = "localhost:4317"
		}, false},
		{"bad sampling", func(c *Config) { c.Tracing.SamplingRate = 2 }, true},
		{"unknown exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogger_ComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggingConfig{Level: "info", Format: "json"})

	log := logger.Component("installer")
	log.Debug().Msg("hidden")
	log.Info().Str("package", "samtools").Msg("Installing")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Expected debug message to be filtered")
	}
	if !strings.Contains(out, `"component":"installer"`) || !strings.Contains(out, `"package":"samtools"`) {
		t.Errorf("Expected component and package fields, got %s", out)
	}

	buf.Reset()
	logger.SetLevel("debug")
	l := logger.Zerolog()
	l.Debug().Msg("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("Expected debug message after SetLevel")
	}
}

func TestLogger_Context(t *testing.T) {
	logger := NewLoggerTo(&bytes.Buffer{}, LoggingConfig{Level: "info"})
	ctx := logger.WithContext(context.Background())

	if FromContext(ctx) != logger {
		t.Error("Expected logger from context")
	}
	if FromContext(context.Background()) == nil {
		t.Error("Expected fallback logger")
	}
}

func TestMetrics_DisabledIsNoop(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	m.RecordInstall("local", "installed", time.Second)
	m.RecordRemoteFetch("versions", "ok")
	m.RecordError("not_found")
	m.SetCatalogPackages("remote", 3)

	if m.Registry() != nil {
		t.Error("Expected no registry when disabled")
	}
	if err := m.WriteTextfile(); err != nil {
		t.Errorf("Expected no-op textfile write, got %v", err)
	}

	var nilMetrics *Metrics
	nilMetrics.RecordError("validation")
}

func TestMetrics_TextfileAndHandler(t *testing.T) {
	cfg := DefaultConfig().Metrics
	cfg.Textfile = filepath.Join(t.TempDir(), "collector", "modman.prom")

	m, err := NewMetrics(cfg)
	if err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}

	m.RecordInstall("local", "installed", 2*time.Second)
	m.RecordInstall("remote", "skipped", 0)
	m.RecordRemoteFetch("describe", "error")
	m.SetCatalogPackages("local", 4)

	if err := m.WriteTextfile(); err != nil {
		t.Fatalf("WriteTextfile failed: %v", err)
	}
	data, err := os.ReadFile(cfg.Textfile)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`modman_installs_total{provenance="local",status="installed"} 1`,
		`modman_remote_fetch_total{operation="describe",status="error"} 1`,
		`modman_catalog_packages{provenance="local"} 4`,
		`modman_install_duration_seconds_count{provenance="local"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in textfile:\n%s", want, text)
		}
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "modman_installs_total") {
		t.Errorf("Expected metrics from handler, got %d", rec.Code)
	}
}

func TestTracer_DisabledSpans(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{Exporter: "none"}, "modman", "test")
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	ctx, span := tracer.StartPackageSpan(context.Background(), "install", "foo", "1.0")
	EndSpan(span, nil)

	if TraceID(ctx) != "" {
		t.Error("Expected no trace id from a no-op tracer")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestNop(t *testing.T) {
	tel := Nop()
	tel.Metrics.RecordError("network")
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
