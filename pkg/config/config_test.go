package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func noEnv(string) string { return "" }

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(LoadOptions{Root: root, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	checks := map[string]string{
		"catalog":          filepath.Join(root, "metadata", "packages.tsv"),
		"build_scripts":    filepath.Join(root, "build-scripts"),
		"apps":             filepath.Join(root, "apps"),
		"ref":              filepath.Join(root, "ref"),
		"apps_modulefiles": filepath.Join(root, "apps_modulefiles"),
		"ref_modulefiles":  filepath.Join(root, "ref_modulefiles"),
		"conda":            filepath.Join(root, "conda"),
		"micromamba":       filepath.Join(root, "bin", "micromamba"),
		"ledger":           filepath.Join(root, "metadata", "ledger.db"),
	}
	got := map[string]string{
		"catalog":          cfg.Paths.Catalog,
		"build_scripts":    cfg.Paths.BuildScripts,
		"apps":             cfg.Paths.Apps,
		"ref":              cfg.Paths.Ref,
		"apps_modulefiles": cfg.Paths.AppsModulefiles,
		"ref_modulefiles":  cfg.Paths.RefModulefiles,
		"conda":            cfg.Paths.Conda,
		"micromamba":       cfg.Micromamba,
		"ledger":           cfg.Ledger.Path,
	}
	for key, want := range checks {
		if got[key] != want {
			t.Errorf("%s: expected %s, got %s", key, want, got[key])
		}
	}

	if cfg.Remote.Retries != 3 || cfg.Remote.RetryDelay.Std() != 2*time.Second {
		t.Errorf("Unexpected remote defaults: %+v", cfg.Remote)
	}
	if strings.Join(cfg.Channels, ",") != "conda-forge,bioconda" {
		t.Errorf("Unexpected channels: %v", cfg.Channels)
	}
}

func TestLoad_YAML(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, "modman.yaml", `
root: `+root+`
channels: [bioconda]
micromamba: micromamba
paths:
  apps: /opt/apps
  catalog: db/catalog.tsv
remote:
  retries: 5
  retry_delay: 250ms
ledger:
  enabled: false
telemetry:
  logging:
    level: debug
`)

	cfg, err := Load(LoadOptions{Path: path, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Root != root {
		t.Errorf("Expected root %s, got %s", root, cfg.Root)
	}
	if cfg.Paths.Apps != "/opt/apps" {
		t.Errorf("Expected absolute apps path to be kept, got %s", cfg.Paths.Apps)
	}
	if cfg.Paths.Catalog != filepath.Join(root, "db", "catalog.tsv") {
		t.Errorf("Expected relative catalog path under root, got %s", cfg.Paths.Catalog)
	}
	if cfg.Micromamba != "micromamba" {
		t.Errorf("Expected bare program name to be kept, got %s", cfg.Micromamba)
	}
	if cfg.Remote.Retries != 5 || cfg.Remote.RetryDelay.Std() != 250*time.Millisecond {
		t.Errorf("Unexpected remote config: %+v", cfg.Remote)
	}
	if cfg.Remote.PageBaseURL != "https://anaconda.org" {
		t.Errorf("Expected default page URL to survive overlay, got %s", cfg.Remote.PageBaseURL)
	}
	if cfg.Ledger.Enabled {
		t.Error("Expected ledger to be disabled")
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Expected debug logging, got %s", cfg.Telemetry.Logging.Level)
	}
}

func TestLoad_YAMLUnknownKey(t *testing.T) {
	path := writeConfig(t, "modman.yml", "roots: /tmp\n")
	if _, err := Load(LoadOptions{Path: path, Root: t.TempDir(), Getenv: noEnv}); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestLoad_CUE(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, "modman.cue", `
root:     "`+root+`"
channels: ["conda-forge"]
remote: {
	retries:     2
	retry_delay: "1s"
}
policy: builtin: false
telemetry: metrics: textfile: "metrics/modman.prom"
`)

	cfg, err := Load(LoadOptions{Path: path, Getenv: noEnv})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Remote.Retries != 2 || cfg.Remote.RetryDelay.Std() != time.Second {
		t.Errorf("Unexpected remote config: %+v", cfg.Remote)
	}
	if cfg.Policy.Builtin || !cfg.Policy.Enabled {
		t.Errorf("Unexpected policy config: %+v", cfg.Policy)
	}
	if cfg.Telemetry.Metrics.Textfile != "metrics/modman.prom" {
		t.Errorf("Unexpected metrics textfile: %s", cfg.Telemetry.Metrics.Textfile)
	}
	if strings.Join(cfg.Channels, ",") != "conda-forge" {
		t.Errorf("Unexpected channels: %v", cfg.Channels)
	}
}

func TestLoad_CUESchemaViolation(t *testing.T) {
	tests := map[string]string{
		"out of range": `remote: retries: 20`,
		"bad duration": `remote: retry_delay: "soon"`,
		"unknown key":  `remotes: {}`,
		"bad level":    `telemetry: logging: level: "chatty"`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, "modman.cue", content)
			if _, err := Load(LoadOptions{Path: path, Root: t.TempDir(), Getenv: noEnv}); err == nil {
				t.Error("Expected schema error")
			}
		})
	}
}

func TestLoad_EnvironmentAndFlagPrecedence(t *testing.T) {
	envRoot := t.TempDir()
	flagRoot := t.TempDir()
	env := map[string]string{
		EnvRoot:       envRoot,
		EnvMicromamba: "/usr/local/bin/micromamba",
		EnvLogLevel:   "WARN",
	}
	getenv := func(k string) string { return env[k] }

	cfg, err := Load(LoadOptions{Getenv: getenv})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Root != envRoot {
		t.Errorf("Expected env root %s, got %s", envRoot, cfg.Root)
	}
	if cfg.Micromamba != "/usr/local/bin/micromamba" {
		t.Errorf("Expected env micromamba, got %s", cfg.Micromamba)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("Expected warn level, got %s", cfg.Telemetry.Logging.Level)
	}

	cfg, err = Load(LoadOptions{Root: flagRoot, Getenv: getenv})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Root != flagRoot {
		t.Errorf("Expected flag root %s, got %s", flagRoot, cfg.Root)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := map[string]func(*Config){
		"no channels":    func(c *Config) { c.Channels = nil },
		"empty channel":  func(c *Config) { c.Channels = []string{""} },
		"bad url":        func(c *Config) { c.Remote.PageBaseURL = "not a url" },
		"zero retries":   func(c *Config) { c.Remote.Retries = 0 },
		"template slash": func(c *Config) { c.Paths.TemplateDir = "a/b" },
		"bad log format": func(c *Config) { c.Telemetry.Logging.Format = "xml" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			cfg.Root = t.TempDir()
			if err := cfg.Resolve(); err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeConfig(t, "modman.toml", "root = '/'\n")
	if _, err := Load(LoadOptions{Path: path, Getenv: noEnv}); err == nil {
		t.Error("Expected unsupported file type error")
	}
}
