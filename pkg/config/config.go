package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Justype/modules/pkg/telemetry"
)

// Config is the complete modman configuration.
type Config struct {
	// Root is the installation tree every default path hangs off.
	Root string `yaml:"root" json:"root" validate:"required"`

	Paths Paths `yaml:"paths" json:"paths"`

	// Micromamba is the package manager binary. Defaults to <bin>/micromamba.
	Micromamba string `yaml:"micromamba" json:"micromamba"`

	// Channels are searched in order for remote packages.
	Channels []string `yaml:"channels" json:"channels" validate:"min=1,dive,required"`

	Remote    RemoteConfig     `yaml:"remote" json:"remote"`
	Ledger    LedgerConfig     `yaml:"ledger" json:"ledger"`
	Policy    PolicyConfig     `yaml:"policy" json:"policy"`
	Telemetry telemetry.Config `yaml:"telemetry" json:"telemetry"`
}

// Paths are the directories of the installation tree.
type Paths struct {
	Catalog         string `yaml:"catalog" json:"catalog"`
	BuildScripts    string `yaml:"build_scripts" json:"build_scripts"`
	Apps            string `yaml:"apps" json:"apps"`
	Ref             string `yaml:"ref" json:"ref"`
	AppsModulefiles string `yaml:"apps_modulefiles" json:"apps_modulefiles"`
	RefModulefiles  string `yaml:"ref_modulefiles" json:"ref_modulefiles"`
	Conda           string `yaml:"conda" json:"conda"`
	Bin             string `yaml:"bin" json:"bin"`

	// TemplateDir is the name of the directory under BuildScripts holding
	// script templates. It is never scanned as a package.
	TemplateDir string `yaml:"template_dir" json:"template_dir" validate:"required,excludesall=/\\"`
}

// RemoteConfig controls remote metadata lookups.
type RemoteConfig struct {
	// PageBaseURL is the site hosting package overview pages.
	PageBaseURL string `yaml:"page_base_url" json:"page_base_url" validate:"required,url"`

	// Retries is the number of attempts per lookup.
	Retries int `yaml:"retries" json:"retries" validate:"min=1,max=10"`

	RetryDelay Duration `yaml:"retry_delay" json:"retry_delay"`
	Timeout    Duration `yaml:"timeout" json:"timeout"`
	UserAgent  string   `yaml:"user_agent" json:"user_agent"`
}

// LedgerConfig controls the SQLite install ledger.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// PolicyConfig controls the install policy gate.
type PolicyConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Builtin enables the policies shipped with modman.
	Builtin bool `yaml:"builtin" json:"builtin"`

	// Paths lists extra .rego files or directories.
	Paths []string `yaml:"paths" json:"paths"`
}

// Duration is a time.Duration written as a string such as "2s".
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Default returns the built-in configuration. Root is left empty and filled
// in by Load.
func Default() *Config {
	return &Config{
		Channels: []string{"conda-forge", "bioconda"},
		Paths: Paths{
			TemplateDir: "0-template",
		},
		Remote: RemoteConfig{
			PageBaseURL: "https://anaconda.org",
			Retries:     3,
			RetryDelay:  Duration(2 * time.Second),
			Timeout:     Duration(30 * time.Second),
			UserAgent:   "modman",
		},
		Ledger: LedgerConfig{
			Enabled: true,
		},
		Policy: PolicyConfig{
			Enabled: true,
			Builtin: true,
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// Resolve makes Root absolute, derives empty paths from it and resolves
// relative ones against it.
func (c *Config) Resolve() error {
	if c.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine working directory: %w", err)
		}
		c.Root = wd
	}
	root, err := filepath.Abs(c.Root)
	if err != nil {
		return fmt.Errorf("failed to resolve root %s: %w", c.Root, err)
	}
	c.Root = root

	resolve := func(p *string, def string) {
		if *p == "" {
			*p = def
		}
		if !filepath.IsAbs(*p) {
			*p = filepath.Join(root, *p)
		}
		*p = filepath.Clean(*p)
	}

	resolve(&c.Paths.Catalog, filepath.Join("metadata", "packages.tsv"))
	resolve(&c.Paths.BuildScripts, "build-scripts")
	resolve(&c.Paths.Apps, "apps")
	resolve(&c.Paths.Ref, "ref")
	resolve(&c.Paths.AppsModulefiles, "apps_modulefiles")
	resolve(&c.Paths.RefModulefiles, "ref_modulefiles")
	resolve(&c.Paths.Conda, "conda")
	resolve(&c.Paths.Bin, "bin")
	if c.Micromamba == "" || strings.ContainsRune(c.Micromamba, filepath.Separator) {
		// a bare program name is looked up on PATH
		resolve(&c.Micromamba, filepath.Join(c.Paths.Bin, "micromamba"))
	}
	resolve(&c.Ledger.Path, filepath.Join("metadata", "ledger.db"))
	for i := range c.Policy.Paths {
		resolve(&c.Policy.Paths[i], "")
	}
	return nil
}

var validate = validator.New()

// Validate checks struct constraints and the telemetry settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry configuration: %w", err)
	}
	return nil
}
