package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted by Load.
const (
	EnvRoot       = "MODMAN_ROOT"
	EnvMicromamba = "MODMAN_MICROMAMBA"
	EnvLogLevel   = "LOG_LEVEL"
)

// LoadOptions selects the configuration sources.
type LoadOptions struct {
	// Path is an optional YAML or CUE file.
	Path string

	// Root overrides the root from the file and the environment.
	Root string

	// Getenv reads the environment. Nil uses os.Getenv.
	Getenv func(string) string
}

// Load builds, resolves and validates the configuration.
func Load(opts LoadOptions) (*Config, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := Default()
	if opts.Path != "" {
		if err := decodeFile(opts.Path, cfg); err != nil {
			return nil, err
		}
	}

	if v := getenv(EnvRoot); v != "" {
		cfg.Root = v
	}
	if opts.Root != "" {
		cfg.Root = opts.Root
	}
	if v := getenv(EnvMicromamba); v != "" {
		cfg.Micromamba = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.Telemetry.Logging.Level = strings.ToLower(v)
	}

	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(content, cfg)
	case ".cue":
		return DecodeCUE(content, path, cfg)
	default:
		return fmt.Errorf("unsupported config file type: %s", path)
	}
}

// DecodeYAML overlays YAML content onto cfg.
func DecodeYAML(content []byte, cfg *Config) error {
	dec := yaml.NewDecoder(strings.NewReader(string(content)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// DecodeCUE checks CUE content against the #Config schema and overlays it
// onto cfg.
func DecodeCUE(content []byte, filename string, cfg *Config) error {
	ctx := cuecontext.New()
	schema, err := NewSchemaRegistry(ctx).Config()
	if err != nil {
		return err
	}

	val := ctx.CompileBytes(content, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile CUE config: %s", formatCUEError(err))
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("CUE config does not match schema: %s", formatCUEError(err))
	}

	data, err := unified.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to export CUE config: %s", formatCUEError(err))
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode CUE config: %w", err)
	}
	return nil
}

// formatCUEError flattens a CUE error list into one line per problem with
// file positions.
func formatCUEError(err error) string {
	var parts []string
	for _, e := range cueerrors.Errors(err) {
		msg := cueerrors.Details(e, nil)
		if pos := cueerrors.Positions(e); len(pos) > 0 {
			msg = fmt.Sprintf("%s:%d:%d: %s", pos[0].Filename(), pos[0].Line(), pos[0].Column(), strings.TrimSpace(msg))
		}
		parts = append(parts, strings.TrimSpace(msg))
	}
	if len(parts) == 0 {
		return err.Error()
	}
	return strings.Join(parts, "; ")
}
