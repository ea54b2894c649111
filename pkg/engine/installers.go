package engine

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Justype/modules/pkg/config"
	"github.com/Justype/modules/pkg/remote"
	"github.com/Justype/modules/pkg/runner"
)

// Environment variables passed to build scripts.
const (
	EnvRoot            = "MODMAN_ROOT"
	EnvApps            = "MODMAN_APPS"
	EnvRef             = "MODMAN_REF"
	EnvAppsModulefiles = "MODMAN_APPS_MODULEFILES"
	EnvRefModulefiles  = "MODMAN_REF_MODULEFILES"
	EnvPrefix          = "MODMAN_PREFIX"
	EnvModulefile      = "MODMAN_MODULEFILE"
	EnvName            = "MODMAN_NAME"
	EnvVersion         = "MODMAN_VERSION"
)

// ScriptInstaller runs "bash <script> -i" for local and reference packages.
type ScriptInstaller struct {
	runner runner.Runner
	cfg    *config.Config
	stream io.Writer

	// Shell runs the script. Defaults to "bash".
	Shell string
}

// NewScriptInstaller creates an installer running build scripts under
// cfg.Paths.BuildScripts. Script output is copied to stream.
func NewScriptInstaller(r runner.Runner, cfg *config.Config, stream io.Writer) *ScriptInstaller {
	return &ScriptInstaller{runner: r, cfg: cfg, stream: stream, Shell: "bash"}
}

// ScriptPath returns the build script for t.
func (s *ScriptInstaller) ScriptPath(t *Target) string {
	return scriptPath(s.cfg.Paths.BuildScripts, t.Name(), t.Version)
}

// Install implements Installer.
func (s *ScriptInstaller) Install(ctx context.Context, t *Target) error {
	script := s.ScriptPath(t)
	if _, err := os.Stat(script); err != nil {
		return NewNotFoundError("build script not found", err).WithResource(t.ID())
	}

	cmd := &runner.Command{
		Name:   s.Shell,
		Args:   []string{script, "-i"},
		Dir:    s.cfg.Root,
		Stream: s.stream,
		Env: map[string]string{
			EnvRoot:            s.cfg.Root,
			EnvApps:            s.cfg.Paths.Apps,
			EnvRef:             s.cfg.Paths.Ref,
			EnvAppsModulefiles: s.cfg.Paths.AppsModulefiles,
			EnvRefModulefiles:  s.cfg.Paths.RefModulefiles,
			EnvPrefix:          t.InstallDir,
			EnvModulefile:      t.Modulefile,
			EnvName:            t.Name(),
			EnvVersion:         t.Version,
		},
	}
	return runInstaller(ctx, s.runner, cmd, t)
}

// CondaInstaller creates remote packages with the package manager.
type CondaInstaller struct {
	runner runner.Runner
	cfg    *config.Config
	stream io.Writer
}

// NewCondaInstaller creates an installer driving cfg.Micromamba.
func NewCondaInstaller(r runner.Runner, cfg *config.Config, stream io.Writer) *CondaInstaller {
	return &CondaInstaller{runner: r, cfg: cfg, stream: stream}
}

// Channels returns the channels passed to create, the package's own channel
// first.
func (c *CondaInstaller) Channels(t *Target) []string {
	channels := make([]string, 0, len(c.cfg.Channels)+1)
	if ch := t.Descriptor.Provenance.Channel(); ch != "" {
		channels = append(channels, ch)
	}
	for _, ch := range c.cfg.Channels {
		if ch != t.Descriptor.Provenance.Channel() {
			channels = append(channels, ch)
		}
	}
	return channels
}

// Install implements Installer.
func (c *CondaInstaller) Install(ctx context.Context, t *Target) error {
	cmd := remote.CreateCommand(c.cfg.Micromamba, c.cfg.Paths.Conda, c.Channels(t), t.InstallDir, t.Name(), t.Version)
	cmd.Stream = c.stream
	return runInstaller(ctx, c.runner, cmd, t)
}

func runInstaller(ctx context.Context, r runner.Runner, cmd *runner.Command, t *Target) error {
	res, err := r.Run(ctx, cmd)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return NewInterruptedError("install interrupted", ctxErr).WithResource(t.ID())
	}
	if err != nil {
		return NewToolUnavailableError(fmt.Sprintf("failed to start %s", cmd.Name), err).WithResource(t.ID())
	}
	if !res.Success() {
		return NewExternalToolError(fmt.Sprintf("%s exited with status %d", cmd.Name, res.ExitCode), res.ExitCode, res.StderrTail).
			WithResource(t.ID())
	}
	return nil
}
