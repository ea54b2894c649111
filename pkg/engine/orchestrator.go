package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Justype/modules/pkg/catalog"
	"github.com/Justype/modules/pkg/config"
	"github.com/Justype/modules/pkg/policy"
	"github.com/Justype/modules/pkg/remote"
	"github.com/Justype/modules/pkg/runner"
	"github.com/Justype/modules/pkg/scanner"
	"github.com/Justype/modules/pkg/stores"
	"github.com/Justype/modules/pkg/telemetry"
	"github.com/Justype/modules/pkg/version"
)

// Scripts is the build-script tree as seen by the orchestrator.
// *scanner.Scanner implements it.
type Scripts interface {
	DirectiveReader
	Scan() ([]catalog.Descriptor, error)
}

// Options configures an Orchestrator. Config and Catalog are required.
type Options struct {
	Config  *config.Config
	Catalog *catalog.Catalog

	// Scripts defaults to a scanner over the configured build-script root.
	Scripts Scripts

	// Fetcher looks up unknown packages. Nil disables remote lookups.
	Fetcher remote.Fetcher

	// Runner executes installers. Defaults to an exec runner.
	Runner runner.Runner

	// Policy gates installs. Nil allows everything.
	Policy PolicyChecker

	// Ledger records install attempts. Nil disables recording.
	Ledger Ledger

	Telemetry *telemetry.Telemetry

	// Installers overrides the installer used per provenance kind.
	Installers map[catalog.Kind]Installer

	// Stream receives installer output. Defaults to os.Stderr.
	Stream io.Writer
}

// Orchestrator resolves, installs and deletes packages. It is not safe for
// concurrent use; requests are processed one at a time.
type Orchestrator struct {
	cfg        *config.Config
	catalog    *catalog.Catalog
	scripts    Scripts
	fetcher    remote.Fetcher
	policy     PolicyChecker
	ledger     Ledger
	tel        *telemetry.Telemetry
	logger     zerolog.Logger
	layout     Layout
	renderer   *ModulefileRenderer
	installers map[catalog.Kind]Installer

	// stack holds the "name/version" identifiers of installs in progress,
	// outermost first.
	stack []string
}

// New creates an orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}

	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.Nop()
	}
	stream := opts.Stream
	if stream == nil {
		stream = os.Stderr
	}
	scripts := opts.Scripts
	if scripts == nil {
		scripts = scanner.New(opts.Config.Paths.BuildScripts, opts.Config.Paths.TemplateDir, tel.Logger.Zerolog())
	}
	run := opts.Runner
	if run == nil {
		run = runner.NewExecRunner(tel.Logger.Zerolog())
	}

	installers := map[catalog.Kind]Installer{
		catalog.KindLocal:     NewScriptInstaller(run, opts.Config, stream),
		catalog.KindReference: NewScriptInstaller(run, opts.Config, stream),
		catalog.KindRemote:    NewCondaInstaller(run, opts.Config, stream),
	}
	for kind, inst := range opts.Installers {
		installers[kind] = inst
	}

	o := &Orchestrator{
		cfg:        opts.Config,
		catalog:    opts.Catalog,
		scripts:    scripts,
		fetcher:    opts.Fetcher,
		policy:     opts.Policy,
		ledger:     opts.Ledger,
		tel:        tel,
		logger:     tel.Logger.Component("engine"),
		layout:     LayoutFromConfig(opts.Config),
		renderer:   NewModulefileRenderer(opts.Config.Paths.BuildScripts),
		installers: installers,
	}
	return o, nil
}

// Catalog returns the catalog the orchestrator works on.
func (o *Orchestrator) Catalog() *catalog.Catalog {
	return o.catalog
}

// Layout returns the install roots.
func (o *Orchestrator) Layout() Layout {
	return o.layout
}

// SaveCatalog writes the catalog file when it has unsaved changes.
func (o *Orchestrator) SaveCatalog() error {
	if !o.catalog.Dirty() {
		return nil
	}
	if err := o.catalog.Save(o.cfg.Paths.Catalog); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	return nil
}

// Resolve maps a name and an optional version request to an exact target.
// An unknown name triggers one remote lookup whose result is saved to the
// catalog at once.
func (o *Orchestrator) Resolve(ctx context.Context, name, request string) (t *Target, err error) {
	ctx, span := o.tel.Tracer.StartPackageSpan(ctx, "resolve", name, request)
	defer func() { telemetry.EndSpan(span, err) }()

	if err := ValidateRequest(name, request); err != nil {
		return nil, err
	}

	d, ok := o.catalog.Get(name)
	if !ok {
		d, err = o.lookup(ctx, name)
		if err != nil {
			return nil, err
		}
	}

	if !d.VersionsKnown && d.Provenance.Kind() == catalog.KindRemote && o.fetcher != nil {
		d = o.refreshVersions(ctx, d)
	}

	ver, err := MatchVersion(d, request)
	if err != nil {
		return nil, err
	}
	return o.layout.Target(d, ver), nil
}

// MatchVersion selects a version of d: the latest when request is empty, an
// exact member, or the highest version matching a "prefix*" pattern.
func MatchVersion(d catalog.Descriptor, request string) (string, error) {
	switch {
	case request == "":
		if latest := d.Latest(); latest != "" {
			return latest, nil
		}
		return "", NewNotFoundError("no versions available", nil).WithResource(d.Name)
	case d.HasVersion(request):
		return request, nil
	case version.IsWildcard(request):
		if v, ok := version.MatchPrefix(d.Versions, request); ok {
			return v, nil
		}
	}
	return "", NewVersionNotFoundError(d.Name, request, d.Versions)
}

// lookup searches the remote channels for an unknown package, adds it to
// the catalog and saves the catalog.
func (o *Orchestrator) lookup(ctx context.Context, name string) (catalog.Descriptor, error) {
	if o.fetcher == nil {
		return catalog.Descriptor{}, NewNotFoundError("package not found", nil).WithResource(name)
	}

	o.logger.Info().Str("package", name).Msg("Package not in catalog, searching remote channels")
	d, err := o.fetchDescriptor(ctx, name)
	if err != nil {
		return catalog.Descriptor{}, err
	}
	if err := o.catalog.Upsert(d); err != nil {
		return catalog.Descriptor{}, err
	}
	if err := o.SaveCatalog(); err != nil {
		return catalog.Descriptor{}, err
	}
	return d, nil
}

// fetchDescriptor builds a remote descriptor from a version search and a
// best-effort description lookup.
func (o *Orchestrator) fetchDescriptor(ctx context.Context, name string) (catalog.Descriptor, error) {
	found, err := o.fetcher.Versions(ctx, name)
	if err != nil {
		if errors.Is(err, remote.ErrNotFound) {
			return catalog.Descriptor{}, NewNotFoundError("package not found", err).WithResource(name)
		}
		if ctx.Err() != nil {
			return catalog.Descriptor{}, NewInterruptedError("lookup interrupted", ctx.Err()).WithResource(name)
		}
		return catalog.Descriptor{}, NewNotFoundError("package not found",
			NewNetworkError("remote lookup failed", err)).WithResource(name)
	}

	channel := found.Channel
	if !catalog.ValidChannel(channel) && len(o.cfg.Channels) > 0 {
		channel = o.cfg.Channels[0]
	}
	d := catalog.Descriptor{Name: name, Provenance: catalog.Remote(channel)}
	d.SetVersions(found.List)
	o.describe(ctx, &d)
	return d, nil
}

// describe fills in the description and homepage of d. Failures are logged
// and otherwise ignored.
func (o *Orchestrator) describe(ctx context.Context, d *catalog.Descriptor) {
	desc, err := o.fetcher.Describe(ctx, d.Name, d.Provenance.Channel())
	if err != nil {
		o.logger.Warn().Err(err).Str("package", d.Name).Msg("Failed to fetch package description")
		return
	}
	d.Description = desc.Text
	if desc.Homepage != "" {
		d.Homepage = desc.Homepage
	}
}

// refreshVersions fills in an unknown version list. Failures leave d as it
// was.
func (o *Orchestrator) refreshVersions(ctx context.Context, d catalog.Descriptor) catalog.Descriptor {
	found, err := o.fetcher.Versions(ctx, d.Name)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		d.SetVersions(nil)
	case err != nil:
		o.logger.Warn().Err(err).Str("package", d.Name).Msg("Failed to fetch package versions")
		return d
	default:
		d.SetVersions(found.List)
	}
	if err := o.catalog.Upsert(d); err != nil {
		o.logger.Warn().Err(err).Str("package", d.Name).Msg("Failed to update catalog entry")
	}
	return d
}

// Install installs name at the requested version, dependencies first.
// An empty request selects the latest version.
func (o *Orchestrator) Install(ctx context.Context, name, request string) (*Target, error) {
	o.stack = o.stack[:0]
	return o.install(ctx, name, request, "")
}

func (o *Orchestrator) install(ctx context.Context, name, request, parent string) (t *Target, err error) {
	ctx, span := o.tel.Tracer.StartPackageSpan(ctx, "install", name, request)
	defer func() {
		if err != nil && parent == "" {
			o.tel.Metrics.RecordError(Class(err))
		}
		telemetry.EndSpan(span, err)
	}()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, NewInterruptedError("install interrupted", ctxErr).WithResource(name)
	}

	t, err = o.Resolve(ctx, name, request)
	if err != nil {
		return nil, err
	}
	t.DependencyOf = parent
	logger := o.logger.With().Str("package", t.ID()).Logger()
	provenance := t.Descriptor.Provenance.Kind().String()

	if t.Installed() {
		logger.Info().Str("modulefile", t.Modulefile).Msg("Module file exists, skipping installation")
		o.recordOutcome(ctx, t, stores.InstallStatusSkipped, "")
		o.tel.Metrics.RecordInstall(provenance, string(stores.InstallStatusSkipped), 0)
		return t, nil
	}

	for i, inProgress := range o.stack {
		if inProgress == t.ID() {
			path := append(append([]string(nil), o.stack[i:]...), t.ID())
			return nil, NewResolutionError(
				fmt.Sprintf("circular dependency detected: %s", formatCycle(path)),
				&CycleError{Path: path},
			).WithCode(ErrCodeCycle).WithResource(t.ID())
		}
	}
	o.stack = append(o.stack, t.ID())
	defer func() { o.stack = o.stack[:len(o.stack)-1] }()

	if err := o.checkPolicy(ctx, t); err != nil {
		return nil, err
	}

	if t.Descriptor.Provenance.Kind() == catalog.KindLocal {
		if err := o.installDependencies(ctx, t); err != nil {
			return nil, err
		}
	}

	installer, ok := o.installers[t.Descriptor.Provenance.Kind()]
	if !ok {
		return nil, fmt.Errorf("no installer for %s packages", provenance)
	}

	logger.Info().Str("provenance", t.Descriptor.Provenance.String()).Msg("Installing package")
	id := o.startRecord(ctx, t)
	timer := telemetry.NewTimer()

	err = installer.Install(ctx, t)
	if err == nil {
		if renderErr := o.renderer.Render(t, t.Descriptor.Provenance.IsScripted()); renderErr != nil {
			err = fmt.Errorf("failed to write module files: %w", renderErr)
		}
	}
	if err == nil && ctx.Err() != nil {
		err = NewInterruptedError("install interrupted", ctx.Err()).WithResource(t.ID())
	}

	if err != nil {
		if ctx.Err() != nil && !IsInterrupted(err) {
			err = NewInterruptedError("install interrupted", err).WithResource(t.ID())
		}
		o.rollback(t, logger)
		o.finishRecord(ctx, id, stores.InstallStatusFailed, err)
		o.tel.Metrics.RecordInstall(provenance, string(stores.InstallStatusFailed), timer.Duration())
		logger.Error().Err(err).Msg("Installation failed")
		return nil, err
	}

	o.finishRecord(ctx, id, stores.InstallStatusInstalled, nil)
	o.tel.Metrics.RecordInstall(provenance, string(stores.InstallStatusInstalled), timer.Duration())
	logger.Info().
		Str("modulefile", t.Modulefile).
		Dur("duration", timer.Duration()).
		Msgf("Successfully installed %s", t.ID())
	return t, nil
}

// installDependencies installs every dependency of a local target. The
// first failure aborts before the target's own installer runs.
func (o *Orchestrator) installDependencies(ctx context.Context, t *Target) error {
	deps, err := o.DependenciesOf(ctx, t.Name(), t.Version)
	if err != nil {
		return err
	}

	for _, dep := range deps {
		o.logger.Info().
			Str("package", t.ID()).
			Str("dependency", dep.String()).
			Msg("Installing dependency")
		if _, err := o.install(ctx, dep.Name, dep.Version, t.Name()); err != nil {
			if IsResolution(err) || IsInterrupted(err) || IsValidation(err) || IsDependency(err) {
				return err
			}
			return NewDependencyError(dep.String(), err).WithOperation("install " + t.ID())
		}
	}
	return nil
}

// checkPolicy evaluates the policy gate for t.
func (o *Orchestrator) checkPolicy(ctx context.Context, t *Target) error {
	if o.policy == nil {
		return nil
	}

	result, err := o.policy.Evaluate(ctx, &policy.Input{
		Package:         t.Name(),
		Version:         t.Version,
		Provenance:      t.Descriptor.Provenance.Kind().String(),
		Channel:         t.Descriptor.Provenance.Channel(),
		DependencyOf:    t.DependencyOf,
		AllowedChannels: o.cfg.Channels,
		Operation:       "install",
	})
	if err != nil {
		return NewPolicyError("policy evaluation failed", err).WithResource(t.ID())
	}

	for _, w := range result.Warnings {
		o.logger.Warn().Str("package", t.ID()).Str("policy", w.Policy).Msg(w.Message)
	}
	if result.Allowed {
		return nil
	}

	messages := make([]string, 0, len(result.Violations))
	for _, v := range result.Violations {
		messages = append(messages, fmt.Sprintf("%s: %s", v.Policy, v.Message))
	}
	return NewPolicyError("install denied by policy", errors.New(strings.Join(messages, "; "))).
		WithResource(t.ID()).
		WithDetail("violations", result.Violations)
}

// rollback removes whatever a failed attempt left behind.
func (o *Orchestrator) rollback(t *Target, logger zerolog.Logger) {
	if err := t.Remove(); err != nil {
		logger.Warn().Err(err).Msg("Failed to clean up after failed installation")
		return
	}
	logger.Debug().Str("install_dir", t.InstallDir).Msg("Removed partial installation")
}
