package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Justype/modules/pkg/catalog"
	"github.com/Justype/modules/pkg/config"
	"github.com/Justype/modules/pkg/engine"
	"github.com/Justype/modules/pkg/policy"
	"github.com/Justype/modules/pkg/remote"
	"github.com/Justype/modules/pkg/runner"
	"github.com/Justype/modules/pkg/scanner"
	"github.com/Justype/modules/pkg/stores"
	"github.com/Justype/modules/pkg/telemetry"
)

// app holds the components shared by every command.
type app struct {
	cfg     *config.Config
	tel     *telemetry.Telemetry
	logger  zerolog.Logger
	catalog *catalog.Catalog
	scanner *scanner.Scanner
	store   *stores.SQLiteStore
	policy  *policy.Engine
	orch    *engine.Orchestrator
}

// newApp loads the configuration and wires the components in dependency
// order: telemetry, catalog, ledger, policy, remote client, orchestrator.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(config.LoadOptions{Path: configPath, Root: rootDir})
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	cfg.Telemetry.ServiceVersion = buildVersion

	tel, err := telemetry.New(&cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	log.Logger = tel.Logger.Zerolog()

	a := &app{
		cfg:    cfg,
		tel:    tel,
		logger: tel.Logger.Component("cli"),
	}
	a.logger.Debug().Str("root", cfg.Root).Str("catalog", cfg.Paths.Catalog).Msg("Configuration loaded")

	a.scanner = scanner.New(cfg.Paths.BuildScripts, cfg.Paths.TemplateDir, tel.Logger.Component("scanner"))
	a.catalog, err = catalog.Open(cfg.Paths.Catalog, a.populate)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	if cfg.Ledger.Enabled {
		a.store, err = stores.Open(ctx, cfg.Ledger.Path)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to open install ledger: %w", err)
		}
	}

	if cfg.Policy.Enabled {
		a.policy, err = policy.NewEngine(tel.Logger.Component("policy"), cfg.Policy.Builtin)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
		}
		if len(cfg.Policy.Paths) > 0 {
			if err := a.policy.LoadPolicies(ctx, cfg.Policy.Paths); err != nil {
				a.Close(ctx)
				return nil, err
			}
		}
	}

	run := runner.NewExecRunner(tel.Logger.Component("runner"))
	client := remote.NewClient(remote.Options{
		Micromamba:  cfg.Micromamba,
		RootPrefix:  cfg.Paths.Conda,
		Channels:    cfg.Channels,
		PageBaseURL: cfg.Remote.PageBaseURL,
		UserAgent:   cfg.Remote.UserAgent,
		Retries:     cfg.Remote.Retries,
		RetryDelay:  cfg.Remote.RetryDelay.Std(),
		Timeout:     cfg.Remote.Timeout.Std(),
	}, run, tel)

	opts := engine.Options{
		Config:    cfg,
		Catalog:   a.catalog,
		Scripts:   a.scanner,
		Fetcher:   client,
		Runner:    run,
		Telemetry: tel,
		Stream:    os.Stderr,
	}
	if a.policy != nil {
		opts.Policy = a.policy
	}
	if a.store != nil {
		opts.Ledger = a.store
	}

	a.orch, err = engine.New(opts)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// populate fills a new catalog from the build-script tree. A missing tree
// yields an empty catalog.
func (a *app) populate(c *catalog.Catalog) error {
	scanned, err := a.scanner.Scan()
	if errors.Is(err, os.ErrNotExist) {
		a.logger.Warn().Str("path", a.cfg.Paths.BuildScripts).Msg("Build-script directory not found, starting with an empty catalog")
		return nil
	}
	if err != nil {
		return err
	}
	_, err = c.Reconcile(scanned)
	return err
}

// Close saves pending catalog changes and releases every component.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.orch != nil {
		errs = append(errs, a.orch.SaveCatalog())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	errs = append(errs, a.tel.Shutdown(ctx))
	return errors.Join(errs...)
}

type runFunc func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error

// withApp builds the app before fn runs and closes it afterwards.
func withApp(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := a.Close(context.WithoutCancel(ctx)); closeErr != nil {
				err = errors.Join(err, closeErr)
			}
		}()
		return fn(ctx, a, cmd, args)
	}
}
