package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Justype/modules/pkg/catalog"
	"github.com/Justype/modules/pkg/policy"
	"github.com/Justype/modules/pkg/scanner"
)

func newWatchCommand() *cobra.Command {
	var (
		metricsAddr string
		debounce    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the catalog in sync with the build-script tree",
		Long: `Watch the build-script tree and rescan the catalog whenever a script is
added, changed or removed. Policy files are reloaded when they change.

With --metrics-addr the Prometheus metrics are served over HTTP until the
command is interrupted.`,
		Example: `  modman watch
  modman watch --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				errs []error
			)
			fail := func(err error) {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				cancel()
			}

			if metricsAddr != "" {
				srv := a.tel.Metrics.NewServer(metricsAddr)
				wg.Add(2)
				go func() {
					defer wg.Done()
					a.logger.Info().Str("addr", metricsAddr).Msg("Serving metrics")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						fail(fmt.Errorf("metrics server failed: %w", err))
					}
				}()
				go func() {
					defer wg.Done()
					<-ctx.Done()
					shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
					defer stop()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			if a.policy != nil && len(a.cfg.Policy.Paths) > 0 {
				loader := policy.NewLoader(a.tel.Logger.Component("policy"))
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := loader.Watch(ctx, a.cfg.Policy.Paths, policy.DefaultReloadDelay, func(policies []policy.Policy) error {
						return a.policy.ReplacePolicies(ctx, policies)
					})
					if err != nil {
						fail(fmt.Errorf("policy watcher failed: %w", err))
					}
				}()
			}

			err := a.scanner.Watch(ctx, debounce, func(scanned []catalog.Descriptor) error {
				removed, err := a.catalog.Reconcile(scanned)
				if err != nil {
					return err
				}
				if err := a.orch.SaveCatalog(); err != nil {
					return err
				}
				a.logger.Info().
					Int("scanned", len(scanned)).
					Strs("removed", removed).
					Msg("Catalog updated from build-scripts")
				return nil
			})
			if err != nil {
				fail(err)
			}
			cancel()
			wg.Wait()

			return errors.Join(errs...)
		}),
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().DurationVar(&debounce, "debounce", scanner.DefaultDebounce, "quiet period before a rescan")

	return cmd
}
