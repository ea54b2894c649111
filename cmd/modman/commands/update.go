package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newUpdateCommand() *cobra.Command {
	var localOnly bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the package catalog",
		Long: `Rescan the build-script tree and refresh the package catalog.

Script-built packages whose scripts are gone are removed. Unless --local is
given, the versions of every remote package are fetched again, together with
any description that is still missing. Remote failures are reported as
warnings and never abort the update.`,
		Example: `  # Refresh local packages only
  modman update --local

  # Refresh local and remote packages
  modman update`,
		Args: cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			if localOnly {
				report, err := a.orch.UpdateLocal(ctx)
				if err != nil {
					return err
				}
				a.logger.Info().
					Int("scanned", report.Scanned).
					Int("removed", len(report.Removed)).
					Msg("Local packages updated from build-scripts")
				return nil
			}

			report, err := a.orch.UpdateAll(ctx)
			if err != nil {
				return err
			}
			for name, warn := range report.Warnings {
				a.logger.Warn().Err(warn).Str("package", name).Msg("Package not refreshed")
			}
			a.logger.Info().
				Int("scanned", report.Scanned).
				Int("removed", len(report.Removed)).
				Int("refreshed", len(report.Refreshed)).
				Int("warnings", len(report.Warnings)).
				Msg("Package versions updated")
			return nil
		}),
	}

	cmd.Flags().BoolVar(&localOnly, "local", false, "only rescan the build-script tree")

	return cmd
}

func newAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a remote package to the catalog",
		Long: `Look a package up on the configured channels and add it to the catalog,
or refresh its versions and description when it is already there.`,
		Example: `  modman add bedtools`,
		Args:    cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
			d, err := a.orch.Add(ctx, args[0])
			if err != nil {
				return err
			}
			a.logger.Info().
				Str("channel", d.Provenance.Channel()).
				Int("versions", len(d.Versions)).
				Msg(fmt.Sprintf("Successfully added %s", nameStyle.Render(d.Name)))
			return nil
		}),
	}

	return cmd
}
