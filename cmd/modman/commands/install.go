package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Justype/modules/pkg/engine"
)

func newInstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install NAME[/VERSION]",
		Short: "Install a package and its dependencies",
		Long: `Install a package version and write its module files.

Without a version the newest one is installed. A version ending in "*"
selects the newest version with that prefix. Dependencies declared by a
build script are installed first. Versions that already have a module file
are skipped.`,
		Example: `  # Install the newest samtools
  modman install samtools

  # Install an exact version
  modman install samtools/1.21

  # Install the newest 1.x version
  modman install 'samtools/1.*'

  # Install reference data
  modman install grch38/gencode/v44`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, args []string) error {
			name, request := engine.SplitSpec(args[0])
			a.logger.Debug().Str("package", name).Str("request", request).Msg("Installing")

			_, err := a.orch.Install(ctx, name, request)
			if err != nil && !engine.IsInterrupted(err) && !engine.IsValidation(err) {
				a.logger.Info().Msgf("For remote packages, make sure %s exists on the configured channels", nameStyle.Render(name))
				a.logger.Info().Msg("For local packages, run 'modman update --local' to refresh the catalog")
			}
			return err
		}),
	}

	return cmd
}
