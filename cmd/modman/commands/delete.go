package commands

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/Justype/modules/pkg/engine"
	"github.com/Justype/modules/pkg/version"
)

func newDeleteCommand() *cobra.Command {
	var (
		all bool
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "delete NAME[/VERSION]",
		Short: "Delete installed package versions",
		Long: `Remove installed package versions: the install directory, both module
files and any parent directories left empty.

Without a version every installed version of NAME is removed. A version
ending in "*" selects the newest installed version with that prefix. With
--all every installed version of every catalog package is removed. The
list is confirmed first unless --yes is given.`,
		Example: `  # Delete one version
  modman delete samtools/1.21

  # Delete all versions of a package without asking
  modman delete samtools --yes

  # Delete everything
  modman delete --all`,
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			var confirm engine.Confirmer
			if !yes {
				confirm = newPromptConfirmer(os.Stdin, cmd.ErrOrStderr())
			}

			var (
				result *engine.BatchResult
				err    error
			)
			if all {
				result, err = a.orch.DeleteAll(ctx, confirm)
			} else {
				var ids []string
				ids, err = deletionTargets(a, args[0])
				if err != nil {
					return err
				}
				result, err = a.orch.DeleteMany(ctx, ids, confirm)
			}
			if errors.Is(err, engine.ErrAborted) {
				a.logger.Info().Msg("Deletion cancelled by user")
				return nil
			}
			if err != nil {
				return err
			}

			if len(result.Succeeded) == 0 && len(result.Failed) == 0 {
				a.logger.Info().Msg("Nothing to delete")
			}
			for _, id := range result.Succeeded {
				a.logger.Info().Msgf("Successfully deleted %s", nameStyle.Render(id))
			}
			return result.Err()
		}),
	}

	cmd.Flags().BoolVar(&all, "all", false, "delete every installed package")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

// deletionTargets expands spec into "name/version" identifiers.
func deletionTargets(a *app, spec string) ([]string, error) {
	name, request := engine.SplitSpec(spec)
	if err := engine.ValidateRequest(name, request); err != nil {
		return nil, err
	}

	if request != "" && !version.IsWildcard(request) {
		return []string{name + "/" + request}, nil
	}

	installed := a.orch.InstalledVersions(name)
	if len(installed) == 0 {
		return nil, engine.NewNotFoundError("package is not installed", nil).WithResource(name)
	}
	if request == "" {
		ids := make([]string, len(installed))
		for i, v := range installed {
			ids[i] = name + "/" + v
		}
		return ids, nil
	}

	v, ok := version.MatchPrefix(installed, request)
	if !ok {
		return nil, engine.NewVersionNotFoundError(name, request, installed)
	}
	return []string{name + "/" + v}, nil
}
