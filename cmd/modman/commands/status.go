package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	var reconcile bool

	cmd := &cobra.Command{
		Use:   "status [PATTERN]",
		Short: "Show installed package versions",
		Long: `Show the versions of every catalog package whose name matches the glob
PATTERN, marking installed ones. Script-built packages list every version;
remote packages list their installed versions and the newest one.

With --reconcile the install ledger is compared with the module files on
disk and every disagreement is printed.`,
		Example: `  modman status
  modman status 'sam*'
  modman status --reconcile`,
		Args: cobra.MaximumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			if reconcile {
				discrepancies, err := a.orch.Reconcile(ctx)
				if err != nil {
					return err
				}
				if len(discrepancies) == 0 {
					a.logger.Info().Msg("Ledger and disk agree")
					return nil
				}
				for _, d := range discrepancies {
					fmt.Fprintln(w, errStyle.Render(d.String()))
				}
				return nil
			}

			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			statuses, err := a.orch.Status(pattern)
			if err != nil {
				return err
			}

			for _, st := range statuses {
				fmt.Fprintf(w, "%s %s\n", nameStyle.Render(st.Descriptor.Name), dimStyle.Render("("+st.Descriptor.Provenance.String()+")"))
				for _, v := range st.Versions {
					if v.Installed {
						fmt.Fprintf(w, "  %s %s\n", okStyle.Render("*"), v.Version)
					} else {
						fmt.Fprintf(w, "    %s\n", dimStyle.Render(v.Version))
					}
				}
				if len(st.Dependencies) > 0 {
					deps := make([]string, len(st.Dependencies))
					for i, dep := range st.Dependencies {
						deps[i] = dep.String()
					}
					fmt.Fprintf(w, "  %s %s\n", dimStyle.Render("depends on:"), strings.Join(deps, ", "))
				}
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&reconcile, "reconcile", false, "compare the install ledger with the disk")

	return cmd
}

func newUpgradeCommand() *cobra.Command {
	var (
		list          bool
		installedOnly bool
		yes           bool
	)

	cmd := &cobra.Command{
		Use:   "upgrade [NAME...]",
		Short: "Install the newest version of packages",
		Long: `Install the newest version of the named packages, or of every package
whose newest version is not installed. Selected packages are ordered so that
the ones others depend on are installed first. Failures are collected and
reported at the end.

With --list the upgradable packages are printed and nothing is installed.`,
		Example: `  # Show what could be upgraded
  modman upgrade --list --installed-only

  # Upgrade two packages without asking
  modman upgrade samtools bcftools --yes`,
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			upgrades, err := a.orch.Upgradable(installedOnly)
			if err != nil {
				return err
			}

			if list {
				w := cmd.OutOrStdout()
				for _, u := range upgrades {
					installed := strings.Join(u.Installed, ", ")
					if installed == "" {
						installed = "none"
					}
					fmt.Fprintf(w, "%s: %s -> %s\n", nameStyle.Render(u.Name), dimStyle.Render(installed), okStyle.Render(u.Newest))
				}
				return nil
			}

			names := args
			if len(names) == 0 {
				for _, u := range upgrades {
					names = append(names, u.Name)
				}
			}
			if len(names) == 0 {
				a.logger.Info().Msg("Everything is up to date")
				return nil
			}

			if !yes {
				ok, err := newPromptConfirmer(os.Stdin, cmd.ErrOrStderr()).
					Confirm("The newest version of the following packages will be installed:", names)
				if err != nil {
					return err
				}
				if !ok {
					a.logger.Info().Msg("Upgrade cancelled by user")
					return nil
				}
			}

			result, err := a.orch.InstallNewest(ctx, names)
			if result == nil {
				return err
			}
			a.logger.Info().
				Int("succeeded", len(result.Succeeded)).
				Int("failed", len(result.Failed)).
				Msg("Upgrade finished")
			for _, id := range result.FailedIDs() {
				a.logger.Error().Msgf("Failed to install %s", errStyle.Render(id))
			}
			if err != nil {
				return err
			}
			return result.Err()
		}),
	}

	cmd.Flags().BoolVar(&list, "list", false, "only list upgradable packages")
	cmd.Flags().BoolVar(&installedOnly, "installed-only", false, "skip packages without any installed version")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}
