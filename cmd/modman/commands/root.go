package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	rootDir    string
	verbose    bool
)

// buildVersion is reported in traces and metrics.
var buildVersion = "dev"

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	buildVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modman",
		Short: "Environment module package manager",
		Long: `modman installs scientific software and reference data into a shared
tree and writes an environment module file for every installed version.

Packages come from three places:
  - local build scripts under build-scripts/<name>/<version>
  - reference data scripts under build-scripts/<name>/<assembly>/<version>
  - remote conda channels, installed with micromamba

Requesting an unknown name looks it up on the configured channels and adds
it to the package catalog.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (YAML or CUE)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "installation root (overrides config and MODMAN_ROOT)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newInstallCommand())
	rootCmd.AddCommand(newUpdateCommand())
	rootCmd.AddCommand(newAddCommand())
	rootCmd.AddCommand(newSearchCommand())
	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newInfoCommand())
	rootCmd.AddCommand(newDeleteCommand())
	rootCmd.AddCommand(newResolveCommand())
	rootCmd.AddCommand(newDepsCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newUpgradeCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
