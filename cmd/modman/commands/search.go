package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Justype/modules/pkg/engine"
)

const suggestionLimit = 5

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search TERM",
		Short: "Search the catalog",
		Long: `Print the catalog packages whose name, tags or description contain TERM,
ignoring case. When nothing matches, similar package names are suggested.`,
		Example: `  modman search align`,
		Args:    cobra.ExactArgs(1),
		RunE: withApp(func(_ context.Context, a *app, cmd *cobra.Command, args []string) error {
			term := args[0]
			matches := a.catalog.Search(term)
			if len(matches) > 0 {
				printPackages(cmd.OutOrStdout(), matches)
				return nil
			}

			a.logger.Warn().Msgf("No packages found matching %s", nameStyle.Render(term))
			suggest(cmd, a, term)
			return nil
		}),
	}

	return cmd
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all catalog packages",
		Long:  `List every catalog package: script-built packages first, then remote ones.`,
		Args:  cobra.NoArgs,
		RunE: withApp(func(_ context.Context, a *app, cmd *cobra.Command, _ []string) error {
			printPackages(cmd.OutOrStdout(), a.catalog.Descriptors())
			return nil
		}),
	}

	return cmd
}

func newInfoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "info NAME",
		Short:   "Show package details",
		Example: `  modman info samtools`,
		Args:    cobra.ExactArgs(1),
		RunE: withApp(func(_ context.Context, a *app, cmd *cobra.Command, args []string) error {
			name := args[0]
			d, ok := a.catalog.Get(name)
			if !ok {
				suggest(cmd, a, name)
				return engine.NewNotFoundError("package not found in catalog", nil).WithResource(name)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", headingStyle.Render("Package:"), nameStyle.Render(d.Name))
			fmt.Fprintf(w, "%s %s\n", headingStyle.Render("Tags:"), orNA(strings.Join(d.Tags, ", ")))
			fmt.Fprintf(w, "%s %s\n", headingStyle.Render("WHATIS:"), orNA(d.Description))
			fmt.Fprintf(w, "%s %s\n", headingStyle.Render("URL:"), orNA(d.Homepage))
			fmt.Fprintf(w, "%s %s\n", headingStyle.Render("Source:"), d.Provenance)
			fmt.Fprintf(w, "%s %s\n", headingStyle.Render("Available Versions:"), orNA(strings.Join(d.Versions, ", ")))
			if !d.VersionsKnown {
				fmt.Fprintln(w, dimStyle.Render("Versions have not been fetched yet; run 'modman add "+d.Name+"'"))
			}
			fmt.Fprintf(w, "%s %s\n", headingStyle.Render("Installed Versions:"), orNA(strings.Join(a.orch.InstalledVersions(d.Name), ", ")))
			return nil
		}),
	}

	return cmd
}

// suggest prints similar catalog names on stderr.
func suggest(cmd *cobra.Command, a *app, name string) {
	suggestions := a.catalog.Suggest(name, suggestionLimit)
	if len(suggestions) == 0 {
		return
	}
	styled := make([]string, len(suggestions))
	for i, s := range suggestions {
		styled[i] = nameStyle.Render(s)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Did you mean: %s\n", strings.Join(styled, ", "))
}
