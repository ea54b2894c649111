package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Justype/modules/pkg/engine"
)

func newResolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve NAME[/VERSION]",
		Short: "Print the version an install request resolves to",
		Long: `Resolve an install request to an exact version and print "name/version".

Unknown names are looked up on the configured channels and added to the
catalog, exactly as install would do.`,
		Example: `  modman resolve samtools
  modman resolve 'samtools/1.*'`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			name, request := engine.SplitSpec(args[0])
			t, err := a.orch.Resolve(ctx, name, request)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.ID())
			return nil
		}),
	}

	return cmd
}

func newDepsCommand() *cobra.Command {
	var (
		order bool
		dot   bool
	)

	cmd := &cobra.Command{
		Use:   "deps NAME[/VERSION]",
		Short: "Print the dependencies of a package version",
		Long: `Print the resolved direct dependencies of a build script, one
"name/version" per line. Nothing is printed when there are none.

With --order the full transitive install order is printed instead, ending
with the package itself. With --dot the dependency graph is printed in
Graphviz DOT format.`,
		Example: `  modman deps foo/2.0
  modman deps foo/2.0 --order
  modman deps foo --dot | dot -Tsvg > foo.svg`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			name, request := engine.SplitSpec(args[0])
			t, err := a.orch.Resolve(ctx, name, request)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if !order && !dot {
				if !t.Descriptor.Provenance.IsScripted() {
					return nil
				}
				deps, err := a.orch.DependenciesOf(ctx, t.Name(), t.Version)
				if err != nil {
					return err
				}
				for _, dep := range deps {
					fmt.Fprintln(w, dep)
				}
				return nil
			}

			g, root, err := a.orch.DependencyGraph(ctx, t.Name(), t.Version)
			if err != nil {
				return err
			}
			if dot {
				fmt.Fprint(w, g.ToDOT())
				return nil
			}
			ids, err := g.Order([]string{root})
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(w, id)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&order, "order", false, "print the transitive install order")
	cmd.Flags().BoolVar(&dot, "dot", false, "print the dependency graph in DOT format")
	cmd.MarkFlagsMutuallyExclusive("order", "dot")

	return cmd
}
