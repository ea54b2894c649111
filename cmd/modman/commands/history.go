package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Justype/modules/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit  int
		status string
		events bool
	)

	cmd := &cobra.Command{
		Use:   "history [NAME]",
		Short: "Show recorded install attempts",
		Long: `Show install, skip and removal records from the install ledger, newest
first. With --events the event log of every listed record is printed too.`,
		Example: `  modman history --limit 20
  modman history samtools --status failed --events`,
		Args: cobra.MaximumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if a.store == nil {
				return fmt.Errorf("install ledger is disabled in the configuration")
			}

			filter := stores.InstallFilter{Limit: limit, Status: stores.InstallStatus(status)}
			if len(args) == 1 {
				filter.Package = args[0]
			}
			records, err := a.store.ListInstalls(ctx, filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, headingStyle.Render("TIME")+"\t"+headingStyle.Render("PACKAGE")+"\t"+
				headingStyle.Render("SOURCE")+"\t"+headingStyle.Render("STATUS")+"\t"+headingStyle.Render("ERROR"))
			for _, rec := range records {
				errMsg := ""
				if rec.Error != nil {
					errMsg = *rec.Error
				}
				fmt.Fprintf(w, "%s\t%s/%s\t%s\t%s\t%s\n",
					rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					rec.Package, rec.Version,
					rec.Provenance,
					styleStatus(rec.Status),
					errMsg,
				)
				if !events {
					continue
				}
				evs, err := a.store.GetEvents(ctx, rec.ID, 0)
				if err != nil {
					return err
				}
				for _, ev := range evs {
					fmt.Fprintf(w, "\t  %s\t%s\t%s\t\n", dimStyle.Render(ev.Timestamp.Local().Format("15:04:05")), ev.Level, ev.Message)
				}
			}
			return w.Flush()
		}),
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of records (0 for all)")
	cmd.Flags().StringVar(&status, "status", "", "only show records with this status")
	cmd.Flags().BoolVar(&events, "events", false, "print the event log of each record")

	return cmd
}

func styleStatus(s stores.InstallStatus) string {
	switch s {
	case stores.InstallStatusInstalled:
		return okStyle.Render(string(s))
	case stores.InstallStatusFailed:
		return errStyle.Render(string(s))
	default:
		return dimStyle.Render(string(s))
	}
}
