package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alvazi/microgl/internal/auditlog"
)

func newLogCommand(g *globals) *cobra.Command {
	var (
		runID   string
		outcome string
		last    bool
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List import log entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}

			entries, err := auditlog.Read(p.path(p.cfg.Ledger.ImportLog))
			if err != nil {
				return err
			}
			if last && len(entries) > 0 {
				runID = entries[len(entries)-1].RunID
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tOUTCOME\tFILE\tROW\tDOCUMENT\tDETAILS")
			for _, e := range entries {
				if runID != "" && e.RunID != runID {
					continue
				}
				if outcome != "" && string(e.Outcome) != outcome {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					e.Timestamp.Format(time.DateTime), e.Outcome, e.File, e.Row, e.DocumentID, e.Details)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "only entries of this run id")
	cmd.Flags().StringVar(&outcome, "outcome", "", "only entries with this outcome (posted, duplicate, filtered, failed)")
	cmd.Flags().BoolVar(&last, "last", false, "only entries of the most recent run")
	cmd.MarkFlagsMutuallyExclusive("run", "last")

	return cmd
}
