package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alvazi/microgl/internal/journal"
	"github.com/alvazi/microgl/internal/logger"
	"github.com/alvazi/microgl/internal/report"
	"github.com/alvazi/microgl/internal/store"
)

func newReportCommand(g *globals) *cobra.Command {
	var (
		year   int
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the general ledger lines to a spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}
			ledger, err := p.ledger()
			if err != nil {
				return err
			}
			dp, err := places(ledger)
			if err != nil {
				return err
			}

			rc := p.cfg.Report
			if cmd.Flags().Changed("year") {
				rc.Year = year
			}
			if format != "" {
				rc.Format = format
			}
			if out != "" {
				rc.Path = out
			}

			ctx := cmd.Context()
			db, err := store.OpenSQLite(ctx, p.path(p.cfg.Ledger.Database))
			if err != nil {
				return err
			}
			defer db.Close()

			docs, err := db.Documents(ctx, store.Filter{Year: rc.Year})
			if err != nil {
				return err
			}
			if errs := journal.ValidateDocuments(docs, p.catalog); len(errs) > 0 {
				log := logger.FromContext(ctx)
				for _, e := range errs {
					log.Error().Str("document", e.DocumentID).Int("invariant", e.Invariant).Msg(e.Reason)
				}
				return fmt.Errorf("ledger has %d invariant violation(s); run microgl validate", len(errs))
			}
			path := p.path(rc.Path)
			if err := report.Write(path, docs, p.catalog, report.Options{
				Format: rc.Format,
				Sheet:  rc.Sheet,
				Table:  rc.Table,
				Places: dp,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d documents to %s\n", len(docs), path)
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "only documents posted in this year (0 = all)")
	cmd.Flags().StringVar(&format, "format", "", "xlsx or csv (default from microgl.yaml)")
	cmd.Flags().StringVar(&out, "out", "", "output path (default from microgl.yaml)")

	return cmd
}
