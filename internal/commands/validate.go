package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alvazi/microgl/internal/journal"
	"github.com/alvazi/microgl/internal/store"
)

func newValidateCommand(g *globals) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check posted documents against the ledger invariants",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := store.OpenSQLite(ctx, p.path(p.cfg.Ledger.Database))
			if err != nil {
				return err
			}
			defer db.Close()

			docs, err := db.Documents(ctx, store.Filter{Year: year})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			errs := journal.ValidateDocuments(docs, p.catalog)
			for _, e := range errs {
				fmt.Fprintln(out, e.Error())
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d invariant violation(s) in %d documents", len(errs), len(docs))
			}
			fmt.Fprintf(out, "%d documents OK\n", len(docs))
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "only documents posted in this year (0 = all)")

	return cmd
}
