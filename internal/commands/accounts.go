package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alvazi/microgl/internal/model"
)

func newAccountsCommand(g *globals) *cobra.Command {
	var accountType string

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List the chart of accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := openProject(cmd, g)
			if err != nil {
				return err
			}

			accts := p.catalog.All()
			if accountType != "" {
				t := model.AccountType(accountType)
				if !t.Valid() {
					return fmt.Errorf("unknown account type %q", accountType)
				}
				accts = p.catalog.ByType(t)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSIDE")
			for _, a := range accts {
				side := string(a.NormalSide)
				if p.catalog.Contra(a.ID) {
					side += " (contra)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.ID, a.Name, a.Type, side)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&accountType, "type", "", "only accounts of this type (asset, liability, equity, income, expense)")

	return cmd
}
