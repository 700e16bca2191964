package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRulesCommand(g *globals) *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Mapping rule operations",
	}
	rulesCmd.AddCommand(newRulesCheckCommand(g))
	return rulesCmd
}

func newRulesCheckCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate sources, layouts and rules against the chart of accounts",
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

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SOURCE\tACCOUNT\tCURRENCY\tRULES\tFALLBACK")
			for _, code := range ledger.Rules.Codes() {
				src, _ := ledger.Rules.Source(code)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", src.Code, src.Account, src.Currency, len(src.Rules), src.Fallback.Policy)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}
