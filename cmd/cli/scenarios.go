package main

import (
	"fmt"

	"assocdesign/adapters/excel"
	"assocdesign/internal/testkit"

	"github.com/spf13/cobra"
)

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List the built-in scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range testkit.Names() {
				s, err := testkit.Scenario(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s, %d sim x %d fit models, %d x %d\n",
					name, s.Criterion.Name, len(s.SimModels), len(s.FitModels), s.NSub, s.NExp)
			}
			return nil
		},
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <report.xlsx>",
		Short: "Print the summary sheet of an exported workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := excel.ReadSummary(args[0])
			if err != nil {
				return err
			}
			for _, k := range sortedKeys(summary) {
				fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %12.6g\n", k, summary[k])
			}
			return nil
		},
	}
}
