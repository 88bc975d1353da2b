package main

import (
	"fmt"
	"io"

	"assocdesign/app"
	"assocdesign/ports"

	"github.com/spf13/cobra"
)

func newEvaluateCmd() *cobra.Command {
	var set []string

	cmd := &cobra.Command{
		Use:   "evaluate <scenario>",
		Short: "Score one design point",
		Long: `Simulate, fit and score one design point of a scenario and export the outcome.

<scenario> is a YAML file or the name of a built-in scenario.

Example: assocdesign evaluate kru2008 --set p_compound=0.8 --format both`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			setup, err := buildSetup(cmd, rt, args[0])
			if err != nil {
				return err
			}
			point, err := parseVars(set)
			if err != nil {
				return err
			}
			eval, err := app.NewEvaluator(setup)
			if err != nil {
				return err
			}
			out, err := eval.Report(cmd.Context(), point)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			b := out.Bundle()
			fmt.Fprintf(w, "scenario %s  criterion %s  loss %.6f  (%v)\n", setup.Scenario, setup.Criterion.Name(), out.Loss, out.Runtime)
			printSummary(w, b.Summary)
			paths, err := export(cmd.Context(), rt, b, string(out.Manifest.ID))
			for _, p := range paths {
				fmt.Fprintf(w, "wrote %s\n", p)
			}
			return err
		},
	}

	cmd.Flags().StringArrayVar(&set, "set", nil, "Design variable as name=value (repeatable)")
	return cmd
}

func printSummary(w io.Writer, rows []ports.SummaryRecord) {
	for _, r := range rows {
		fmt.Fprintf(w, "  %-20s %12.6g\n", r.Key, r.Value)
	}
}
