package main

import (
	"fmt"

	"assocdesign/adapters/optimizer"
	"assocdesign/app"

	"github.com/spf13/cobra"
)

func newOptimizeCmd() *cobra.Command {
	var maxEvals int
	var population int
	var set []string

	cmd := &cobra.Command{
		Use:   "optimize <scenario>",
		Short: "Search the scenario's design space with CMA-ES",
		Long: `Minimise the scenario's criterion over its design space, then re-evaluate the
best point with the run seed and export it together with the search history.

Example: assocdesign optimize rwae --max-evals 60 --format xlsx`,
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
			start, err := parseVars(set)
			if err != nil {
				return err
			}
			eval, err := app.NewEvaluator(setup)
			if err != nil {
				return err
			}

			opt := optimizer.NewCMAES(rt.logger)
			opt.Population = population
			res, err := app.NewDesignSearchService(eval, opt).Run(cmd.Context(), app.SearchRequest{
				MaxEvaluations: maxEvals,
				Seed:           setup.Seed,
				Init:           start,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "scenario %s  best loss %.6f after %d evaluations (%s, %v)\n",
				setup.Scenario, res.Loss, res.Optimization.Evaluations, res.Optimization.Status, res.Runtime)
			for _, k := range setup.Space.Names() {
				fmt.Fprintf(w, "  %-20s %12.6g\n", k, res.Best[k])
			}
			fmt.Fprintf(w, "re-evaluated with seed %d: loss %.6f\n", setup.Seed, res.Report.Loss)

			b := res.Report.Bundle()
			b.History = res.Optimization.History
			paths, err := export(cmd.Context(), rt, b, string(res.Report.Manifest.ID))
			for _, p := range paths {
				fmt.Fprintf(w, "wrote %s\n", p)
			}
			return err
		},
	}

	cmd.Flags().IntVar(&maxEvals, "max-evals", optimizer.DefaultMaxEvaluations, "Objective evaluation budget")
	cmd.Flags().IntVar(&population, "population", 0, "CMA-ES population size (0 = 4 + 3*dim/2)")
	cmd.Flags().StringArrayVar(&set, "init", nil, "Starting value as name=value (repeatable)")
	return cmd
}
