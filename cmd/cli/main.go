package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "assocdesign",
		Short:         "Simulation-based design evaluation for associative-learning experiments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("env-file", "", "Env file to load instead of ./.env")
	rootCmd.PersistentFlags().String("log-level", "", "ERROR, WARN, INFO, DEBUG or TRACE (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().Int("workers", -1, "Parallel fit workers; 0 uses every CPU (overrides scenario)")
	rootCmd.PersistentFlags().Int64("seed", -1, "Run seed (overrides scenario)")
	rootCmd.PersistentFlags().String("out", "", "Output directory (overrides ASSOC_OUTPUT_DIR)")
	rootCmd.PersistentFlags().String("format", "csv", "Export format: csv, xlsx, both or none")

	rootCmd.AddCommand(
		newEvaluateCmd(),
		newOptimizeCmd(),
		newScenariosCmd(),
		newInspectCmd(),
	)
	return rootCmd
}
