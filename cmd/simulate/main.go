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

// defaultCLILogLevel keeps the CLI quiet unless the flag or
// SCENARIO_LOG_LEVEL asks for more.
const defaultCLILogLevel = "warn"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Monte Carlo simulation of action plans",
		Long: `simulate runs an action plan (YAML or DOT) many times under optimistic,
realistic and pessimistic postures and reports success rates, cost and
duration distributions, and the recommended posture.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("db", "", "SQLite history database (defaults to $SCENARIO_HISTORY_DB)")
	rootCmd.PersistentFlags().String("log-level", defaultCLILogLevel, "Log level: trace, debug, info, warn, error (defaults to $SCENARIO_LOG_LEVEL)")

	rootCmd.AddCommand(
		newRunCmd(),
		newHistoryCmd(),
	)
	return rootCmd
}
