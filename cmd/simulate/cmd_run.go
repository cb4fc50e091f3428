package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/awmpietro/scenario-simulator/internal/config"
	"github.com/awmpietro/scenario-simulator/internal/history"
	"github.com/awmpietro/scenario-simulator/internal/logging"
	"github.com/awmpietro/scenario-simulator/internal/planfile"
	"github.com/awmpietro/scenario-simulator/internal/scenario"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <plan.yaml|plan.dot>",
		Short: "Simulate a plan file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			trials, _ := cmd.Flags().GetInt("trials")
			postures, _ := cmd.Flags().GetStringSlice("posture")
			keep, _ := cmd.Flags().GetBool("keep-trials")
			budget, _ := cmd.Flags().GetDuration("budget")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			doc, err := planfile.Load(args[0])
			if err != nil {
				return err
			}
			if len(postures) > 0 {
				doc.Postures = postures
			}
			if cmd.Flags().Changed("seed") {
				seed, _ := cmd.Flags().GetInt64("seed")
				doc.Seed = &seed
			}
			if cmd.Flags().Changed("benefit") {
				doc.Benefit, _ = cmd.Flags().GetFloat64("benefit")
			}
			if trials <= 0 && doc.Trials <= 0 {
				trials = 1000
			}

			opts := []scenario.Option{scenario.WithLogger(logging.NewLogger(cfg.LogLevel, cmd.ErrOrStderr()))}
			if cfg.HistoryDB != "" {
				store, closeStore, err := history.Open(cmd.Context(), cfg.HistoryDB, cfg.HistoryMaxRecords)
				if err != nil {
					return err
				}
				defer func() { _ = closeStore() }()
				opts = append(opts, scenario.WithHistory(store))
			}
			sim := scenario.NewSimulator(cfg.SimulationConfig(), opts...)

			req, err := doc.Request(sim.Registry(), trials)
			if err != nil {
				return err
			}
			req.Budget = budget
			req.KeepTrials = keep

			res, err := sim.Simulate(cmd.Context(), req)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			scenario.WriteReport(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().Int("trials", 0, "Trials per posture (overrides the plan file; default 1000)")
	cmd.Flags().Int64("seed", 0, "Random seed for a reproducible run")
	cmd.Flags().StringSlice("posture", nil, "Postures to simulate: optimistic, realistic, pessimistic")
	cmd.Flags().Float64("benefit", 0, "Value realized when the plan succeeds")
	cmd.Flags().Duration("budget", 0, "Wall-clock limit (0 uses $SCENARIO_BUDGET, negative disables)")
	cmd.Flags().Bool("keep-trials", false, "Include per-trial records in JSON output")

	return cmd
}

// loadConfig reads the environment and applies the persistent flags on top.
func loadConfig(cmd *cobra.Command) (config.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Runtime{}, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.HistoryDB = db
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	} else if os.Getenv("SCENARIO_LOG_LEVEL") == "" {
		cfg.LogLevel = defaultCLILogLevel
	}
	return cfg, nil
}
