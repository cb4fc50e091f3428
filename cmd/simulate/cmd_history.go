package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/awmpietro/scenario-simulator/internal/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [scenario]",
		Short: "List past simulation runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.HistoryDB == "" {
				return errors.New("no history database: pass --db or set SCENARIO_HISTORY_DB")
			}

			store, err := history.NewSQLiteStore(cmd.Context(), cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			recs, err := store.List(cmd.Context(), name, limit)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(recs)
			}
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tSCENARIO\tPOSTURE\tTRIALS\tSUCCESS\tEV\tRISK-ADJ EV\tRISK\tSEED")
			for _, r := range recs {
				posture := string(r.Posture)
				if posture == "" {
					posture = "-"
				} else if r.BelowThreshold {
					posture += "*"
				}
				if r.Partial {
					posture += " (partial)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1f%%\t%.2f\t%.2f\t%.2f\t%d\n",
					r.CreatedAt.Local().Format(time.DateTime), r.Scenario, posture, r.Trials,
					r.SuccessRate*100, r.ExpectedValue, r.RiskAdjustedValue, r.RiskScore, r.Seed)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().Int("limit", history.DefaultLimit, "Maximum number of runs to list")
	return cmd
}
