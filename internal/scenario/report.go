package scenario

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const reportEffectSamples = 3

// FormatReport renders a human-readable summary of res.
func FormatReport(res *ScenarioResult) string {
	var sb strings.Builder
	WriteReport(&sb, res)
	return sb.String()
}

func WriteReport(w io.Writer, res *ScenarioResult) {
	if res == nil {
		return
	}

	title := res.Scenario
	if title == "" {
		title = "(unnamed scenario)"
	}
	fmt.Fprintf(w, "SCENARIO SIMULATION: %s\n", title)
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", 60))

	fmt.Fprintf(w, "Seed:            %d\n", res.Seed)
	fmt.Fprintf(w, "Trials:          %d per posture\n", res.TrialsRequested)
	fmt.Fprintf(w, "Success rate:    %.1f%%\n", res.SuccessRate*100)
	fmt.Fprintf(w, "Expected value:  %.2f\n", res.ExpectedValue)
	fmt.Fprintf(w, "Risk-adjusted:   %.2f\n", res.RiskAdjustedValue)
	fmt.Fprintf(w, "Average cost:    %.2f (p10 %.2f, p90 %.2f)\n", res.Cost.Mean, res.Cost.P10, res.Cost.P90)
	fmt.Fprintf(w, "Average effort:  %.1fh\n", res.DurationHours.Mean)
	fmt.Fprintf(w, "Makespan:        %.1fh (p90 %.1fh)\n", res.MakespanHours.Mean, res.MakespanHours.P90)
	fmt.Fprintf(w, "Risk score:      %.2f\n", res.RiskScore())
	fmt.Fprintf(w, "Effect risk:     %.2f (p90 %.2f)\n", res.EffectRisk.Mean, res.EffectRisk.P90)

	if rec := res.Recommendation; rec != nil {
		suffix := ""
		if rec.BelowThreshold {
			suffix = " (below success threshold)"
		}
		fmt.Fprintf(w, "Recommended:     %s%s\n", rec.Posture, suffix)
	} else {
		fmt.Fprintf(w, "Recommended:     none\n")
	}

	fmt.Fprintf(w, "\nPOSTURES\n")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "posture\tcompleted\tsuccess\texpected value\trisk-adjusted\tmean cost\tmakespan p50")
	for _, p := range res.Postures {
		if !p.Available {
			fmt.Fprintf(tw, "%s\t0/%d\t-\t-\t-\t-\t-\n", p.Posture, p.TrialsRequested)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d/%d\t%.1f%%\t%.2f\t%.2f\t%.2f\t%.1fh\n",
			p.Posture, p.TrialsCompleted, p.TrialsRequested, p.SuccessRate*100,
			p.ExpectedValue, p.RiskAdjustedValue, p.Cost.Mean, p.MakespanHours.P50)
	}
	tw.Flush()

	if best := reportPosture(res); best != nil {
		fmt.Fprintf(w, "\nOUTCOME DISTRIBUTION (%s)\n", best.Posture)
		for _, c := range OutcomeClasses {
			n := best.Outcomes[c]
			share := 0.0
			if best.TrialsCompleted > 0 {
				share = float64(n) / float64(best.TrialsCompleted) * 100
			}
			fmt.Fprintf(w, "  %-16s %6d (%.1f%%)\n", c, n, share)
		}

		if len(best.Effects) > 0 {
			fmt.Fprintf(w, "\nSECOND-ORDER EFFECTS\n")
			for i, e := range best.Effects {
				if i == reportEffectSamples {
					break
				}
				fmt.Fprintf(w, "  %s: %s (fired %d times)\n", e.Source, e.Description, e.Fired)
			}
		}
	}

	if len(res.Warnings) > 0 {
		fmt.Fprintf(w, "\nWARNINGS\n")
		for _, wn := range res.Warnings {
			fmt.Fprintf(w, "  %s\n", wn)
		}
	}
}

func reportPosture(res *ScenarioResult) *PostureResult {
	if res.Recommendation != nil {
		if p, ok := res.Posture(res.Recommendation.Posture); ok {
			return p
		}
	}
	for i := range res.Postures {
		if res.Postures[i].Available {
			return &res.Postures[i]
		}
	}
	return nil
}
