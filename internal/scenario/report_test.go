package scenario

import (
	"context"
	"strings"
	"testing"
)

func TestFormatReport(t *testing.T) {
	res, err := NewSimulator(testConfig()).Simulate(context.Background(), Request{
		Name:     "migration",
		Actions:  migrationPlan(),
		Trials:   200,
		Postures: []Posture{Optimistic, Realistic},
		Seed:     seedPtr(21),
		Benefit:  100_000,
	})
	if err != nil {
		t.Fatal(err)
	}

	report := FormatReport(res)
	for _, want := range []string{
		"SCENARIO SIMULATION: migration",
		"Seed:            21",
		"Recommended:",
		"Risk-adjusted:",
		"Effect risk:",
		"optimistic",
		"realistic",
		"OUTCOME DISTRIBUTION",
		string(OutcomeCatastrophic),
		"High cost reduces available budget",
	} {
		if !strings.Contains(report, want) {
			t.Fatalf("expected report to contain %q:\n%s", want, report)
		}
	}
}

func TestFormatReport_ShowsWarnings(t *testing.T) {
	res := &ScenarioResult{
		Scenario: "tiny",
		Postures: []PostureResult{{Posture: Realistic, TrialsRequested: 3}},
		Warnings: []Warning{{Code: InsufficientTrialsWarning, Message: "3 trials is below the reliable minimum of 30"}},
	}
	report := FormatReport(res)
	if !strings.Contains(report, "[insufficient_trials]") || !strings.Contains(report, "Recommended:     none") {
		t.Fatalf("unexpected report:\n%s", report)
	}
	if FormatReport(nil) != "" {
		t.Fatalf("expected empty report for nil result")
	}
}
