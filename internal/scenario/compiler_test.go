package scenario

import (
	"errors"
	"os"
	"reflect"
	"testing"
	"time"
)

func TestCompiler_MigrationPlan(t *testing.T) {
	dot, err := os.ReadFile("testdata/migration.dot")
	if err != nil {
		t.Fatal(err)
	}

	plan, err := NewCompiler().Compile(string(dot))
	if err != nil {
		t.Fatal(err)
	}

	if plan.Name != "Database migration" {
		t.Fatalf("expected plan name from graph label, got %q", plan.Name)
	}
	if len(plan.Actions) != 4 {
		t.Fatalf("expected 4 actions, got %d", len(plan.Actions))
	}

	names := make([]string, len(plan.Actions))
	for i, a := range plan.Actions {
		names[i] = a.Name
	}
	if want := []string{"backup", "provision", "migrate", "verify"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("expected declaration order %v, got %v", want, names)
	}

	provision := plan.Actions[1]
	if provision.Duration != 48*time.Hour || provision.Cost != 25000 || provision.Probability != 0.9 {
		t.Fatalf("unexpected provision action %+v", provision)
	}
	if provision.Capability != "terraform" || !reflect.DeepEqual(provision.Effects, []string{BudgetPressureEffect}) {
		t.Fatalf("unexpected provision capability/effects %+v", provision)
	}

	migrate := plan.Actions[2]
	if migrate.Duration != 24*time.Hour {
		t.Fatalf("expected bare duration to be read as hours, got %s", migrate.Duration)
	}
	if !reflect.DeepEqual(migrate.DependsOn, []string{"backup", "provision"}) {
		t.Fatalf("unexpected dependencies %v", migrate.DependsOn)
	}

	if got := plan.Actions[3].Description; got != "Verify row counts" {
		t.Fatalf("expected label fallback for description, got %q", got)
	}

	if plan.Benefit != 90000 || !reflect.DeepEqual(plan.Reliability, map[string]float64{"terraform": 0.95}) {
		t.Fatalf("unexpected graph attributes benefit=%v reliability=%v", plan.Benefit, plan.Reliability)
	}

	if _, err := BuildGraph(plan.Actions, DefaultRegistry()); err != nil {
		t.Fatalf("compiled plan does not build: %v", err)
	}
}

func TestParseScores(t *testing.T) {
	got, err := parseScores(" terraform = 0.9, ,deployer=1 ")
	if err != nil {
		t.Fatal(err)
	}
	if want := map[string]float64{"terraform": 0.9, "deployer": 1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	for _, raw := range []string{"terraform", "=0.5", "terraform=high"} {
		if _, err := parseScores(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestCompiler_ImplicitNodesDefaultToCertainSuccess(t *testing.T) {
	plan, err := NewCompiler().Compile(`digraph { a -> b }`)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(plan.Actions))
	}
	for _, a := range plan.Actions {
		if a.Probability != 1 {
			t.Fatalf("expected default probability 1, got %v for %s", a.Probability, a.Name)
		}
	}
	if !reflect.DeepEqual(plan.Actions[1].DependsOn, []string{"a"}) {
		t.Fatalf("expected b to depend on a, got %v", plan.Actions[1].DependsOn)
	}
}

func TestCompiler_RejectsUndirectedGraphs(t *testing.T) {
	if _, err := NewCompiler().Compile(`graph { a -- b }`); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCompiler_RejectsMalformedAttributes(t *testing.T) {
	_, err := NewCompiler().Compile(`digraph { a [probability="likely"] }`)

	var invalid *InvalidActionError
	if !errors.As(err, &invalid) || invalid.Action != "a" {
		t.Fatalf("expected InvalidActionError for a, got %v", err)
	}
}

func TestCompiler_RejectsInvalidDOT(t *testing.T) {
	if _, err := NewCompiler().Compile(`digraph { a -> `); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"90m", 90 * time.Minute},
		{"36h", 36 * time.Hour},
		{"14d", 14 * 24 * time.Hour},
		{"1.5d", 36 * time.Hour},
		{"8", 8 * time.Hour},
		{"0.5", 30 * time.Minute},
	}
	for _, tc := range cases {
		got, err := ParseDuration(tc.in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %s, got %s", tc.in, tc.want, got)
		}
	}

	if _, err := ParseDuration("soon"); err == nil {
		t.Fatalf("expected error for unparseable duration")
	}
}
