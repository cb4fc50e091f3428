package planfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/awmpietro/scenario-simulator/internal/scenario"
)

func TestLoad_YAML(t *testing.T) {
	doc, err := Load("testdata/rollout.yaml")
	if err != nil {
		t.Fatal(err)
	}

	if doc.Name != "Regional rollout" || doc.Trials != 2000 || doc.Benefit != 150000 {
		t.Fatalf("unexpected header %+v", doc)
	}
	if doc.Seed == nil || *doc.Seed != 17 {
		t.Fatalf("expected seed 17, got %v", doc.Seed)
	}

	plan := doc.Plan()
	if len(plan.Actions) != 4 {
		t.Fatalf("expected 4 actions, got %d", len(plan.Actions))
	}
	durations := map[string]time.Duration{
		"procure":   5 * 24 * time.Hour,
		"configure": 16 * time.Hour,
		"deploy":    8 * time.Hour,
		"announce":  30 * time.Minute,
	}
	for _, a := range plan.Actions {
		if a.Duration != durations[a.Name] {
			t.Fatalf("%s: expected duration %s, got %s", a.Name, durations[a.Name], a.Duration)
		}
	}
	if plan.Actions[3].Probability != 1 {
		t.Fatalf("expected missing probability to default to 1, got %v", plan.Actions[3].Probability)
	}
}

func TestLoad_DOT(t *testing.T) {
	doc, err := Load("testdata/migration.dot")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "Database migration" || len(doc.Actions) != 4 {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.Benefit != 90000 || doc.Reliability["terraform"] != 0.95 {
		t.Fatalf("expected graph attributes to carry over, got benefit=%v reliability=%v", doc.Benefit, doc.Reliability)
	}
}

func TestLoad_NameFallsBackToFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quick-fix.yaml")
	if err := os.WriteFile(path, []byte("actions:\n  - name: patch\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Name != "quick-fix" {
		t.Fatalf("expected file name as plan name, got %q", doc.Name)
	}
}

func TestLoad_RejectsUnknownExtensionAndFields(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "plan.txt")
	_ = os.WriteFile(txt, []byte("whatever"), 0o644)
	if _, err := Load(txt); err == nil {
		t.Fatalf("expected unsupported extension error")
	}

	bad := filepath.Join(dir, "plan.yaml")
	_ = os.WriteFile(bad, []byte("actions:\n  - name: a\n    probabilty: 0.5\n"), 0o644)
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected unknown field error")
	}
}

func TestDocument_RequestRunsWithPlanEffects(t *testing.T) {
	doc, err := Load("testdata/rollout.yaml")
	if err != nil {
		t.Fatal(err)
	}

	base := scenario.DefaultRegistry()
	req, err := doc.Request(base, 300)
	if err != nil {
		t.Fatal(err)
	}
	if req.Trials != 300 {
		t.Fatalf("expected trial override, got %d", req.Trials)
	}
	if _, ok := base.Lookup("slip_cost"); ok {
		t.Fatalf("base registry must not be modified")
	}
	if _, ok := req.Registry.Lookup("slip_cost"); !ok {
		t.Fatalf("expected plan effect in request registry")
	}

	cfg := scenario.DefaultConfig()
	cfg.Budget = -1
	res, err := scenario.NewSimulator(cfg).Simulate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Postures) != 3 || res.Seed != 17 {
		t.Fatalf("unexpected result: postures=%d seed=%d", len(res.Postures), res.Seed)
	}
}

func TestDocument_RegistryRejectsBadEffect(t *testing.T) {
	doc := &Document{Effects: map[string]scenario.ExprEffectSpec{
		"broken": {When: "len(name) > 2", Probability: 0.5},
	}}
	if _, err := doc.Registry(scenario.DefaultRegistry()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDuration_JSON(t *testing.T) {
	var spec ActionSpec
	if err := json.Unmarshal([]byte(`{"name":"a","duration":1.5}`), &spec); err != nil {
		t.Fatal(err)
	}
	if time.Duration(spec.Duration) != 90*time.Minute {
		t.Fatalf("expected numeric hours, got %s", time.Duration(spec.Duration))
	}
	if err := json.Unmarshal([]byte(`{"name":"a","duration":"2d"}`), &spec); err != nil {
		t.Fatal(err)
	}
	if time.Duration(spec.Duration) != 48*time.Hour {
		t.Fatalf("expected two days, got %s", time.Duration(spec.Duration))
	}
	if err := json.Unmarshal([]byte(`{"name":"a","duration":"later"}`), &spec); err == nil {
		t.Fatalf("expected error")
	}
}
