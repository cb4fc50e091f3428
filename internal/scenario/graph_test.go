package scenario

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestBuildGraph_OrderBreaksTiesByDeclaration(t *testing.T) {
	g, err := BuildGraph([]Action{
		{Name: "c", Probability: 1},
		{Name: "a", Probability: 1, DependsOn: []string{"c"}},
		{Name: "b", Probability: 1},
		{Name: "d", Probability: 1, DependsOn: []string{"a", "b"}},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"c", "a", "b", "d"}
	if got := g.Order(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
	if got := g.Sinks(); !reflect.DeepEqual(got, []string{"d"}) {
		t.Fatalf("expected sinks [d], got %v", got)
	}
	if got := g.Successors("c"); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("expected successors of c = [a], got %v", got)
	}
}

func TestBuildGraph_DetectsCycle(t *testing.T) {
	_, err := BuildGraph([]Action{
		{Name: "a", Probability: 1, DependsOn: []string{"c"}},
		{Name: "b", Probability: 1, DependsOn: []string{"a"}},
		{Name: "c", Probability: 1, DependsOn: []string{"b"}},
	}, nil)

	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if len(cycle.Members) != 4 {
		t.Fatalf("expected 3 members plus the closing one, got %v", cycle.Members)
	}
	if cycle.Members[0] != cycle.Members[len(cycle.Members)-1] {
		t.Fatalf("expected cycle to close on its first member, got %v", cycle.Members)
	}
	if !IsPlanError(err) {
		t.Fatalf("expected cycle to be a plan error")
	}
}

func TestBuildGraph_SelfDependencyIsACycle(t *testing.T) {
	_, err := BuildGraph([]Action{{Name: "a", Probability: 1, DependsOn: []string{"a"}}}, nil)

	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if got := cycle.Error(); got != "dependency cycle: a -> a" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestBuildGraph_RejectsInvalidPlans(t *testing.T) {
	cases := []struct {
		name    string
		actions []Action
		check   func(error) bool
	}{
		{
			name:    "empty",
			actions: nil,
			check:   func(err error) bool { return errors.Is(err, ErrNoActions) },
		},
		{
			name:    "unknown dependency",
			actions: []Action{{Name: "a", Probability: 1, DependsOn: []string{"ghost"}}},
			check: func(err error) bool {
				var e *UnknownDependencyError
				return errors.As(err, &e) && e.Dependency == "ghost"
			},
		},
		{
			name:    "unknown effect",
			actions: []Action{{Name: "a", Probability: 1, Effects: []string{"nope"}}},
			check: func(err error) bool {
				var e *UnknownEffectError
				return errors.As(err, &e) && e.Effect == "nope"
			},
		},
		{
			name:    "duplicate",
			actions: []Action{{Name: "a", Probability: 1}, {Name: "a", Probability: 1}},
			check: func(err error) bool {
				var e *DuplicateActionError
				return errors.As(err, &e)
			},
		},
		{
			name:    "probability above one",
			actions: []Action{{Name: "a", Probability: 1.5}},
			check: func(err error) bool {
				var e *InvalidActionError
				return errors.As(err, &e)
			},
		},
		{
			name:    "negative cost",
			actions: []Action{{Name: "a", Probability: 1, Cost: -1}},
			check: func(err error) bool {
				var e *InvalidActionError
				return errors.As(err, &e)
			},
		},
		{
			name:    "negative duration",
			actions: []Action{{Name: "a", Probability: 1, Duration: -time.Hour}},
			check: func(err error) bool {
				var e *InvalidActionError
				return errors.As(err, &e)
			},
		},
		{
			name:    "blank name",
			actions: []Action{{Name: "  ", Probability: 1}},
			check: func(err error) bool {
				var e *InvalidActionError
				return errors.As(err, &e)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildGraph(tc.actions, DefaultRegistry())
			if err == nil {
				t.Fatalf("expected error")
			}
			if !tc.check(err) {
				t.Fatalf("unexpected error type: %v", err)
			}
			if !IsPlanError(err) {
				t.Fatalf("expected plan error, got %v", err)
			}
		})
	}
}

func TestBuildGraph_DoesNotAliasInput(t *testing.T) {
	actions := []Action{
		{Name: "a", Probability: 1},
		{Name: "b", Probability: 1, DependsOn: []string{"a"}},
	}
	g, err := BuildGraph(actions, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	actions[1].DependsOn[0] = "mutated"

	b, ok := g.Action("b")
	if !ok {
		t.Fatalf("expected action b")
	}
	if b.DependsOn[0] != "a" {
		t.Fatalf("graph shares dependency slice with input")
	}

	b.DependsOn[0] = "again"
	b2, _ := g.Action("b")
	if b2.DependsOn[0] != "a" {
		t.Fatalf("Action returned an aliased slice")
	}
}

func TestBuildGraph_DuplicateDependencyCountsOnce(t *testing.T) {
	g, err := BuildGraph([]Action{
		{Name: "a", Probability: 1},
		{Name: "b", Probability: 1, DependsOn: []string{"a", "a"}},
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := g.Successors("a"); len(got) != 1 {
		t.Fatalf("expected one successor edge, got %v", got)
	}
}
