package scenario

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/awmpietro/scenario-simulator/internal/scenario/eval"
)

// EffectContext describes the action that just resolved inside a trial.
type EffectContext struct {
	Source      Action
	Status      Status
	Probability float64
	Cost        float64
	Duration    time.Duration
	// Remaining lists the actions not yet visited in this trial, in order.
	Remaining []string
}

// EffectGenerator emits candidate second-order effects for a resolved action.
// Implementations must be safe for concurrent use; the executor decides
// whether each candidate fires.
type EffectGenerator interface {
	Generate(ec EffectContext) ([]SecondOrderEffect, error)
}

// EffectGeneratorFunc adapts a plain function to EffectGenerator.
type EffectGeneratorFunc func(ec EffectContext) ([]SecondOrderEffect, error)

func (f EffectGeneratorFunc) Generate(ec EffectContext) ([]SecondOrderEffect, error) {
	return f(ec)
}

// Registry maps effect names, as referenced by Action.Effects, to generators.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]EffectGenerator
}

func NewRegistry() *Registry {
	return &Registry{generators: map[string]EffectGenerator{}}
}

// DefaultRegistry carries the built-in budget pressure effect.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	_ = r.Register(BudgetPressureEffect, BudgetPressure{
		Threshold:   10_000,
		Probability: 0.8,
		Impact:      -0.3,
	})
	return r
}

const BudgetPressureEffect = "budget_pressure"

func (r *Registry) Register(name string, gen EffectGenerator) error {
	if name == "" {
		return fmt.Errorf("effect name is required")
	}
	if gen == nil {
		return fmt.Errorf("effect %q: generator is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.generators[name]; dup {
		return fmt.Errorf("effect %q already registered", name)
	}
	r.generators[name] = gen
	return nil
}

// Lookup is safe on a nil registry.
func (r *Registry) Lookup(name string) (EffectGenerator, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	gen, ok := r.generators[name]
	return gen, ok
}

// Clone returns an independent copy; generators themselves are shared.
func (r *Registry) Clone() *Registry {
	c := NewRegistry()
	if r == nil {
		return c
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, gen := range r.generators {
		c.generators[name] = gen
	}
	return c
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.generators))
	for n := range r.generators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// BudgetPressure models an expensive action draining the budget available to
// everything that follows it.
type BudgetPressure struct {
	Threshold   float64
	Probability float64
	Impact      float64
}

func (b BudgetPressure) Generate(ec EffectContext) ([]SecondOrderEffect, error) {
	if ec.Status == StatusSkipped || ec.Cost <= b.Threshold || len(ec.Remaining) == 0 {
		return nil, nil
	}
	return []SecondOrderEffect{{
		Source:      ec.Source.Name,
		Description: "High cost reduces available budget",
		Probability: b.Probability,
		Impact:      b.Impact,
		Target:      TargetProbability,
		Affects:     slices.Clone(ec.Remaining),
	}}, nil
}

// StaticEffect always proposes the same effect, optionally only for one
// outcome of its source action.
type StaticEffect struct {
	On          Status
	Description string
	Probability float64
	Impact      float64
	Target      EffectTarget
	Affects     []string
}

func (s StaticEffect) Generate(ec EffectContext) ([]SecondOrderEffect, error) {
	if s.On != "" && s.On != ec.Status {
		return nil, nil
	}
	affects := s.Affects
	if len(affects) == 0 {
		affects = ec.Remaining
	}
	return []SecondOrderEffect{{
		Source:      ec.Source.Name,
		Description: s.Description,
		Probability: s.Probability,
		Impact:      s.Impact,
		Target:      targetOrDefault(s.Target),
		Affects:     slices.Clone(affects),
	}}, nil
}

// ExprEffectSpec declares an effect whose trigger is an expr-lang condition
// over the resolved action. Available variables are listed in exprEnv.
type ExprEffectSpec struct {
	When        string       `json:"when" yaml:"when"`
	Description string       `json:"description" yaml:"description"`
	Probability float64      `json:"probability" yaml:"probability"`
	Impact      float64      `json:"impact" yaml:"impact"`
	Target      EffectTarget `json:"target,omitempty" yaml:"target,omitempty"`
	Affects     []string     `json:"affects,omitempty" yaml:"affects,omitempty"`
}

type ExprEffect struct {
	spec ExprEffectSpec
	cond *eval.Compiled
}

var exprEnv = map[string]any{
	"name":           "",
	"status":         "",
	"succeeded":      false,
	"failed":         false,
	"cost":           0.0,
	"planned_cost":   0.0,
	"duration_hours": 0.0,
	"probability":    0.0,
	"remaining":      0,
}

func NewExprEffect(spec ExprEffectSpec) (*ExprEffect, error) {
	switch targetOrDefault(spec.Target) {
	case TargetProbability, TargetCost, TargetDuration:
	default:
		return nil, fmt.Errorf("unknown effect target %q", spec.Target)
	}
	if spec.Probability < 0 || spec.Probability > 1 {
		return nil, fmt.Errorf("effect probability %v outside [0,1]", spec.Probability)
	}

	cond, err := eval.Compile(spec.When, exprEnv)
	if err != nil {
		return nil, fmt.Errorf("invalid effect condition: %w", err)
	}

	spec.Affects = slices.Clone(spec.Affects)
	return &ExprEffect{spec: spec, cond: cond}, nil
}

func (e *ExprEffect) Generate(ec EffectContext) ([]SecondOrderEffect, error) {
	vars := map[string]any{
		"name":           ec.Source.Name,
		"status":         string(ec.Status),
		"succeeded":      ec.Status == StatusSucceeded,
		"failed":         ec.Status == StatusFailed,
		"cost":           ec.Cost,
		"planned_cost":   ec.Source.Cost,
		"duration_hours": ec.Duration.Hours(),
		"probability":    ec.Probability,
		"remaining":      len(ec.Remaining),
	}

	ok, err := e.cond.Eval(vars)
	if err != nil {
		return nil, fmt.Errorf("effect condition %q: %w", e.spec.When, err)
	}
	if !ok {
		return nil, nil
	}

	affects := e.spec.Affects
	if len(affects) == 0 {
		affects = ec.Remaining
	}
	return []SecondOrderEffect{{
		Source:      ec.Source.Name,
		Description: e.spec.Description,
		Probability: e.spec.Probability,
		Impact:      e.spec.Impact,
		Target:      targetOrDefault(e.spec.Target),
		Affects:     slices.Clone(affects),
	}}, nil
}

func targetOrDefault(t EffectTarget) EffectTarget {
	if t == "" {
		return TargetProbability
	}
	return t
}
