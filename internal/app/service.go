// internal/app/service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/awmpietro/scenario-simulator/internal/planfile"
	"github.com/awmpietro/scenario-simulator/internal/scenario"
)

type Compiler interface {
	Compile(dot string) (*scenario.Plan, error)
}

type Simulator interface {
	Simulate(ctx context.Context, req scenario.Request) (*scenario.ScenarioResult, error)
	Registry() *scenario.Registry
}

type Cache interface {
	GetOrCompute(dot string, fn func() (*scenario.Plan, error)) (*scenario.Plan, error)
}

type History interface {
	List(ctx context.Context, scenarioName string, limit int) ([]scenario.HistoryRecord, error)
}

// DefaultTrials applies when the input leaves Trials at zero.
const DefaultTrials = 1000

// ErrHistoryDisabled is returned by History when no store is configured.
var ErrHistoryDisabled = errors.New("history is not configured")

// RequestError reports a malformed request, as opposed to a plan that
// parses but cannot be simulated.
type RequestError struct {
	Reason string
}

func (e *RequestError) Error() string { return e.Reason }

type Service struct {
	compiler  Compiler
	simulator Simulator
	cache     Cache
	history   History
	maxTrials int
	maxBudget time.Duration
}

type ServiceOption func(*Service)

// WithLimits bounds what a caller may ask for. maxTrials caps trials per
// posture; requested budgets above maxBudget are lowered to it. Zero leaves
// the corresponding limit off.
func WithLimits(maxTrials int, maxBudget time.Duration) ServiceOption {
	return func(s *Service) {
		s.maxTrials = max(maxTrials, 0)
		s.maxBudget = max(maxBudget, 0)
	}
}

// NewService wires the collaborators. history may be nil.
func NewService(compiler Compiler, simulator Simulator, cache Cache, history History, opts ...ServiceOption) *Service {
	s := &Service{compiler: compiler, simulator: simulator, cache: cache, history: history}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate resolves the plan (DOT plans are compiled once per distinct text)
// and runs it. The input is not mutated.
func (s *Service) Simulate(ctx context.Context, in SimulateInput) (*scenario.ScenarioResult, error) {
	switch {
	case in.PlanDOT == "" && len(in.Actions) == 0:
		return nil, &RequestError{Reason: "plan_dot or actions is required"}
	case in.PlanDOT != "" && len(in.Actions) > 0:
		return nil, &RequestError{Reason: "plan_dot and actions are mutually exclusive"}
	}

	trials := in.Trials
	if trials == 0 {
		trials = DefaultTrials
		if s.maxTrials > 0 {
			trials = min(trials, s.maxTrials)
		}
	}
	if s.maxTrials > 0 && trials > s.maxTrials {
		return nil, &RequestError{Reason: fmt.Sprintf("trials must not exceed %d, got %d", s.maxTrials, trials)}
	}

	budget, err := s.budgetFor(in.Budget)
	if err != nil {
		return nil, err
	}

	doc := &planfile.Document{
		Name:        in.Name,
		Trials:      trials,
		Benefit:     in.Benefit,
		Postures:    in.Postures,
		Seed:        in.Seed,
		Reliability: in.Reliability,
		Admission:   in.Admission,
		Effects:     in.Effects,
		Actions:     in.Actions,
	}

	if in.PlanDOT != "" {
		plan, err := s.cache.GetOrCompute(in.PlanDOT, func() (*scenario.Plan, error) {
			return s.compiler.Compile(in.PlanDOT)
		})
		if err != nil {
			return nil, err
		}
		compiled := planfile.FromPlan(plan)
		doc.Actions = compiled.Actions
		if doc.Name == "" {
			doc.Name = compiled.Name
		}
		if doc.Benefit == 0 {
			doc.Benefit = compiled.Benefit
		}
		if doc.Reliability == nil {
			doc.Reliability = compiled.Reliability
		}
	}

	req, err := doc.Request(s.simulator.Registry(), 0)
	if err != nil {
		return nil, err
	}
	req.Budget = budget
	req.KeepTrials = in.KeepTrials

	return s.simulator.Simulate(ctx, req)
}

// budgetFor rejects negative budgets, which would disable the limit, and
// lowers requests above the configured ceiling. Zero keeps the simulator's
// default.
func (s *Service) budgetFor(requested time.Duration) (time.Duration, error) {
	if requested < 0 {
		return 0, &RequestError{Reason: "budget must not be negative"}
	}
	if s.maxBudget > 0 && requested > s.maxBudget {
		return s.maxBudget, nil
	}
	return requested, nil
}

func (s *Service) History(ctx context.Context, scenarioName string, limit int) ([]scenario.HistoryRecord, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.List(ctx, scenarioName, limit)
}
