package app

import (
	"context"
	"time"

	"github.com/awmpietro/scenario-simulator/internal/planfile"
	"github.com/awmpietro/scenario-simulator/internal/scenario"
)

// SimulationService is what transports depend on.
type SimulationService interface {
	Simulate(ctx context.Context, in SimulateInput) (*scenario.ScenarioResult, error)
	History(ctx context.Context, scenarioName string, limit int) ([]scenario.HistoryRecord, error)
}

// SimulateInput carries a plan either as DOT text or as an action list,
// never both.
type SimulateInput struct {
	Name        string
	PlanDOT     string
	Actions     []planfile.ActionSpec
	Effects     map[string]scenario.ExprEffectSpec
	Trials      int
	Postures    []string
	Seed        *int64
	Benefit     float64
	Reliability map[string]float64
	Admission   *scenario.Admission
	Budget      time.Duration
	KeepTrials  bool
}
