package simdto

import (
	"time"

	"github.com/awmpietro/scenario-simulator/internal/app"
	"github.com/awmpietro/scenario-simulator/internal/planfile"
	"github.com/awmpietro/scenario-simulator/internal/scenario"
)

type SimulateRequest struct {
	Name        string                             `json:"name,omitempty"`
	PlanDOT     string                             `json:"plan_dot,omitempty"`
	Actions     []planfile.ActionSpec              `json:"actions,omitempty"`
	Effects     map[string]scenario.ExprEffectSpec `json:"effects,omitempty"`
	Trials      int                                `json:"trials,omitempty"`
	Postures    []string                           `json:"postures,omitempty"`
	Seed        *int64                             `json:"seed,omitempty"`
	Benefit     float64                            `json:"benefit,omitempty"`
	Reliability map[string]float64                 `json:"reliability,omitempty"`
	Admission   *scenario.Admission                `json:"admission,omitempty"`
	BudgetMS    int64                              `json:"budget_ms,omitempty"`
	KeepTrials  bool                               `json:"keep_trials,omitempty"`
	Report      bool                               `json:"report,omitempty"`
}

func (r SimulateRequest) Input() app.SimulateInput {
	return app.SimulateInput{
		Name:        r.Name,
		PlanDOT:     r.PlanDOT,
		Actions:     r.Actions,
		Effects:     r.Effects,
		Trials:      r.Trials,
		Postures:    r.Postures,
		Seed:        r.Seed,
		Benefit:     r.Benefit,
		Reliability: r.Reliability,
		Admission:   r.Admission,
		Budget:      time.Duration(r.BudgetMS) * time.Millisecond,
		KeepTrials:  r.KeepTrials,
	}
}

type SimulateResponse struct {
	Result    *scenario.ScenarioResult `json:"result"`
	RiskScore float64                  `json:"risk_score"`
	Report    string                   `json:"report,omitempty"`
}

// NewSimulateResponse attaches the text report when asked for.
func NewSimulateResponse(res *scenario.ScenarioResult, withReport bool) SimulateResponse {
	out := SimulateResponse{Result: res, RiskScore: res.RiskScore()}
	if withReport {
		out.Report = scenario.FormatReport(res)
	}
	return out
}

type HistoryResponse struct {
	Records []scenario.HistoryRecord `json:"records"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
