package scenario

import "time"

// Action is one unit of planned work. Actions are never mutated by the engine.
type Action struct {
	Name        string
	Description string
	Duration    time.Duration
	Cost        float64
	Probability float64
	DependsOn   []string
	Effects     []string
	Capability  string
}

// capability returns the reliability lookup key for the action.
func (a Action) capability() string {
	if a.Capability != "" {
		return a.Capability
	}
	return a.Name
}

// Plan is a named list of actions as loaded from a plan document.
type Plan struct {
	Name    string
	Actions []Action
	// Benefit and Reliability come from graph-level DOT attributes; zero
	// values mean the plan did not set them.
	Benefit     float64
	Reliability map[string]float64
}

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

type EffectTarget string

const (
	TargetProbability EffectTarget = "probability"
	TargetCost        EffectTarget = "cost"
	TargetDuration    EffectTarget = "duration"
)

// SecondOrderEffect is a consequence of one resolved action on others. It only
// lives inside the trial that produced it.
type SecondOrderEffect struct {
	Source      string       `json:"source"`
	Description string       `json:"description"`
	Probability float64      `json:"probability"`
	Impact      float64      `json:"impact"`
	Target      EffectTarget `json:"target"`
	Affects     []string     `json:"affects"`
}

type ActionRecord struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Probability float64       `json:"probability"`
	Cost        float64       `json:"cost"`
	Duration    time.Duration `json:"duration"`
}

// TrialOutcome is the record of one stochastic pass over the graph.
type TrialOutcome struct {
	Index    int                 `json:"index"`
	Actions  []ActionRecord      `json:"actions"`
	Cost     float64             `json:"cost"`
	Duration time.Duration       `json:"duration"`
	Makespan time.Duration       `json:"makespan"`
	Effects  []SecondOrderEffect `json:"effects,omitempty"`
}

// Admission is the precomputed verdict of the constraint collaborator.
type Admission struct {
	Admissible bool     `json:"admissible"`
	Violations []string `json:"violations,omitempty"`
}

// Distribution summarizes an empirical sample.
type Distribution struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	P10    float64 `json:"p10"`
	P50    float64 `json:"p50"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
}

type OutcomeClass string

const (
	OutcomeSuccess        OutcomeClass = "success"
	OutcomePartialSuccess OutcomeClass = "partial_success"
	OutcomeFailure        OutcomeClass = "failure"
	OutcomeCatastrophic   OutcomeClass = "catastrophic"
)

// OutcomeClasses lists the classes from best to worst.
var OutcomeClasses = []OutcomeClass{OutcomeSuccess, OutcomePartialSuccess, OutcomeFailure, OutcomeCatastrophic}

type ActionStats struct {
	Name        string  `json:"name"`
	SuccessRate float64 `json:"success_rate"`
	FailureRate float64 `json:"failure_rate"`
	SkipRate    float64 `json:"skip_rate"`
	MeanCost    float64 `json:"mean_cost"`
}

type EffectStats struct {
	Source      string `json:"source"`
	Description string `json:"description"`
	Fired       int    `json:"fired"`
}

// PostureResult aggregates the trials of a single posture. RiskAdjustedValue
// discounts each trial's value by its TrialRisk according to the configured
// risk tolerance; EffectRisk is the distribution of TrialRisk.
type PostureResult struct {
	Posture           Posture              `json:"posture"`
	Available         bool                 `json:"available"`
	TrialsRequested   int                  `json:"trials_requested"`
	TrialsCompleted   int                  `json:"trials_completed"`
	TrialsDiscarded   int                  `json:"trials_discarded"`
	TrialsCancelled   int                  `json:"trials_cancelled"`
	SuccessRate       float64              `json:"success_rate"`
	ExpectedValue     float64              `json:"expected_value"`
	RiskAdjustedValue float64              `json:"risk_adjusted_value"`
	EffectRisk        Distribution         `json:"effect_risk"`
	MeetsThreshold    bool                 `json:"meets_threshold"`
	Cost              Distribution         `json:"cost"`
	DurationHours     Distribution         `json:"duration_hours"`
	MakespanHours     Distribution         `json:"makespan_hours"`
	Outcomes          map[OutcomeClass]int `json:"outcomes"`
	Actions           []ActionStats        `json:"actions"`
	Effects           []EffectStats        `json:"effects,omitempty"`
	Trials            []TrialOutcome       `json:"trials,omitempty"`
}

type Recommendation struct {
	Posture        Posture `json:"posture"`
	BelowThreshold bool    `json:"below_threshold"`
}

// ScenarioResult is the aggregate forecast handed back to the caller. The
// headline figures are copied from the recommended posture.
type ScenarioResult struct {
	Scenario          string          `json:"scenario"`
	Seed              int64           `json:"seed"`
	TrialsRequested   int             `json:"trials_requested"`
	Benefit           float64         `json:"benefit"`
	SuccessRate       float64         `json:"success_rate"`
	ExpectedValue     float64         `json:"expected_value"`
	RiskAdjustedValue float64         `json:"risk_adjusted_value"`
	EffectRisk        Distribution    `json:"effect_risk"`
	Cost              Distribution    `json:"cost"`
	DurationHours     Distribution    `json:"duration_hours"`
	MakespanHours     Distribution    `json:"makespan_hours"`
	Postures          []PostureResult `json:"postures"`
	Recommendation    *Recommendation `json:"recommendation,omitempty"`
	Partial           bool            `json:"partial"`
	Warnings          []Warning       `json:"warnings,omitempty"`
}

// Posture returns the result for the named posture, if it was simulated.
func (r *ScenarioResult) Posture(p Posture) (*PostureResult, bool) {
	for i := range r.Postures {
		if r.Postures[i].Posture == p {
			return &r.Postures[i], true
		}
	}
	return nil, false
}

// RiskScore is the downstream approval signal: the probability the plan does
// not reach all of its critical actions.
func (r *ScenarioResult) RiskScore() float64 {
	return clamp01(1 - r.SuccessRate)
}

// HasWarning reports whether a warning with the given code was attached.
func (r *ScenarioResult) HasWarning(code WarningCode) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
