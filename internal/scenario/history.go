package scenario

import (
	"context"
	"time"
)

// HistoryRecord is the summary of one Simulate call kept for later review.
type HistoryRecord struct {
	ID                string    `json:"id"`
	Scenario          string    `json:"scenario"`
	Seed              int64     `json:"seed"`
	Trials            int       `json:"trials"`
	Posture           Posture   `json:"posture,omitempty"`
	BelowThreshold    bool      `json:"below_threshold"`
	SuccessRate       float64   `json:"success_rate"`
	ExpectedValue     float64   `json:"expected_value"`
	RiskAdjustedValue float64   `json:"risk_adjusted_value"`
	MeanEffectRisk    float64   `json:"mean_effect_risk"`
	MeanCost          float64   `json:"mean_cost"`
	MeanDurationHours float64   `json:"mean_duration_hours"`
	RiskScore         float64   `json:"risk_score"`
	Partial           bool      `json:"partial"`
	Warnings          int       `json:"warnings"`
	CreatedAt         time.Time `json:"created_at"`
}

// HistoryStore persists simulation summaries. The simulator only appends;
// List exists for callers reviewing past runs.
type HistoryStore interface {
	Append(ctx context.Context, rec HistoryRecord) (HistoryRecord, error)
	List(ctx context.Context, scenario string, limit int) ([]HistoryRecord, error)
}

// NewHistoryRecord summarizes res. ID is left for the store to assign.
func NewHistoryRecord(res *ScenarioResult, at time.Time) HistoryRecord {
	rec := HistoryRecord{
		Scenario:          res.Scenario,
		Seed:              res.Seed,
		Trials:            res.TrialsRequested,
		SuccessRate:       res.SuccessRate,
		ExpectedValue:     res.ExpectedValue,
		RiskAdjustedValue: res.RiskAdjustedValue,
		MeanEffectRisk:    res.EffectRisk.Mean,
		MeanCost:          res.Cost.Mean,
		MeanDurationHours: res.DurationHours.Mean,
		RiskScore:         res.RiskScore(),
		Partial:           res.Partial,
		Warnings:          len(res.Warnings),
		CreatedAt:         at.UTC(),
	}
	if res.Recommendation != nil {
		rec.Posture = res.Recommendation.Posture
		rec.BelowThreshold = res.Recommendation.BelowThreshold
	}
	return rec
}
