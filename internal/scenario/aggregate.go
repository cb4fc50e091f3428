package scenario

import (
	"cmp"
	"math"
	"slices"
)

type AggregateOptions struct {
	// Benefit is the value realized when every critical action succeeds.
	Benefit        float64
	MinSuccessRate float64
	// RiskTolerance in [0,1] sets how much TrialRisk discounts a trial's
	// value in RiskAdjustedValue.
	RiskTolerance float64
	KeepTrials    bool
}

// riskCostScale is the realized cost at which a trial's effect risk doubles.
const riskCostScale = 100_000

// TrialRisk scores the adverse second-order effects that fired in o: each
// contributes its impact magnitude weighted by its probability, the sum is
// scaled up by the trial's cost and capped at 1. Adverse means lowering a
// probability or raising a cost or duration.
func TrialRisk(o TrialOutcome) float64 {
	var risk float64
	for _, eff := range o.Effects {
		harm := eff.Impact
		if targetOrDefault(eff.Target) == TargetProbability {
			harm = -harm
		}
		if harm > 0 {
			risk += harm * clamp01(eff.Probability)
		}
	}
	return clamp01(risk * (1 + o.Cost/riskCostScale))
}

// Aggregate summarizes the completed trials of one posture. Trial counters
// other than TrialsCompleted are left for the caller to fill in.
func Aggregate(posture Posture, g *Graph, outcomes []TrialOutcome, opts AggregateOptions) PostureResult {
	res := PostureResult{
		Posture:         posture,
		Available:       len(outcomes) > 0,
		TrialsCompleted: len(outcomes),
		Outcomes:        make(map[OutcomeClass]int, len(OutcomeClasses)),
	}
	for _, c := range OutcomeClasses {
		res.Outcomes[c] = 0
	}
	if len(outcomes) == 0 {
		return res
	}

	n := len(outcomes)
	costs := make([]float64, n)
	durations := make([]float64, n)
	makespans := make([]float64, n)
	values := make([]float64, n)
	risks := make([]float64, n)
	adjusted := make([]float64, n)
	tolerance := clamp01(opts.RiskTolerance)

	stats := make([]ActionStats, g.Len())
	costSums := make([]float64, g.Len())
	for i, a := range g.actions {
		stats[i].Name = a.Name
	}

	type effectKey struct{ source, description string }
	fired := map[effectKey]int{}

	successes := 0
	for t, o := range outcomes {
		ok := trialSucceeded(g, o)
		if ok {
			successes++
		}

		costs[t] = o.Cost
		durations[t] = o.Duration.Hours()
		makespans[t] = o.Makespan.Hours()
		values[t] = -o.Cost
		if ok {
			values[t] += opts.Benefit
		}
		risks[t] = TrialRisk(o)
		adjusted[t] = values[t] * (1 - risks[t]*(1-tolerance))

		res.Outcomes[classify(o)]++

		for _, rec := range o.Actions {
			i, found := g.index[rec.Name]
			if !found {
				continue
			}
			switch rec.Status {
			case StatusSucceeded:
				stats[i].SuccessRate++
			case StatusFailed:
				stats[i].FailureRate++
			case StatusSkipped:
				stats[i].SkipRate++
			}
			costSums[i] += rec.Cost
		}

		for _, eff := range o.Effects {
			fired[effectKey{eff.Source, eff.Description}]++
		}
	}

	fn := float64(n)
	for i := range stats {
		stats[i].SuccessRate /= fn
		stats[i].FailureRate /= fn
		stats[i].SkipRate /= fn
		stats[i].MeanCost = costSums[i] / fn
	}
	res.Actions = stats

	for k, c := range fired {
		res.Effects = append(res.Effects, EffectStats{Source: k.source, Description: k.description, Fired: c})
	}
	slices.SortFunc(res.Effects, func(a, b EffectStats) int {
		return cmp.Or(
			cmp.Compare(b.Fired, a.Fired),
			cmp.Compare(a.Source, b.Source),
			cmp.Compare(a.Description, b.Description),
		)
	})

	res.SuccessRate = float64(successes) / fn
	res.ExpectedValue = mean(values)
	res.RiskAdjustedValue = mean(adjusted)
	res.EffectRisk = Summarize(risks)
	res.MeetsThreshold = res.SuccessRate >= opts.MinSuccessRate
	res.Cost = Summarize(costs)
	res.DurationHours = Summarize(durations)
	res.MakespanHours = Summarize(makespans)

	if opts.KeepTrials {
		res.Trials = slices.Clone(outcomes)
	}
	return res
}

// trialSucceeded is true when every critical action (graph sink) succeeded.
func trialSucceeded(g *Graph, o TrialOutcome) bool {
	for _, s := range g.sinks {
		name := g.actions[s].Name
		idx := slices.IndexFunc(o.Actions, func(r ActionRecord) bool { return r.Name == name })
		if idx < 0 || o.Actions[idx].Status != StatusSucceeded {
			return false
		}
	}
	return true
}

func classify(o TrialOutcome) OutcomeClass {
	if len(o.Actions) == 0 {
		return OutcomeCatastrophic
	}
	ok := 0
	for _, r := range o.Actions {
		if r.Status == StatusSucceeded {
			ok++
		}
	}
	ratio := float64(ok) / float64(len(o.Actions))
	switch {
	case ratio >= 0.9:
		return OutcomeSuccess
	case ratio >= 0.6:
		return OutcomePartialSuccess
	case ratio >= 0.3:
		return OutcomeFailure
	default:
		return OutcomeCatastrophic
	}
}

// Summarize computes an empirical distribution. Percentiles use the
// nearest-rank method on a sorted copy; sample is left untouched.
func Summarize(sample []float64) Distribution {
	if len(sample) == 0 {
		return Distribution{}
	}
	sorted := slices.Clone(sample)
	slices.Sort(sorted)

	m := mean(sorted)
	var sq float64
	for _, v := range sorted {
		sq += (v - m) * (v - m)
	}

	return Distribution{
		Mean:   m,
		StdDev: math.Sqrt(sq / float64(len(sorted))),
		Min:    sorted[0],
		P10:    nearestRank(sorted, 0.10),
		P50:    nearestRank(sorted, 0.50),
		P90:    nearestRank(sorted, 0.90),
		Max:    sorted[len(sorted)-1],
	}
}

func nearestRank(sorted []float64, p float64) float64 {
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	rank = max(0, min(rank, len(sorted)-1))
	return sorted[rank]
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Recommend picks the available posture with the highest expected value among
// those meeting minSuccessRate. When none qualifies, the best available posture
// is returned flagged BelowThreshold. Ties keep the earlier posture.
func Recommend(postures []PostureResult, minSuccessRate float64) *Recommendation {
	best := -1
	for i, p := range postures {
		if !p.Available || p.SuccessRate < minSuccessRate {
			continue
		}
		if best < 0 || p.ExpectedValue > postures[best].ExpectedValue {
			best = i
		}
	}
	if best >= 0 {
		return &Recommendation{Posture: postures[best].Posture}
	}

	for i, p := range postures {
		if !p.Available {
			continue
		}
		if best < 0 || p.ExpectedValue > postures[best].ExpectedValue {
			best = i
		}
	}
	if best < 0 {
		return nil
	}
	return &Recommendation{Posture: postures[best].Posture, BelowThreshold: true}
}
