package scenario

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// TrialParams are the per-posture inputs shared by every trial of a run.
type TrialParams struct {
	// PostureBias is the signed probability shift of the posture.
	PostureBias float64
	// Reliability maps a capability name to a multiplier in [0,1]; missing
	// entries count as 1.
	Reliability map[string]float64
	// EstimateUncertainty bounds the multiplicative noise on cost and
	// duration: factors are drawn uniformly from [1-u, 1+u].
	EstimateUncertainty float64
	// FailureCostFraction is the share of realized cost a failed action still
	// consumes.
	FailureCostFraction float64
}

// trialState holds everything a single trial mutates. It is never shared.
type trialState struct {
	status  []Status
	visited []bool
	probAdj []float64
	costAdj []float64
	durAdj  []float64
	finish  []time.Duration
}

func newTrialState(n int) *trialState {
	return &trialState{
		status:  make([]Status, n),
		visited: make([]bool, n),
		probAdj: make([]float64, n),
		costAdj: make([]float64, n),
		durAdj:  make([]float64, n),
		finish:  make([]time.Duration, n),
	}
}

// RunTrial performs one stochastic pass over g. Cancellation is checked between
// actions. A failing or panicking effect generator aborts the trial with an
// error; the caller discards it.
func RunTrial(ctx context.Context, g *Graph, params TrialParams, rng *rand.Rand) (out TrialOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = TrialOutcome{}
			err = fmt.Errorf("trial panicked: %v", r)
		}
	}()

	st := newTrialState(g.Len())
	out.Actions = make([]ActionRecord, 0, g.Len())

	for pos, i := range g.order {
		if err := ctx.Err(); err != nil {
			return TrialOutcome{}, fmt.Errorf("%w: %v", ErrTrialCancelled, err)
		}

		a := g.actions[i]
		st.visited[i] = true

		eligible := true
		var start time.Duration
		for _, d := range g.deps[i] {
			if st.status[d] != StatusSucceeded {
				eligible = false
				break
			}
			start = max(start, st.finish[d])
		}
		if !eligible {
			// Burn the draws the action would have used so every action reads
			// the same stream position regardless of upstream outcomes.
			rng.Float64()
			rng.Float64()
			rng.Float64()
			st.status[i] = StatusSkipped
			out.Actions = append(out.Actions, ActionRecord{Name: a.Name, Status: StatusSkipped})
			continue
		}

		p := clamp01(a.Probability*reliability(params.Reliability, a) + params.PostureBias + st.probAdj[i])
		succeeded := rng.Float64() < p
		costFactor := perturbation(rng, params.EstimateUncertainty)
		durFactor := perturbation(rng, params.EstimateUncertainty)

		cost := nonNegative(a.Cost * costFactor * (1 + st.costAdj[i]))
		dur := toDuration(float64(a.Duration) * durFactor * (1 + st.durAdj[i]))

		status := StatusSucceeded
		if !succeeded {
			status = StatusFailed
			cost *= clamp01(params.FailureCostFraction)
		}
		st.status[i] = status
		st.finish[i] = addDuration(start, dur)

		out.Cost = nonNegative(out.Cost + cost)
		out.Duration = addDuration(out.Duration, dur)
		out.Makespan = max(out.Makespan, st.finish[i])
		out.Actions = append(out.Actions, ActionRecord{
			Name:        a.Name,
			Status:      status,
			Probability: p,
			Cost:        cost,
			Duration:    dur,
		})

		if len(g.effects[i]) == 0 {
			continue
		}

		ec := EffectContext{
			Source:      a,
			Status:      status,
			Probability: p,
			Cost:        cost,
			Duration:    dur,
			Remaining:   g.names(g.order[pos+1:]),
		}
		fired, err := fireEffects(g, st, g.effects[i], ec, rng)
		if err != nil {
			return TrialOutcome{}, fmt.Errorf("action %q: %w", a.Name, err)
		}
		out.Effects = append(out.Effects, fired...)
	}

	return out, nil
}

// fireEffects draws each candidate effect against its own probability and
// applies the ones that fire to actions not yet visited. Impacts on the same
// action add up; clamping happens when the action resolves.
func fireEffects(g *Graph, st *trialState, gens []EffectGenerator, ec EffectContext, rng *rand.Rand) ([]SecondOrderEffect, error) {
	var fired []SecondOrderEffect
	for _, gen := range gens {
		candidates, err := gen.Generate(ec)
		if err != nil {
			return nil, err
		}
		for _, eff := range candidates {
			if rng.Float64() >= clamp01(eff.Probability) {
				continue
			}
			for _, name := range eff.Affects {
				j, ok := g.index[name]
				if !ok {
					return nil, fmt.Errorf("effect %q targets unknown action %q", eff.Description, name)
				}
				if st.visited[j] {
					continue
				}
				switch targetOrDefault(eff.Target) {
				case TargetProbability:
					st.probAdj[j] += eff.Impact
				case TargetCost:
					st.costAdj[j] += eff.Impact
				case TargetDuration:
					st.durAdj[j] += eff.Impact
				default:
					return nil, fmt.Errorf("effect %q has unknown target %q", eff.Description, eff.Target)
				}
			}
			fired = append(fired, eff)
		}
	}
	return fired, nil
}

func reliability(m map[string]float64, a Action) float64 {
	r, ok := m[a.capability()]
	if !ok {
		return 1
	}
	return clamp01(r)
}

func perturbation(rng *rand.Rand, u float64) float64 {
	u = clamp01(u)
	return 1 + u*(2*rng.Float64()-1)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// nonNegative clamps v into [0, MaxFloat64].
func nonNegative(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > math.MaxFloat64:
		return math.MaxFloat64
	default:
		return v
	}
}

// toDuration converts nanoseconds to a Duration, saturating at the largest
// representable value instead of wrapping.
func toDuration(ns float64) time.Duration {
	ns = nonNegative(ns)
	if ns >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(ns)
}

// addDuration adds two non-negative durations, saturating on overflow.
func addDuration(a, b time.Duration) time.Duration {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
