package scenario

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/awmpietro/scenario-simulator/internal/scenario"

// Config holds the engine-wide tunables. Request fields override Budget.
type Config struct {
	PostureBias         float64
	EstimateUncertainty float64
	FailureCostFraction float64
	MinSuccessRate      float64
	MinReliableTrials   int
	// RiskTolerance in [0,1] scales how much effect risk discounts value:
	// 0 is fully risk-averse, 1 ignores risk.
	RiskTolerance float64
	// AutoBudgetPressure attaches the budget pressure effect to every action,
	// not only to those that list it.
	AutoBudgetPressure bool
	Workers            int
	// Budget is the default wall-clock limit per Simulate call. Zero or
	// negative means unbounded.
	Budget time.Duration
}

func DefaultConfig() Config {
	return Config{
		PostureBias:         0.1,
		EstimateUncertainty: 0.2,
		FailureCostFraction: 0.5,
		MinSuccessRate:      0.7,
		MinReliableTrials:   30,
		RiskTolerance:       0.5,
		Workers:             runtime.GOMAXPROCS(0),
		Budget:              30 * time.Second,
	}
}

// Request is one simulation job.
type Request struct {
	Name     string
	Actions  []Action
	Trials   int
	Postures []Posture
	// Seed fixes the random stream. Nil draws a fresh seed, echoed in the
	// result.
	Seed        *int64
	Benefit     float64
	Reliability map[string]float64
	// Admission is the constraint verdict. Nil means the caller did not gate.
	Admission *Admission
	// Budget overrides Config.Budget: zero keeps the default, negative
	// disables the limit.
	Budget     time.Duration
	KeepTrials bool
	// Registry replaces the simulator's effect registry for this call.
	Registry *Registry
}

type Simulator struct {
	cfg      Config
	registry *Registry
	observer TrialObserver
	history  HistoryStore
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

type Option func(*Simulator)

func WithRegistry(r *Registry) Option {
	return func(s *Simulator) {
		s.registry = r
	}
}

func WithObserver(o TrialObserver) Option {
	return func(s *Simulator) {
		s.observer = o
	}
}

func WithHistory(h HistoryStore) Option {
	return func(s *Simulator) {
		s.history = h
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Simulator) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock sets the time source for history records.
func WithClock(now func() time.Time) Option {
	return func(s *Simulator) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSimulator(cfg Config, opts ...Option) *Simulator {
	if cfg.Workers < 1 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	s := &Simulator{
		cfg:      cfg,
		registry: DefaultRegistry(),
		logger:   slog.New(slog.DiscardHandler),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) Config() Config { return s.cfg }

func (s *Simulator) Registry() *Registry { return s.registry }

// Simulate validates the request, samples Trials trials per posture and
// aggregates them. Plan and request errors are returned before any trial
// runs. Budget exhaustion and cancellation are not errors: the result is
// built from the completed trials and flagged Partial.
func (s *Simulator) Simulate(ctx context.Context, req Request) (*ScenarioResult, error) {
	if req.Admission != nil && !req.Admission.Admissible {
		return nil, &InadmissiblePlanError{Violations: append([]string(nil), req.Admission.Violations...)}
	}
	if req.Trials < 1 {
		return nil, ErrInvalidTrials
	}
	postures := req.Postures
	if len(postures) == 0 {
		postures = []Posture{Realistic}
	}
	for _, p := range postures {
		if _, err := ParsePosture(string(p)); err != nil {
			return nil, err
		}
	}
	if err := validateReliability(req.Reliability); err != nil {
		return nil, err
	}
	reg := s.registry
	if req.Registry != nil {
		reg = req.Registry
	}
	g, err := BuildGraph(s.withAutoEffects(req.Actions, reg), reg)
	if err != nil {
		return nil, err
	}

	seed, err := s.seedFor(req)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "scenario.Simulate", trace.WithAttributes(
		attribute.String("scenario.name", req.Name),
		attribute.Int("scenario.trials", req.Trials),
		attribute.Int("scenario.actions", g.Len()),
		attribute.Int64("scenario.seed", seed),
	))
	defer span.End()

	runCtx := ctx
	budget := req.Budget
	if budget == 0 {
		budget = s.cfg.Budget
	}
	if budget > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	res := &ScenarioResult{
		Scenario:        req.Name,
		Seed:            seed,
		TrialsRequested: req.Trials,
		Benefit:         req.Benefit,
		Postures:        make([]PostureResult, 0, len(postures)),
	}
	if req.Trials < s.cfg.MinReliableTrials {
		res.Warnings = append(res.Warnings, Warning{
			Code:    InsufficientTrialsWarning,
			Message: fmt.Sprintf("%d trials is below the reliable minimum of %d", req.Trials, s.cfg.MinReliableTrials),
		})
	}

	seen := make(map[Posture]struct{}, len(postures))
	for _, raw := range postures {
		p, _ := ParsePosture(string(raw))
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}

		pr := s.runPosture(runCtx, g, req, p, seed)
		res.Postures = append(res.Postures, pr)

		if pr.TrialsDiscarded > 0 {
			res.Warnings = append(res.Warnings, Warning{
				Code:    DiscardedTrialsWarning,
				Posture: p,
				Message: fmt.Sprintf("%d of %d trials discarded after effect generator errors", pr.TrialsDiscarded, pr.TrialsRequested),
			})
		}
		if pr.TrialsCancelled > 0 {
			res.Partial = true
		}
		if !pr.Available {
			res.Warnings = append(res.Warnings, Warning{
				Code:    PostureUnavailableWarning,
				Posture: p,
				Message: "no trial completed",
			})
		}
	}

	if res.Partial {
		res.Warnings = append(res.Warnings, Warning{
			Code:    PartialSimulationWarning,
			Message: partialMessage(runCtx, res.Postures),
		})
	}

	res.Recommendation = Recommend(res.Postures, s.cfg.MinSuccessRate)
	if rec := res.Recommendation; rec != nil {
		best, _ := res.Posture(rec.Posture)
		res.SuccessRate = best.SuccessRate
		res.ExpectedValue = best.ExpectedValue
		res.RiskAdjustedValue = best.RiskAdjustedValue
		res.EffectRisk = best.EffectRisk
		res.Cost = best.Cost
		res.DurationHours = best.DurationHours
		res.MakespanHours = best.MakespanHours
		if rec.BelowThreshold {
			res.Warnings = append(res.Warnings, Warning{
				Code:    BelowThresholdWarning,
				Posture: rec.Posture,
				Message: fmt.Sprintf("no posture reaches the %.0f%% success threshold", s.cfg.MinSuccessRate*100),
			})
		}
	}

	if s.history != nil {
		// Partial runs cancelled by the caller are still recorded.
		if _, err := s.history.Append(context.WithoutCancel(ctx), NewHistoryRecord(res, s.now())); err != nil {
			s.logger.Warn("history write failed", "scenario", req.Name, "error", err)
			res.Warnings = append(res.Warnings, Warning{
				Code:    HistoryWriteWarning,
				Message: err.Error(),
			})
		}
	}

	span.SetAttributes(
		attribute.Bool("scenario.partial", res.Partial),
		attribute.Float64("scenario.success_rate", res.SuccessRate),
	)
	s.logger.Info("scenario simulated",
		"scenario", req.Name,
		"seed", seed,
		"trials", req.Trials,
		"postures", len(res.Postures),
		"success_rate", res.SuccessRate,
		"expected_value", res.ExpectedValue,
		"risk_adjusted_value", res.RiskAdjustedValue,
		"partial", res.Partial,
		"warnings", len(res.Warnings),
	)

	return res, nil
}

type slotState uint8

const (
	slotPending slotState = iota
	slotDone
	slotDiscarded
)

type trialSlot struct {
	state   slotState
	outcome TrialOutcome
}

// runPosture fans the trials of one posture out to the worker pool and waits
// for all of them. Slots are addressed by trial index, so the aggregate does
// not depend on scheduling.
func (s *Simulator) runPosture(ctx context.Context, g *Graph, req Request, p Posture, seed int64) PostureResult {
	ctx, span := s.tracer.Start(ctx, "scenario.posture", trace.WithAttributes(
		attribute.String("scenario.posture", string(p)),
	))
	defer span.End()

	params := TrialParams{
		PostureBias:         p.Bias(s.cfg.PostureBias),
		Reliability:         req.Reliability,
		EstimateUncertainty: s.cfg.EstimateUncertainty,
		FailureCostFraction: s.cfg.FailureCostFraction,
	}

	slots := make([]trialSlot, req.Trials)
	workers := min(s.cfg.Workers, req.Trials)
	jobs := make(chan int, workers*2)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				rng := rand.New(trialSource(seed, i))
				start := time.Now()
				out, err := RunTrial(ctx, g, params, rng)
				s.observe(TrialEvent{Scenario: req.Name, Posture: p, Index: i, Elapsed: time.Since(start), Err: err})
				switch {
				case err == nil:
					out.Index = i
					slots[i] = trialSlot{state: slotDone, outcome: out}
				case errors.Is(err, ErrTrialCancelled):
				default:
					slots[i] = trialSlot{state: slotDiscarded}
					s.logger.Debug("trial discarded", "scenario", req.Name, "posture", p, "trial", i, "error", err)
				}
			}
		}()
	}

feed:
	for i := 0; i < req.Trials; i++ {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	outcomes := make([]TrialOutcome, 0, req.Trials)
	discarded := 0
	for _, sl := range slots {
		switch sl.state {
		case slotDone:
			outcomes = append(outcomes, sl.outcome)
		case slotDiscarded:
			discarded++
		}
	}

	pr := Aggregate(p, g, outcomes, AggregateOptions{
		Benefit:        req.Benefit,
		MinSuccessRate: s.cfg.MinSuccessRate,
		RiskTolerance:  s.cfg.RiskTolerance,
		KeepTrials:     req.KeepTrials,
	})
	pr.TrialsRequested = req.Trials
	pr.TrialsDiscarded = discarded
	pr.TrialsCancelled = req.Trials - len(outcomes) - discarded

	span.SetAttributes(
		attribute.Int("scenario.trials_completed", pr.TrialsCompleted),
		attribute.Int("scenario.trials_discarded", pr.TrialsDiscarded),
		attribute.Int("scenario.trials_cancelled", pr.TrialsCancelled),
	)
	if !pr.Available {
		span.SetStatus(codes.Error, "no trial completed")
	}
	return pr
}

// withAutoEffects returns actions with the budget pressure effect attached to
// each one when AutoBudgetPressure is set and reg provides it. The input slice
// and its actions are left untouched.
func (s *Simulator) withAutoEffects(actions []Action, reg *Registry) []Action {
	if !s.cfg.AutoBudgetPressure {
		return actions
	}
	if _, ok := reg.Lookup(BudgetPressureEffect); !ok {
		return actions
	}
	out := make([]Action, len(actions))
	for i, a := range actions {
		if !slices.Contains(a.Effects, BudgetPressureEffect) {
			a.Effects = append(slices.Clone(a.Effects), BudgetPressureEffect)
		}
		out[i] = a
	}
	return out
}

func (s *Simulator) observe(ev TrialEvent) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveTrial(ev)
}

func (s *Simulator) seedFor(req Request) (int64, error) {
	if req.Seed != nil {
		return *req.Seed, nil
	}
	return NewSeed()
}

// NewSeed draws a seed from crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// trialSource derives the PCG stream for one trial index. Every posture reads
// the same stream for a given index, so postures are compared on common
// random numbers and a posture's numbers do not depend on which other
// postures were requested.
func trialSource(seed int64, trial int) *rand.PCG {
	return rand.NewPCG(uint64(seed), uint64(trial))
}

func validateReliability(m map[string]float64) error {
	for name, r := range m {
		if math.IsNaN(r) || r < 0 || r > 1 {
			return fmt.Errorf("reliability for %q must be within [0,1], got %v", name, r)
		}
	}
	return nil
}

func partialMessage(ctx context.Context, postures []PostureResult) string {
	reason := "cancelled"
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = "time budget exceeded"
	}
	completed, requested := 0, 0
	for _, p := range postures {
		completed += p.TrialsCompleted
		requested += p.TrialsRequested
	}
	return fmt.Sprintf("%s: %d of %d trials completed", reason, completed, requested)
}
