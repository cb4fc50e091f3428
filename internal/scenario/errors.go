package scenario

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoActions      = errors.New("plan has no actions")
	ErrInvalidTrials  = errors.New("num_simulations must be >= 1")
	ErrTrialCancelled = errors.New("trial cancelled")
)

// CycleError reports a dependency cycle. Members are listed in traversal
// order, starting and ending at the same action.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Members, " -> "))
}

type UnknownDependencyError struct {
	Action     string
	Dependency string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("action %q depends on unknown action %q", e.Action, e.Dependency)
}

type UnknownEffectError struct {
	Action string
	Effect string
}

func (e *UnknownEffectError) Error() string {
	return fmt.Sprintf("action %q references unknown effect generator %q", e.Action, e.Effect)
}

type DuplicateActionError struct {
	Name string
}

func (e *DuplicateActionError) Error() string {
	return fmt.Sprintf("duplicate action %q", e.Name)
}

type InvalidActionError struct {
	Action string
	Reason string
}

func (e *InvalidActionError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("invalid action: %s", e.Reason)
	}
	return fmt.Sprintf("invalid action %q: %s", e.Action, e.Reason)
}

// InadmissiblePlanError is returned when the constraint collaborator rejected
// the plan. No trial runs.
type InadmissiblePlanError struct {
	Violations []string
}

func (e *InadmissiblePlanError) Error() string {
	if len(e.Violations) == 0 {
		return "plan is not admissible"
	}
	return fmt.Sprintf("plan is not admissible: %s", strings.Join(e.Violations, "; "))
}

type UnknownPostureError struct {
	Posture string
}

func (e *UnknownPostureError) Error() string {
	return fmt.Sprintf("unknown posture %q (valid: optimistic, realistic, pessimistic)", e.Posture)
}

// IsPlanError reports whether err means the plan itself was rejected, as
// opposed to a malformed request or an internal failure.
func IsPlanError(err error) bool {
	var (
		cycle      *CycleError
		unknownDep *UnknownDependencyError
		unknownEff *UnknownEffectError
		dup        *DuplicateActionError
		invalid    *InvalidActionError
		inadm      *InadmissiblePlanError
	)
	return errors.Is(err, ErrNoActions) ||
		errors.As(err, &cycle) ||
		errors.As(err, &unknownDep) ||
		errors.As(err, &unknownEff) ||
		errors.As(err, &dup) ||
		errors.As(err, &invalid) ||
		errors.As(err, &inadm)
}

type WarningCode string

const (
	InsufficientTrialsWarning WarningCode = "insufficient_trials"
	PartialSimulationWarning  WarningCode = "partial_simulation"
	DiscardedTrialsWarning    WarningCode = "discarded_trials"
	PostureUnavailableWarning WarningCode = "posture_unavailable"
	BelowThresholdWarning     WarningCode = "below_threshold"
	HistoryWriteWarning       WarningCode = "history_write_failed"
)

// Warning is a non-fatal condition attached to a ScenarioResult.
type Warning struct {
	Code    WarningCode `json:"code"`
	Posture Posture     `json:"posture,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Posture == "" {
		return fmt.Sprintf("[%s] %s", w.Code, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Code, w.Posture, w.Message)
}
