// Package execution tracks the step state of one in-flight scenario run and
// guards it against restarts and duplicate completion signals. One run is
// active per tracker at a time; a tracker belongs to exactly one session.
package execution

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// StepStatus is the lifecycle state of a single step. Every step leaves
// pending exactly once; completed/failed/skipped are terminal.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// StepState records one step's status and outcome within a run.
type StepState struct {
	StepNumber int        `json:"step_number"`
	QueryID    string     `json:"query_id"`
	Status     StepStatus `json:"status"`
	Result     any        `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// StepRef identifies a step when starting a run.
type StepRef struct {
	StepNumber int
	QueryID    string
}

// Run is the execution state of one scenario: per-step status plus a
// monotonically non-decreasing current-step pointer.
type Run struct {
	Slug        string
	TotalSteps  int
	CurrentStep int
	Steps       map[int]*StepState
}

// Tracker holds at most one active run.
type Tracker struct {
	log    logrus.FieldLogger
	active *Run
}

// NewTracker creates an empty tracker.
func NewTracker(log logrus.FieldLogger) *Tracker {
	return &Tracker{
		log: log.WithField("component", "scenario_tracker"),
	}
}

// StartScenario initializes tracking for a new run, replacing any previous
// one. Callers abandoning a run should Clear first so progress is logged.
func (t *Tracker) StartScenario(slug string, steps []StepRef) *Run {
	run := &Run{
		Slug:       slug,
		TotalSteps: len(steps),
		Steps:      make(map[int]*StepState, len(steps)),
	}

	for _, ref := range steps {
		run.Steps[ref.StepNumber] = &StepState{
			StepNumber: ref.StepNumber,
			QueryID:    ref.QueryID,
			Status:     StepPending,
		}
	}

	t.active = run
	t.log.WithFields(logrus.Fields{
		"slug":  slug,
		"steps": len(steps),
	}).Info("Started scenario tracking")

	return run
}

// Active returns the current run, or nil.
func (t *Tracker) Active() *Run {
	return t.active
}

// Clear drops the active run so stale state never bleeds into the next one.
func (t *Tracker) Clear() {
	if t.active != nil {
		t.log.WithFields(logrus.Fields{
			"slug":     t.active.Slug,
			"progress": t.active.ProgressSummary(),
		}).Info("Clearing scenario tracking")
	}

	t.active = nil
}

// NextPendingStep returns the lowest-numbered pending step of the active run,
// or nil when there is no run or every step has been attempted.
func (t *Tracker) NextPendingStep() *StepState {
	if t.active == nil {
		return nil
	}

	numbers := make([]int, 0, len(t.active.Steps))
	for n := range t.active.Steps {
		numbers = append(numbers, n)
	}

	sort.Ints(numbers)

	for _, n := range numbers {
		if t.active.Steps[n].Status == StepPending {
			return t.active.Steps[n]
		}
	}

	return nil
}

// MarkCompleted records a step's successful result.
func (t *Tracker) MarkCompleted(stepNumber int, result any) bool {
	return t.mark(stepNumber, StepCompleted, result, "")
}

// MarkFailed records a step failure.
func (t *Tracker) MarkFailed(stepNumber int, errMsg string) bool {
	return t.mark(stepNumber, StepFailed, nil, errMsg)
}

// MarkSkipped records a step that was skipped, with the reason.
func (t *Tracker) MarkSkipped(stepNumber int, reason string) bool {
	return t.mark(stepNumber, StepSkipped, nil, reason)
}

// mark transitions a pending step to a terminal status. Marking a step that
// is unknown or already terminal is a no-op: the driving orchestrator may
// emit duplicate completion signals and those must not corrupt the run.
func (t *Tracker) mark(stepNumber int, status StepStatus, result any, errMsg string) bool {
	if t.active == nil {
		t.log.WithField("step", stepNumber).Debug("Mark ignored: no active scenario")

		return false
	}

	step, ok := t.active.Steps[stepNumber]
	if !ok {
		t.log.WithField("step", stepNumber).Debug("Mark ignored: unknown step")

		return false
	}

	if step.Status != StepPending {
		t.log.WithFields(logrus.Fields{
			"step":   stepNumber,
			"status": step.Status,
		}).Debug("Mark ignored: step already settled")

		return false
	}

	step.Status = status
	step.Result = result
	step.Error = errMsg

	if stepNumber > t.active.CurrentStep {
		t.active.CurrentStep = stepNumber
	}

	t.log.WithFields(logrus.Fields{
		"slug":     t.active.Slug,
		"step":     stepNumber,
		"status":   status,
		"progress": fmt.Sprintf("%d/%d", t.active.CurrentStep, t.active.TotalSteps),
	}).Info("Scenario step settled")

	return true
}

// IsComplete reports whether every step of the active run has been attempted.
func (t *Tracker) IsComplete() bool {
	return t.active != nil && t.active.CurrentStep >= t.active.TotalSteps
}

// CompletedSteps returns the numbers of successfully completed steps, sorted.
func (r *Run) CompletedSteps() []int {
	completed := make([]int, 0, len(r.Steps))

	for n, s := range r.Steps {
		if s.Status == StepCompleted {
			completed = append(completed, n)
		}
	}

	sort.Ints(completed)

	return completed
}

// ProgressSummary formats a human-readable progress line, e.g.
// "2/3 steps completed, 1 failed".
func (r *Run) ProgressSummary() string {
	var completed, failed, skipped int

	for _, s := range r.Steps {
		switch s.Status {
		case StepCompleted:
			completed++
		case StepFailed:
			failed++
		case StepSkipped:
			skipped++
		}
	}

	parts := []string{fmt.Sprintf("%d/%d steps completed", completed, r.TotalSteps)}

	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}

	if skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", skipped))
	}

	return strings.Join(parts, ", ")
}
