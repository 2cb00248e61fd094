package tool

import (
	"context"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/devicehealth/diagnostics-mcp/pkg/execution"
	"github.com/devicehealth/diagnostics-mcp/pkg/index"
	"github.com/devicehealth/diagnostics-mcp/pkg/session"
)

const (
	StartScenarioToolName       = "start_scenario"
	MarkStepToolName            = "mark_step"
	GetScenarioProgressToolName = "get_scenario_progress"
	ClearScenarioToolName       = "clear_scenario"
)

// stepView is the serialized form of one tracked step.
type stepView struct {
	StepNumber int    `json:"step_number"`
	QueryID    string `json:"query_id"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
}

// progressView summarizes the active run.
type progressView struct {
	Slug        string     `json:"slug"`
	TotalSteps  int        `json:"total_steps"`
	CurrentStep int        `json:"current_step"`
	Complete    bool       `json:"complete"`
	Summary     string     `json:"summary"`
	NextStep    *stepView  `json:"next_step,omitempty"`
	Steps       []stepView `json:"steps"`
}

func buildProgressView(tracker *execution.Tracker) *progressView {
	run := tracker.Active()
	if run == nil {
		return nil
	}

	view := &progressView{
		Slug:        run.Slug,
		TotalSteps:  run.TotalSteps,
		CurrentStep: run.CurrentStep,
		Complete:    tracker.IsComplete(),
		Summary:     run.ProgressSummary(),
	}

	// Author-assigned step numbers may be non-contiguous; iterate the run's
	// actual steps in order instead of counting up to the total.
	numbers := make([]int, 0, len(run.Steps))
	for n := range run.Steps {
		numbers = append(numbers, n)
	}

	sort.Ints(numbers)

	for _, n := range numbers {
		step := run.Steps[n]
		view.Steps = append(view.Steps, stepView{
			StepNumber: step.StepNumber,
			QueryID:    step.QueryID,
			Status:     string(step.Status),
			Error:      step.Error,
		})
	}

	if next := tracker.NextPendingStep(); next != nil {
		view.NextStep = &stepView{
			StepNumber: next.StepNumber,
			QueryID:    next.QueryID,
			Status:     string(next.Status),
		}
	}

	return view
}

// StartScenarioResponse is the response from start_scenario.
type StartScenarioResponse struct {
	Status     string        `json:"status"`
	Message    string        `json:"message,omitempty"`
	Progress   *progressView `json:"progress,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
}

type startScenarioHandler struct {
	log      logrus.FieldLogger
	idx      *index.Index
	sessions *session.Store
}

// NewStartScenarioTool creates the start_scenario MCP tool.
func NewStartScenarioTool(log logrus.FieldLogger, idx *index.Index, sessions *session.Store) Definition {
	h := &startScenarioHandler{
		log:      log.WithField("tool", StartScenarioToolName),
		idx:      idx,
		sessions: sessions,
	}

	return Definition{
		Tool: mcp.Tool{
			Name: StartScenarioToolName,
			Description: "Begin tracking a scenario run. Replaces any previous run for the session; " +
				"use mark_step to advance and get_scenario_progress to inspect state.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"slug": map[string]any{
						"type":        "string",
						"description": "Scenario slug or alias",
					},
					"session_id": map[string]any{
						"type":        "string",
						"description": sessionIDArgumentDescription,
					},
				},
				Required: []string{"slug"},
			},
		},
		Handler: h.handle,
	}
}

func (h *startScenarioHandler) handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := request.GetString("slug", "")
	if slug == "" {
		return CallToolError(fmt.Errorf("slug is required and cannot be empty")), nil
	}

	scenario := h.idx.GetByKey(slug)
	if scenario == nil {
		return CallToolJSON(&StartScenarioResponse{
			Status:     "not_found",
			Message:    fmt.Sprintf("no scenario matches %q", slug),
			Suggestion: "use search_scenarios to find the right slug",
		})
	}

	refs := make([]execution.StepRef, 0, len(scenario.Steps))
	for _, step := range scenario.Steps {
		refs = append(refs, execution.StepRef{
			StepNumber: step.StepNumber,
			QueryID:    step.QueryID,
		})
	}

	sess := h.sessions.Get(request.GetString("session_id", ""))
	sess.Tracker.Clear()
	sess.Tracker.StartScenario(scenario.Slug, refs)

	return CallToolJSON(&StartScenarioResponse{
		Status:   "ok",
		Progress: buildProgressView(sess.Tracker),
	})
}

// MarkStepResponse is the response from mark_step.
type MarkStepResponse struct {
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Applied  bool          `json:"applied"`
	Progress *progressView `json:"progress,omitempty"`
}

type markStepHandler struct {
	log      logrus.FieldLogger
	sessions *session.Store
}

// NewMarkStepTool creates the mark_step MCP tool.
func NewMarkStepTool(log logrus.FieldLogger, sessions *session.Store) Definition {
	h := &markStepHandler{
		log:      log.WithField("tool", MarkStepToolName),
		sessions: sessions,
	}

	return Definition{
		Tool: mcp.Tool{
			Name: MarkStepToolName,
			Description: "Record a step outcome for the active scenario run. Re-marking a settled step " +
				"is a harmless no-op reported via 'applied'.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"step_number": map[string]any{
						"type":        "integer",
						"description": "Step number within the running scenario",
					},
					"outcome": map[string]any{
						"type":        "string",
						"description": "Step outcome",
						"enum":        []string{"completed", "failed", "skipped"},
					},
					"result": map[string]any{
						"type":        "object",
						"description": "Optional result payload for completed steps",
					},
					"error": map[string]any{
						"type":        "string",
						"description": "Failure or skip reason",
					},
					"session_id": map[string]any{
						"type":        "string",
						"description": sessionIDArgumentDescription,
					},
				},
				Required: []string{"step_number", "outcome"},
			},
		},
		Handler: h.handle,
	}
}

func (h *markStepHandler) handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stepNumber := request.GetInt("step_number", 0)
	if stepNumber <= 0 {
		return CallToolError(fmt.Errorf("step_number must be a positive integer")), nil
	}

	sess := h.sessions.Get(request.GetString("session_id", ""))

	var applied bool

	outcome := request.GetString("outcome", "")
	switch outcome {
	case "completed":
		var result any
		if payload := objectArgument(request, "result"); payload != nil {
			result = payload
		}

		applied = sess.Tracker.MarkCompleted(stepNumber, result)
	case "failed":
		applied = sess.Tracker.MarkFailed(stepNumber, request.GetString("error", ""))
	case "skipped":
		applied = sess.Tracker.MarkSkipped(stepNumber, request.GetString("error", ""))
	default:
		return CallToolError(fmt.Errorf("outcome must be completed, failed, or skipped, got %q", outcome)), nil
	}

	resp := &MarkStepResponse{
		Status:   "ok",
		Applied:  applied,
		Progress: buildProgressView(sess.Tracker),
	}

	if !applied {
		resp.Message = "step was not pending; state unchanged"
	}

	return CallToolJSON(resp)
}

// GetScenarioProgressResponse is the response from get_scenario_progress.
type GetScenarioProgressResponse struct {
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Progress *progressView `json:"progress,omitempty"`
}

type getProgressHandler struct {
	log      logrus.FieldLogger
	sessions *session.Store
}

// NewGetScenarioProgressTool creates the get_scenario_progress MCP tool.
func NewGetScenarioProgressTool(log logrus.FieldLogger, sessions *session.Store) Definition {
	h := &getProgressHandler{
		log:      log.WithField("tool", GetScenarioProgressToolName),
		sessions: sessions,
	}

	return Definition{
		Tool: mcp.Tool{
			Name:        GetScenarioProgressToolName,
			Description: "Report the active scenario run's per-step status and the next pending step.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"session_id": map[string]any{
						"type":        "string",
						"description": sessionIDArgumentDescription,
					},
				},
			},
		},
		Handler: h.handle,
	}
}

func (h *getProgressHandler) handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess := h.sessions.Get(request.GetString("session_id", ""))

	view := buildProgressView(sess.Tracker)
	if view == nil {
		return CallToolJSON(&GetScenarioProgressResponse{
			Status:  "not_found",
			Message: "no scenario run is active; call start_scenario first",
		})
	}

	return CallToolJSON(&GetScenarioProgressResponse{
		Status:   "ok",
		Progress: view,
	})
}

type clearScenarioHandler struct {
	log      logrus.FieldLogger
	sessions *session.Store
}

// NewClearScenarioTool creates the clear_scenario MCP tool.
func NewClearScenarioTool(log logrus.FieldLogger, sessions *session.Store) Definition {
	h := &clearScenarioHandler{
		log:      log.WithField("tool", ClearScenarioToolName),
		sessions: sessions,
	}

	return Definition{
		Tool: mcp.Tool{
			Name:        ClearScenarioToolName,
			Description: "Drop the active scenario run so stale step state never bleeds into the next one.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"session_id": map[string]any{
						"type":        "string",
						"description": sessionIDArgumentDescription,
					},
				},
			},
		},
		Handler: h.handle,
	}
}

func (h *clearScenarioHandler) handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess := h.sessions.Get(request.GetString("session_id", ""))
	sess.Tracker.Clear()

	return CallToolJSON(map[string]string{"status": "ok"})
}
