package tool

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/devicehealth/diagnostics-mcp/pkg/index"
	"github.com/devicehealth/diagnostics-mcp/pkg/kusto"
	"github.com/devicehealth/diagnostics-mcp/pkg/observability"
	"github.com/devicehealth/diagnostics-mcp/pkg/placeholder"
	"github.com/devicehealth/diagnostics-mcp/pkg/session"
	"github.com/devicehealth/diagnostics-mcp/pkg/types"
)

const (
	ValidatePlaceholdersToolName   = "validate_placeholders"
	SubstituteAndGetQueryToolName  = "substitute_and_get_query"
	sessionIDArgumentDescription   = "Optional conversation session identifier; omit for the default session"
	placeholderValuesArgumentsDesc = "Placeholder name to value map, e.g. {\"DeviceId\": \"1111...-...\"}"
)

// objectArgument extracts an object-typed tool argument, or nil when absent.
func objectArgument(request mcp.CallToolRequest, key string) map[string]any {
	if m, ok := request.GetArguments()[key].(map[string]any); ok {
		return m
	}

	return nil
}

// stringValues coerces a raw tool argument object into a string map. Non-string
// values are stringified so numeric JSON arguments still substitute cleanly.
func stringValues(raw map[string]any) map[string]string {
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			values[k] = s
		} else {
			values[k] = fmt.Sprint(v)
		}
	}

	return values
}

// ValidatePlaceholdersResponse is the response from validate_placeholders.
type ValidatePlaceholdersResponse struct {
	Status     string                  `json:"status"`
	Message    string                  `json:"message,omitempty"`
	QueryID    string                  `json:"query_id"`
	Valid      bool                    `json:"valid"`
	Errors     []types.ValidationError `json:"errors,omitempty"`
	Suggestion string                  `json:"suggestion,omitempty"`
}

type validatePlaceholdersHandler struct {
	log logrus.FieldLogger
	idx *index.Index
}

// NewValidatePlaceholdersTool creates the validate_placeholders MCP tool.
func NewValidatePlaceholdersTool(log logrus.FieldLogger, idx *index.Index) Definition {
	h := &validatePlaceholdersHandler{
		log: log.WithField("tool", ValidatePlaceholdersToolName),
		idx: idx,
	}

	return Definition{
		Tool: mcp.Tool{
			Name:        ValidatePlaceholdersToolName,
			Description: "Validate placeholder values for a query step before substitution. Reports every missing required placeholder and every malformed value.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"query_id": map[string]any{
						"type":        "string",
						"description": "Query step identifier, e.g. 'device-details_step1'",
					},
					"values": map[string]any{
						"type":        "object",
						"description": placeholderValuesArgumentsDesc,
					},
				},
				Required: []string{"query_id"},
			},
		},
		Handler: h.handle,
	}
}

func (h *validatePlaceholdersHandler) handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	queryID := request.GetString("query_id", "")
	if queryID == "" {
		return CallToolError(fmt.Errorf("query_id is required and cannot be empty")), nil
	}

	_, step := h.idx.GetByQueryID(queryID)
	if step == nil {
		return CallToolJSON(&ValidatePlaceholdersResponse{
			Status:     "not_found",
			Message:    fmt.Sprintf("no query step matches %q", queryID),
			QueryID:    queryID,
			Suggestion: "use get_scenario to list a scenario's step IDs",
		})
	}

	values := stringValues(objectArgument(request, "values"))
	result := placeholder.Validate(step, values)

	for _, e := range result.Errors {
		observability.ValidationFailuresTotal.WithLabelValues(string(e.Issue)).Inc()
	}

	status := "ok"
	if !result.Valid {
		status = "validation_failed"
	}

	h.log.WithFields(logrus.Fields{
		"query_id": queryID,
		"valid":    result.Valid,
		"errors":   len(result.Errors),
	}).Debug("Placeholder validation completed")

	return CallToolJSON(&ValidatePlaceholdersResponse{
		Status:  status,
		QueryID: queryID,
		Valid:   result.Valid,
		Errors:  result.Errors,
	})
}

// SubstituteQueryResponse is the response from substitute_and_get_query.
type SubstituteQueryResponse struct {
	Status           string                  `json:"status"`
	Message          string                  `json:"message,omitempty"`
	QueryID          string                  `json:"query_id"`
	QueryText        string                  `json:"query_text,omitempty"`
	Target           *kusto.Target           `json:"target,omitempty"`
	PlaceholdersUsed map[string]string       `json:"placeholders_used,omitempty"`
	Warnings         []string                `json:"warnings,omitempty"`
	Errors           []types.ValidationError `json:"errors,omitempty"`
	Suggestion       string                  `json:"suggestion,omitempty"`
}

type substituteQueryHandler struct {
	log      logrus.FieldLogger
	idx      *index.Index
	sessions *session.Store
	// defaultTarget is used when the query text names no cluster of its own;
	// nil when no default is configured.
	defaultTarget *kusto.Target
}

// NewSubstituteAndGetQueryTool creates the substitute_and_get_query MCP tool.
func NewSubstituteAndGetQueryTool(
	log logrus.FieldLogger,
	idx *index.Index,
	sessions *session.Store,
	defaultTarget *kusto.Target,
) Definition {
	h := &substituteQueryHandler{
		log:           log.WithField("tool", SubstituteAndGetQueryToolName),
		idx:           idx,
		sessions:      sessions,
		defaultTarget: defaultTarget,
	}

	return Definition{
		Tool: mcp.Tool{
			Name: SubstituteAndGetQueryToolName,
			Description: "Substitute placeholder values into a query step and return the final query text. " +
				"Validates first unless validate=false; unresolved placeholders are left in place and reported as warnings.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"query_id": map[string]any{
						"type":        "string",
						"description": "Query step identifier",
					},
					"values": map[string]any{
						"type":        "object",
						"description": placeholderValuesArgumentsDesc,
					},
					"validate": map[string]any{
						"type":        "boolean",
						"description": "Validate values before substituting (default: true)",
					},
					"session_id": map[string]any{
						"type":        "string",
						"description": sessionIDArgumentDescription,
					},
				},
				Required: []string{"query_id"},
			},
		},
		Handler: h.handle,
	}
}

func (h *substituteQueryHandler) handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	queryID := request.GetString("query_id", "")
	if queryID == "" {
		return CallToolError(fmt.Errorf("query_id is required and cannot be empty")), nil
	}

	_, step := h.idx.GetByQueryID(queryID)
	if step == nil {
		return CallToolJSON(&SubstituteQueryResponse{
			Status:     "not_found",
			Message:    fmt.Sprintf("no query step matches %q", queryID),
			QueryID:    queryID,
			Suggestion: "use get_scenario to list a scenario's step IDs",
		})
	}

	values := stringValues(objectArgument(request, "values"))

	if request.GetBool("validate", true) {
		if result := placeholder.Validate(step, values); !result.Valid {
			for _, e := range result.Errors {
				observability.ValidationFailuresTotal.WithLabelValues(string(e.Issue)).Inc()
			}

			return CallToolJSON(&SubstituteQueryResponse{
				Status:     "validation_failed",
				QueryID:    queryID,
				Errors:     result.Errors,
				Suggestion: "correct the listed values and call again, or pass validate=false to substitute anyway",
			})
		}
	}

	result := placeholder.Substitute(step, values)

	// Legacy free-text placeholder phrases resolve from the session context.
	sess := h.sessions.Get(request.GetString("session_id", ""))
	result.QueryText = sess.Context.SubstituteKnownPhrases(result.QueryText)

	if err := kusto.CheckReadOnly(result.QueryText); err != nil {
		h.log.WithField("query_id", queryID).Warn("Blocked write/DDL command")

		return CallToolJSON(&SubstituteQueryResponse{
			Status:  "blocked",
			Message: err.Error(),
			QueryID: queryID,
		})
	}

	resp := &SubstituteQueryResponse{
		Status:           "ok",
		QueryID:          queryID,
		QueryText:        result.QueryText,
		PlaceholdersUsed: result.PlaceholdersUsed,
		Warnings:         result.Warnings,
	}

	if target, ok := kusto.ExtractTarget(result.QueryText); ok {
		resp.Target = &target
	} else if h.defaultTarget != nil {
		resp.Target = h.defaultTarget
	}

	h.log.WithFields(logrus.Fields{
		"query_id": queryID,
		"used":     len(result.PlaceholdersUsed),
		"warnings": len(result.Warnings),
	}).Debug("Placeholder substitution completed")

	return CallToolJSON(resp)
}
