package tool

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/devicehealth/diagnostics-mcp/pkg/index"
	"github.com/devicehealth/diagnostics-mcp/pkg/observability"
	"github.com/devicehealth/diagnostics-mcp/pkg/types"
)

const (
	SearchScenariosToolName = "search_scenarios"
	ListScenariosToolName   = "list_scenarios"
	GetScenarioToolName     = "get_scenario"
	GetQueryToolName        = "get_query"
)

const searchScenariosDescription = `Search diagnostic scenarios by keyword.

Returns ranked scenario summaries. Use the slug from a result with get_scenario
to fetch the full step list.

Examples:
- search_scenarios(query="device compliance") → compliance investigation scenarios
- search_scenarios(query="esp", domain="autopilot") → enrollment status page scenarios in the autopilot domain`

// SearchScenariosResponse is the response from search_scenarios.
type SearchScenariosResponse struct {
	Status       string                  `json:"status"`
	Query        string                  `json:"query"`
	Domain       string                  `json:"domain,omitempty"`
	TotalMatches int                     `json:"total_matches"`
	Results      []types.ScenarioSummary `json:"results"`
}

type searchScenariosHandler struct {
	log logrus.FieldLogger
	idx *index.Index
}

// NewSearchScenariosTool creates the search_scenarios MCP tool.
func NewSearchScenariosTool(log logrus.FieldLogger, idx *index.Index) Definition {
	h := &searchScenariosHandler{
		log: log.WithField("tool", SearchScenariosToolName),
		idx: idx,
	}

	return Definition{
		Tool: mcp.Tool{
			Name:        SearchScenariosToolName,
			Description: searchScenariosDescription,
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "Keywords describing the diagnostic question",
					},
					"domain": map[string]any{
						"type":        "string",
						"description": "Optional: restrict results to one domain (e.g., 'autopilot', 'compliance')",
					},
				},
				Required: []string{"query"},
			},
		},
		Handler: h.handle,
	}
}

func (h *searchScenariosHandler) handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	domain := request.GetString("domain", "")

	results := h.idx.Search(query, domain)

	outcome := "hit"
	if len(results) == 0 {
		outcome = "miss"
	}

	observability.ScenarioSearchesTotal.WithLabelValues(outcome).Inc()

	h.log.WithFields(logrus.Fields{
		"query":   query,
		"matches": len(results),
	}).Debug("Scenario search completed")

	return CallToolJSON(&SearchScenariosResponse{
		Status:       "ok",
		Query:        query,
		Domain:       domain,
		TotalMatches: len(results),
		Results:      results,
	})
}

// ListScenariosResponse is the response from list_scenarios.
type ListScenariosResponse struct {
	Status    string                  `json:"status"`
	Total     int                     `json:"total"`
	Scenarios []types.ScenarioSummary `json:"scenarios"`
	// PromptText is a compact one-line-per-scenario listing for inclusion in
	// an orchestrator prompt.
	PromptText string `json:"prompt_text"`
}

type listScenariosHandler struct {
	log logrus.FieldLogger
	idx *index.Index
}

// NewListScenariosTool creates the list_scenarios MCP tool.
func NewListScenariosTool(log logrus.FieldLogger, idx *index.Index) Definition {
	h := &listScenariosHandler{
		log: log.WithField("tool", ListScenariosToolName),
		idx: idx,
	}

	return Definition{
		Tool: mcp.Tool{
			Name:        ListScenariosToolName,
			Description: "List every available diagnostic scenario with its slug, title, and step count.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]any{},
			},
		},
		Handler: h.handle,
	}
}

func (h *listScenariosHandler) handle(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries := h.idx.All()

	return CallToolJSON(&ListScenariosResponse{
		Status:     "ok",
		Total:      len(summaries),
		Scenarios:  summaries,
		PromptText: h.idx.PromptText(),
	})
}

// GetScenarioResponse is the response from get_scenario.
type GetScenarioResponse struct {
	Status     string          `json:"status"`
	Message    string          `json:"message,omitempty"`
	Scenario   *types.Scenario `json:"scenario,omitempty"`
	Suggestion string          `json:"suggestion,omitempty"`
}

type getScenarioHandler struct {
	log logrus.FieldLogger
	idx *index.Index
}

// NewGetScenarioTool creates the get_scenario MCP tool.
func NewGetScenarioTool(log logrus.FieldLogger, idx *index.Index) Definition {
	h := &getScenarioHandler{
		log: log.WithField("tool", GetScenarioToolName),
		idx: idx,
	}

	return Definition{
		Tool: mcp.Tool{
			Name:        GetScenarioToolName,
			Description: "Fetch a full diagnostic scenario by slug or alias, including every query step and its placeholders.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"slug": map[string]any{
						"type":        "string",
						"description": "Scenario slug or alias, e.g. 'device-details'",
					},
				},
				Required: []string{"slug"},
			},
		},
		Handler: h.handle,
	}
}

func (h *getScenarioHandler) handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug := request.GetString("slug", "")
	if slug == "" {
		return CallToolError(fmt.Errorf("slug is required and cannot be empty")), nil
	}

	scenario := h.idx.GetByKey(slug)
	if scenario == nil {
		h.log.WithField("slug", slug).Debug("Scenario not found")

		return CallToolJSON(&GetScenarioResponse{
			Status:     "not_found",
			Message:    fmt.Sprintf("no scenario matches %q", slug),
			Suggestion: "use search_scenarios to find the right slug",
		})
	}

	return CallToolJSON(&GetScenarioResponse{
		Status:   "ok",
		Scenario: scenario,
	})
}

// GetQueryResponse is the response from get_query.
type GetQueryResponse struct {
	Status       string           `json:"status"`
	Message      string           `json:"message,omitempty"`
	ScenarioSlug string           `json:"scenario_slug,omitempty"`
	Step         *types.QueryStep `json:"step,omitempty"`
	Suggestion   string           `json:"suggestion,omitempty"`
}

type getQueryHandler struct {
	log logrus.FieldLogger
	idx *index.Index
}

// NewGetQueryTool creates the get_query MCP tool.
func NewGetQueryTool(log logrus.FieldLogger, idx *index.Index) Definition {
	h := &getQueryHandler{
		log: log.WithField("tool", GetQueryToolName),
		idx: idx,
	}

	return Definition{
		Tool: mcp.Tool{
			Name:        GetQueryToolName,
			Description: "Fetch a single query step by its query ID, e.g. 'device-details_step1'.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"query_id": map[string]any{
						"type":        "string",
						"description": "Query step identifier",
					},
				},
				Required: []string{"query_id"},
			},
		},
		Handler: h.handle,
	}
}

func (h *getQueryHandler) handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	queryID := request.GetString("query_id", "")
	if queryID == "" {
		return CallToolError(fmt.Errorf("query_id is required and cannot be empty")), nil
	}

	scenario, step := h.idx.GetByQueryID(queryID)
	if step == nil {
		return CallToolJSON(&GetQueryResponse{
			Status:     "not_found",
			Message:    fmt.Sprintf("no query step matches %q", queryID),
			Suggestion: "use get_scenario to list a scenario's step IDs",
		})
	}

	return CallToolJSON(&GetQueryResponse{
		Status:       "ok",
		ScenarioSlug: scenario.Slug,
		Step:         step,
	})
}
