package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/devicehealth/diagnostics-mcp/pkg/entity"
	"github.com/devicehealth/diagnostics-mcp/pkg/session"
	"github.com/devicehealth/diagnostics-mcp/pkg/types"
)

const (
	UpdateContextToolName   = "update_context"
	GetContextToolName      = "get_context"
	GetContextValueToolName = "get_context_value"
	ClearContextToolName    = "clear_context"
	ResolveEntitiesToolName = "resolve_entities"
)

// UpdateContextResponse is the response from update_context.
type UpdateContextResponse struct {
	Status  string            `json:"status"`
	Context map[string]string `json:"context"`
}

type updateContextHandler struct {
	log      logrus.FieldLogger
	sessions *session.Store
}

// NewUpdateContextTool creates the update_context MCP tool.
func NewUpdateContextTool(log logrus.FieldLogger, sessions *session.Store) Definition {
	h := &updateContextHandler{
		log:      log.WithField("tool", UpdateContextToolName),
		sessions: sessions,
	}

	return Definition{
		Tool: mcp.Tool{
			Name: UpdateContextToolName,
			Description: "Harvest identifier values from a query result into the conversation context. " +
				"Accepts either a flat record or tabular columns+rows; only the first row of a tabular result is inspected.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"record": map[string]any{
						"type":        "object",
						"description": "Flat column name to value record",
					},
					"columns": map[string]any{
						"type":        "array",
						"description": "Tabular result column names",
						"items":       map[string]any{"type": "string"},
					},
					"rows": map[string]any{
						"type":        "array",
						"description": "Tabular result rows, each an array of cell values",
						"items":       map[string]any{"type": "array"},
					},
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

func (h *updateContextHandler) handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := &types.QueryResult{
		Record:  stringValues(objectArgument(request, "record")),
		Columns: request.GetStringSlice("columns", nil),
	}

	if rawRows, ok := request.GetArguments()["rows"].([]any); ok {
		for _, rawRow := range rawRows {
			if cells, ok := rawRow.([]any); ok {
				result.Rows = append(result.Rows, cells)
			}
		}

		result.TotalRows = len(result.Rows)
	}

	if len(result.Record) == 0 && len(result.Rows) == 0 {
		return CallToolError(fmt.Errorf("either record or columns+rows is required")), nil
	}

	sess := h.sessions.Get(request.GetString("session_id", ""))
	sess.Context.UpdateFromResult(result)
	h.sessions.Save(sess)

	return CallToolJSON(&UpdateContextResponse{
		Status:  "ok",
		Context: sess.Context.All(),
	})
}

// GetContextResponse is the response from get_context.
type GetContextResponse struct {
	Status      string            `json:"status"`
	Context     map[string]string `json:"context"`
	LastUpdated *time.Time        `json:"last_updated,omitempty"`
}

type getContextHandler struct {
	log      logrus.FieldLogger
	sessions *session.Store
}

// NewGetContextTool creates the get_context MCP tool.
func NewGetContextTool(log logrus.FieldLogger, sessions *session.Store) Definition {
	h := &getContextHandler{
		log:      log.WithField("tool", GetContextToolName),
		sessions: sessions,
	}

	return Definition{
		Tool: mcp.Tool{
			Name:        GetContextToolName,
			Description: "Return every identifier currently stored in the conversation context.",
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

func (h *getContextHandler) handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess := h.sessions.Get(request.GetString("session_id", ""))

	resp := &GetContextResponse{
		Status:  "ok",
		Context: sess.Context.All(),
	}

	if updated := sess.Context.LastUpdated(); !updated.IsZero() {
		resp.LastUpdated = &updated
	}

	return CallToolJSON(resp)
}

// GetContextValueResponse is the response from get_context_value.
type GetContextValueResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
}

type getContextValueHandler struct {
	log      logrus.FieldLogger
	sessions *session.Store
}

// NewGetContextValueTool creates the get_context_value MCP tool.
func NewGetContextValueTool(log logrus.FieldLogger, sessions *session.Store) Definition {
	h := &getContextValueHandler{
		log:      log.WithField("tool", GetContextValueToolName),
		sessions: sessions,
	}

	return Definition{
		Tool: mcp.Tool{
			Name:        GetContextValueToolName,
			Description: "Look up one identifier from the conversation context. Accepts canonical keys ('device_id') or aliases ('DeviceId').",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"key": map[string]any{
						"type":        "string",
						"description": "Context key, e.g. 'device_id' or 'DeviceId'",
					},
					"session_id": map[string]any{
						"type":        "string",
						"description": sessionIDArgumentDescription,
					},
				},
				Required: []string{"key"},
			},
		},
		Handler: h.handle,
	}
}

func (h *getContextValueHandler) handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	key := request.GetString("key", "")
	if key == "" {
		return CallToolError(fmt.Errorf("key is required and cannot be empty")), nil
	}

	sess := h.sessions.Get(request.GetString("session_id", ""))

	value, ok := sess.Context.GetValue(key)
	if !ok {
		return CallToolJSON(&GetContextValueResponse{
			Status:  "not_found",
			Message: fmt.Sprintf("no context value stored for %q", key),
			Key:     key,
		})
	}

	return CallToolJSON(&GetContextValueResponse{
		Status: "ok",
		Key:    key,
		Value:  value,
	})
}

type clearContextHandler struct {
	log      logrus.FieldLogger
	sessions *session.Store
}

// NewClearContextTool creates the clear_context MCP tool.
func NewClearContextTool(log logrus.FieldLogger, sessions *session.Store) Definition {
	h := &clearContextHandler{
		log:      log.WithField("tool", ClearContextToolName),
		sessions: sessions,
	}

	return Definition{
		Tool: mcp.Tool{
			Name:        ClearContextToolName,
			Description: "Drop every stored identifier and any active scenario run for the session.",
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

func (h *clearContextHandler) handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	h.sessions.Reset(sessionID)

	return CallToolJSON(map[string]string{"status": "ok"})
}

// ResolveEntitiesResponse is the response from resolve_entities.
type ResolveEntitiesResponse struct {
	Status      string             `json:"status"`
	Resolved    map[string]string  `json:"resolved"`
	Candidates  []entity.Candidate `json:"candidates,omitempty"`
	Ambiguities []entity.Ambiguity `json:"ambiguities,omitempty"`
}

type resolveEntitiesHandler struct {
	log      logrus.FieldLogger
	resolver *entity.Resolver
	sessions *session.Store
}

// NewResolveEntitiesTool creates the resolve_entities MCP tool.
func NewResolveEntitiesTool(log logrus.FieldLogger, resolver *entity.Resolver, sessions *session.Store) Definition {
	h := &resolveEntitiesHandler{
		log:      log.WithField("tool", ResolveEntitiesToolName),
		resolver: resolver,
		sessions: sessions,
	}

	return Definition{
		Tool: mcp.Tool{
			Name: ResolveEntitiesToolName,
			Description: "Assign GUID-shaped tokens from a message to named identifier slots using nearby trigger words. " +
				"Near-ties are reported as ambiguous with the scored candidate list, never guessed. " +
				"Resolved values are stored in the conversation context.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"message": map[string]any{
						"type":        "string",
						"description": "Free-text message containing identifier tokens",
					},
					"slots": map[string]any{
						"type":        "array",
						"description": "Slot names to fill, e.g. [\"device_id\", \"account_id\"]",
						"items":       map[string]any{"type": "string"},
					},
					"session_id": map[string]any{
						"type":        "string",
						"description": sessionIDArgumentDescription,
					},
				},
				Required: []string{"message", "slots"},
			},
		},
		Handler: h.handle,
	}
}

func (h *resolveEntitiesHandler) handle(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := request.GetString("message", "")
	if message == "" {
		return CallToolError(fmt.Errorf("message is required and cannot be empty")), nil
	}

	slots := request.GetStringSlice("slots", nil)
	if len(slots) == 0 {
		return CallToolError(fmt.Errorf("slots is required and cannot be empty")), nil
	}

	res := h.resolver.Resolve(message, slots)

	// Confidently resolved identifiers feed the conversation context so later
	// steps can reuse them without re-resolving.
	sess := h.sessions.Get(request.GetString("session_id", ""))

	for slot, guid := range res.Resolved {
		sess.Context.Set(slot, guid)
	}

	if len(res.Resolved) > 0 {
		h.sessions.Save(sess)
	}

	status := "ok"
	if len(res.Ambiguities) > 0 {
		status = "ambiguous"
	}

	h.log.WithFields(logrus.Fields{
		"slots":       len(slots),
		"resolved":    len(res.Resolved),
		"ambiguities": len(res.Ambiguities),
	}).Debug("Entity resolution completed")

	return CallToolJSON(&ResolveEntitiesResponse{
		Status:      status,
		Resolved:    res.Resolved,
		Candidates:  res.Candidates,
		Ambiguities: res.Ambiguities,
	})
}
