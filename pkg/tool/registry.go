// Package tool defines the MCP tools exposed by diagnostics-mcp and the
// registry that collects them for the server.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"

	"github.com/devicehealth/diagnostics-mcp/pkg/observability"
)

// Handler is the function signature for tool handlers.
type Handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Definition pairs an MCP tool declaration with its handler.
type Definition struct {
	Tool    mcp.Tool
	Handler Handler
}

// Registry holds the tools to expose via the MCP server.
type Registry interface {
	Register(def Definition)
	List() []Definition
	Get(name string) (Definition, bool)
}

type registry struct {
	log   logrus.FieldLogger
	tools map[string]Definition
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry(log logrus.FieldLogger) Registry {
	return &registry{
		log:   log.WithField("component", "tool_registry"),
		tools: make(map[string]Definition),
	}
}

func (r *registry) Register(def Definition) {
	name := def.Tool.Name

	if _, exists := r.tools[name]; exists {
		r.log.WithField("tool", name).Warn("Tool already registered, overwriting")
	} else {
		r.order = append(r.order, name)
	}

	r.tools[name] = Definition{
		Tool:    def.Tool,
		Handler: instrumented(name, def.Handler),
	}
	r.log.WithField("tool", name).Debug("Registered tool")
}

func (r *registry) List() []Definition {
	defs := make([]Definition, 0, len(r.tools))
	for _, name := range r.order {
		defs = append(defs, r.tools[name])
	}

	return defs
}

func (r *registry) Get(name string) (Definition, bool) {
	def, ok := r.tools[name]

	return def, ok
}

// instrumented wraps a handler with call metrics.
func instrumented(name string, h Handler) Handler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		result, err := h(ctx, request)

		observability.ToolCallDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

		status := "success"
		if err != nil || (result != nil && result.IsError) {
			status = "error"
		}

		observability.ToolCallsTotal.WithLabelValues(name, status).Inc()

		return result, err
	}
}

// CallToolSuccess builds a successful text result.
func CallToolSuccess(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

// CallToolError builds an error result. Tool-level failures are returned in
// the result payload rather than as protocol errors so the client model can
// read and react to them.
func CallToolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

// CallToolJSON marshals a response object into a successful text result.
func CallToolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return CallToolError(fmt.Errorf("marshaling response: %w", err)), nil
	}

	return CallToolSuccess(string(data)), nil
}
