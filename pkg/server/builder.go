package server

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/devicehealth/diagnostics-mcp/pkg/config"
	"github.com/devicehealth/diagnostics-mcp/pkg/entity"
	"github.com/devicehealth/diagnostics-mcp/pkg/index"
	"github.com/devicehealth/diagnostics-mcp/pkg/kusto"
	"github.com/devicehealth/diagnostics-mcp/pkg/session"
	"github.com/devicehealth/diagnostics-mcp/pkg/tool"
	"github.com/devicehealth/diagnostics-mcp/scenarios"
)

// Builder constructs and wires all dependencies for the MCP server.
type Builder struct {
	log logrus.FieldLogger
	cfg *config.Config
}

// NewBuilder creates a new server builder.
func NewBuilder(log logrus.FieldLogger, cfg *config.Config) *Builder {
	return &Builder{
		log: log.WithField("component", "builder"),
		cfg: cfg,
	}
}

// Build loads the scenario corpus, constructs the index and session store,
// and returns the server service with every tool registered.
func (b *Builder) Build() (Service, error) {
	b.log.Info("Building diagnostics-mcp server dependencies")

	parsed, err := scenarios.Load(b.log, b.cfg.Scenarios.DocumentPath)
	if err != nil {
		return nil, fmt.Errorf("loading scenarios: %w", err)
	}

	idx := index.New(b.log, parsed)
	if idx.Count() == 0 {
		return nil, fmt.Errorf("instruction document yielded no usable scenarios")
	}

	sessions, err := b.buildSessionStore()
	if err != nil {
		return nil, fmt.Errorf("building session store: %w", err)
	}

	resolver := entity.NewResolver(b.log)
	toolReg := b.buildToolRegistry(idx, sessions, resolver)

	return NewService(b.log, b.cfg, toolReg), nil
}

// buildSessionStore creates the session store, with file persistence when a
// persistence directory is configured.
func (b *Builder) buildSessionStore() (*session.Store, error) {
	var persist session.Persistence

	if dir := b.cfg.Sessions.PersistDir; dir != "" {
		fp, err := session.NewFilePersistence(dir)
		if err != nil {
			return nil, err
		}

		persist = fp
		b.log.WithField("dir", dir).Info("Session context persistence enabled")
	}

	return session.NewStore(b.log, b.cfg.Sessions.TTL, persist), nil
}

// defaultKustoTarget returns the configured fallback cluster/database for
// queries that name no cluster of their own, or nil when unconfigured.
func (b *Builder) defaultKustoTarget() *kusto.Target {
	if b.cfg.Kusto.DefaultClusterURL == "" {
		return nil
	}

	return &kusto.Target{
		ClusterURL: kusto.NormalizeClusterURL(b.cfg.Kusto.DefaultClusterURL),
		Database:   b.cfg.Kusto.DefaultDatabase,
	}
}

// buildToolRegistry creates and populates the tool registry.
func (b *Builder) buildToolRegistry(
	idx *index.Index,
	sessions *session.Store,
	resolver *entity.Resolver,
) tool.Registry {
	reg := tool.NewRegistry(b.log)

	// Scenario lookup tools.
	reg.Register(tool.NewSearchScenariosTool(b.log, idx))
	reg.Register(tool.NewListScenariosTool(b.log, idx))
	reg.Register(tool.NewGetScenarioTool(b.log, idx))
	reg.Register(tool.NewGetQueryTool(b.log, idx))

	// Placeholder tools.
	reg.Register(tool.NewValidatePlaceholdersTool(b.log, idx))
	reg.Register(tool.NewSubstituteAndGetQueryTool(b.log, idx, sessions, b.defaultKustoTarget()))

	// Conversation context tools.
	reg.Register(tool.NewUpdateContextTool(b.log, sessions))
	reg.Register(tool.NewGetContextTool(b.log, sessions))
	reg.Register(tool.NewGetContextValueTool(b.log, sessions))
	reg.Register(tool.NewClearContextTool(b.log, sessions))
	reg.Register(tool.NewResolveEntitiesTool(b.log, resolver, sessions))

	// Scenario execution tools.
	reg.Register(tool.NewStartScenarioTool(b.log, idx, sessions))
	reg.Register(tool.NewMarkStepTool(b.log, sessions))
	reg.Register(tool.NewGetScenarioProgressTool(b.log, sessions))
	reg.Register(tool.NewClearScenarioTool(b.log, sessions))

	b.log.WithField("tool_count", len(reg.List())).Info("Tool registry built")

	return reg
}
