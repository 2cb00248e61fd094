package server

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicehealth/diagnostics-mcp/pkg/config"
	"github.com/devicehealth/diagnostics-mcp/pkg/tool"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:      "127.0.0.1",
			Port:      0,
			Transport: "stdio",
		},
		Sessions: config.SessionsConfig{TTL: time.Hour},
	}
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func TestBuilderBuildsAllTools(t *testing.T) {
	builder := NewBuilder(testLogger(), testConfig())

	svc, err := builder.Build()
	require.NoError(t, err)
	require.NotNil(t, svc)
}

func TestBuilderRegistersExpectedTools(t *testing.T) {
	builder := NewBuilder(testLogger(), testConfig())

	svcIface, err := builder.Build()
	require.NoError(t, err)

	svc, ok := svcIface.(*service)
	require.True(t, ok)

	expected := []string{
		tool.SearchScenariosToolName,
		tool.ListScenariosToolName,
		tool.GetScenarioToolName,
		tool.GetQueryToolName,
		tool.ValidatePlaceholdersToolName,
		tool.SubstituteAndGetQueryToolName,
		tool.UpdateContextToolName,
		tool.GetContextToolName,
		tool.GetContextValueToolName,
		tool.ClearContextToolName,
		tool.ResolveEntitiesToolName,
		tool.StartScenarioToolName,
		tool.MarkStepToolName,
		tool.GetScenarioProgressToolName,
		tool.ClearScenarioToolName,
	}

	assert.Len(t, svc.tools.List(), len(expected))

	for _, name := range expected {
		_, found := svc.tools.Get(name)
		assert.True(t, found, "missing tool %s", name)
	}
}

func TestBuilderFailsOnMissingDocument(t *testing.T) {
	cfg := testConfig()
	cfg.Scenarios.DocumentPath = "/nonexistent/instructions.md"

	_, err := NewBuilder(testLogger(), cfg).Build()
	assert.Error(t, err)
}

func TestServiceStopWithoutStart(t *testing.T) {
	svc := NewService(testLogger(), testConfig(), tool.NewRegistry(testLogger()))

	assert.NoError(t, svc.Stop(context.Background()))
}
