package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicehealth/diagnostics-mcp/pkg/observability"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expectError bool
	}{
		{
			name: "valid minimal config",
			content: `
server:
  host: 0.0.0.0
  port: 2480
`,
			expectError: false,
		},
		{
			name: "config with env substitution",
			content: `
server:
  host: 0.0.0.0
  port: ${PORT:-2480}
scenarios:
  document_path: ${SCENARIO_DOC:-}
`,
			expectError: false,
		},
		{
			name: "invalid transport",
			content: `
server:
  transport: websocket
`,
			expectError: true,
		},
		{
			name: "kusto timeout too high",
			content: `
kusto:
  timeout: 601
`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.content), 0644)
			require.NoError(t, err)

			os.Unsetenv("PORT")
			os.Unsetenv("SCENARIO_DOC")

			cfg, err := Load(configPath)
			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, cfg)
		})
	}
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMissingDefaultPathUsesDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.TTL)
}

func TestLoadWithEnvVars(t *testing.T) {
	content := `
server:
  port: ${TEST_PORT:-3000}
kusto:
  default_database: ${TEST_DB:-FallbackDb}
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(content), 0644)
	require.NoError(t, err)

	t.Setenv("TEST_PORT", "9999")
	t.Setenv("TEST_DB", "DeviceDb")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "DeviceDb", cfg.Kusto.DefaultDatabase)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}

	applyDefaults(cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 2480, cfg.Server.Port)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.TTL)
	assert.Equal(t, 60, cfg.Kusto.Timeout)
	assert.Equal(t, observability.LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, observability.LogFormatText, cfg.Logging.Format)
	assert.Equal(t, 2490, cfg.Observability.MetricsPort)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		expectError bool
	}{
		{
			name: "valid config",
			cfg: Config{
				Server: ServerConfig{Transport: "stdio"},
				Kusto:  KustoConfig{Timeout: 60},
			},
			expectError: false,
		},
		{
			name: "http transport",
			cfg: Config{
				Server: ServerConfig{Transport: "http"},
			},
			expectError: false,
		},
		{
			name: "unknown transport",
			cfg: Config{
				Server: ServerConfig{Transport: "grpc"},
			},
			expectError: true,
		},
		{
			name: "timeout exceeds max",
			cfg: Config{
				Server: ServerConfig{Transport: "stdio"},
				Kusto:  KustoConfig{Timeout: 601},
			},
			expectError: true,
		},
		{
			name: "timeout at max boundary",
			cfg: Config{
				Server: ServerConfig{Transport: "stdio"},
				Kusto:  KustoConfig{Timeout: 600},
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		envVars  map[string]string
		expected string
	}{
		{
			name:     "no substitution needed",
			content:  "key: value",
			expected: "key: value",
		},
		{
			name:     "simple substitution",
			content:  "key: ${TEST_VAR}",
			envVars:  map[string]string{"TEST_VAR": "replaced"},
			expected: "key: replaced",
		},
		{
			name:     "substitution with default",
			content:  "key: ${MISSING_VAR:-default_value}",
			expected: "key: default_value",
		},
		{
			name:     "comment lines skipped",
			content:  "# ${IGNORED}\nkey: value",
			expected: "# ${IGNORED}\nkey: value",
		},
		{
			name:     "multiple substitutions",
			content:  "a: ${VAR1}\nb: ${VAR2:-default}",
			envVars:  map[string]string{"VAR1": "one"},
			expected: "a: one\nb: default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			if _, exists := tt.envVars["TEST_VAR"]; !exists {
				os.Unsetenv("TEST_VAR")
			}
			if _, exists := tt.envVars["VAR1"]; !exists {
				os.Unsetenv("VAR1")
			}

			result, err := substituteEnvVars(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}
