// Package config provides configuration loading for the MCP server.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicehealth/diagnostics-mcp/pkg/observability"
)

// Config is the main configuration structure.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Scenarios     ScenariosConfig     `yaml:"scenarios"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	Kusto         KustoConfig         `yaml:"kusto"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Transport string `yaml:"transport"`
}

// ScenariosConfig controls where the instruction document comes from.
type ScenariosConfig struct {
	// DocumentPath is the path to the instructions markdown document.
	// Empty means the embedded default document.
	DocumentPath string `yaml:"document_path,omitempty"`
}

// SessionsConfig holds per-conversation session configuration.
type SessionsConfig struct {
	// TTL is the duration after which an idle session's state is dropped.
	TTL time.Duration `yaml:"ttl"`

	// PersistDir enables JSON context snapshots in the given directory.
	// Empty disables persistence.
	PersistDir string `yaml:"persist_dir,omitempty"`
}

// KustoConfig holds query execution configuration.
type KustoConfig struct {
	// DefaultClusterURL is used when a query names no cluster of its own.
	DefaultClusterURL string `yaml:"default_cluster_url,omitempty"`

	// DefaultDatabase is used when a query names no database of its own.
	DefaultDatabase string `yaml:"default_database,omitempty"`

	// Timeout bounds a single query execution, in seconds.
	Timeout int `yaml:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      observability.LogLevel  `yaml:"level"`
	Format     observability.LogFormat `yaml:"format"`
	OutputPath string                  `yaml:"output_path,omitempty"`
}

// ObservabilityConfig holds metrics configuration.
type ObservabilityConfig struct {
	MetricsEnabled bool `yaml:"metrics_enabled"`
	MetricsPort    int  `yaml:"metrics_port"`
}

// Load loads configuration from a YAML file with environment variable
// substitution. An empty path falls back to CONFIG_PATH, then config.yaml;
// a missing default file yields the built-in defaults rather than an error.
func Load(path string) (*Config, error) {
	explicit := path != ""

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""

		if path == "" {
			path = "config.yaml"
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			cfg := &Config{}
			applyDefaults(cfg)

			return cfg, nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	substituted, err := substituteEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("substituting env vars: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(substituted), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// envVarWithDefaultPattern matches ${VAR_NAME:-default} patterns.
var envVarWithDefaultPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} patterns
// with environment variable values. Comment lines are skipped; missing
// variables without defaults become empty strings.
func substituteEnvVars(content string) (string, error) {
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}

		lines[i] = envVarWithDefaultPattern.ReplaceAllStringFunc(line, func(match string) string {
			parts := envVarWithDefaultPattern.FindStringSubmatch(match)
			varName := parts[1]

			defaultVal := ""
			if len(parts) > 2 {
				defaultVal = parts[2]
			}

			value := os.Getenv(varName)
			if value == "" {
				return defaultVal
			}

			return value
		})
	}

	return strings.Join(lines, "\n"), nil
}

// applyDefaults sets default values for configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 2480
	}

	if cfg.Server.Transport == "" {
		cfg.Server.Transport = "stdio"
	}

	if cfg.Sessions.TTL == 0 {
		cfg.Sessions.TTL = 30 * time.Minute
	}

	if cfg.Kusto.Timeout == 0 {
		cfg.Kusto.Timeout = 60
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = observability.LogLevelInfo
	}

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = observability.LogFormatText
	}

	if cfg.Observability.MetricsPort == 0 {
		cfg.Observability.MetricsPort = 2490
	}
}

// MaxKustoTimeout is the maximum allowed query timeout in seconds.
const MaxKustoTimeout = 600

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("server.transport must be stdio or http, got %q", c.Server.Transport)
	}

	if c.Kusto.Timeout > MaxKustoTimeout {
		return fmt.Errorf("kusto.timeout cannot exceed %d seconds", MaxKustoTimeout)
	}

	return nil
}
