package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/devicehealth/diagnostics-mcp/pkg/config"
	"github.com/devicehealth/diagnostics-mcp/pkg/observability"
)

var (
	cfgFile  string
	logLevel string
	log      = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "diagnostics-mcp",
	Short: "MCP server for device diagnostics scenarios",
	Long: `An MCP (Model Context Protocol) server that exposes curated device
diagnostics scenarios: ranked scenario search, placeholder validation and
substitution, conversation context tracking, entity resolution, and
scenario execution progress.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			// Fall back to CLI flag if config fails to load.
			level, parseErr := logrus.ParseLevel(logLevel)
			if parseErr != nil {
				return parseErr
			}

			log.SetLevel(level)
			log.SetOutput(os.Stderr)
			log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

			return nil
		}

		loggerCfg := observability.LoggerConfig{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			OutputPath: cfg.Logging.OutputPath,
		}

		// CLI flag overrides config file.
		if logLevel != "" && logLevel != "info" {
			loggerCfg.Level = observability.LogLevel(logLevel)
		}

		configuredLog, err := observability.ConfigureLogger(loggerCfg)
		if err != nil {
			return err
		}

		log.SetLevel(configuredLog.Level)
		log.SetFormatter(configuredLog.Formatter)
		log.SetOutput(configuredLog.Out)

		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.yaml or $CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
}
