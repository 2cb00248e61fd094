package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/devicehealth/diagnostics-mcp/internal/version"
	"github.com/devicehealth/diagnostics-mcp/pkg/config"
	"github.com/devicehealth/diagnostics-mcp/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server on the configured transport.

The stdio transport (default) speaks MCP over stdin/stdout for a single
client. The http transport serves streamable HTTP for concurrent clients.

Examples:
  diagnostics-mcp serve
  diagnostics-mcp serve --config config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log.WithField("version", version.Version).Info("Starting diagnostics-mcp")

	svc, err := server.NewBuilder(log, cfg).Build()
	if err != nil {
		return fmt.Errorf("building server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)

	go func() {
		errCh <- svc.Start(ctx)
	}()

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("Shutting down")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		return svc.Stop(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
