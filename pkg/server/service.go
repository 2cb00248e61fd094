// Package server assembles the MCP server from its dependencies and runs the
// configured transport.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/devicehealth/diagnostics-mcp/internal/version"
	"github.com/devicehealth/diagnostics-mcp/pkg/config"
	"github.com/devicehealth/diagnostics-mcp/pkg/observability"
	"github.com/devicehealth/diagnostics-mcp/pkg/tool"
)

const serverName = "diagnostics-mcp"

// Service runs the MCP server over the configured transport.
type Service interface {
	// Start runs the server until the context is canceled or the transport
	// shuts down.
	Start(ctx context.Context) error
	// Stop shuts the server down.
	Stop(ctx context.Context) error
}

type service struct {
	log     logrus.FieldLogger
	cfg     *config.Config
	tools   tool.Registry
	httpSrv *server.StreamableHTTPServer
	metrics *http.Server
}

// NewService creates the server service.
func NewService(log logrus.FieldLogger, cfg *config.Config, tools tool.Registry) Service {
	return &service{
		log:   log.WithField("component", "server"),
		cfg:   cfg,
		tools: tools,
	}
}

func (s *service) Start(ctx context.Context) error {
	mcpServer := server.NewMCPServer(
		serverName,
		version.Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	for _, def := range s.tools.List() {
		mcpServer.AddTool(def.Tool, server.ToolHandlerFunc(def.Handler))
	}

	s.log.WithFields(logrus.Fields{
		"version":   version.Version,
		"transport": s.cfg.Server.Transport,
		"tools":     len(s.tools.List()),
	}).Info("Starting MCP server")

	if s.cfg.Observability.MetricsEnabled {
		s.startMetricsServer()
	}

	switch s.cfg.Server.Transport {
	case "http":
		return s.serveHTTP(ctx, mcpServer)
	default:
		return s.serveStdio(ctx, mcpServer)
	}
}

func (s *service) serveStdio(ctx context.Context, mcpServer *server.MCPServer) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- server.ServeStdio(mcpServer)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("stdio transport: %w", err)
		}

		return nil
	}
}

func (s *service) serveHTTP(ctx context.Context, mcpServer *server.MCPServer) error {
	s.httpSrv = server.NewStreamableHTTPServer(mcpServer)
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	errCh := make(chan error, 1)

	go func() {
		s.log.WithField("addr", addr).Info("HTTP transport listening")
		errCh <- s.httpSrv.Start(addr)
	}()

	select {
	case <-ctx.Done():
		return s.Stop(context.Background())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http transport: %w", err)
		}

		return nil
	}
}

func (s *service) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("/healthz", observability.LoggingMiddleware(s.log)(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})))

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Observability.MetricsPort)
	s.metrics = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		s.log.WithField("addr", addr).Info("Metrics server listening")

		if err := s.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("Metrics server failed")
		}
	}()
}

func (s *service) Stop(ctx context.Context) error {
	if s.metrics != nil {
		if err := s.metrics.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("Metrics server shutdown failed")
		}
	}

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down http transport: %w", err)
		}
	}

	s.log.Info("Server stopped")

	return nil
}
