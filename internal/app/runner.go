package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sha1n/mcp-lounge-server/internal/config"
	mcputil "github.com/sha1n/mcp-lounge-server/internal/mcp"
	"github.com/sha1n/mcp-lounge-server/internal/metrics"
	"github.com/sha1n/mcp-lounge-server/internal/repository"
	"github.com/spf13/pflag"
)

// ServerName is the name the MCP server reports to clients
const ServerName = "lounge-mcp"

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(*mcp.Server, *config.Settings, prometheus.Gatherer) error
	CreateServer      func(*config.Settings, *metrics.Metrics) (*mcp.Server, func(), error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
	}
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	// Load settings
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr to avoid buffering issues
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	slog.Info("Starting MCP LOUNGE server", "version", version)
	config.Log(settings)

	m := newMetrics(settings)
	mcpServer, cleanup, err := params.CreateServer(settings, m)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Start server
	if settings.Transport == "stdio" {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	var gatherer prometheus.Gatherer
	if m != nil {
		gatherer = m.Gatherer()
	}
	slog.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
	return params.StartSSEServer(mcpServer, settings, gatherer)
}

// newMetrics returns the index metrics, registered together with the Go
// runtime and process collectors, or nil when metrics are disabled.
func newMetrics(settings *config.Settings) *metrics.Metrics {
	if !settings.Index.MetricsEnabled {
		return nil
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return metrics.NewMetrics(reg)
}

// CreateMCPServer creates the MCP server with the index tools registered
func CreateMCPServer(settings *config.Settings, m *metrics.Metrics) (*mcp.Server, func(), error) {
	svc, err := repository.NewService(&settings.Index, m)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create index service: %w", err)
	}

	// Initialize in background context (not tied to request context).
	// Sites that failed to open are reported by the index_status tool.
	if err := svc.Initialize(context.Background()); err != nil {
		slog.Error("Index initialization failed", "error", err)
	}

	cleanup := func() {
		if err := svc.Close(); err != nil {
			slog.Error("Failed to close index service", "error", err)
		}
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:    ServerName,
		Version: "1.0.0",
		Service: svc,
	})

	return server, cleanup, nil
}
