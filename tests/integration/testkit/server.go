package testkit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sha1n/mcp-lounge-server/internal/app"
	"github.com/sha1n/mcp-lounge-server/internal/config"
	"github.com/sha1n/mcp-lounge-server/internal/metrics"
	"github.com/spf13/pflag"
)

// Property names published by MCPServer.Start
const (
	PropBaseURL = "mcp.base_url"
	PropSSEURL  = "mcp.sse_url"
)

// MCPServer runs the SSE server the same way the CLI does, in process.
type MCPServer struct {
	flags   *pflag.FlagSet
	srv     *http.Server
	cleanup func()
	done    chan error
}

// NewMCPServer creates a server configured by flags, see NewTestFlags.
func NewMCPServer(flags *pflag.FlagSet) *MCPServer {
	return &MCPServer{flags: flags}
}

// GetName returns the service name
func (s *MCPServer) GetName() string {
	return "mcp-server"
}

// Start opens the indexes and starts serving. It returns once /health
// answers.
func (s *MCPServer) Start() (map[string]any, error) {
	settings, err := config.LoadSettingsWithFlags(s.flags)
	if err != nil {
		return nil, err
	}
	if err := config.ValidateSettings(settings); err != nil {
		return nil, err
	}

	m := metrics.NewMetrics(nil)
	server, cleanup, err := app.CreateMCPServer(settings, m)
	if err != nil {
		return nil, err
	}
	s.cleanup = cleanup
	s.srv = app.NewSSEServer(server, settings, m.Gatherer())

	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		cleanup()
		return nil, err
	}
	s.done = make(chan error, 1)
	go func() { s.done <- s.srv.Serve(ln) }()

	base := fmt.Sprintf("http://%s", s.srv.Addr)
	if err := waitForHealth(base+"/health", 10*time.Second); err != nil {
		_ = s.Stop()
		return nil, err
	}
	return map[string]any{
		PropBaseURL: base,
		PropSSEURL:  base + "/sse",
	}, nil
}

// Stop shuts the server down and closes the indexes
func (s *MCPServer) Stop() error {
	var errs []error
	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		if err := <-s.done; err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		s.srv = nil
	}
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
	return errors.Join(errs...)
}

func waitForHealth(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("server at %s not healthy after %s", url, timeout)
}
