package app

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-lounge-server/internal/config"
	"github.com/sha1n/mcp-lounge-server/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMCPServer() *mcp.Server {
	return mcp.NewServer(&mcp.Implementation{Name: "test", Version: "1.0"}, nil)
}

func TestNewSSEServer(t *testing.T) {
	settings := &config.Settings{Host: "localhost", Port: 8080}

	srv := NewSSEServer(newTestMCPServer(), settings, nil)
	require.NotNil(t, srv)
	assert.Equal(t, "localhost:8080", srv.Addr)
}

func TestNewSSEServer_HealthEndpoint(t *testing.T) {
	settings := &config.Settings{Host: "localhost", Port: 8080}
	srv := NewSSEServer(newTestMCPServer(), settings, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestNewSSEServer_MetricsEndpoint(t *testing.T) {
	m := metrics.NewMetrics(nil)
	m.Observe("news", "add", time.Now(), errors.New("boom"))

	settings := &config.Settings{Host: "localhost", Port: 8080}
	srv := NewSSEServer(newTestMCPServer(), settings, m.Gatherer())

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `lounge_index_operations_total{operation="add",site="news",status="error"} 1`)
}

func TestNewSSEServer_MetricsDisabled(t *testing.T) {
	settings := &config.Settings{Host: "localhost", Port: 8080}
	srv := NewSSEServer(newTestMCPServer(), settings, nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartSSEServer_InvalidAddress(t *testing.T) {
	settings := &config.Settings{Host: "localhost", Port: -1}

	done := make(chan error, 1)
	go func() { done <- StartSSEServer(newTestMCPServer(), settings, nil) }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "StartSSEServer did not return")
	}
}
