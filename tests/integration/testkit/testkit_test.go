package testkit

import (
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	name     string
	props    map[string]any
	startErr error
	stopErr  error
	started  bool
	stopped  bool
	onStop   func()
}

func (f *fakeService) Start() (map[string]any, error) {
	f.started = true
	return f.props, f.startErr
}

func (f *fakeService) Stop() error {
	f.stopped = true
	if f.onStop != nil {
		f.onStop()
	}
	return f.stopErr
}

func (f *fakeService) GetName() string { return f.name }

func TestTestEnv_MergesProperties(t *testing.T) {
	a := &fakeService{name: "a", props: map[string]any{"a.url": "x", "shared": 1}}
	b := &fakeService{name: "b", props: map[string]any{"b.url": "y", "shared": 2}}
	env := NewTestEnv(a, b)

	props, err := env.Start()
	require.NoError(t, err)
	assert.True(t, a.started)
	assert.True(t, b.started)
	assert.Equal(t, map[string]any{"a.url": "x", "b.url": "y", "shared": 2}, props)

	v, ok := env.GetContext().GetProperty("a.url")
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	_, ok = env.GetContext().GetProperty("missing")
	assert.False(t, ok)
}

func TestTestEnv_StartStopsAtFirstError(t *testing.T) {
	a := &fakeService{name: "a", startErr: errors.New("boom")}
	b := &fakeService{name: "b"}

	_, err := NewTestEnv(a, b).Start()
	assert.EqualError(t, err, "boom")
	assert.False(t, b.started)
}

func TestTestEnv_StopsInReverseOrder(t *testing.T) {
	var order []string
	a := &fakeService{name: "a", stopErr: errors.New("a failed")}
	a.onStop = func() { order = append(order, "a") }
	b := &fakeService{name: "b"}
	b.onStop = func() { order = append(order, "b") }

	err := NewTestEnv(a, b).Stop()
	assert.EqualError(t, err, "a: a failed")
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestGetFreePort(t *testing.T) {
	port, err := GetFreePort()
	require.NoError(t, err)
	assert.Greater(t, port, 0)
	assert.Greater(t, MustGetFreePort(t), 0)

	_, err = getFreePortWithAddr("invalid:address:format")
	assert.Error(t, err)
}

func TestNewTestFlags(t *testing.T) {
	t.Run("default options", func(t *testing.T) {
		flags := NewTestFlags(t, nil)

		transport, _ := flags.GetString("transport")
		assert.Equal(t, "sse", transport)
		host, _ := flags.GetString("host")
		assert.Equal(t, "localhost", host)
		port, _ := flags.GetInt("port")
		assert.Greater(t, port, 0)
		inMemory, _ := flags.GetBool("index-in-memory")
		assert.True(t, inMemory)
		sites, _ := flags.GetStringSlice("index-sites")
		assert.Equal(t, []string{"demo"}, sites)
	})

	t.Run("custom options", func(t *testing.T) {
		flags := NewTestFlags(t, &FlagOptions{
			Port:      9999,
			Transport: "stdio",
			Host:      "127.0.0.1",
			Sites:     []string{"news", "shop"},
			BaseDir:   "/tmp/lounge",
		})

		port, _ := flags.GetInt("port")
		assert.Equal(t, 9999, port)
		transport, _ := flags.GetString("transport")
		assert.Equal(t, "stdio", transport)
		host, _ := flags.GetString("host")
		assert.Equal(t, "127.0.0.1", host)
		baseDir, _ := flags.GetString("index-base-dir")
		assert.Equal(t, "/tmp/lounge", baseDir)
		inMemory, _ := flags.GetBool("index-in-memory")
		assert.False(t, inMemory)
		sites, _ := flags.GetStringSlice("index-sites")
		assert.Equal(t, []string{"news", "shop"}, sites)
	})
}

func TestMCPServer_StartStop(t *testing.T) {
	server := NewMCPServer(NewTestFlags(t, nil))
	assert.Equal(t, "mcp-server", server.GetName())

	props, err := server.Start()
	require.NoError(t, err)
	base := props[PropBaseURL].(string)
	assert.Equal(t, base+"/sse", props[PropSSEURL])

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, server.Stop())
	require.NoError(t, server.Stop())
}

func TestMCPServer_InvalidSettings(t *testing.T) {
	flags := NewTestFlags(t, &FlagOptions{Transport: "carrier-pigeon"})
	_, err := NewMCPServer(flags).Start()
	assert.Error(t, err)
}
