package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sha1n/mcp-lounge-server/internal/repository"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestPrintStatus_InMemory(t *testing.T) {
	var out bytes.Buffer
	flags := statusFlags(t, "--index-sites", "news,shop", "--index-in-memory")

	require.NoError(t, PrintStatus(context.Background(), flags, &out))

	var status []repository.SiteStatus
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	require.Len(t, status, 2)
	assert.Equal(t, "news", status[0].Site)
	assert.True(t, status[0].Ready)
	assert.Equal(t, "shop", status[1].Site)
	assert.True(t, status[1].Ready)
}

func TestPrintStatus_ReportsBrokenSite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "indexes"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "indexes", "broken.bleve"), []byte("x"), 0644))

	var out bytes.Buffer
	flags := statusFlags(t, "--index-sites", "news,broken", "--index-base-dir", dir)

	require.NoError(t, PrintStatus(context.Background(), flags, &out))

	var status []repository.SiteStatus
	require.NoError(t, json.Unmarshal(out.Bytes(), &status))
	require.Len(t, status, 2)
	assert.True(t, status[0].Ready)
	assert.False(t, status[1].Ready)
	assert.NotEmpty(t, status[1].Error)
}

func TestPrintStatus_InvalidConfiguration(t *testing.T) {
	t.Setenv("LOUNGE_MCP_INDEX_SITES", "")
	var out bytes.Buffer
	err := PrintStatus(context.Background(), statusFlags(t, "--index-in-memory"), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
