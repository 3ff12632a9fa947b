package searchindex

import (
	"testing"
	"time"

	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.ElementsMatch(t, domain.ResourceTypes(), r.Types())

	_, ok := r.Lookup("version")
	assert.False(t, ok)
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	called := ""
	r.Register("page", DeserializerFunc(func(id string, _ float64, _ map[string]any) (domain.SearchResultItem, error) {
		called = "first"
		return domain.SearchResultItem{ID: id}, nil
	}))
	r.Register("page", DeserializerFunc(func(id string, _ float64, _ map[string]any) (domain.SearchResultItem, error) {
		called = "second"
		return domain.SearchResultItem{ID: id}, nil
	}))

	d, ok := r.Lookup("page")
	require.True(t, ok)
	_, err := d.Deserialize("x", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "second", called)
}

func TestResourceDeserializer_Page(t *testing.T) {
	modified := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	fields := map[string]any{
		"resourceid": "abc",
		"path":       "/news/launch",
		"version":    "1",
		"modified":   modified.Format(time.RFC3339Nano),
		"title_en":   "Launch",
		"title_de":   "Start",
		"template":   "article",
		"fulltext":   "Launch Start",
	}

	item, err := ResourceDeserializer(domain.TypePage).Deserialize("abc.1", 0.5, fields)
	require.NoError(t, err)
	assert.Equal(t, "abc.1", item.ID)
	assert.Equal(t, 0.5, item.Score)
	assert.Equal(t, domain.ResourceURI{Identifier: "abc", Path: "/news/launch", Type: domain.TypePage, Version: domain.WORK}, item.URI)
	assert.Equal(t, modified, item.Modified)
	assert.Equal(t, map[string]string{"en": "Launch", "de": "Start"}, item.Titles)
	assert.Equal(t, "article", item.Template)
	assert.Empty(t, item.Filename)
}

func TestResourceDeserializer_File(t *testing.T) {
	fields := map[string]any{
		"resourceid":       "f1",
		"path":             "/files/report",
		"version":          "0",
		"content_filename": "report.pdf",
		"content_mimetype": "application/pdf",
	}

	item, err := ResourceDeserializer(domain.TypeFile).Deserialize("f1.0", 1, fields)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeFile, item.URI.Type)
	assert.Equal(t, "report.pdf", item.Filename)
	assert.Equal(t, "application/pdf", item.MimeType)
	assert.Empty(t, item.Template)
}

func TestResourceDeserializer_InvalidFields(t *testing.T) {
	d := ResourceDeserializer(domain.TypePage)

	_, err := d.Deserialize("a.x", 1, map[string]any{"resourceid": "a", "version": "x"})
	assert.Error(t, err)

	_, err = d.Deserialize("a.0", 1, map[string]any{"resourceid": "a", "modified": "yesterday"})
	assert.Error(t, err)
}
