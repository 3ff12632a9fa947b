package searchindex

import (
	"context"
	"testing"

	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSuggestEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewTestEngine(t, testSite, Options{})

	titles := map[string]string{
		"p1": "Hello world",
		"p2": "Hello there",
		"p3": "Hell",
		"p4": "Hellish weather",
	}
	for id, title := range titles {
		r := testResource(id, "/"+id, domain.LIVE)
		r.Titles = map[string]string{"en": title}
		r.Subjects = []string{"Hiking"}
		addAll(t, e, r)
	}
	return e
}

func TestSuggest_Validation(t *testing.T) {
	e := NewTestEngine(t, testSite, Options{})
	ctx := context.Background()

	_, err := e.Suggest(ctx, " ", "hel", false, 5, false)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = e.Suggest(ctx, "fulltext", "  ", false, 5, false)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = e.Suggest(ctx, "unknown", "hel", false, 5, false)
	assert.ErrorIs(t, err, domain.ErrNotSupported)
}

func TestSuggest_OrderedByFrequency(t *testing.T) {
	e := newSuggestEngine(t)

	got, err := e.Suggest(context.Background(), "fulltext", "HELL", false, 5, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "hellish"}, got)

	got, err = e.Suggest(context.Background(), "fulltext", "hel", false, 1, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, got)
}

func TestSuggest_OnlyMorePopular(t *testing.T) {
	e := newSuggestEngine(t)

	got, err := e.Suggest(context.Background(), "fulltext", "hell", true, 5, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, got)
}

func TestSuggest_Collate(t *testing.T) {
	e := newSuggestEngine(t)

	got, err := e.Suggest(context.Background(), "fulltext", "say hell", false, 5, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"say hello", "say hellish"}, got)
}

func TestSuggest_KeywordDictionary(t *testing.T) {
	e := newSuggestEngine(t)

	got, err := e.Suggest(context.Background(), "subject", "Hi", false, 5, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hiking"}, got)

	got, err = e.Suggest(context.Background(), "subject", "hi", false, 5, false)
	require.NoError(t, err)
	assert.Empty(t, got)
}
