package mapper

import (
	"testing"
	"time"

	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/sha1n/mcp-lounge-server/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"/", "/"},
		{"//", "/"},
		{"a/b", "/a/b"},
		{" /a//b/ ", "/a/b"},
		{"/news/", "/news"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.in))
		})
	}
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 0, Depth("/"))
	assert.Equal(t, 1, Depth("/a"))
	assert.Equal(t, 3, Depth("/a/b/c"))
}

func TestPathTokens(t *testing.T) {
	tokens := PathTokens("/ab/c")

	assert.Equal(t, []string{
		"/", "/a", "/ab", "/ab/", "/ab/c",
		"ab",
		"c", "/c", "/c/",
	}, tokens)
}

func TestPathTokens_Empty(t *testing.T) {
	assert.Nil(t, PathTokens(""))
}

func TestMap_RequiresIdentifier(t *testing.T) {
	_, err := Map(&domain.Resource{}, domain.ResourceURI{Site: "demo", Path: "/a"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = Map(nil, domain.ResourceURI{Identifier: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestMap_IdentityFields(t *testing.T) {
	uri := domain.ResourceURI{Site: "demo", Identifier: "id1", Path: "/a/b/", Type: domain.TypePage, Version: domain.WORK}
	c, err := Map(&domain.Resource{URI: uri}, uri)
	require.NoError(t, err)

	assert.Equal(t, []string{"id1.1"}, c.Strings(metadata.FieldUID))
	assert.Equal(t, []string{"id1"}, c.Strings(metadata.FieldResourceID))
	assert.Equal(t, []string{"/a/b"}, c.Strings(metadata.FieldPath))
	assert.Equal(t, []string{domain.TypePage}, c.Strings(metadata.FieldType))
	assert.Equal(t, []string{"1"}, c.Strings(metadata.FieldVersion))
	assert.Contains(t, c.Strings(metadata.FieldPathPrefix), "/a/")
	assert.Contains(t, c.Strings(metadata.FieldPathPrefix), "/b/")
	assert.False(t, c.IsFulltext(metadata.FieldUID))
	assert.True(t, c.IsFulltext(metadata.FieldPath))
}

func TestMap_FullResource(t *testing.T) {
	created := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	r := &domain.Resource{
		URI:          domain.ResourceURI{Site: "demo", Path: "/news", Type: domain.TypeFile},
		Titles:       map[string]string{"en": "News", "de": "Neuigkeiten"},
		Descriptions: map[string]string{"en": "All the news"},
		Subjects:     []string{"a", "b"},
		Series:       []string{"s1"},
		Owner:        &domain.User{Login: "amelie", Name: "Amelie Klein"},
		Creator:      &domain.User{Login: "john"},
		Created:      created,
		Contents: []domain.Content{{
			Language: "en",
			Created:  created,
			Creator:  &domain.User{Login: "john"},
			Source:   "upload",
			Filename: "news.pdf",
			MimeType: "application/pdf",
		}},
	}
	uri := r.URI.WithIdentifier("id2")

	c, err := Map(r, uri)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, c.Strings(metadata.FieldSubject))
	assert.Equal(t, []string{"s1"}, c.Strings(metadata.FieldSeries))
	for _, name := range []string{metadata.FieldSubject, metadata.FieldSeries} {
		m := c.Get(name)
		require.NotNil(t, m)
		assert.False(t, m.AddToFulltext, name)
		assert.False(t, m.AddToText, name)
	}
	assert.NotContains(t, c.Document()[metadata.FieldFulltext], "s1")
	assert.Equal(t, []string{"amelie"}, c.Strings(metadata.FieldOwnedBy))
	assert.Equal(t, []string{"Amelie Klein"}, c.Strings(metadata.FieldOwnedByName))
	assert.True(t, c.IsFulltext(metadata.FieldOwnedByName))
	assert.False(t, c.IsFulltext(metadata.FieldOwnedBy))
	assert.Nil(t, c.Get(metadata.FieldCreatedByName))

	// languages are processed in sorted order
	assert.Equal(t, []string{"Neuigkeiten", "News"}, c.Strings(metadata.FieldTitle))
	assert.Equal(t, []string{"News"}, c.Strings("title_en"))
	assert.Equal(t, []string{"Neuigkeiten"}, c.Strings("title_de"))
	assert.Equal(t, []string{"All the news"}, c.Strings("description_en"))
	assert.Nil(t, c.Get("description_de"))

	assert.Equal(t, []string{"news.pdf"}, c.Strings(metadata.FieldContentFilename))
	assert.Equal(t, []string{"news.pdf"}, c.Strings("content_filename_en"))
	assert.Equal(t, []string{"application/pdf"}, c.Strings("content_mimetype_en"))
	assert.Equal(t, []string{"john"}, c.Strings("content_creator_en"))
	assert.NotNil(t, c.Get("content_xml_en"))
	assert.NotNil(t, c.Get("content_created_en"))

	xml := c.Strings(metadata.FieldXML)
	require.Len(t, xml, 1)
	assert.Contains(t, xml[0], `id="id2"`)
	assert.Contains(t, xml[0], "<body>")

	header := c.Strings(metadata.FieldHeaderXML)
	require.Len(t, header, 1)
	assert.NotContains(t, header[0], "<body>")
	assert.Contains(t, header[0], "<head>")
}

func TestMap_LockOwner(t *testing.T) {
	uri := domain.ResourceURI{Identifier: "id", Path: "/a", Type: domain.TypePage}

	c, err := Map(&domain.Resource{URI: uri}, uri)
	require.NoError(t, err)
	assert.Nil(t, c.Get(metadata.FieldLockedBy))
	assert.Nil(t, c.Get(metadata.FieldLockedByName))

	c, err = Map(&domain.Resource{URI: uri, LockOwner: &domain.User{Login: "amelie", Name: "Amelie"}}, uri)
	require.NoError(t, err)
	assert.Equal(t, []string{"amelie"}, c.Strings(metadata.FieldLockedBy))
	assert.Equal(t, []string{"Amelie"}, c.Strings(metadata.FieldLockedByName))
}

func TestMap_Pagelets(t *testing.T) {
	uri := domain.ResourceURI{Identifier: "id", Path: "/a", Type: domain.TypePage}
	r := &domain.Resource{
		URI:      uri,
		Template: "default",
		Pagelets: []domain.Pagelet{
			{Module: "text", ID: "title", Composer: "stage", Properties: map[string]string{"level": "1"}},
			{Module: "text", ID: "paragraph", Composer: "stage"},
			{Module: "nav", ID: "menu", Composer: "Sidebar"},
		},
	}

	c, err := Map(r, uri)
	require.NoError(t, err)

	assert.Equal(t, []string{"default"}, c.Strings(metadata.FieldTemplate))
	assert.Equal(t, []string{"text/title", "text/paragraph", "nav/menu"}, c.Strings(metadata.FieldPageletType))
	assert.Equal(t, []string{"text/title", "text/paragraph"}, c.Strings("pagelet_type_composer_stage"))
	assert.Equal(t, []string{"text/paragraph"}, c.Strings("pagelet_type_composer_stage_position_1"))
	assert.Equal(t, []string{"nav/menu"}, c.Strings("pagelet_type_composer_sidebar_position_0"))
	assert.Equal(t, []string{"level=1"}, c.Strings(metadata.FieldPageletProperties))
}

func TestHeaderXML(t *testing.T) {
	in := `<resource><head><title>x</title></head><body attr="1"><content/>
<content/></body></resource>`
	assert.Equal(t, `<resource><head><title>x</title></head></resource>`, HeaderXML(in))
}
