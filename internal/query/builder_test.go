package query

import (
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2/search"
	bq "github.com/blevesearch/bleve/v2/search/query"
	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/sha1n/mcp-lounge-server/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_NilQuery(t *testing.T) {
	_, err := Build(nil, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestBuild_DefaultsToResourceTypes(t *testing.T) {
	req, err := Build(domain.NewSearchQuery("demo"), 42)
	require.NoError(t, err)

	must := mustClauses(t, req.Query)
	require.Len(t, must, 1)
	dis, ok := must[0].(*bq.DisjunctionQuery)
	require.True(t, ok)

	var types []string
	for _, d := range dis.Disjuncts {
		tq := d.(*bq.TermQuery)
		assert.Equal(t, metadata.FieldType, tq.FieldVal)
		types = append(types, tq.Term)
	}
	assert.Equal(t, domain.ResourceTypes(), types)
	assert.NotContains(t, types, "version")
}

func TestBuild_Pagination(t *testing.T) {
	req, err := Build(domain.NewSearchQuery("demo"), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, req.Size)
	assert.Equal(t, 0, req.From)
	assert.Equal(t, []string{"*"}, req.Fields)

	req, err = Build(domain.NewSearchQuery("demo").WithOffset(5).WithLimit(0).WithFields("uid"), 42)
	require.NoError(t, err)
	assert.Equal(t, 0, req.Size)
	assert.Equal(t, 5, req.From)
	assert.Equal(t, []string{"uid", metadata.FieldType}, req.Fields)
}

func TestBuild_PreferredVersionTakesPrecedence(t *testing.T) {
	q := domain.NewSearchQuery("demo").WithVersion(domain.WORK).WithPreferredVersion(domain.LIVE)
	req, err := Build(q, 10)
	require.NoError(t, err)

	mustNot := mustNotClauses(t, req.Query)
	require.Len(t, mustNot, 1)
	tq := mustNot[0].(*bq.TermQuery)
	assert.Equal(t, metadata.FieldAlternateVersion, tq.FieldVal)
	assert.Equal(t, "0", tq.Term)

	for _, c := range mustClauses(t, req.Query) {
		if tq, ok := c.(*bq.TermQuery); ok {
			assert.NotEqual(t, metadata.FieldVersion, tq.FieldVal)
		}
	}
}

func TestBuild_ExactVersion(t *testing.T) {
	req, err := Build(domain.NewSearchQuery("demo").WithVersion(domain.WORK), 10)
	require.NoError(t, err)

	tq := findTerm(t, mustClauses(t, req.Query), metadata.FieldVersion)
	assert.Equal(t, "1", tq.Term)
}

func TestBuild_PathIsNormalized(t *testing.T) {
	req, err := Build(domain.NewSearchQuery("demo").WithPath("a//b/"), 10)
	require.NoError(t, err)

	tq := findTerm(t, mustClauses(t, req.Query), metadata.FieldPath)
	assert.Equal(t, "/a/b", tq.Term)
}

func TestBuild_Pagelets(t *testing.T) {
	q := domain.NewSearchQuery("demo").
		WithPagelet("text", "title").
		WithPageletInStage("text", "paragraph").
		WithPageletInComposer("nav", "menu", "Sidebar", 2).
		WithProperty("level", "1")
	req, err := Build(q, 10)
	require.NoError(t, err)

	must := mustClauses(t, req.Query)
	assert.Equal(t, "text/title", findTerm(t, must, metadata.FieldPageletType).Term)
	assert.Equal(t, "text/paragraph", findTerm(t, must, "pagelet_type_composer_stage").Term)
	assert.Equal(t, "nav/menu", findTerm(t, must, "pagelet_type_composer_sidebar_position_2").Term)
	assert.Equal(t, "level=1", findTerm(t, must, metadata.FieldPageletProperties).Term)
}

func TestBuild_AnyLockOwner(t *testing.T) {
	req, err := Build(domain.NewSearchQuery("demo").WithLockOwner(domain.AnyUser).WithCreator("amelie"), 10)
	require.NoError(t, err)

	must := mustClauses(t, req.Query)
	assert.Equal(t, "amelie", findTerm(t, must, metadata.FieldCreatedBy).Term)

	var found bool
	for _, c := range must {
		if wq, ok := c.(*bq.WildcardQuery); ok && wq.FieldVal == metadata.FieldLockedBy {
			found = true
			assert.Equal(t, "*", wq.Wildcard)
		}
	}
	assert.True(t, found)
}

func TestBuild_TextIsEscaped(t *testing.T) {
	q := domain.NewSearchQuery("demo").WithFulltext("(a) && b*").WithFilter("c:d")
	req, err := Build(q, 10)
	require.NoError(t, err)

	var matches []*bq.MatchQuery
	for _, c := range mustClauses(t, req.Query) {
		if mq, ok := c.(*bq.MatchQuery); ok {
			matches = append(matches, mq)
		}
	}
	require.Len(t, matches, 2)
	assert.Equal(t, `\(a\) \&\& b\*`, matches[0].Match)
	assert.Equal(t, metadata.FieldFulltext, matches[0].FieldVal)
	assert.Equal(t, bq.MatchQueryOperatorAnd, matches[0].Operator)
	assert.Equal(t, `c\:d`, matches[1].Match)
}

func TestBuild_WildcardText(t *testing.T) {
	req, err := Build(domain.NewSearchQuery("demo").WithText("hello Wor*", true), 10)
	require.NoError(t, err)

	var prefix *bq.PrefixQuery
	var mq *bq.MatchQuery
	for _, c := range mustClauses(t, req.Query) {
		switch v := c.(type) {
		case *bq.PrefixQuery:
			prefix = v
		case *bq.MatchQuery:
			mq = v
		}
	}
	require.NotNil(t, prefix)
	require.NotNil(t, mq)
	assert.Equal(t, "wor", prefix.Prefix)
	assert.Equal(t, metadata.FieldText, prefix.FieldVal)
	assert.Equal(t, "hello", mq.Match)
}

func TestBuild_WithoutPublication(t *testing.T) {
	req, err := Build(domain.NewSearchQuery("demo").WithoutPublication(), 10)
	require.NoError(t, err)

	mustNot := mustNotClauses(t, req.Query)
	require.Len(t, mustNot, 1)
	dr, ok := mustNot[0].(*bq.DateRangeQuery)
	require.True(t, ok)
	assert.Equal(t, metadata.FieldPublishedFrom, dr.FieldVal)
}

func TestBuild_RecencyPriority(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	req, err := Build(domain.NewSearchQuery("demo").WithRecencyPriority(), 10)
	require.NoError(t, err)

	b := req.Query.(*bq.BooleanQuery)
	should, ok := b.Should.(*bq.DisjunctionQuery)
	require.True(t, ok)
	require.Len(t, should.Disjuncts, 1)
	dr := should.Disjuncts[0].(*bq.DateRangeQuery)
	assert.Equal(t, metadata.FieldModified, dr.FieldVal)
	assert.Equal(t, fixed.Add(-RecencyWindow), dr.Start.Time)
}

func TestSortOrder(t *testing.T) {
	tests := []struct {
		name string
		q    *domain.SearchQuery
		want string
	}{
		{"relevance", domain.NewSearchQuery("s"), SortByScore},
		{"creation asc", domain.NewSearchQuery("s").SortByCreationDate(domain.OrderAscending), "created"},
		{"modification over creation", domain.NewSearchQuery("s").
			SortByCreationDate(domain.OrderAscending).
			SortByModificationDate(domain.OrderDescending), "-modified"},
		{"publishing wins", domain.NewSearchQuery("s").
			SortByModificationDate(domain.OrderAscending).
			SortByPublishingDate(domain.OrderDescending), "-published_from"},
		{"none is skipped", domain.NewSearchQuery("s").
			SortByPublishingDate(domain.OrderNone).
			SortByCreationDate(domain.OrderDescending), "-created"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SortOrder(tt.q))
		})
	}
}

func TestBuild_SortIsApplied(t *testing.T) {
	req, err := Build(domain.NewSearchQuery("s").SortByModificationDate(domain.OrderDescending), 10)
	require.NoError(t, err)
	require.Len(t, req.Sort, 1)
	sf, ok := req.Sort[0].(*search.SortField)
	require.True(t, ok)
	assert.Equal(t, metadata.FieldModified, sf.Field)
	assert.True(t, sf.Desc)

	req, err = Build(domain.NewSearchQuery("s"), 10)
	require.NoError(t, err)
	_, ok = req.Sort[0].(*search.SortScore)
	assert.True(t, ok)
}

func mustClauses(t *testing.T, q bq.Query) []bq.Query {
	t.Helper()
	b, ok := q.(*bq.BooleanQuery)
	require.True(t, ok)
	c, ok := b.Must.(*bq.ConjunctionQuery)
	require.True(t, ok)
	return c.Conjuncts
}

func mustNotClauses(t *testing.T, q bq.Query) []bq.Query {
	t.Helper()
	b, ok := q.(*bq.BooleanQuery)
	require.True(t, ok)
	if b.MustNot == nil {
		return nil
	}
	d, ok := b.MustNot.(*bq.DisjunctionQuery)
	require.True(t, ok)
	return d.Disjuncts
}

func findTerm(t *testing.T, clauses []bq.Query, field string) *bq.TermQuery {
	t.Helper()
	for _, c := range clauses {
		if tq, ok := c.(*bq.TermQuery); ok && tq.FieldVal == field {
			return tq
		}
	}
	require.Failf(t, "missing term clause", "no term clause on field %s", field)
	return nil
}
