// Package query translates domain search queries into bleve search requests.
package query

import (
	"slices"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"
	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/sha1n/mcp-lounge-server/internal/mapper"
	"github.com/sha1n/mcp-lounge-server/internal/metadata"
)

const (
	// RecencyWindow is how far back a modification counts as recent.
	RecencyWindow = 30 * 24 * time.Hour

	// RecencyBoost is the score boost of recently modified resources.
	RecencyBoost = 2.0

	// SortByScore sorts hits by relevance, best first.
	SortByScore = "-_score"
)

// Bounds of the date range that matches any stored date.
var (
	minDate = time.Date(1678, 1, 1, 0, 0, 0, 0, time.UTC)
	maxDate = time.Date(2262, 1, 1, 0, 0, 0, 0, time.UTC)
)

// now is replaced in tests.
var now = time.Now

// Build converts q into a bleve search request. When q has no limit, the
// request size is allSize, which callers set to the document count.
func Build(q *domain.SearchQuery, allSize int) (*bleve.SearchRequest, error) {
	if q == nil {
		return nil, domain.InvalidArgument("query cannot be nil")
	}

	b := bleve.NewBooleanQuery()

	types := q.Types()
	if len(types) == 0 {
		types = domain.ResourceTypes()
	}
	b.AddMust(anyTerm(metadata.FieldType, types))
	for _, t := range q.ExcludedTypes() {
		b.AddMustNot(term(metadata.FieldType, t))
	}

	if ids := q.Identifiers(); len(ids) > 0 {
		b.AddMust(anyTerm(metadata.FieldResourceID, ids))
	}
	if p := q.Path(); p != "" {
		b.AddMust(term(metadata.FieldPath, mapper.NormalizePath(p)))
	}
	if p := q.PathPrefix(); p != "" {
		b.AddMust(term(metadata.FieldPathPrefix, p))
	}

	switch {
	case q.PreferredVersion() >= 0:
		b.AddMustNot(term(metadata.FieldAlternateVersion, mapper.FormatVersion(q.PreferredVersion())))
	case q.Version() >= 0:
		b.AddMust(term(metadata.FieldVersion, mapper.FormatVersion(q.Version())))
	}

	if s := q.Subjects(); len(s) > 0 {
		b.AddMust(anyTerm(metadata.FieldSubject, s))
	}
	for _, s := range q.AllSubjects() {
		b.AddMust(term(metadata.FieldSubject, s))
	}
	if s := q.Series(); len(s) > 0 {
		b.AddMust(anyTerm(metadata.FieldSeries, s))
	}

	addPagelets(b, q)

	exact := []struct{ field, value string }{
		{metadata.FieldTemplate, q.Template()},
		{metadata.FieldContentFilename, q.Filename()},
		{metadata.FieldContentMimetype, q.Mimetype()},
		{metadata.FieldContentSource, q.Source()},
		{metadata.FieldContentExternal, q.ExternalLocation()},
	}
	for _, e := range exact {
		if e.value != "" {
			b.AddMust(term(e.field, e.value))
		}
	}

	users := []struct{ field, login string }{
		{metadata.FieldCreatedBy, q.Creator()},
		{metadata.FieldModifiedBy, q.Modifier()},
		{metadata.FieldPublishedBy, q.Publisher()},
		{metadata.FieldLockedBy, q.LockOwner()},
	}
	for _, u := range users {
		if u.login != "" {
			b.AddMust(userQuery(u.field, u.login))
		}
	}

	addDateRange(b, metadata.FieldCreated, q.CreationDate())
	addDateRange(b, metadata.FieldModified, q.ModificationDate())
	addDateRange(b, metadata.FieldPublishedFrom, q.PublishingDate())
	if q.IsWithoutModification() {
		b.AddMustNot(anyDate(metadata.FieldModified))
	}
	if q.IsWithoutPublication() {
		b.AddMustNot(anyDate(metadata.FieldPublishedFrom))
	}

	if text := q.Fulltext(); text != "" {
		b.AddMust(match(metadata.FieldFulltext, text, q.IsFuzzy()))
	}
	if text := q.Text(); text != "" {
		addText(b, text, q.IsWildcardSearch(), q.IsFuzzy())
	}
	if filter := q.Filter(); filter != "" {
		b.AddMust(match(metadata.FieldFulltext, filter, false))
	}

	if q.HasRecencyPriority() {
		recent := bleve.NewDateRangeInclusiveQuery(now().Add(-RecencyWindow), time.Time{}, boolPtr(true), nil)
		recent.SetField(metadata.FieldModified)
		recent.SetBoost(RecencyBoost)
		b.AddShould(recent)
	}

	size := allSize
	if q.Limit() >= 0 {
		size = q.Limit()
	}
	from := 0
	if q.Offset() >= 0 {
		from = q.Offset()
	}

	req := bleve.NewSearchRequestOptions(b, size, from, false)
	req.SortBy([]string{SortOrder(q)})
	req.Fields = projection(q.Fields())
	return req, nil
}

// SortOrder returns the single sort applied to q. Publishing date wins over
// modification date, which wins over creation date. Without any of them
// hits are ranked by relevance.
func SortOrder(q *domain.SearchQuery) string {
	dims := []struct {
		field string
		order domain.Order
	}{
		{metadata.FieldPublishedFrom, q.PublishingDateSortOrder()},
		{metadata.FieldModified, q.ModificationDateSortOrder()},
		{metadata.FieldCreated, q.CreationDateSortOrder()},
	}
	for _, d := range dims {
		switch d.order {
		case domain.OrderAscending:
			return d.field
		case domain.OrderDescending:
			return "-" + d.field
		}
	}
	return SortByScore
}

// projection returns the stored fields to load. The type field is always
// loaded since hits are deserialized by type.
func projection(fields []string) []string {
	if len(fields) == 0 || slices.Contains(fields, "*") {
		return []string{"*"}
	}
	out := slices.Clone(fields)
	if !slices.Contains(out, metadata.FieldType) {
		out = append(out, metadata.FieldType)
	}
	return out
}

func addPagelets(b *bq.BooleanQuery, q *domain.SearchQuery) {
	for _, p := range q.Pagelets() {
		value := mapper.PageletTerm(p.Module, p.ID)
		switch {
		case p.Composer == "":
			b.AddMust(term(metadata.FieldPageletType, value))
		case p.Position >= 0:
			b.AddMust(term(mapper.PageletPositionField(p.Composer, p.Position), value))
		default:
			b.AddMust(term(metadata.LocalizedFieldName(metadata.FieldPageletTypeComposer, p.Composer), value))
		}
	}
	for name, value := range q.Properties() {
		b.AddMust(term(metadata.FieldPageletProperties, mapper.PropertyTerm(name, value)))
	}
}

func addText(b *bq.BooleanQuery, text string, wildcard, fuzzy bool) {
	if !wildcard {
		b.AddMust(match(metadata.FieldText, text, fuzzy))
		return
	}

	words := strings.Fields(text)
	last := strings.ToLower(strings.TrimRight(words[len(words)-1], "*"))
	if head := strings.Join(words[:len(words)-1], " "); head != "" {
		b.AddMust(match(metadata.FieldText, head, fuzzy))
	}
	if last != "" {
		prefix := bleve.NewPrefixQuery(last)
		prefix.SetField(metadata.FieldText)
		b.AddMust(prefix)
	}
}

func addDateRange(b *bq.BooleanQuery, field string, r domain.DateRange) {
	if r.IsZero() {
		return
	}
	var from, to *bool
	if !r.From.IsZero() {
		from = boolPtr(true)
	}
	if !r.To.IsZero() {
		to = boolPtr(true)
	}
	q := bleve.NewDateRangeInclusiveQuery(r.From, r.To, from, to)
	q.SetField(field)
	b.AddMust(q)
}

func anyDate(field string) bq.Query {
	q := bleve.NewDateRangeInclusiveQuery(minDate, maxDate, boolPtr(true), boolPtr(true))
	q.SetField(field)
	return q
}

func userQuery(field, login string) bq.Query {
	if login == domain.AnyUser {
		q := bleve.NewWildcardQuery("*")
		q.SetField(field)
		return q
	}
	return term(field, login)
}

// match searches the analyzed field for every word of the escaped text, so
// reserved characters in user input never reach a query parser.
func match(field, text string, fuzzy bool) bq.Query {
	q := bleve.NewMatchQuery(Escape(text))
	q.SetField(field)
	q.SetOperator(bq.MatchQueryOperatorAnd)
	if fuzzy {
		q.SetFuzziness(1)
	}
	return q
}

func term(field, value string) *bq.TermQuery {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	return q
}

func anyTerm(field string, values []string) bq.Query {
	if len(values) == 1 {
		return term(field, values[0])
	}
	qs := make([]bq.Query, 0, len(values))
	for _, v := range values {
		qs = append(qs, term(field, v))
	}
	return bleve.NewDisjunctionQuery(qs...)
}

func boolPtr(b bool) *bool {
	return &b
}
