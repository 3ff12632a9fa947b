package domain

import (
	"strings"
	"time"
)

// Order is the direction of a sort dimension.
type Order int

const (
	OrderNone Order = iota
	OrderAscending
	OrderDescending
)

// AnyUser matches every user in creator, modifier, publisher and lock
// owner predicates, meaning "the field is set".
const AnyUser = "*"

// StageComposer is the composer name of the main page area.
const StageComposer = "stage"

// DateRange is an inclusive time interval. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// Day returns the range covering the calendar day of t in t's location.
func Day(t time.Time) DateRange {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return DateRange{From: start, To: start.Add(24*time.Hour - time.Nanosecond)}
}

// PageletTerm constrains results to pages containing a pagelet.
// Composer and Position are optional, Position < 0 means unset.
type PageletTerm struct {
	Module   string
	ID       string
	Composer string
	Position int
}

// SearchQuery collects predicates, sort and pagination state for a search.
// Negative offset, limit and version values mean "unset".
type SearchQuery struct {
	site             string
	identifiers      []string
	path             string
	pathPrefix       string
	types            []string
	withoutTypes     []string
	version          int64
	preferredVersion int64
	subjects         []string
	allSubjects      []string
	series           []string
	template         string
	pagelets         []PageletTerm
	properties       map[string]string
	creator          string
	modifier         string
	publisher        string
	lockOwner        string
	created          DateRange
	modified         DateRange
	published        DateRange
	withoutModified  bool
	withoutPublished bool
	filename         string
	mimetype         string
	source           string
	external         string
	fulltext         string
	text             string
	wildcard         bool
	fuzzy            bool
	filter           string
	publishingOrder  Order
	modifiedOrder    Order
	createdOrder     Order
	recency          bool
	offset           int
	limit            int
	fields           []string
}

// NewSearchQuery creates an empty query for a site.
func NewSearchQuery(site string) *SearchQuery {
	return &SearchQuery{
		site:             site,
		version:          AnyVersion,
		preferredVersion: AnyVersion,
		offset:           -1,
		limit:            -1,
	}
}

func (q *SearchQuery) Site() string { return q.site }

// WithIdentifier restricts results to the given resource identifiers.
func (q *SearchQuery) WithIdentifier(ids ...string) *SearchQuery {
	q.identifiers = appendNonBlank(q.identifiers, ids...)
	return q
}

func (q *SearchQuery) Identifiers() []string { return q.identifiers }

// WithPath restricts results to an exact path.
func (q *SearchQuery) WithPath(path string) *SearchQuery {
	q.path = strings.TrimSpace(path)
	return q
}

func (q *SearchQuery) Path() string { return q.path }

// WithPathPrefix restricts results to paths containing the given prefix
// token, see the path tokens emitted by the document mapper.
func (q *SearchQuery) WithPathPrefix(prefix string) *SearchQuery {
	q.pathPrefix = strings.TrimSpace(prefix)
	return q
}

func (q *SearchQuery) PathPrefix() string { return q.pathPrefix }

// WithTypes restricts results to the given resource types.
func (q *SearchQuery) WithTypes(types ...string) *SearchQuery {
	q.types = appendNonBlank(q.types, types...)
	return q
}

func (q *SearchQuery) Types() []string { return q.types }

// WithoutTypes excludes the given resource types.
func (q *SearchQuery) WithoutTypes(types ...string) *SearchQuery {
	q.withoutTypes = appendNonBlank(q.withoutTypes, types...)
	return q
}

func (q *SearchQuery) ExcludedTypes() []string { return q.withoutTypes }

// WithVersion restricts results to an exact version.
func (q *SearchQuery) WithVersion(v int64) *SearchQuery {
	q.version = v
	return q
}

func (q *SearchQuery) Version() int64 { return q.version }

// WithPreferredVersion returns, per resource, the given version if it
// exists and any other version otherwise. It takes precedence over
// WithVersion.
func (q *SearchQuery) WithPreferredVersion(v int64) *SearchQuery {
	q.preferredVersion = v
	return q
}

func (q *SearchQuery) PreferredVersion() int64 { return q.preferredVersion }

// WithSubject matches resources carrying any of the subjects.
func (q *SearchQuery) WithSubject(subjects ...string) *SearchQuery {
	q.subjects = appendNonBlank(q.subjects, subjects...)
	return q
}

func (q *SearchQuery) Subjects() []string { return q.subjects }

// WithAllSubjects matches resources carrying every one of the subjects.
func (q *SearchQuery) WithAllSubjects(subjects ...string) *SearchQuery {
	q.allSubjects = appendNonBlank(q.allSubjects, subjects...)
	return q
}

func (q *SearchQuery) AllSubjects() []string { return q.allSubjects }

// WithSeries matches resources in any of the series.
func (q *SearchQuery) WithSeries(series ...string) *SearchQuery {
	q.series = appendNonBlank(q.series, series...)
	return q
}

func (q *SearchQuery) Series() []string { return q.series }

func (q *SearchQuery) WithTemplate(template string) *SearchQuery {
	q.template = strings.TrimSpace(template)
	return q
}

func (q *SearchQuery) Template() string { return q.template }

// WithPagelet matches pages containing the pagelet anywhere.
func (q *SearchQuery) WithPagelet(module, id string) *SearchQuery {
	q.pagelets = append(q.pagelets, PageletTerm{Module: module, ID: id, Position: -1})
	return q
}

// WithPageletInComposer matches pages containing the pagelet in a composer,
// optionally at a position (position < 0 means any).
func (q *SearchQuery) WithPageletInComposer(module, id, composer string, position int) *SearchQuery {
	q.pagelets = append(q.pagelets, PageletTerm{Module: module, ID: id, Composer: composer, Position: position})
	return q
}

// WithPageletInStage matches pages containing the pagelet in the stage.
func (q *SearchQuery) WithPageletInStage(module, id string) *SearchQuery {
	return q.WithPageletInComposer(module, id, StageComposer, -1)
}

func (q *SearchQuery) Pagelets() []PageletTerm { return q.pagelets }

// WithProperty matches pages with a pagelet property of the given value.
func (q *SearchQuery) WithProperty(name, value string) *SearchQuery {
	if q.properties == nil {
		q.properties = make(map[string]string)
	}
	q.properties[name] = value
	return q
}

func (q *SearchQuery) Properties() map[string]string { return q.properties }

func (q *SearchQuery) WithCreator(login string) *SearchQuery {
	q.creator = strings.TrimSpace(login)
	return q
}

func (q *SearchQuery) Creator() string { return q.creator }

func (q *SearchQuery) WithModifier(login string) *SearchQuery {
	q.modifier = strings.TrimSpace(login)
	return q
}

func (q *SearchQuery) Modifier() string { return q.modifier }

func (q *SearchQuery) WithPublisher(login string) *SearchQuery {
	q.publisher = strings.TrimSpace(login)
	return q
}

func (q *SearchQuery) Publisher() string { return q.publisher }

// WithLockOwner matches resources locked by login, or locked at all when
// login is AnyUser.
func (q *SearchQuery) WithLockOwner(login string) *SearchQuery {
	q.lockOwner = strings.TrimSpace(login)
	return q
}

func (q *SearchQuery) LockOwner() string { return q.lockOwner }

// WithCreationDate matches resources created on the day of t.
func (q *SearchQuery) WithCreationDate(t time.Time) *SearchQuery {
	q.created = Day(t)
	return q
}

func (q *SearchQuery) WithCreationDateBetween(from, to time.Time) *SearchQuery {
	q.created = DateRange{From: from, To: to}
	return q
}

func (q *SearchQuery) CreationDate() DateRange { return q.created }

// WithModificationDate matches resources modified on the day of t.
func (q *SearchQuery) WithModificationDate(t time.Time) *SearchQuery {
	q.modified = Day(t)
	return q
}

func (q *SearchQuery) WithModificationDateBetween(from, to time.Time) *SearchQuery {
	q.modified = DateRange{From: from, To: to}
	return q
}

func (q *SearchQuery) ModificationDate() DateRange { return q.modified }

// WithPublishingDate matches resources published on the day of t.
func (q *SearchQuery) WithPublishingDate(t time.Time) *SearchQuery {
	q.published = Day(t)
	return q
}

func (q *SearchQuery) WithPublishingDateBetween(from, to time.Time) *SearchQuery {
	q.published = DateRange{From: from, To: to}
	return q
}

func (q *SearchQuery) PublishingDate() DateRange { return q.published }

// WithoutModification matches resources that were never modified.
func (q *SearchQuery) WithoutModification() *SearchQuery {
	q.withoutModified = true
	return q
}

func (q *SearchQuery) IsWithoutModification() bool { return q.withoutModified }

// WithoutPublication matches resources that were never published.
func (q *SearchQuery) WithoutPublication() *SearchQuery {
	q.withoutPublished = true
	return q
}

func (q *SearchQuery) IsWithoutPublication() bool { return q.withoutPublished }

func (q *SearchQuery) WithFilename(name string) *SearchQuery {
	q.filename = strings.TrimSpace(name)
	return q
}

func (q *SearchQuery) Filename() string { return q.filename }

func (q *SearchQuery) WithMimetype(mimetype string) *SearchQuery {
	q.mimetype = strings.TrimSpace(mimetype)
	return q
}

func (q *SearchQuery) Mimetype() string { return q.mimetype }

func (q *SearchQuery) WithSource(source string) *SearchQuery {
	q.source = strings.TrimSpace(source)
	return q
}

func (q *SearchQuery) Source() string { return q.source }

func (q *SearchQuery) WithExternalLocation(location string) *SearchQuery {
	q.external = strings.TrimSpace(location)
	return q
}

func (q *SearchQuery) ExternalLocation() string { return q.external }

// WithFulltext matches every word of text against the backend fulltext
// field.
func (q *SearchQuery) WithFulltext(text string) *SearchQuery {
	q.fulltext = strings.TrimSpace(text)
	return q
}

func (q *SearchQuery) Fulltext() string { return q.fulltext }

// WithText matches every word of text against the user facing text field.
// With wildcard set, the last word matches as a prefix.
func (q *SearchQuery) WithText(text string, wildcard bool) *SearchQuery {
	q.text = strings.TrimSpace(text)
	q.wildcard = wildcard
	return q
}

func (q *SearchQuery) Text() string { return q.text }

func (q *SearchQuery) IsWildcardSearch() bool { return q.wildcard }

// WithFuzzyMatching tolerates one edit per word in text predicates.
func (q *SearchQuery) WithFuzzyMatching() *SearchQuery {
	q.fuzzy = true
	return q
}

func (q *SearchQuery) IsFuzzy() bool { return q.fuzzy }

// WithFilter adds a filter expression matched against the fulltext field.
func (q *SearchQuery) WithFilter(filter string) *SearchQuery {
	q.filter = strings.TrimSpace(filter)
	return q
}

func (q *SearchQuery) Filter() string { return q.filter }

func (q *SearchQuery) SortByPublishingDate(o Order) *SearchQuery {
	q.publishingOrder = o
	return q
}

func (q *SearchQuery) PublishingDateSortOrder() Order { return q.publishingOrder }

func (q *SearchQuery) SortByModificationDate(o Order) *SearchQuery {
	q.modifiedOrder = o
	return q
}

func (q *SearchQuery) ModificationDateSortOrder() Order { return q.modifiedOrder }

func (q *SearchQuery) SortByCreationDate(o Order) *SearchQuery {
	q.createdOrder = o
	return q
}

func (q *SearchQuery) CreationDateSortOrder() Order { return q.createdOrder }

// WithRecencyPriority boosts recently modified resources in relevance
// ranking.
func (q *SearchQuery) WithRecencyPriority() *SearchQuery {
	q.recency = true
	return q
}

func (q *SearchQuery) HasRecencyPriority() bool { return q.recency }

func (q *SearchQuery) WithOffset(offset int) *SearchQuery {
	q.offset = offset
	return q
}

func (q *SearchQuery) Offset() int { return q.offset }

func (q *SearchQuery) WithLimit(limit int) *SearchQuery {
	q.limit = limit
	return q
}

func (q *SearchQuery) Limit() int { return q.limit }

// WithFields restricts the stored fields loaded for each hit.
func (q *SearchQuery) WithFields(fields ...string) *SearchQuery {
	q.fields = appendNonBlank(q.fields, fields...)
	return q
}

func (q *SearchQuery) Fields() []string { return q.fields }

func appendNonBlank(dst []string, values ...string) []string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			dst = append(dst, v)
		}
	}
	return dst
}
