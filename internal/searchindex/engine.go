// Package searchindex owns the per-site bleve index: its lifecycle, schema,
// version marker, queries and multi-version writes.
package searchindex

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	bq "github.com/blevesearch/bleve/v2/search/query"
	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/sha1n/mcp-lounge-server/internal/mapper"
	"github.com/sha1n/mcp-lounge-server/internal/metadata"
	"github.com/sha1n/mcp-lounge-server/internal/query"
)

// State is the lifecycle state of an engine.
type State int32

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures an engine.
type Options struct {
	// Dir is the base directory. The index lives in
	// <Dir>/indexes/<site>.bleve. Ignored when InMemory is set.
	Dir string

	// InMemory keeps the index in memory only.
	InMemory bool

	// Registry resolves deserializers by document type. Defaults to
	// DefaultRegistry().
	Registry *Registry

	// NewWriter creates the batch writer of an opened index. Defaults to
	// NewIndexBatchWriter.
	NewWriter WriterFactory
}

// Engine is the search index of one site.
type Engine struct {
	site string
	opts Options

	mu           sync.RWMutex
	state        State
	index        bleve.Index
	writer       BatchWriter
	indexVersion int
	needsReindex bool
}

// NewEngine creates an engine for site. It must be opened before use.
func NewEngine(site string, opts Options) *Engine {
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}
	if opts.NewWriter == nil {
		opts.NewWriter = NewIndexBatchWriter
	}
	return &Engine{site: site, opts: opts}
}

// Site returns the site identifier of the engine.
func (e *Engine) Site() string {
	return e.site
}

// IndexPath returns the directory of the on-disk index.
func (e *Engine) IndexPath() string {
	return filepath.Join(e.opts.Dir, "indexes", e.site+IndexSuffix)
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// IndexVersion returns the schema version recorded in the index.
func (e *Engine) IndexVersion() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.indexVersion
}

// NeedsReindex reports whether the index was written by another schema
// version.
func (e *Engine) NeedsReindex() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.needsReindex
}

// Open creates the index if missing, installs the mappings and checks the
// version marker. A version mismatch is logged, never migrated.
func (e *Engine) Open(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateReady:
		return nil
	case StateClosed:
		return fmt.Errorf("index for site %s is closed", e.site)
	}

	e.state = StateConnecting
	if err := e.connect(ctx); err != nil {
		e.state = StateUninitialized
		return err
	}
	e.state = StateReady

	slog.Info("Index ready", "site", e.site, "in_memory", e.opts.InMemory, "index_version", e.indexVersion)
	return nil
}

// Close releases the index. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateClosed {
		return nil
	}
	e.state = StateClosed
	if e.index == nil {
		return nil
	}
	err := e.index.Close()
	e.index = nil
	e.writer = nil
	return err
}

// Clear drops every document of the site and recreates an empty index.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ready(); err != nil {
		return err
	}
	if err := e.index.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}
	e.index = nil
	if !e.opts.InMemory {
		if err := os.RemoveAll(e.IndexPath()); err != nil {
			e.state = StateUninitialized
			return fmt.Errorf("failed to remove index: %w", err)
		}
	}
	if err := e.connect(ctx); err != nil {
		e.state = StateUninitialized
		return err
	}

	slog.Info("Index cleared", "site", e.site)
	return nil
}

func (e *Engine) connect(ctx context.Context) error {
	index, err := e.openIndex()
	if err != nil {
		return err
	}
	e.index = index
	e.writer = e.opts.NewWriter(index)

	if err := e.checkVersion(ctx); err != nil {
		_ = index.Close()
		e.index = nil
		e.writer = nil
		return err
	}
	return nil
}

func (e *Engine) openIndex() (bleve.Index, error) {
	if e.opts.InMemory {
		index, err := bleve.NewMemOnly(CreateIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
		return index, nil
	}

	path := e.IndexPath()
	index, err := bleve.Open(path)
	if err == nil {
		return index, nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	index, err = bleve.New(path, CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return index, nil
}

// checkVersion reads the version marker. A fresh index gets the current
// marker; an index holding documents but no marker predates versioning.
func (e *Engine) checkVersion(ctx context.Context) error {
	version, found, err := e.readVersion(ctx)
	if err != nil {
		return err
	}

	if !found {
		count, err := e.index.DocCount()
		if err != nil {
			return fmt.Errorf("failed to count documents: %w", err)
		}
		if count == 0 {
			marker := map[string]any{
				metadata.FieldType: VersionMarkerType,
				FieldIndexVersion:  SchemaVersion,
			}
			if err := e.index.Index(VersionMarkerID, marker); err != nil {
				return fmt.Errorf("failed to write index version: %w", err)
			}
			version = SchemaVersion
		}
	}

	e.indexVersion = version
	e.needsReindex = version != SchemaVersion
	if e.needsReindex {
		slog.Warn("Index needs reindex", "site", e.site, "index_version", version, "expected", SchemaVersion)
	}
	return nil
}

func (e *Engine) readVersion(ctx context.Context) (int, bool, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{VersionMarkerID}))
	req.Fields = []string{FieldIndexVersion}
	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read index version: %w", err)
	}
	if len(res.Hits) == 0 {
		return 0, false, nil
	}
	v, ok := res.Hits[0].Fields[FieldIndexVersion].(float64)
	if !ok {
		return 0, true, nil
	}
	return int(v), true, nil
}

func (e *Engine) ready() error {
	if e.state != StateReady {
		return fmt.Errorf("index for site %s is %s: %w", e.site, e.state, domain.ErrNotReady)
	}
	return nil
}

// Query runs q and deserializes the hits by document type. Hits of a type
// without a deserializer are skipped.
func (e *Engine) Query(ctx context.Context, q *domain.SearchQuery) (*domain.SearchResult, error) {
	if q == nil {
		return nil, domain.InvalidArgument("query cannot be nil")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.ready(); err != nil {
		return nil, err
	}

	req, err := e.buildRequest(q)
	if err != nil {
		return nil, err
	}
	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	result := &domain.SearchResult{
		Query:      q,
		Hits:       res.Total,
		Offset:     req.From,
		Limit:      req.Size,
		SearchTime: res.Took,
		Items:      make([]domain.SearchResultItem, 0, len(res.Hits)),
	}
	for _, hit := range res.Hits {
		docType, _ := hit.Fields[metadata.FieldType].(string)
		d, ok := e.opts.Registry.Lookup(docType)
		if !ok {
			slog.Warn("Skipping hit without deserializer", "site", e.site, "uid", hit.ID, "type", docType)
			continue
		}
		item, err := d.Deserialize(hit.ID, hit.Score, hit.Fields)
		if err != nil {
			return nil, err
		}
		item.URI.Site = e.site
		result.Items = append(result.Items, item)
	}
	return result, nil
}

// Count returns the number of documents matching q, ignoring pagination.
func (e *Engine) Count(ctx context.Context, q *domain.SearchQuery) (uint64, error) {
	if q == nil {
		return 0, domain.InvalidArgument("query cannot be nil")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.ready(); err != nil {
		return 0, err
	}

	req, err := e.buildRequest(q)
	if err != nil {
		return 0, err
	}
	return e.count(ctx, req.Query)
}

// CountResources returns the number of resources, counting each resource
// once regardless of how many versions it has.
func (e *Engine) CountResources(ctx context.Context) (uint64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.ready(); err != nil {
		return 0, err
	}

	req, err := query.Build(domain.NewSearchQuery(e.site), 0)
	if err != nil {
		return 0, err
	}
	primary := bleve.NewTermQuery(PrimaryVersionValue)
	primary.SetField(metadata.FieldPrimaryVersion)
	return e.count(ctx, bleve.NewConjunctionQuery(req.Query, primary))
}

// CountRevisions returns the number of stored versions of all resources.
func (e *Engine) CountRevisions(ctx context.Context) (uint64, error) {
	return e.Count(ctx, domain.NewSearchQuery(e.site))
}

func (e *Engine) count(ctx context.Context, q bq.Query) (uint64, error) {
	req := bleve.NewSearchRequestOptions(q, 0, 0, false)
	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return res.Total, nil
}

func (e *Engine) buildRequest(q *domain.SearchQuery) (*bleve.SearchRequest, error) {
	count, err := e.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	return query.Build(q, int(count))
}

// Document returns the stored metadata of the document with the given uid.
func (e *Engine) Document(ctx context.Context, uid string) (*metadata.Collection, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.ready(); err != nil {
		return nil, false, err
	}

	fields, found, err := e.storedFields(ctx, uid)
	if err != nil || !found {
		return nil, found, err
	}
	c, err := metadata.FromStored(fields)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// Add indexes a new version of a resource. It has the same effect as
// Update.
func (e *Engine) Add(ctx context.Context, r *domain.Resource) error {
	return e.upsert(ctx, r)
}

// Update reindexes a version of a resource.
func (e *Engine) Update(ctx context.Context, r *domain.Resource) error {
	return e.upsert(ctx, r)
}

// upsert writes the resource together with every sibling version, all of
// which get their alternate versions recomputed.
func (e *Engine) upsert(ctx context.Context, r *domain.Resource) error {
	if r == nil {
		return domain.InvalidArgument("resource cannot be nil")
	}
	c, err := mapper.Map(r, r.URI)
	if err != nil {
		return err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.ready(); err != nil {
		return err
	}

	siblings, err := e.siblings(ctx, r.URI.Identifier)
	if err != nil {
		return err
	}
	siblings[r.URI.UID()] = c
	return e.submit(ctx, fanOut(siblings))
}

// Delete removes a version of a resource. It returns false if the version
// is not indexed.
func (e *Engine) Delete(ctx context.Context, uri domain.ResourceURI) (bool, error) {
	if !uri.HasIdentifier() {
		return false, domain.InvalidArgument("uri %s has no identifier", uri)
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.ready(); err != nil {
		return false, err
	}

	uid := uri.UID()
	_, found, err := e.storedFields(ctx, uid)
	if err != nil || !found {
		return false, err
	}

	siblings, err := e.siblings(ctx, uri.Identifier)
	if err != nil {
		return false, err
	}
	delete(siblings, uid)

	ops := append([]Operation{{Kind: OpDelete, ID: uid}}, fanOut(siblings)...)
	if err := e.submit(ctx, ops); err != nil {
		return false, err
	}
	return true, nil
}

// Move changes the path of a version of a resource. Only the path fields
// are rewritten, everything else is kept as stored. It returns false if the
// version is not indexed.
func (e *Engine) Move(ctx context.Context, uri domain.ResourceURI, newPath string) (bool, error) {
	if !uri.HasIdentifier() {
		return false, domain.InvalidArgument("uri %s has no identifier", uri)
	}
	newPath = mapper.NormalizePath(newPath)
	if newPath == "" {
		return false, domain.InvalidArgument("new path cannot be empty")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.ready(); err != nil {
		return false, err
	}

	uid := uri.UID()
	fields, found, err := e.storedFields(ctx, uid)
	if err != nil || !found {
		return false, err
	}
	c, err := metadata.FromStored(fields)
	if err != nil {
		return false, err
	}
	mapper.AddPathTokens(c, newPath)

	if err := e.submit(ctx, []Operation{{Kind: OpIndex, ID: uid, Document: c.Document()}}); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) storedFields(ctx context.Context, uid string) (map[string]any, bool, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{uid}))
	req.Fields = []string{"*"}
	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s: %w", uid, err)
	}
	if len(res.Hits) == 0 {
		return nil, false, nil
	}
	return res.Hits[0].Fields, true, nil
}

// siblings loads every stored version of a resource, keyed by uid.
func (e *Engine) siblings(ctx context.Context, id string) (map[string]*metadata.Collection, error) {
	req, err := e.buildRequest(domain.NewSearchQuery(e.site).WithIdentifier(id))
	if err != nil {
		return nil, err
	}
	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to load versions of %s: %w", id, err)
	}

	docs := make(map[string]*metadata.Collection, len(res.Hits))
	for _, hit := range res.Hits {
		c, err := metadata.FromStored(hit.Fields)
		if err != nil {
			return nil, err
		}
		docs[hit.ID] = c
	}
	return docs, nil
}

func (e *Engine) submit(ctx context.Context, ops []Operation) error {
	if len(ops) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := FirstFailure(e.writer.Submit(ops)); err != nil {
		return fmt.Errorf("batch write failed: %w", err)
	}
	return nil
}

// PrimaryVersionValue marks the lowest stored version of a resource.
const PrimaryVersionValue = "true"

// fanOut recomputes the alternate and primary version fields of all
// versions of one resource and returns the rewrite operations.
func fanOut(docs map[string]*metadata.Collection) []Operation {
	uids := make([]string, 0, len(docs))
	versions := make(map[string]int64, len(docs))
	for uid, c := range docs {
		uids = append(uids, uid)
		v, _ := strconv.ParseInt(firstString(c, metadata.FieldVersion), 10, 64)
		versions[uid] = v
	}
	slices.SortFunc(uids, func(a, b string) int {
		return cmp.Compare(versions[a], versions[b])
	})

	ops := make([]Operation, 0, len(uids))
	for i, uid := range uids {
		c := docs[uid]
		c.Remove(metadata.FieldAlternateVersion)
		for _, other := range uids {
			if other != uid {
				c.AddValue(metadata.FieldAlternateVersion, mapper.FormatVersion(versions[other]), false, false)
			}
		}
		c.Remove(metadata.FieldPrimaryVersion)
		if i == 0 {
			c.AddValue(metadata.FieldPrimaryVersion, PrimaryVersionValue, false, false)
		}
		ops = append(ops, Operation{Kind: OpIndex, ID: uid, Document: c.Document()})
	}
	return ops
}
