// Package repository provides the content repository index: the façade that
// enforces identifier and path uniqueness on top of the per-site search
// index, and the service that opens one index per configured site.
package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/sha1n/mcp-lounge-server/internal/mapper"
	"github.com/sha1n/mcp-lounge-server/internal/metadata"
	"github.com/sha1n/mcp-lounge-server/internal/metrics"
)

// SearchEngine is the search index of one site.
type SearchEngine interface {
	Site() string
	Query(ctx context.Context, q *domain.SearchQuery) (*domain.SearchResult, error)
	Count(ctx context.Context, q *domain.SearchQuery) (uint64, error)
	CountResources(ctx context.Context) (uint64, error)
	CountRevisions(ctx context.Context) (uint64, error)
	Add(ctx context.Context, r *domain.Resource) error
	Update(ctx context.Context, r *domain.Resource) error
	Delete(ctx context.Context, uri domain.ResourceURI) (bool, error)
	Move(ctx context.Context, uri domain.ResourceURI, newPath string) (bool, error)
	Suggest(ctx context.Context, dictionary, seed string, onlyMorePopular bool, count int, collate bool) ([]string, error)
	Clear(ctx context.Context) error
}

// identityFields are the stored fields needed to resolve a URI.
var identityFields = []string{
	metadata.FieldResourceID,
	metadata.FieldPath,
	metadata.FieldVersion,
}

// Index is the content repository index of one site. Mutations are
// serialized so that the uniqueness checks of Add cannot race with other
// writes. Reads are not serialized.
type Index struct {
	site    string
	engine  SearchEngine
	cache   *ResolverCache
	metrics *metrics.Metrics

	mu sync.Mutex
}

// NewIndex creates the index façade over engine. cache and m may be nil.
func NewIndex(engine SearchEngine, cache *ResolverCache, m *metrics.Metrics) *Index {
	return &Index{
		site:    engine.Site(),
		engine:  engine,
		cache:   cache,
		metrics: m,
	}
}

// Site returns the site identifier of the index.
func (i *Index) Site() string {
	return i.site
}

// Add indexes a new resource version and returns its URI. An identifier is
// minted only when neither the identifier nor the path of the resource is
// known yet. The resource passed in is not modified.
func (i *Index) Add(ctx context.Context, r *domain.Resource) (uri domain.ResourceURI, err error) {
	defer i.observe("add", time.Now(), &err)
	if r == nil {
		return domain.ResourceURI{}, domain.InvalidArgument("resource cannot be nil")
	}
	uri = r.URI
	uri.Site = i.site
	uri.Identifier = strings.TrimSpace(uri.Identifier)
	uri.Path = mapper.NormalizePath(uri.Path)
	if !domain.IsResourceType(uri.Type) {
		return domain.ResourceURI{}, domain.InvalidArgument("resource %s has unknown type %q", uri, uri.Type)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if uri.HasIdentifier() {
		versions, err := i.lookup(ctx, domain.NewSearchQuery(i.site).WithIdentifier(uri.Identifier))
		if err != nil {
			return domain.ResourceURI{}, domain.NewRepositoryError("add", err)
		}
		for _, v := range versions {
			if v.Version == uri.Version {
				return domain.ResourceURI{}, fmt.Errorf("resource %s: %w", uri.UID(), domain.ErrAlreadyExists)
			}
		}
		if len(versions) > 0 && !uri.HasPath() {
			uri.Path = versions[0].Path
		}
	}

	if uri.HasPath() {
		versions, err := i.lookup(ctx, domain.NewSearchQuery(i.site).WithPath(uri.Path))
		if err != nil {
			return domain.ResourceURI{}, domain.NewRepositoryError("add", err)
		}
		for _, v := range versions {
			if v.Version == uri.Version {
				return domain.ResourceURI{}, fmt.Errorf("path %s at version %d: %w", uri.Path, uri.Version, domain.ErrAlreadyExists)
			}
		}
		if len(versions) > 0 && !uri.HasIdentifier() {
			uri.Identifier = versions[0].Identifier
		}
	}

	if !uri.HasIdentifier() {
		uri.Identifier = uuid.NewString()
	}

	written := *r
	written.URI = uri
	if err := i.engine.Add(ctx, &written); err != nil {
		return domain.ResourceURI{}, domain.NewRepositoryError("add", err)
	}
	i.cache.Invalidate(i.site, uri.Identifier, uri.Path)
	return uri, nil
}

// Update reindexes a resource version. Without an identifier, the
// identifier is resolved from the path.
func (i *Index) Update(ctx context.Context, r *domain.Resource) (err error) {
	defer i.observe("update", time.Now(), &err)
	if r == nil {
		return domain.InvalidArgument("resource cannot be nil")
	}
	uri := r.URI
	uri.Site = i.site
	uri.Path = mapper.NormalizePath(uri.Path)

	i.mu.Lock()
	defer i.mu.Unlock()

	if !uri.HasIdentifier() || uri.Type == "" {
		resolved, found, err := i.resolve(ctx, uri, false)
		if err != nil {
			return err
		}
		if !found {
			return domain.InvalidArgument("resource %s is not indexed", uri)
		}
		uri.Identifier = resolved.Identifier
		if uri.Type == "" {
			uri.Type = resolved.Type
		}
		if !uri.HasPath() {
			uri.Path = resolved.Path
		}
	}

	written := *r
	written.URI = uri
	if err := i.engine.Update(ctx, &written); err != nil {
		return domain.NewRepositoryError("update", err)
	}
	i.cache.Invalidate(i.site, uri.Identifier, uri.Path, r.URI.Path)
	return nil
}

// Delete removes a resource version. It returns false if the version is
// not indexed.
func (i *Index) Delete(ctx context.Context, uri domain.ResourceURI) (deleted bool, err error) {
	defer i.observe("delete", time.Now(), &err)

	i.mu.Lock()
	defer i.mu.Unlock()

	resolved, found, err := i.resolveIdentifier(ctx, uri, true)
	if err != nil || !found {
		return false, err
	}
	deleted, err = i.engine.Delete(ctx, resolved)
	if err != nil {
		return false, domain.NewRepositoryError("delete", err)
	}
	i.cache.Invalidate(i.site, resolved.Identifier, resolved.Path)
	return deleted, nil
}

// Move changes the path of a resource version. The new path is normalized
// the same way paths are at write time. It returns false if the version is
// not indexed.
func (i *Index) Move(ctx context.Context, uri domain.ResourceURI, newPath string) (moved bool, err error) {
	defer i.observe("move", time.Now(), &err)
	newPath = mapper.NormalizePath(newPath)
	if newPath == "" {
		return false, domain.InvalidArgument("new path cannot be empty")
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	resolved, found, err := i.resolveIdentifier(ctx, uri, true)
	if err != nil || !found {
		return false, err
	}

	occupants, err := i.lookup(ctx, domain.NewSearchQuery(i.site).WithPath(newPath).WithVersion(resolved.Version))
	if err != nil {
		return false, domain.NewRepositoryError("move", err)
	}
	for _, o := range occupants {
		if o.Identifier != resolved.Identifier {
			return false, fmt.Errorf("path %s at version %d: %w", newPath, resolved.Version, domain.ErrAlreadyExists)
		}
	}

	moved, err = i.engine.Move(ctx, resolved, newPath)
	if err != nil {
		return false, domain.NewRepositoryError("move", err)
	}
	i.cache.Invalidate(i.site, resolved.Identifier, resolved.Path, newPath)
	return moved, nil
}

// Clear removes every resource of the site.
func (i *Index) Clear(ctx context.Context) (err error) {
	defer i.observe("clear", time.Now(), &err)

	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.engine.Clear(ctx); err != nil {
		return domain.NewRepositoryError("clear", err)
	}
	i.cache.Purge(i.site)
	return nil
}

// Resolve returns uri completed with its identifier, path and type. A path
// belongs to a resource per version, so a lookup by path only matches the
// version of uri. A lookup by identifier prefers that version and falls
// back to another one. It reports false if nothing matches.
func (i *Index) Resolve(ctx context.Context, uri domain.ResourceURI) (domain.ResourceURI, bool, error) {
	uri.Site = i.site
	uri.Path = mapper.NormalizePath(uri.Path)
	return i.resolve(ctx, uri, !uri.HasIdentifier())
}

// resolve looks uri up by identifier, or by path when it has none. With
// exact set, only documents of the version of uri match; otherwise that
// version is preferred. A negative version matches every version.
func (i *Index) resolve(ctx context.Context, uri domain.ResourceURI, exact bool) (domain.ResourceURI, bool, error) {
	if !uri.HasIdentifier() && !uri.HasPath() {
		return domain.ResourceURI{}, false, domain.ErrMissingPath
	}
	exact = exact && uri.Version >= 0

	key := ResolverKey{Site: i.site, Kind: KindPath, Key: uri.Path, Version: uri.Version, Exact: exact}
	q := domain.NewSearchQuery(i.site).WithPath(uri.Path)
	if uri.HasIdentifier() {
		key = ResolverKey{Site: i.site, Kind: KindIdentifier, Key: uri.Identifier, Version: uri.Version, Exact: exact}
		q = domain.NewSearchQuery(i.site).WithIdentifier(uri.Identifier)
	}
	if exact {
		q.WithVersion(uri.Version)
	}

	found, ok, err := i.cache.Resolve(key, func() (domain.ResourceURI, bool, error) {
		versions, err := i.lookup(ctx, q)
		if err != nil || len(versions) == 0 {
			return domain.ResourceURI{}, false, err
		}
		best := versions[0]
		for _, v := range versions {
			if v.Version == uri.Version {
				best = v
				break
			}
		}
		return best, true, nil
	})
	if err != nil {
		return domain.ResourceURI{}, false, domain.NewRepositoryError("resolve", err)
	}
	if !ok {
		return domain.ResourceURI{}, false, nil
	}

	resolved := uri
	resolved.Identifier = found.Identifier
	resolved.Type = found.Type
	resolved.Path = found.Path
	return resolved, true, nil
}

// resolveIdentifier completes the identifier and path of uri. A URI that
// already carries both is returned as is. With exact set, a URI that is
// not indexed at its version does not resolve.
func (i *Index) resolveIdentifier(ctx context.Context, uri domain.ResourceURI, exact bool) (domain.ResourceURI, bool, error) {
	uri.Site = i.site
	uri.Path = mapper.NormalizePath(uri.Path)
	if uri.HasIdentifier() && uri.HasPath() {
		return uri, true, nil
	}
	return i.resolve(ctx, uri, exact)
}

// GetIdentifier returns the identifier of uri, looking it up by path when
// uri carries none.
func (i *Index) GetIdentifier(ctx context.Context, uri domain.ResourceURI) (string, bool, error) {
	if uri.HasIdentifier() {
		return uri.Identifier, true, nil
	}
	resolved, found, err := i.Resolve(ctx, uri)
	return resolved.Identifier, found, err
}

// GetPath returns the path of uri, looking it up by identifier when uri
// carries none.
func (i *Index) GetPath(ctx context.Context, uri domain.ResourceURI) (string, bool, error) {
	if uri.HasPath() {
		return mapper.NormalizePath(uri.Path), true, nil
	}
	resolved, found, err := i.Resolve(ctx, uri)
	return resolved.Path, found, err
}

// GetType returns the type of uri, looking it up when uri carries none.
func (i *Index) GetType(ctx context.Context, uri domain.ResourceURI) (string, bool, error) {
	if uri.Type != "" {
		return uri.Type, true, nil
	}
	resolved, found, err := i.Resolve(ctx, uri)
	return resolved.Type, found, err
}

// Exists reports whether the version of uri is indexed. Unresolvable URIs
// do not exist.
func (i *Index) Exists(ctx context.Context, uri domain.ResourceURI) (bool, error) {
	resolved, found, err := i.resolveIdentifier(ctx, uri, true)
	if err != nil || !found {
		return false, nil
	}
	n, err := i.engine.Count(ctx, domain.NewSearchQuery(i.site).WithIdentifier(resolved.Identifier).WithVersion(uri.Version))
	if err != nil {
		return false, domain.NewRepositoryError("exists", err)
	}
	return n > 0, nil
}

// ExistsInAnyVersion reports whether any version of uri is indexed.
func (i *Index) ExistsInAnyVersion(ctx context.Context, uri domain.ResourceURI) (bool, error) {
	resolved, found, err := i.resolveIdentifier(ctx, uri, false)
	if err != nil || !found {
		return false, nil
	}
	n, err := i.engine.Count(ctx, domain.NewSearchQuery(i.site).WithIdentifier(resolved.Identifier))
	if err != nil {
		return false, domain.NewRepositoryError("exists", err)
	}
	return n > 0, nil
}

// GetRevisions returns the indexed versions of uri in ascending order.
func (i *Index) GetRevisions(ctx context.Context, uri domain.ResourceURI) ([]int64, error) {
	resolved, found, err := i.resolveIdentifier(ctx, uri, false)
	if err != nil || !found {
		return []int64{}, nil
	}
	versions, err := i.lookup(ctx, domain.NewSearchQuery(i.site).WithIdentifier(resolved.Identifier))
	if err != nil {
		return nil, domain.NewRepositoryError("revisions", err)
	}
	out := make([]int64, 0, len(versions))
	for _, v := range versions {
		out = append(out, v.Version)
	}
	slices.Sort(out)
	return out, nil
}

// GetResourceCount returns the number of resources, each counted once.
func (i *Index) GetResourceCount(ctx context.Context) (uint64, error) {
	n, err := i.engine.CountResources(ctx)
	return n, domain.NewRepositoryError("count", err)
}

// GetRevisionCount returns the number of stored versions of all resources.
func (i *Index) GetRevisionCount(ctx context.Context) (uint64, error) {
	n, err := i.engine.CountRevisions(ctx)
	return n, domain.NewRepositoryError("count", err)
}

// Find runs a search query.
func (i *Index) Find(ctx context.Context, q *domain.SearchQuery) (res *domain.SearchResult, err error) {
	defer i.observe("find", time.Now(), &err)
	if q == nil {
		return nil, domain.InvalidArgument("query cannot be nil")
	}
	res, err = i.engine.Query(ctx, q)
	if err != nil {
		return nil, domain.NewRepositoryError("find", err)
	}
	return res, nil
}

// Suggest returns completions of seed from a dictionary.
func (i *Index) Suggest(ctx context.Context, dictionary, seed string, onlyMorePopular bool, count int, collate bool) (out []string, err error) {
	defer i.observe("suggest", time.Now(), &err)
	if strings.TrimSpace(dictionary) == "" {
		return nil, domain.InvalidArgument("dictionary cannot be blank")
	}
	if strings.TrimSpace(seed) == "" {
		return nil, domain.InvalidArgument("seed cannot be blank")
	}
	out, err = i.engine.Suggest(ctx, dictionary, seed, onlyMorePopular, count, collate)
	if err != nil {
		return nil, domain.NewRepositoryError("suggest", err)
	}
	return out, nil
}

// List returns the URIs below the path of root, at most maxDepth levels
// deeper than its direct children. A negative maxDepth is unlimited and a
// negative version matches every version. Results are ordered by path,
// then version.
func (i *Index) List(ctx context.Context, root domain.ResourceURI, maxDepth int, version int64) (out []domain.ResourceURI, err error) {
	defer i.observe("list", time.Now(), &err)

	rootPath := mapper.NormalizePath(root.Path)
	if rootPath == "" {
		resolved, found, err := i.Resolve(ctx, root)
		if err != nil {
			return nil, err
		}
		if !found {
			return []domain.ResourceURI{}, nil
		}
		rootPath = resolved.Path
	}

	prefix := rootPath
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	q := domain.NewSearchQuery(i.site).WithPathPrefix(prefix).WithFields(identityFields...)
	if version >= 0 {
		q.WithVersion(version)
	}
	res, err := i.engine.Query(ctx, q)
	if err != nil {
		return nil, domain.NewRepositoryError("list", err)
	}

	rootDepth := mapper.Depth(rootPath)
	out = make([]domain.ResourceURI, 0, len(res.Items))
	for _, item := range res.Items {
		p := item.URI.Path
		// Segment tokens share the "/name/" form with full path prefixes
		if p == rootPath || !strings.HasPrefix(p, prefix) {
			continue
		}
		if maxDepth >= 0 && mapper.Depth(p)-rootDepth-1 > maxDepth {
			continue
		}
		out = append(out, item.URI)
	}
	slices.SortFunc(out, func(a, b domain.ResourceURI) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return int(a.Version - b.Version)
	})
	return out, nil
}

// lookup returns the URIs of every document matching q.
func (i *Index) lookup(ctx context.Context, q *domain.SearchQuery) ([]domain.ResourceURI, error) {
	res, err := i.engine.Query(ctx, q.WithFields(identityFields...))
	if err != nil {
		return nil, err
	}
	out := make([]domain.ResourceURI, 0, len(res.Items))
	for _, item := range res.Items {
		out = append(out, item.URI)
	}
	return out, nil
}

func (i *Index) observe(op string, start time.Time, err *error) {
	i.metrics.Observe(i.site, op, start, *err)
}
