package repository

import (
	"fmt"
	"slices"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Lookup kinds of a resolver key.
const (
	KindIdentifier = "id"
	KindPath       = "path"
)

// ResolverKey identifies a cached resolution: a partial URI known by its
// identifier or path, looked up for a version. Exact lookups only match
// documents of that version.
type ResolverKey struct {
	Site    string
	Kind    string
	Key     string
	Version int64
	Exact   bool
}

func (k ResolverKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%d|%t", k.Site, k.Kind, k.Key, k.Version, k.Exact)
}

type resolution struct {
	uri   domain.ResourceURI
	found bool
}

// ResolverCache memoizes identifier and path resolutions. Concurrent
// misses of the same key share one lookup. Only successful resolutions
// are cached. A nil cache resolves every call.
//
// Every site has a generation that Invalidate and Purge advance. A lookup
// that started in an older generation is neither cached nor joined by
// later callers, so a mutation is never hidden by a read that raced it.
type ResolverCache struct {
	cache *lru.Cache[ResolverKey, domain.ResourceURI]
	group singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

// NewResolverCache creates a cache holding up to size entries. A size of
// zero disables caching but still collapses concurrent lookups.
func NewResolverCache(size int) (*ResolverCache, error) {
	if size < 0 {
		return nil, domain.InvalidArgument("cache size cannot be negative: %d", size)
	}
	c := &ResolverCache{generations: make(map[string]uint64)}
	if size > 0 {
		cache, err := lru.New[ResolverKey, domain.ResourceURI](size)
		if err != nil {
			return nil, fmt.Errorf("failed to create resolver cache: %w", err)
		}
		c.cache = cache
	}
	return c, nil
}

// Resolve returns the cached resolution of key, or calls load.
func (c *ResolverCache) Resolve(key ResolverKey, load func() (domain.ResourceURI, bool, error)) (domain.ResourceURI, bool, error) {
	if c == nil {
		return load()
	}
	if c.cache != nil {
		if uri, ok := c.cache.Get(key); ok {
			return uri, true, nil
		}
	}

	gen := c.generation(key.Site)
	flight := fmt.Sprintf("%s#%d", key, gen)
	v, err, _ := c.group.Do(flight, func() (any, error) {
		uri, found, err := load()
		if err != nil {
			return nil, err
		}
		if found {
			c.store(key, uri, gen)
		}
		return resolution{uri: uri, found: found}, nil
	})
	if err != nil {
		return domain.ResourceURI{}, false, err
	}
	r := v.(resolution)
	return r.uri, r.found, nil
}

func (c *ResolverCache) generation(site string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[site]
}

// store caches uri unless the site moved to another generation while it
// was being loaded.
func (c *ResolverCache) store(key ResolverKey, uri domain.ResourceURI, gen uint64) {
	if c.cache == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[key.Site] != gen {
		return
	}
	c.cache.Add(key, uri)
}

// Invalidate drops every entry of the site that was keyed by the
// identifier or by one of the paths, or that resolved to the identifier.
// Lookups of the site that are still running are not cached.
func (c *ResolverCache) Invalidate(site, id string, paths ...string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[site]++
	if c.cache == nil {
		return
	}
	for _, k := range c.cache.Keys() {
		if k.Site != site {
			continue
		}
		switch {
		case k.Kind == KindIdentifier && k.Key == id:
			c.cache.Remove(k)
		case k.Kind == KindPath && slices.Contains(paths, k.Key):
			c.cache.Remove(k)
		default:
			if uri, ok := c.cache.Peek(k); ok && id != "" && uri.Identifier == id {
				c.cache.Remove(k)
			}
		}
	}
}

// Purge drops every entry of the site.
func (c *ResolverCache) Purge(site string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[site]++
	if c.cache == nil {
		return
	}
	for _, k := range c.cache.Keys() {
		if k.Site == site {
			c.cache.Remove(k)
		}
	}
}

// Len returns the number of cached entries.
func (c *ResolverCache) Len() int {
	if c == nil || c.cache == nil {
		return 0
	}
	return c.cache.Len()
}
