package repository

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pathKey(site, path string) ResolverKey {
	return ResolverKey{Site: site, Kind: KindPath, Key: path, Version: domain.LIVE}
}

func idKey(site, id string) ResolverKey {
	return ResolverKey{Site: site, Kind: KindIdentifier, Key: id, Version: domain.LIVE}
}

func loaderFor(uri domain.ResourceURI, calls *atomic.Int32) func() (domain.ResourceURI, bool, error) {
	return func() (domain.ResourceURI, bool, error) {
		calls.Add(1)
		return uri, true, nil
	}
}

func TestResolverCache_NegativeSize(t *testing.T) {
	_, err := NewResolverCache(-1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestResolverCache_CachesHits(t *testing.T) {
	c, err := NewResolverCache(8)
	require.NoError(t, err)
	uri := domain.ResourceURI{Site: "news", Identifier: "a", Path: "/a", Type: domain.TypePage}
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		got, found, err := c.Resolve(pathKey("news", "/a"), loaderFor(uri, &calls))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, uri, got)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestResolverCache_MissesAndErrorsAreNotCached(t *testing.T) {
	c, err := NewResolverCache(8)
	require.NoError(t, err)

	var calls int
	miss := func() (domain.ResourceURI, bool, error) {
		calls++
		return domain.ResourceURI{}, false, nil
	}
	_, found, err := c.Resolve(pathKey("news", "/a"), miss)
	require.NoError(t, err)
	assert.False(t, found)
	_, _, _ = c.Resolve(pathKey("news", "/a"), miss)
	assert.Equal(t, 2, calls)

	boom := errors.New("boom")
	_, _, err = c.Resolve(pathKey("news", "/b"), func() (domain.ResourceURI, bool, error) {
		return domain.ResourceURI{}, false, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestResolverCache_ZeroSizeDisablesCaching(t *testing.T) {
	c, err := NewResolverCache(0)
	require.NoError(t, err)
	var calls atomic.Int32
	uri := domain.ResourceURI{Site: "news", Identifier: "a", Path: "/a"}

	_, _, _ = c.Resolve(pathKey("news", "/a"), loaderFor(uri, &calls))
	_, _, _ = c.Resolve(pathKey("news", "/a"), loaderFor(uri, &calls))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestResolverCache_NilCache(t *testing.T) {
	var c *ResolverCache
	var calls atomic.Int32
	uri := domain.ResourceURI{Site: "news", Identifier: "a"}

	got, found, err := c.Resolve(idKey("news", "a"), loaderFor(uri, &calls))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uri, got)
	c.Invalidate("news", "a")
	c.Purge("news")
	assert.Equal(t, 0, c.Len())
}

func TestResolverCache_ConcurrentMissesShareLookup(t *testing.T) {
	c, err := NewResolverCache(8)
	require.NoError(t, err)
	uri := domain.ResourceURI{Site: "news", Identifier: "a", Path: "/a"}

	var calls atomic.Int32
	release := make(chan struct{})
	load := func() (domain.ResourceURI, bool, error) {
		calls.Add(1)
		<-release
		return uri, true, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, found, err := c.Resolve(pathKey("news", "/a"), load)
			assert.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, uri, got)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
	assert.Equal(t, 1, c.Len())
}

func TestResolverCache_Invalidate(t *testing.T) {
	c, err := NewResolverCache(16)
	require.NoError(t, err)
	var calls atomic.Int32
	a := domain.ResourceURI{Site: "news", Identifier: "a", Path: "/a"}
	b := domain.ResourceURI{Site: "news", Identifier: "b", Path: "/b"}
	other := domain.ResourceURI{Site: "shop", Identifier: "a", Path: "/a"}

	_, _, _ = c.Resolve(idKey("news", "a"), loaderFor(a, &calls))
	_, _, _ = c.Resolve(pathKey("news", "/a"), loaderFor(a, &calls))
	_, _, _ = c.Resolve(pathKey("news", "/old"), loaderFor(a, &calls))
	_, _, _ = c.Resolve(idKey("news", "b"), loaderFor(b, &calls))
	_, _, _ = c.Resolve(idKey("shop", "a"), loaderFor(other, &calls))
	require.Equal(t, 5, c.Len())

	c.Invalidate("news", "a", "/a")

	// Entries resolving to the identifier go as well, whatever their key
	assert.Equal(t, 2, c.Len())
	c.Purge("news")
	assert.Equal(t, 1, c.Len())
}

// stalledLookup starts a resolution of key in the background whose loader
// blocks until release is closed, and returns once the loader is running.
func stalledLookup(c *ResolverCache, key ResolverKey, uri domain.ResourceURI) (release chan struct{}, done chan domain.ResourceURI) {
	started := make(chan struct{})
	release = make(chan struct{})
	done = make(chan domain.ResourceURI, 1)
	go func() {
		got, _, _ := c.Resolve(key, func() (domain.ResourceURI, bool, error) {
			close(started)
			<-release
			return uri, true, nil
		})
		done <- got
	}()
	<-started
	return release, done
}

func TestResolverCache_LookupRacingInvalidateIsNotCached(t *testing.T) {
	c, err := NewResolverCache(8)
	require.NoError(t, err)
	old := domain.ResourceURI{Site: "news", Identifier: "a", Path: "/old"}

	release, done := stalledLookup(c, idKey("news", "a"), old)
	c.Invalidate("news", "a", "/old", "/new")
	close(release)

	assert.Equal(t, old, <-done)
	assert.Equal(t, 0, c.Len())
}

func TestResolverCache_LookupAfterInvalidateDoesNotJoinStaleOne(t *testing.T) {
	c, err := NewResolverCache(8)
	require.NoError(t, err)
	old := domain.ResourceURI{Site: "news", Identifier: "a", Path: "/old"}
	moved := domain.ResourceURI{Site: "news", Identifier: "a", Path: "/new"}

	release, done := stalledLookup(c, idKey("news", "a"), old)
	c.Invalidate("news", "a", "/old", "/new")

	var calls atomic.Int32
	got, found, err := c.Resolve(idKey("news", "a"), loaderFor(moved, &calls))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, moved, got)
	assert.Equal(t, int32(1), calls.Load())

	close(release)
	<-done

	got, _, err = c.Resolve(idKey("news", "a"), loaderFor(old, &calls))
	require.NoError(t, err)
	assert.Equal(t, moved, got)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolverCache_PurgeStopsRunningLookups(t *testing.T) {
	c, err := NewResolverCache(8)
	require.NoError(t, err)
	uri := domain.ResourceURI{Site: "news", Identifier: "a", Path: "/a"}

	release, done := stalledLookup(c, pathKey("news", "/a"), uri)
	c.Purge("news")
	close(release)
	<-done

	assert.Equal(t, 0, c.Len())
}

func TestResolverCache_OtherSitesKeepCaching(t *testing.T) {
	c, err := NewResolverCache(8)
	require.NoError(t, err)
	uri := domain.ResourceURI{Site: "shop", Identifier: "a", Path: "/a"}

	release, done := stalledLookup(c, pathKey("shop", "/a"), uri)
	c.Invalidate("news", "a", "/a")
	close(release)
	<-done

	assert.Equal(t, 1, c.Len())
}
