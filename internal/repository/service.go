package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/sha1n/mcp-lounge-server/internal/config"
	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/sha1n/mcp-lounge-server/internal/metrics"
	"github.com/sha1n/mcp-lounge-server/internal/searchindex"
	"golang.org/x/sync/errgroup"
)

const (
	// LockFilename is the name of the schema installation lock file
	LockFilename = "open.lock"

	// MaxParallelOpens is the maximum number of site indexes opened concurrently
	MaxParallelOpens = 4
)

// ErrUnknownSite indicates a site that is not configured.
var ErrUnknownSite = fmt.Errorf("%w: unknown site", domain.ErrInvalidArgument)

// SiteStatus describes the index of one site.
type SiteStatus struct {
	Site         string `json:"site"`
	Ready        bool   `json:"ready"`
	IndexVersion int    `json:"index_version"`
	NeedsReindex bool   `json:"needs_reindex"`
	Resources    uint64 `json:"resources"`
	Revisions    uint64 `json:"revisions"`
	Error        string `json:"error,omitempty"`
}

// Service opens and owns the content repository index of every
// configured site.
type Service struct {
	settings *config.IndexSettings
	metrics  *metrics.Metrics
	cache    *ResolverCache
	manifest *Manifest
	lock     *FileLock
	engines  map[string]*searchindex.Engine
	indexes  map[string]*Index
	ready    bool
	closed   bool
	mu       sync.RWMutex
}

// NewService creates a new index service. m may be nil.
func NewService(settings *config.IndexSettings, m *metrics.Metrics) (*Service, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}

	cache, err := NewResolverCache(settings.CacheSize)
	if err != nil {
		return nil, err
	}

	s := &Service{
		settings: settings,
		metrics:  m,
		cache:    cache,
		manifest: NewManifest(),
		engines:  make(map[string]*searchindex.Engine),
		indexes:  make(map[string]*Index),
	}
	if settings.InMemory {
		return s, nil
	}

	if err := os.MkdirAll(settings.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	manifest, err := LoadManifest(s.manifestPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	s.manifest = manifest
	s.lock = NewFileLock(filepath.Join(settings.BaseDir, LockFilename))
	return s, nil
}

// Initialize opens every site index. On disk, the first process to take
// the lock installs missing indexes and schemas while other processes wait
// for it before opening theirs.
func (s *Service) Initialize(ctx context.Context) error {
	if s.lock == nil {
		return s.OpenAll(ctx)
	}

	acquired, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !acquired {
		slog.Info("Another instance is opening the indexes, waiting for completion")
		if err := s.lock.LockWithContext(ctx, s.settings.LockTimeout); err != nil {
			if ctx.Err() != nil {
				return err
			}
			slog.Warn("Timeout waiting for index lock, opening anyway", "error", err)
		}
	} else {
		slog.Info("Acquired index lock")
	}

	openErr := s.OpenAll(ctx)
	if err := s.saveManifest(); err != nil {
		slog.Error("Failed to save manifest", "error", err)
	}
	if err := s.lock.Unlock(); err != nil {
		slog.Error("Failed to unlock", "error", err)
	}
	return openErr
}

// OpenAll opens the index of every configured site. Sites that fail to
// open are recorded in the manifest; the service is ready when at least
// one site is open.
func (s *Service) OpenAll(ctx context.Context) error {
	sites := s.settings.Sites
	if len(sites) == 0 {
		return errors.New("no sites configured")
	}

	for _, site := range s.manifest.RemoveStaleSites(sites) {
		slog.Info("Dropping stale site from manifest", "site", site)
	}

	var mu sync.Mutex
	opened := make(map[string]*searchindex.Engine, len(sites))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxParallelOpens)
	for _, site := range sites {
		g.Go(func() error {
			engine, err := s.openSite(gctx, site)
			if err != nil {
				slog.Error("Failed to open site index", "site", site, "error", err)
				s.manifest.SetSiteError(site, err.Error())
				return nil
			}
			mu.Lock()
			opened[site] = engine
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	s.manifest.UpdateLastOpen()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		for _, engine := range opened {
			_ = engine.Close()
		}
		return errors.New("service is closed")
	}
	for site, engine := range opened {
		s.engines[site] = engine
		s.indexes[site] = NewIndex(engine, s.cache, s.metrics)
	}
	s.ready = len(s.indexes) > 0

	if !s.ready {
		return fmt.Errorf("none of %d site indexes could be opened", len(sites))
	}
	slog.Info("Indexes ready", "count", len(s.indexes))
	return nil
}

func (s *Service) openSite(ctx context.Context, site string) (*searchindex.Engine, error) {
	engine := searchindex.NewEngine(site, searchindex.Options{
		Dir:      s.settings.BaseDir,
		InMemory: s.settings.InMemory,
	})
	if err := engine.Open(ctx); err != nil {
		return nil, err
	}
	s.manifest.SetSiteState(site, SiteState{
		IndexVersion: engine.IndexVersion(),
		NeedsReindex: engine.NeedsReindex(),
		OpenedAt:     time.Now(),
	})
	return engine, nil
}

func (s *Service) manifestPath() string {
	return filepath.Join(s.settings.BaseDir, ManifestFilename)
}

func (s *Service) saveManifest() error {
	if s.settings.InMemory {
		return nil
	}
	return s.manifest.Save(s.manifestPath())
}

// Index returns the content repository index of a site.
func (s *Service) Index(site string) (*Index, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx, ok := s.indexes[site]; ok {
		return idx, nil
	}
	if !slices.Contains(s.settings.Sites, site) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSite, site)
	}
	return nil, fmt.Errorf("index for site %q: %w", site, domain.ErrNotReady)
}

// Sites returns the configured sites.
func (s *Service) Sites() []string {
	return slices.Clone(s.settings.Sites)
}

// IsReady returns true if at least one site index is open.
func (s *Service) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Status reports the state and document counts of every configured site
// and updates the document gauges.
func (s *Service) Status(ctx context.Context) []SiteStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SiteStatus, 0, len(s.settings.Sites))
	for _, site := range s.settings.Sites {
		st := SiteStatus{Site: site}
		if state, ok := s.manifest.SiteState(site); ok {
			st.Error = state.Error
		}

		engine, ok := s.engines[site]
		if !ok || engine.State() != searchindex.StateReady {
			out = append(out, st)
			continue
		}
		st.Ready = true
		st.IndexVersion = engine.IndexVersion()
		st.NeedsReindex = engine.NeedsReindex()

		idx := s.indexes[site]
		var err error
		if st.Resources, err = idx.GetResourceCount(ctx); err == nil {
			st.Revisions, err = idx.GetRevisionCount(ctx)
		}
		if err != nil {
			st.Error = err.Error()
		} else {
			s.metrics.SetDocuments(site, st.Resources, st.Revisions)
		}
		out = append(out, st)
	}
	return out
}

// GetSettings returns the service settings.
func (s *Service) GetSettings() *config.IndexSettings {
	return s.settings
}

// Close releases all site indexes. It is safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for site, engine := range s.engines {
		if err := engine.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close index for %s: %w", site, err))
		}
	}
	s.engines = make(map[string]*searchindex.Engine)
	s.indexes = make(map[string]*Index)
	s.ready = false
	s.closed = true
	return errors.Join(errs...)
}
