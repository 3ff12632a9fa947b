package repository

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

const (
	// ManifestVersion is the current schema version
	ManifestVersion = 1

	// ManifestFilename is the default manifest filename
	ManifestFilename = "manifest.json"
)

// Manifest records the state of every site index opened from a base
// directory.
type Manifest struct {
	Version  int                  `json:"version"`
	LastOpen time.Time            `json:"last_open"`
	Sites    map[string]SiteState `json:"sites"`
	mu       sync.RWMutex         `json:"-"`
}

// SiteState is the state of one site index.
type SiteState struct {
	IndexVersion int       `json:"index_version"`
	NeedsReindex bool      `json:"needs_reindex"`
	OpenedAt     time.Time `json:"opened_at"`
	Error        string    `json:"error,omitempty"`
}

// NewManifest creates a new empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Version: ManifestVersion,
		Sites:   make(map[string]SiteState),
	}
}

// LoadManifest reads a manifest from disk, or creates a new one if it doesn't exist.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Sites == nil {
		manifest.Sites = make(map[string]SiteState)
	}
	return &manifest, nil
}

// Save writes the manifest to disk atomically.
func (m *Manifest) Save(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename manifest file: %w", err)
	}
	return nil
}

// SiteState returns the state of a site and whether it is recorded.
func (m *Manifest) SiteState(site string) (SiteState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.Sites[site]
	return state, ok
}

// SetSiteState updates the state of a site.
func (m *Manifest) SetSiteState(site string, state SiteState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sites[site] = state
}

// SetSiteError records a failure to open a site, keeping its last known
// index state.
func (m *Manifest) SetSiteError(site string, err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.Sites[site]
	state.Error = err
	m.Sites[site] = state
}

// SiteIDs returns the recorded sites in sorted order.
func (m *Manifest) SiteIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.Sites))
}

// RemoveStaleSites removes sites not in the given list and returns them.
func (m *Manifest) RemoveStaleSites(sites []string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for site := range m.Sites {
		if !slices.Contains(sites, site) {
			removed = append(removed, site)
		}
	}
	for _, site := range removed {
		delete(m.Sites, site)
	}
	slices.Sort(removed)
	return removed
}

// SitesWithErrors returns the error of every site that failed to open.
func (m *Manifest) SitesWithErrors() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string)
	for site, state := range m.Sites {
		if state.Error != "" {
			result[site] = state.Error
		}
	}
	return result
}

// UpdateLastOpen updates the last open timestamp.
func (m *Manifest) UpdateLastOpen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastOpen = time.Now()
}
