package searchindex

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/sha1n/mcp-lounge-server/internal/metadata"
)

// Deserializer turns the stored fields of a search hit into a result item.
type Deserializer interface {
	Deserialize(id string, score float64, fields map[string]any) (domain.SearchResultItem, error)
}

// DeserializerFunc adapts a function to the Deserializer interface.
type DeserializerFunc func(id string, score float64, fields map[string]any) (domain.SearchResultItem, error)

func (f DeserializerFunc) Deserialize(id string, score float64, fields map[string]any) (domain.SearchResultItem, error) {
	return f(id, score, fields)
}

// Registry maps document types to deserializers. It is passed to the engine
// at construction.
type Registry struct {
	mu            sync.RWMutex
	deserializers map[string]Deserializer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{deserializers: make(map[string]Deserializer)}
}

// DefaultRegistry creates a registry with deserializers for every resource
// type.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range domain.ResourceTypes() {
		r.Register(t, ResourceDeserializer(t))
	}
	return r
}

// Register sets the deserializer of a document type, replacing any
// previous one.
func (r *Registry) Register(docType string, d Deserializer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deserializers[docType] = d
}

// Lookup returns the deserializer of a document type.
func (r *Registry) Lookup(docType string) (Deserializer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.deserializers[docType]
	return d, ok
}

// Types returns the registered document types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.deserializers))
	for t := range r.deserializers {
		types = append(types, t)
	}
	return types
}

// ResourceDeserializer builds items for documents of the given resource
// type. Pages carry their template, other types their file name and MIME
// type.
func ResourceDeserializer(docType string) Deserializer {
	return DeserializerFunc(func(id string, score float64, fields map[string]any) (domain.SearchResultItem, error) {
		c, err := metadata.FromStored(fields)
		if err != nil {
			return domain.SearchResultItem{}, fmt.Errorf("failed to read document %s: %w", id, err)
		}

		item := domain.SearchResultItem{
			ID:       id,
			Score:    score,
			Metadata: c.Entries(),
			URI: domain.ResourceURI{
				Identifier: firstString(c, metadata.FieldResourceID),
				Path:       firstString(c, metadata.FieldPath),
				Type:       docType,
			},
		}
		if v := firstString(c, metadata.FieldVersion); v != "" {
			version, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return domain.SearchResultItem{}, fmt.Errorf("invalid version of document %s: %w", id, err)
			}
			item.URI.Version = version
		}
		if v, ok := c.First(metadata.FieldModified); ok {
			if t, ok := v.(time.Time); ok {
				item.Modified = t
			}
		}

		titlePrefix := strings.TrimSuffix(metadata.FieldTitleLocalized, "%s")
		for _, name := range c.Names() {
			lang, ok := strings.CutPrefix(name, titlePrefix)
			if !ok || lang == "" {
				continue
			}
			if item.Titles == nil {
				item.Titles = make(map[string]string)
			}
			item.Titles[lang] = firstString(c, name)
		}

		if docType == domain.TypePage {
			item.Template = firstString(c, metadata.FieldTemplate)
		} else {
			item.Filename = firstString(c, metadata.FieldContentFilename)
			item.MimeType = firstString(c, metadata.FieldContentMimetype)
		}
		return item, nil
	})
}

func firstString(c *metadata.Collection, name string) string {
	if s := c.Strings(name); len(s) > 0 {
		return s[0]
	}
	return ""
}
