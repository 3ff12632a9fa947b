package domain

import (
	"fmt"
	"strings"
)

// Version numbers with a fixed meaning.
const (
	// LIVE is the published version of a resource.
	LIVE int64 = 0
	// WORK is the work-in-progress version of a resource.
	WORK int64 = 1
	// AnyVersion matches every version in lookups and queries.
	AnyVersion int64 = -1
)

// Resource types known to the index.
const (
	TypePage  = "page"
	TypeFile  = "file"
	TypeImage = "image"
	TypeMovie = "movie"
)

// ResourceTypes returns the resource types stored in a site index.
func ResourceTypes() []string {
	return []string{TypePage, TypeFile, TypeImage, TypeMovie}
}

// IsResourceType reports whether t is one of ResourceTypes.
func IsResourceType(t string) bool {
	switch t {
	case TypePage, TypeFile, TypeImage, TypeMovie:
		return true
	}
	return false
}

// ResourceURI addresses one version of a resource within a site.
// It is a value type: resolvers return new values rather than filling in
// the one passed by the caller.
type ResourceURI struct {
	Site       string `json:"site"`
	Identifier string `json:"id,omitempty"`
	Path       string `json:"path,omitempty"`
	Type       string `json:"type,omitempty"`
	Version    int64  `json:"version"`
}

// NewURI creates a live version URI for the given site and path.
func NewURI(site, path string) ResourceURI {
	return ResourceURI{Site: site, Path: path, Version: LIVE}
}

// UID returns the document key "<identifier>.<version>".
func (u ResourceURI) UID() string {
	return fmt.Sprintf("%s.%d", u.Identifier, u.Version)
}

// HasIdentifier reports whether the URI carries a non-blank identifier.
func (u ResourceURI) HasIdentifier() bool {
	return strings.TrimSpace(u.Identifier) != ""
}

// HasPath reports whether the URI carries a non-blank path.
func (u ResourceURI) HasPath() bool {
	return strings.TrimSpace(u.Path) != ""
}

// WithIdentifier returns a copy of u with the identifier set.
func (u ResourceURI) WithIdentifier(id string) ResourceURI {
	u.Identifier = id
	return u
}

// WithPath returns a copy of u with the path set.
func (u ResourceURI) WithPath(path string) ResourceURI {
	u.Path = path
	return u
}

// WithType returns a copy of u with the type set.
func (u ResourceURI) WithType(t string) ResourceURI {
	u.Type = t
	return u
}

// WithVersion returns a copy of u with the version set.
func (u ResourceURI) WithVersion(v int64) ResourceURI {
	u.Version = v
	return u
}

func (u ResourceURI) String() string {
	var sb strings.Builder
	sb.WriteString(u.Site)
	sb.WriteString(":")
	if u.HasPath() {
		sb.WriteString(u.Path)
	} else {
		sb.WriteString(u.Identifier)
	}
	fmt.Fprintf(&sb, "?version=%d", u.Version)
	return sb.String()
}
