package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/sha1n/mcp-lounge-server/internal/repository"
)

// Sort dimensions accepted by find_resources.
const (
	SortRelevance = "relevance"
	SortPublished = "published"
	SortModified  = "modified"
	SortCreated   = "created"
)

// FindArgument defines find_resources parameters.
type FindArgument struct {
	Site             string   `json:"site" jsonschema:"site identifier"`
	Text             string   `json:"text,omitempty" jsonschema:"free text matched against all searchable fields"`
	Fuzzy            bool     `json:"fuzzy,omitempty" jsonschema:"tolerate one typo per word"`
	Path             string   `json:"path,omitempty" jsonschema:"exact resource path"`
	PathPrefix       string   `json:"path_prefix,omitempty" jsonschema:"path the resources must start with, e.g. /news/"`
	Types            []string `json:"types,omitempty" jsonschema:"resource types: page, file, image, movie"`
	Subjects         []string `json:"subjects,omitempty" jsonschema:"resources tagged with any of these subjects"`
	Version          *int64   `json:"version,omitempty" jsonschema:"exact version, 0 is live and 1 is work"`
	PreferredVersion *int64   `json:"preferred_version,omitempty" jsonschema:"version to prefer, other versions only show when it is missing"`
	Sort             string   `json:"sort,omitempty" jsonschema:"relevance, published, modified or created"`
	Ascending        bool     `json:"ascending,omitempty" jsonschema:"sort oldest first"`
	Offset           int      `json:"offset,omitempty" jsonschema:"number of hits to skip"`
	Limit            int      `json:"limit,omitempty" jsonschema:"maximum number of hits, defaults to the server setting"`
}

// FindHandler handles the find_resources MCP tool.
type FindHandler struct {
	service *repository.Service
}

// NewFindHandler creates a new find handler.
func NewFindHandler(service *repository.Service) *FindHandler {
	return &FindHandler{service: service}
}

// Handle runs the search and returns formatted results.
func (h *FindHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FindArgument) (*mcp.CallToolResult, any, error) {
	idx, res := siteIndex(h.service, args.Site)
	if res != nil {
		return res, nil, nil
	}
	if args.Offset < 0 || args.Limit < 0 {
		return errorResult("Offset and limit cannot be negative"), nil, nil
	}
	for _, t := range args.Types {
		if !domain.IsResourceType(t) {
			return errorResult("Unknown resource type %q, expected one of %s", t, strings.Join(domain.ResourceTypes(), ", ")), nil, nil
		}
	}

	q, err := h.buildQuery(args)
	if err != nil {
		return errorResult("Invalid arguments: %s", err), nil, nil
	}

	result, err := idx.Find(ctx, q)
	if err != nil {
		return failure("Search", err), nil, nil
	}
	return formatFindResults(result), nil, nil
}

// buildQuery converts the tool arguments into a search query.
func (h *FindHandler) buildQuery(args FindArgument) (*domain.SearchQuery, error) {
	q := domain.NewSearchQuery(args.Site).
		WithTypes(args.Types...).
		WithSubject(args.Subjects...).
		WithOffset(args.Offset)

	limit := args.Limit
	if limit == 0 {
		limit = h.service.GetSettings().MaxResults
	}
	q.WithLimit(limit)

	if text := strings.TrimSpace(args.Text); text != "" {
		q.WithFulltext(text)
		if args.Fuzzy {
			q.WithFuzzyMatching()
		}
	}
	if args.Path != "" {
		q.WithPath(args.Path)
	}
	if args.PathPrefix != "" {
		q.WithPathPrefix(args.PathPrefix)
	}
	if args.Version != nil {
		q.WithVersion(*args.Version)
	}
	if args.PreferredVersion != nil {
		q.WithPreferredVersion(*args.PreferredVersion)
	}

	order := domain.OrderDescending
	if args.Ascending {
		order = domain.OrderAscending
	}
	switch args.Sort {
	case "", SortRelevance:
	case SortPublished:
		q.SortByPublishingDate(order)
	case SortModified:
		q.SortByModificationDate(order)
	case SortCreated:
		q.SortByCreationDate(order)
	default:
		return nil, fmt.Errorf("unknown sort %q, expected relevance, published, modified or created", args.Sort)
	}
	return q, nil
}

// formatFindResults formats search results for MCP response.
func formatFindResults(result *domain.SearchResult) *mcp.CallToolResult {
	if result.Hits == 0 {
		return textResult("No resources found")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d resources:\n\n", result.Hits)

	for i, item := range result.Items {
		fmt.Fprintf(&sb, "### %d. %s\n", result.Offset+i+1, item.URI.Path)
		fmt.Fprintf(&sb, "- **ID**: %s\n", item.URI.Identifier)
		fmt.Fprintf(&sb, "- **Type**: %s\n", item.URI.Type)
		fmt.Fprintf(&sb, "- **Version**: %s\n", versionName(item.URI.Version))
		if title := preferredTitle(item.Titles); title != "" {
			fmt.Fprintf(&sb, "- **Title**: %s\n", title)
		}
		if item.Template != "" {
			fmt.Fprintf(&sb, "- **Template**: %s\n", item.Template)
		}
		if item.Filename != "" {
			fmt.Fprintf(&sb, "- **File**: %s (%s)\n", item.Filename, item.MimeType)
		}
		if !item.Modified.IsZero() {
			fmt.Fprintf(&sb, "- **Modified**: %s\n", item.Modified.Format("2006-01-02 15:04"))
		}
		fmt.Fprintf(&sb, "- **Score**: %.4f\n\n", item.Score)
	}

	shown := uint64(result.Offset + len(result.Items))
	if result.Hits > shown {
		fmt.Fprintf(&sb, "... and %d more results\n", result.Hits-shown)
	}
	return textResult(sb.String())
}

// preferredTitle returns the English title, or the first one by language.
func preferredTitle(titles map[string]string) string {
	if t, ok := titles["en"]; ok {
		return t
	}
	langs := make([]string, 0, len(titles))
	for l := range titles {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	if len(langs) == 0 {
		return ""
	}
	return titles[langs[0]]
}

// GetToolDefinition returns the MCP tool definition.
func (h *FindHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "find_resources",
		Description: "Search the resources of a site by text, path, type, subject and version",
		Annotations: readOnly(),
	}
}
