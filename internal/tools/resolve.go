package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-lounge-server/internal/repository"
)

// ResolveArgument defines resolve_resource parameters.
type ResolveArgument struct {
	Site    string `json:"site" jsonschema:"site identifier"`
	ID      string `json:"id,omitempty" jsonschema:"resource identifier"`
	Path    string `json:"path,omitempty" jsonschema:"resource path"`
	Version *int64 `json:"version,omitempty" jsonschema:"version to check, defaults to live (0)"`
}

// ResolveHandler handles the resolve_resource MCP tool.
type ResolveHandler struct {
	service *repository.Service
}

// NewResolveHandler creates a new resolve handler.
func NewResolveHandler(service *repository.Service) *ResolveHandler {
	return &ResolveHandler{service: service}
}

// Handle resolves a resource by identifier or path.
func (h *ResolveHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ResolveArgument) (*mcp.CallToolResult, any, error) {
	idx, res := siteIndex(h.service, args.Site)
	if res != nil {
		return res, nil, nil
	}
	uri, res := uriArgument(args.Site, args.ID, args.Path, args.Version)
	if res != nil {
		return res, nil, nil
	}

	resolved, found, err := idx.Resolve(ctx, uri)
	if err != nil {
		return failure("Resolve", err), nil, nil
	}
	if !found {
		return textResult(fmt.Sprintf("No resource found for %s", uri)), nil, nil
	}

	exists, err := idx.Exists(ctx, resolved)
	if err != nil {
		return failure("Resolve", err), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "- **ID**: %s\n", resolved.Identifier)
	fmt.Fprintf(&sb, "- **Path**: %s\n", resolved.Path)
	fmt.Fprintf(&sb, "- **Type**: %s\n", resolved.Type)
	if exists {
		fmt.Fprintf(&sb, "- **Version**: %s exists\n", versionName(resolved.Version))
	} else {
		fmt.Fprintf(&sb, "- **Version**: %s does not exist\n", versionName(resolved.Version))
	}
	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ResolveHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "resolve_resource",
		Description: "Resolve the identifier, path and type of a resource from either its identifier or its path",
		Annotations: readOnly(),
	}
}

// RevisionsArgument defines list_revisions parameters.
type RevisionsArgument struct {
	Site string `json:"site" jsonschema:"site identifier"`
	ID   string `json:"id,omitempty" jsonschema:"resource identifier"`
	Path string `json:"path,omitempty" jsonschema:"resource path"`
}

// RevisionsHandler handles the list_revisions MCP tool.
type RevisionsHandler struct {
	service *repository.Service
}

// NewRevisionsHandler creates a new revisions handler.
func NewRevisionsHandler(service *repository.Service) *RevisionsHandler {
	return &RevisionsHandler{service: service}
}

// Handle lists the stored versions of a resource.
func (h *RevisionsHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args RevisionsArgument) (*mcp.CallToolResult, any, error) {
	idx, res := siteIndex(h.service, args.Site)
	if res != nil {
		return res, nil, nil
	}
	uri, res := uriArgument(args.Site, args.ID, args.Path, nil)
	if res != nil {
		return res, nil, nil
	}

	revisions, err := idx.GetRevisions(ctx, uri)
	if err != nil {
		return failure("Listing revisions", err), nil, nil
	}
	if len(revisions) == 0 {
		return textResult(fmt.Sprintf("No revisions found for %s", uri)), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d revisions:\n", len(revisions))
	for _, v := range revisions {
		fmt.Fprintf(&sb, "- %d (%s)\n", v, versionName(v))
	}
	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *RevisionsHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_revisions",
		Description: "List the stored versions of a resource",
		Annotations: readOnly(),
	}
}
