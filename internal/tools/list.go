package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/sha1n/mcp-lounge-server/internal/repository"
)

// ListArgument defines list_children parameters.
type ListArgument struct {
	Site    string `json:"site" jsonschema:"site identifier"`
	Root    string `json:"root" jsonschema:"path to list the children of"`
	Depth   *int   `json:"depth,omitempty" jsonschema:"levels below the direct children to include, 0 lists direct children only, negative is unlimited"`
	Version *int64 `json:"version,omitempty" jsonschema:"only list this version, all versions when omitted"`
}

// ListHandler handles the list_children MCP tool.
type ListHandler struct {
	service *repository.Service
}

// NewListHandler creates a new list handler.
func NewListHandler(service *repository.Service) *ListHandler {
	return &ListHandler{service: service}
}

// Handle lists the resources below a path.
func (h *ListHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ListArgument) (*mcp.CallToolResult, any, error) {
	idx, res := siteIndex(h.service, args.Site)
	if res != nil {
		return res, nil, nil
	}
	if strings.TrimSpace(args.Root) == "" {
		return errorResult("Root cannot be empty"), nil, nil
	}

	depth := 0
	if args.Depth != nil {
		depth = *args.Depth
	}
	version := domain.AnyVersion
	if args.Version != nil {
		version = *args.Version
	}

	children, err := idx.List(ctx, domain.NewURI(args.Site, args.Root), depth, version)
	if err != nil {
		return failure("Listing", err), nil, nil
	}
	if len(children) == 0 {
		return textResult(fmt.Sprintf("No resources below %s", args.Root)), nil, nil
	}

	limit := h.service.GetSettings().MaxResults
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d resources below %s:\n", len(children), args.Root)
	for i, uri := range children {
		if i == limit {
			fmt.Fprintf(&sb, "... and %d more\n", len(children)-limit)
			break
		}
		fmt.Fprintf(&sb, "- %s (%s, %s, id %s)\n", uri.Path, uri.Type, versionName(uri.Version), uri.Identifier)
	}
	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *ListHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_children",
		Description: "List the resources below a path of a site, bounded by depth",
		Annotations: readOnly(),
	}
}
