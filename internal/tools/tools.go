// Package tools exposes the read operations of the content repository
// index as MCP tools.
package tools

import (
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/sha1n/mcp-lounge-server/internal/repository"
)

// Register registers every index tool with an MCP server.
func Register(server *mcp.Server, service *repository.Service) {
	find := NewFindHandler(service)
	mcp.AddTool(server, find.GetToolDefinition(), find.Handle)

	resolve := NewResolveHandler(service)
	mcp.AddTool(server, resolve.GetToolDefinition(), resolve.Handle)

	revisions := NewRevisionsHandler(service)
	mcp.AddTool(server, revisions.GetToolDefinition(), revisions.Handle)

	list := NewListHandler(service)
	mcp.AddTool(server, list.GetToolDefinition(), list.Handle)

	suggest := NewSuggestHandler(service)
	mcp.AddTool(server, suggest.GetToolDefinition(), suggest.Handle)

	status := NewStatusHandler(service)
	mcp.AddTool(server, status.GetToolDefinition(), status.Handle)
}

// readOnly marks a tool that never modifies an index. Writes go through
// repository.Index only.
func readOnly() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{ReadOnlyHint: true}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
		IsError: true,
	}
}

// failure describes err in terms a caller can act on: a conflict, a bad
// request or an unavailable backend.
func failure(op string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return errorResult("%s failed: conflict: %s", op, err)
	case errors.Is(err, domain.ErrNotSupported):
		return errorResult("%s failed: not supported: %s", op, err)
	case errors.Is(err, domain.ErrInvalidArgument):
		return errorResult("%s failed: invalid request: %s", op, err)
	default:
		return errorResult("%s failed: backend unavailable: %s", op, err)
	}
}

// siteIndex returns the index of a site, or the error result to send.
func siteIndex(service *repository.Service, site string) (*repository.Index, *mcp.CallToolResult) {
	if !service.IsReady() {
		return nil, errorResult("The content repository index is not available yet. Please try again later.")
	}
	if strings.TrimSpace(site) == "" {
		return nil, errorResult("Site cannot be empty. Known sites: %s", strings.Join(service.Sites(), ", "))
	}
	idx, err := service.Index(site)
	if err != nil {
		return nil, errorResult("Site %q is not available: %s", site, err)
	}
	return idx, nil
}

// uriArgument builds the URI addressed by a tool call.
func uriArgument(site, id, path string, version *int64) (domain.ResourceURI, *mcp.CallToolResult) {
	id, path = strings.TrimSpace(id), strings.TrimSpace(path)
	if id == "" && path == "" {
		return domain.ResourceURI{}, errorResult("Either id or path is required")
	}
	uri := domain.ResourceURI{Site: site, Identifier: id, Path: path, Version: domain.LIVE}
	if version != nil {
		uri.Version = *version
	}
	return uri, nil
}

func versionName(v int64) string {
	switch v {
	case domain.LIVE:
		return "live"
	case domain.WORK:
		return "work"
	default:
		return fmt.Sprintf("revision %d", v)
	}
}
