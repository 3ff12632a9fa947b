package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-lounge-server/internal/repository"
)

// StatusArgument defines index_status parameters.
type StatusArgument struct{}

// StatusHandler handles the index_status MCP tool.
type StatusHandler struct {
	service *repository.Service
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(service *repository.Service) *StatusHandler {
	return &StatusHandler{service: service}
}

// Handle reports the state of every site index.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgument) (*mcp.CallToolResult, any, error) {
	var sb strings.Builder
	for _, st := range h.service.Status(ctx) {
		fmt.Fprintf(&sb, "### %s\n", st.Site)
		if !st.Ready {
			sb.WriteString("- **State**: unavailable\n")
			if st.Error != "" {
				fmt.Fprintf(&sb, "- **Error**: %s\n", st.Error)
			}
			sb.WriteString("\n")
			continue
		}
		sb.WriteString("- **State**: ready\n")
		fmt.Fprintf(&sb, "- **Resources**: %d\n", st.Resources)
		fmt.Fprintf(&sb, "- **Revisions**: %d\n", st.Revisions)
		fmt.Fprintf(&sb, "- **Index version**: %d\n", st.IndexVersion)
		if st.NeedsReindex {
			sb.WriteString("- **Needs reindex**: yes\n")
		}
		if st.Error != "" {
			fmt.Fprintf(&sb, "- **Error**: %s\n", st.Error)
		}
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return textResult("No sites configured"), nil, nil
	}
	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *StatusHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "index_status",
		Description: "Report readiness, document counts and schema version of every site index",
		Annotations: readOnly(),
	}
}
