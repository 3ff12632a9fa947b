package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-lounge-server/internal/repository"
	"github.com/sha1n/mcp-lounge-server/internal/searchindex"
)

// SuggestArgument defines suggest_terms parameters.
type SuggestArgument struct {
	Site            string `json:"site" jsonschema:"site identifier"`
	Dictionary      string `json:"dictionary" jsonschema:"dictionary to complete from: fulltext, text, subject or series"`
	Seed            string `json:"seed" jsonschema:"text to complete, the last word is completed"`
	Count           int    `json:"count,omitempty" jsonschema:"maximum number of suggestions"`
	OnlyMorePopular bool   `json:"only_more_popular,omitempty" jsonschema:"only suggest terms more frequent than the seed word"`
	Collate         bool   `json:"collate,omitempty" jsonschema:"return whole phrases instead of single words"`
}

// SuggestHandler handles the suggest_terms MCP tool.
type SuggestHandler struct {
	service *repository.Service
}

// NewSuggestHandler creates a new suggest handler.
func NewSuggestHandler(service *repository.Service) *SuggestHandler {
	return &SuggestHandler{service: service}
}

// Handle returns completions of the seed.
func (h *SuggestHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SuggestArgument) (*mcp.CallToolResult, any, error) {
	idx, res := siteIndex(h.service, args.Site)
	if res != nil {
		return res, nil, nil
	}

	suggestions, err := idx.Suggest(ctx, args.Dictionary, args.Seed, args.OnlyMorePopular, args.Count, args.Collate)
	if err != nil {
		return failure("Suggest", err), nil, nil
	}
	if len(suggestions) == 0 {
		return textResult(fmt.Sprintf("No suggestions for %q", args.Seed)), nil, nil
	}

	var sb strings.Builder
	for _, s := range suggestions {
		sb.WriteString("- ")
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	return textResult(sb.String()), nil, nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *SuggestHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name: "suggest_terms",
		Description: "Suggest completions of a word from the terms indexed for a site. Dictionaries: " +
			strings.Join(searchindex.SuggestDictionaries(), ", "),
		Annotations: readOnly(),
	}
}
