package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/sha1n/mcp-lounge-server/internal/config"
	"github.com/sha1n/mcp-lounge-server/internal/repository"
	"github.com/spf13/pflag"
)

// PrintStatus opens the configured site indexes and writes their status to
// w as indented JSON. Sites that fail to open are reported, not returned
// as an error.
func PrintStatus(ctx context.Context, flags *pflag.FlagSet, w io.Writer) error {
	settings, err := config.LoadSettingsWithFlags(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := config.ValidateSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	svc, err := repository.NewService(&settings.Index, nil)
	if err != nil {
		return fmt.Errorf("failed to create index service: %w", err)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			slog.Error("Failed to close index service", "error", err)
		}
	}()

	if err := svc.Initialize(ctx); err != nil {
		slog.Warn("Index initialization failed", "error", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(svc.Status(ctx))
}
