package config

import (
	"context"
	"log/slog"
)

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == "sse" {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
		logger.InfoContext(ctx, "Config: index.metrics_enabled", "value", s.Index.MetricsEnabled)
	}

	logger.InfoContext(ctx, "Config: index.sites", "value", s.Index.Sites)
	logger.InfoContext(ctx, "Config: index.in_memory", "value", s.Index.InMemory)
	if !s.Index.InMemory {
		logger.InfoContext(ctx, "Config: index.base_dir", "value", s.Index.BaseDir)
		logger.InfoContext(ctx, "Config: index.lock_timeout", "value", s.Index.LockTimeout)
	}
	logger.InfoContext(ctx, "Config: index.max_results", "value", s.Index.MaxResults)
	logger.InfoContext(ctx, "Config: index.cache_size", "value", s.Index.CacheSize)
}

// IndexSettingsLogValue returns a slog.Value for IndexSettings
func IndexSettingsLogValue(s IndexSettings) slog.Value {
	return slog.GroupValue(
		slog.String("base_dir", s.BaseDir),
		slog.Any("sites", s.Sites),
		slog.Bool("in_memory", s.InMemory),
		slog.Int("max_results", s.MaxResults),
		slog.Int("cache_size", s.CacheSize),
		slog.Duration("lock_timeout", s.LockTimeout),
		slog.Bool("metrics_enabled", s.MetricsEnabled),
	)
}

// SettingsLogValue returns a slog.Value for Settings
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.Any("index", IndexSettingsLogValue(s.Index)),
	)
}
