package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by the server
const EnvPrefix = "LOUNGE_MCP"

// siteIDPattern restricts site identifiers to names usable as directory names
var siteIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// IndexSettings configuration for the per-site content repository indexes
type IndexSettings struct {
	BaseDir        string        `mapstructure:"base_dir"`
	Sites          []string      `mapstructure:"sites"`
	InMemory       bool          `mapstructure:"in_memory"`
	MaxResults     int           `mapstructure:"max_results"`
	CacheSize      int           `mapstructure:"cache_size"`
	LockTimeout    time.Duration `mapstructure:"lock_timeout"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
}

// Settings application settings
type Settings struct {
	Transport string        `mapstructure:"transport"`
	Host      string        `mapstructure:"host"`
	Port      int           `mapstructure:"port"`
	Index     IndexSettings `mapstructure:"index"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)

	v.SetDefault("index.base_dir", defaultIndexBaseDir())
	v.SetDefault("index.in_memory", false)
	v.SetDefault("index.max_results", 20)
	v.SetDefault("index.cache_size", 4096)
	v.SetDefault("index.lock_timeout", 60*time.Second)
	v.SetDefault("index.metrics_enabled", true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	indexKeys := []string{"base_dir", "sites", "in_memory", "max_results", "cache_size", "lock_timeout", "metrics_enabled"}
	for _, key := range indexKeys {
		_ = v.BindEnv("index."+key, indexEnvVar(key))
	}

	if flags != nil {
		_ = v.BindPFlag("transport", flags.Lookup("transport"))
		_ = v.BindPFlag("host", flags.Lookup("host"))
		_ = v.BindPFlag("port", flags.Lookup("port"))
		for _, key := range indexKeys {
			_ = v.BindPFlag("index."+key, flags.Lookup("index-"+strings.ReplaceAll(key, "_", "-")))
		}
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// A comma separated env var arrives as a single element
	if sitesEnv := os.Getenv(indexEnvVar("sites")); sitesEnv != "" {
		if len(settings.Index.Sites) == 0 || (len(settings.Index.Sites) == 1 && strings.Contains(settings.Index.Sites[0], ",")) {
			settings.Index.Sites = strings.Split(sitesEnv, ",")
		}
	}
	settings.Index.Sites = normalizeSites(settings.Index.Sites)
	settings.Index.BaseDir = expandHomeDir(settings.Index.BaseDir)

	return &settings, nil
}

func indexEnvVar(key string) string {
	return EnvPrefix + "_INDEX_" + strings.ToUpper(key)
}

// defaultIndexBaseDir returns the default base directory for site indexes
func defaultIndexBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lounge-mcp"
	}
	return filepath.Join(home, ".lounge-mcp")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// normalizeSites trims site identifiers and drops blanks and duplicates
func normalizeSites(sites []string) []string {
	var result []string
	seen := make(map[string]bool)
	for _, s := range sites {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}

// ValidateSettings checks the settings for invalid or conflicting values.
func ValidateSettings(s *Settings) error {
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	return validateIndexSettings(&s.Index)
}

// validateIndexSettings validates the index configuration
func validateIndexSettings(idx *IndexSettings) error {
	if len(idx.Sites) == 0 {
		return errors.New("index-sites requires at least one site")
	}
	for _, site := range idx.Sites {
		if !siteIDPattern.MatchString(site) {
			return fmt.Errorf("invalid site identifier: %q", site)
		}
	}

	if idx.BaseDir == "" && !idx.InMemory {
		return errors.New("index-base-dir cannot be empty")
	}

	if idx.MaxResults <= 0 {
		return errors.New("index-max-results must be positive")
	}

	if idx.CacheSize < 0 {
		return errors.New("index-cache-size cannot be negative")
	}

	if idx.LockTimeout <= 0 {
		return errors.New("index-lock-timeout must be positive")
	}

	return nil
}
