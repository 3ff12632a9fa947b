package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("index-base-dir", "d", "", "Directory holding the site indexes")
	flags.StringSliceP("index-sites", "s", nil, "Site identifiers to open indexes for (comma-separated)")
	flags.Bool("index-in-memory", false, "Keep the indexes in memory instead of on disk")
	flags.Int("index-max-results", 0, "Default maximum number of search results")
	flags.Int("index-cache-size", 0, "Number of resolved resource URIs to cache, 0 disables the cache")
	flags.Duration("index-lock-timeout", 0, "Maximum time to wait for another instance to open the indexes")
	flags.Bool("index-metrics-enabled", false, "Expose Prometheus metrics on /metrics")
}
