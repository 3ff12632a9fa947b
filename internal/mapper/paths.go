package mapper

import "strings"

// NormalizePath trims the path, collapses repeated slashes, forces a leading
// slash and strips a trailing one (except for the root). Paths are stored,
// looked up and moved in this form.
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	segments := Segments(path)
	if len(segments) == 0 {
		return "/"
	}
	return "/" + strings.Join(segments, "/")
}

// Segments returns the non-empty segments of a path.
func Segments(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Depth returns the number of segments of a path.
func Depth(path string) int {
	return len(Segments(path))
}

// PathTokens returns the hierarchical tokens of a path: every character
// prefix of the full path, then for each segment the bare segment, "/"
// followed by every character prefix of the segment, and "/segment/".
// Duplicates are dropped.
func PathTokens(path string) []string {
	if path == "" {
		return nil
	}
	seen := make(map[string]bool)
	var tokens []string
	add := func(t string) {
		if !seen[t] {
			seen[t] = true
			tokens = append(tokens, t)
		}
	}

	for i := range path {
		if i > 0 {
			add(path[:i])
		}
	}
	add(path)

	for _, s := range strings.Split(path, "/") {
		if s == "" {
			continue
		}
		add(s)
		for i := range s {
			if i > 0 {
				add("/" + s[:i])
			}
		}
		add("/" + s)
		add("/" + s + "/")
	}
	return tokens
}
