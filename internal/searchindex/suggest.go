package searchindex

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sha1n/mcp-lounge-server/internal/domain"
	"github.com/sha1n/mcp-lounge-server/internal/metadata"
)

// DefaultSuggestCount is the number of suggestions returned when the
// requested count is not positive.
const DefaultSuggestCount = 10

// suggestDictionaries maps the dictionaries that can be suggested from to
// whether their terms are analyzed (lowercased).
var suggestDictionaries = map[string]bool{
	metadata.FieldFulltext: true,
	metadata.FieldText:     true,
	metadata.FieldSubject:  false,
	metadata.FieldSeries:   false,
}

// SuggestDictionaries returns the names of the supported dictionaries.
func SuggestDictionaries() []string {
	names := make([]string, 0, len(suggestDictionaries))
	for n := range suggestDictionaries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type suggestion struct {
	term  string
	count uint64
}

// Suggest completes the last word of seed with terms of the dictionary
// field, most frequent first. With onlyMorePopular, only terms more
// frequent than the seed word are returned. With collate, the preceding
// seed words are prepended to every suggestion.
func (e *Engine) Suggest(ctx context.Context, dictionary, seed string, onlyMorePopular bool, count int, collate bool) ([]string, error) {
	dictionary = strings.TrimSpace(dictionary)
	if dictionary == "" {
		return nil, domain.InvalidArgument("dictionary cannot be blank")
	}
	words := strings.Fields(seed)
	if len(words) == 0 {
		return nil, domain.InvalidArgument("seed cannot be blank")
	}
	analyzed, ok := suggestDictionaries[dictionary]
	if !ok {
		return nil, fmt.Errorf("dictionary %q: %w", dictionary, domain.ErrNotSupported)
	}
	if count <= 0 {
		count = DefaultSuggestCount
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if err := e.ready(); err != nil {
		return nil, err
	}

	last := words[len(words)-1]
	if analyzed {
		last = strings.ToLower(last)
	}

	dict, err := e.index.FieldDictPrefix(dictionary, []byte(last))
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary %s: %w", dictionary, err)
	}
	defer func() {
		_ = dict.Close()
	}()

	var seedCount uint64
	var candidates []suggestion
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := dict.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to read dictionary %s: %w", dictionary, err)
		}
		if entry == nil {
			break
		}
		if entry.Term == last {
			seedCount = entry.Count
			continue
		}
		candidates = append(candidates, suggestion{term: entry.Term, count: entry.Count})
	}

	if onlyMorePopular {
		filtered := candidates[:0]
		for _, c := range candidates {
			if c.count > seedCount {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].term < candidates[j].term
	})
	if len(candidates) > count {
		candidates = candidates[:count]
	}

	prefix := ""
	if collate && len(words) > 1 {
		prefix = strings.Join(words[:len(words)-1], " ") + " "
	}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, prefix+c.term)
	}
	return out, nil
}
