package search

import (
	"context"
	"strings"
)

// suggestScanLimit caps how many hits feed suggestion extraction.
const suggestScanLimit = 50

// Suggest derives completion strings for a prefix by running a capped
// search and collecting title, author, and tag values that contain the
// query case-insensitively. Results are set-deduplicated; order beyond
// insertion is not guaranteed.
func (s *Index) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || limit <= 0 {
		return []string{}, nil
	}

	result, err := s.Search(ctx, Params{
		Query:         prefix,
		Limit:         suggestScanLimit,
		IncludeFacets: false,
		Highlight:     false,
	})
	if err != nil {
		return nil, err
	}

	lowered := strings.ToLower(prefix)
	seen := make(map[string]struct{})
	suggestions := make([]string, 0, limit)

	add := func(candidate string) {
		if len(suggestions) >= limit {
			return
		}
		if candidate == "" || !strings.Contains(strings.ToLower(candidate), lowered) {
			return
		}
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		suggestions = append(suggestions, candidate)
	}

	for _, hit := range result.Hits {
		add(hit.Title)
		add(hit.Author)
		for _, tag := range hit.Tags {
			add(tag)
		}
		if len(suggestions) >= limit {
			break
		}
	}

	return suggestions, nil
}
