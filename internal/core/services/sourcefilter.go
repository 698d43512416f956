package services

import (
	"fmt"
	"regexp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// sourceFilterOverFetch widens channel requests when a source filter may
// discard candidates.
const sourceFilterOverFetch = 3

// compileSourceFilter returns nil for an empty pattern.
func compileSourceFilter(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("source filter %q: %v: %w", pattern, err, domain.ErrInvalidInput)
	}
	return re, nil
}

// applySourceFilter keeps results whose document source matches re,
// preserving order. The match is unanchored unless the pattern anchors itself.
func applySourceFilter(results []domain.SearchResult, re *regexp.Regexp) []domain.SearchResult {
	if re == nil {
		return results
	}
	kept := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		if re.MatchString(r.DocumentSource) {
			kept = append(kept, r)
		}
	}
	return kept
}

func truncate(results []domain.SearchResult, n int) []domain.SearchResult {
	if n >= 0 && len(results) > n {
		return results[:n]
	}
	return results
}
