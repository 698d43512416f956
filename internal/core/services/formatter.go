package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// NoResultsMessage is the context given to the model when retrieval finds nothing.
const NoResultsMessage = "No relevant information found in the knowledge base."

// PageResolver produces a deep link for a page of a source document.
type PageResolver interface {
	Resolve(ctx context.Context, source string, page int) (string, bool)
}

// ResponseFormatter renders search results as a context block for a
// language model.
type ResponseFormatter struct {
	resolver PageResolver
}

// NewResponseFormatter creates a formatter. resolver may be nil, in which
// case no deep links are added.
func NewResponseFormatter(resolver PageResolver) *ResponseFormatter {
	return &ResponseFormatter{resolver: resolver}
}

// Format renders results in order. For every page of every passage it
// resolves a deep link and records it in citations when citations is
// non-nil. A source that fails to resolve is not retried for its other
// pages within the same call.
func (f *ResponseFormatter) Format(
	ctx context.Context, results []domain.SearchResult, citations domain.CitationMap,
) string {
	if len(results) == 0 {
		return NoResultsMessage
	}

	unresolved := make(map[string]bool)
	resolve := func(source string, page int) (string, bool) {
		if f.resolver == nil || unresolved[source] {
			return "", false
		}
		url, ok := f.resolver.Resolve(ctx, source, page)
		if !ok {
			unresolved[source] = true
		}
		return url, ok
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d relevant documents:\n", len(results))

	for i, r := range results {
		var firstURL string
		for j, page := range r.Metadata.PageNumbers {
			url, ok := resolve(r.DocumentSource, page)
			if !ok {
				break
			}
			if j == 0 {
				firstURL = url
			}
			citations.Record(r.DocumentSource, page, url)
		}

		fmt.Fprintf(&b, "\n--- Document %d: %s", i+1, titleOf(r))
		if location := locationOf(r); location != "" {
			fmt.Fprintf(&b, " (%s)", location)
		}
		fmt.Fprintf(&b, " (relevance: %.4f) ---\n", r.Score)
		if firstURL != "" {
			fmt.Fprintf(&b, "[Read: %s]\n", firstURL)
		}
		b.WriteString(r.Content)
		b.WriteString("\n")
	}

	return b.String()
}

func titleOf(r domain.SearchResult) string {
	if r.DocumentTitle != "" {
		return r.DocumentTitle
	}
	if r.DocumentSource != "" {
		return r.DocumentSource
	}
	return "Untitled"
}

// locationOf renders "source: FILE, pages N-M" from whatever is known.
func locationOf(r domain.SearchResult) string {
	var parts []string
	if r.DocumentSource != "" {
		parts = append(parts, "source: "+r.DocumentSource)
	}
	if label := r.Metadata.PageLabel(); label != "" {
		parts = append(parts, label)
	}
	return strings.Join(parts, ", ")
}
