package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SearchService provides retrieval to external actors.
type SearchService interface {
	// Search runs the channels selected by opts.Mode and returns at most
	// the resolved match count of results. Backend failures degrade the
	// result rather than returning an error; errors are reserved for
	// invalid input.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// FormatContext renders results as a context block for a language model
	// and records resolved deep links into citations when it is non-nil.
	FormatContext(ctx context.Context, results []domain.SearchResult, citations domain.CitationMap) string
}
