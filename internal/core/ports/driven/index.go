package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// VectorQuery is an approximate-nearest-neighbour request.
type VectorQuery struct {
	// Embedding is the query vector.
	Embedding []float32

	// Limit is the maximum number of results.
	Limit int

	// NumCandidates is the ANN candidate pool size. Exact backends ignore it.
	NumCandidates int
}

// TextQuery is a fuzzy full-text request.
type TextQuery struct {
	// Text is the raw user query.
	Text string

	// Limit is the maximum number of results.
	Limit int

	// MaxEdits is the maximum edit distance for a fuzzy term match.
	MaxEdits int

	// PrefixLength is the number of leading characters that must match exactly.
	PrefixLength int
}

// VectorIndex retrieves chunks by embedding similarity.
// Results are ordered by similarity descending and carry the parent
// document's title and source.
type VectorIndex interface {
	Search(ctx context.Context, query VectorQuery) ([]domain.SearchResult, error)
}

// TextIndex retrieves chunks by fuzzy full-text relevance.
// Results are ordered by relevance descending and carry the parent
// document's title and source.
type TextIndex interface {
	Search(ctx context.Context, query TextQuery) ([]domain.SearchResult, error)
}

// DocumentWriter loads documents and chunks into a backend.
// Only the local backend implements it; ingestion pipelines live elsewhere.
type DocumentWriter interface {
	SaveDocument(ctx context.Context, doc *domain.Document) error
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error
}
