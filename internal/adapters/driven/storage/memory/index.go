package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/scoring"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Index implements the interfaces.
var (
	_ driven.DocumentWriter = (*Index)(nil)
	_ driven.VectorIndex    = (*vectorIndex)(nil)
	_ driven.TextIndex      = (*textIndex)(nil)
)

// Index is an in-memory knowledge base serving both retrieval channels
// with exact scans. It backs tests and small fixture sets.
type Index struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string]domain.Chunk
	order     []string
}

// NewIndex creates a new empty in-memory index.
func NewIndex() *Index {
	return &Index{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string]domain.Chunk),
	}
}

// SaveDocument stores or updates a document.
func (x *Index) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.documents[doc.ID] = *doc
	return nil
}

// SaveChunks stores or updates chunks. Insertion order breaks score ties.
func (x *Index) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, c := range chunks {
		if c.ID == "" {
			return domain.ErrInvalidInput
		}
		if _, exists := x.chunks[c.ID]; !exists {
			x.order = append(x.order, c.ID)
		}
		x.chunks[c.ID] = c
	}
	return nil
}

// Len returns the number of stored chunks.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.chunks)
}

// VectorIndex returns the vector channel backed by this index.
func (x *Index) VectorIndex() driven.VectorIndex {
	return &vectorIndex{index: x}
}

// TextIndex returns the text channel backed by this index.
func (x *Index) TextIndex() driven.TextIndex {
	return &textIndex{index: x}
}

// rank scores every chunk, keeps positive scores and returns the top limit.
// Chunks whose document is missing are skipped, as an inner join would.
func (x *Index) rank(ctx context.Context, limit int, score func(domain.Chunk) float64) ([]domain.SearchResult, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var results []domain.SearchResult
	for _, id := range x.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := x.chunks[id]
		doc, ok := x.documents[c.DocumentID]
		if !ok {
			continue
		}
		s := score(c)
		if s <= 0 {
			continue
		}
		results = append(results, domain.SearchResult{
			ChunkID:        c.ID,
			DocumentID:     c.DocumentID,
			Content:        c.Content,
			Score:          s,
			Metadata:       c.Metadata,
			DocumentTitle:  doc.Title,
			DocumentSource: doc.Source,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

type vectorIndex struct {
	index *Index
}

// Search ranks chunks by cosine similarity. NumCandidates is ignored.
func (v *vectorIndex) Search(ctx context.Context, q driven.VectorQuery) ([]domain.SearchResult, error) {
	if len(q.Embedding) == 0 {
		return nil, domain.ErrInvalidInput
	}
	return v.index.rank(ctx, q.Limit, func(c domain.Chunk) float64 {
		if len(c.Embedding) != len(q.Embedding) {
			return 0
		}
		return scoring.VectorScore(q.Embedding, c.Embedding)
	})
}

type textIndex struct {
	index *Index
}

// Search ranks chunks by fuzzy term matches.
func (t *textIndex) Search(ctx context.Context, q driven.TextQuery) ([]domain.SearchResult, error) {
	terms := scoring.Tokenize(q.Text)
	if len(terms) == 0 {
		return nil, nil
	}
	return t.index.rank(ctx, q.Limit, func(c domain.Chunk) float64 {
		return scoring.TextScore(terms, c.Content, q.MaxEdits, q.PrefixLength)
	})
}
