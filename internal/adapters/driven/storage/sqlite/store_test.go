package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "knowledge.db"))
	require.NoError(t, err)
	require.NotNil(t, store)

	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

// seedStore loads two documents and three chunks.
func seedStore(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "d1", Title: "Core Rules", Source: "Core.pdf"}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "d2", Title: "Session 12", Source: "logs/session12.md"}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{
			ID: "c1", DocumentID: "d1", Content: "Grappling rules for zero gravity.", Position: 0,
			Embedding: []float32{1, 0, 0},
			Metadata:  domain.ChunkMetadata{PageNumbers: []int{89, 90}, Extra: map[string]any{"section": "combat"}},
		},
		{
			ID: "c2", DocumentID: "d1", Content: "Ship combat and torpedoes.", Position: 1,
			Embedding: []float32{0, 1, 0},
		},
		{
			ID: "c3", DocumentID: "d2", Content: "The crew met a pirate on Ceres.", Position: 0,
			Embedding: []float32{0.7, 0.7, 0},
		},
	}))
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "knowledge.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, path, store.Path())
	assert.FileExists(t, path)
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "knowledge.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	seedStore(t, store)
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.TextIndex().Search(context.Background(), driven.TextQuery{
		Text: "torpedoes", Limit: 5, MaxEdits: 2, PrefixLength: 3,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c2", results[0].ChunkID)
}

func TestStore_SaveDocument_Invalid(t *testing.T) {
	store := setupTestStore(t)

	assert.ErrorIs(t, store.SaveDocument(context.Background(), nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SaveDocument(context.Background(), &domain.Document{}), domain.ErrInvalidInput)
}

func TestStore_SaveChunks_RequiresDocument(t *testing.T) {
	store := setupTestStore(t)

	err := store.SaveChunks(context.Background(), []domain.Chunk{
		{ID: "c1", DocumentID: "missing", Content: "orphan"},
	})
	assert.Error(t, err)
}

func TestStore_SaveChunks_Empty(t *testing.T) {
	store := setupTestStore(t)
	assert.NoError(t, store.SaveChunks(context.Background(), nil))
}

func TestStore_SaveChunks_UpdateReindexesText(t *testing.T) {
	store := setupTestStore(t)
	seedStore(t, store)
	ctx := context.Background()

	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
		{ID: "c2", DocumentID: "d1", Content: "Railgun targeting.", Position: 1},
	}))

	old, err := store.TextIndex().Search(ctx, driven.TextQuery{Text: "torpedoes", Limit: 5, MaxEdits: 2, PrefixLength: 3})
	require.NoError(t, err)
	assert.Empty(t, old)

	updated, err := store.TextIndex().Search(ctx, driven.TextQuery{Text: "railgun", Limit: 5, MaxEdits: 2, PrefixLength: 3})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, "c2", updated[0].ChunkID)
}

func TestVectorIndex_Search(t *testing.T) {
	store := setupTestStore(t)
	seedStore(t, store)

	results, err := store.VectorIndex().Search(context.Background(), driven.VectorQuery{
		Embedding:     []float32{1, 0, 0},
		Limit:         2,
		NumCandidates: 100,
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Equal(t, "c3", results[1].ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "Core Rules", results[0].DocumentTitle)
	assert.Equal(t, "Core.pdf", results[0].DocumentSource)
	assert.Equal(t, []int{89, 90}, results[0].Metadata.PageNumbers)
	assert.Equal(t, "combat", results[0].Metadata.Extra["section"])
}

func TestVectorIndex_Search_EmptyEmbedding(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.VectorIndex().Search(context.Background(), driven.VectorQuery{Limit: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestVectorIndex_Search_DimensionMismatch(t *testing.T) {
	store := setupTestStore(t)
	seedStore(t, store)

	results, err := store.VectorIndex().Search(context.Background(), driven.VectorQuery{
		Embedding: []float32{1, 0},
		Limit:     5,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTextIndex_Search_Fuzzy(t *testing.T) {
	store := setupTestStore(t)
	seedStore(t, store)

	results, err := store.TextIndex().Search(context.Background(), driven.TextQuery{
		Text:         "grapling",
		Limit:        5,
		MaxEdits:     2,
		PrefixLength: 3,
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.InDelta(t, 0.5, results[0].Score, 1e-9)
}

func TestTextIndex_Search_RanksByMatchedTerms(t *testing.T) {
	store := setupTestStore(t)
	seedStore(t, store)

	results, err := store.TextIndex().Search(context.Background(), driven.TextQuery{
		Text:         "pirate crew gravity",
		Limit:        5,
		MaxEdits:     2,
		PrefixLength: 3,
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c3", results[0].ChunkID)
	assert.Equal(t, "c1", results[1].ChunkID)
}

func TestTextIndex_Search_Limit(t *testing.T) {
	store := setupTestStore(t)
	seedStore(t, store)

	results, err := store.TextIndex().Search(context.Background(), driven.TextQuery{
		Text:         "pirate gravity",
		Limit:        1,
		MaxEdits:     2,
		PrefixLength: 3,
	})

	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestTextIndex_Search_CandidatesBeyondCap(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "d1", Title: "Combat Log", Source: "combat.md"}))
	chunks := make([]domain.Chunk, 0, minTextCandidates+51)
	for i := 0; i < minTextCandidates+50; i++ {
		chunks = append(chunks, domain.Chunk{
			ID: fmt.Sprintf("c%03d", i), DocumentID: "d1", Content: "combat notes", Position: i,
		})
	}
	chunks = append(chunks, domain.Chunk{
		ID: "grapple", DocumentID: "d1", Content: "combat grappling", Position: minTextCandidates + 50,
	})
	require.NoError(t, store.SaveChunks(ctx, chunks))

	results, err := store.TextIndex().Search(ctx, driven.TextQuery{
		Text:         "combat grappling",
		Limit:        5,
		MaxEdits:     2,
		PrefixLength: 3,
	})

	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Equal(t, "grapple", results[0].ChunkID, "the only chunk matching both terms sits past the candidate cap")
	assert.InDelta(t, 2.0, results[0].Score, 1e-9)
}

func TestTextIndex_Search_NoTerms(t *testing.T) {
	store := setupTestStore(t)
	seedStore(t, store)

	results, err := store.TextIndex().Search(context.Background(), driven.TextQuery{Text: "?!", Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPrefixMatchQuery(t *testing.T) {
	assert.Equal(t, `"gra"* OR "pi"*`, prefixMatchQuery([]string{"grappling", "pi", "grab"}, 3))
	assert.Equal(t, `"grappling"*`, prefixMatchQuery([]string{"grappling"}, 0))
}

func TestFloat32Roundtrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3}
	assert.Equal(t, in, bytesToFloat32Slice(float32SliceToBytes(in)))
	assert.Nil(t, float32SliceToBytes(nil))
	assert.Nil(t, bytesToFloat32Slice(nil))
}
