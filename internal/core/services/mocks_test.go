package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// fakeConfigStore is an in-memory driven.ConfigStore.
type fakeConfigStore struct {
	mu     sync.RWMutex
	data   map[string]any
	setErr error
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{data: make(map[string]any)}
}

func (s *fakeConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *fakeConfigStore) GetString(key string) string {
	v, _ := s.Get(key)
	str, _ := v.(string)
	return str
}

func (s *fakeConfigStore) GetInt(key string) int {
	v, _ := s.Get(key)
	n, _ := v.(int)
	return n
}

func (s *fakeConfigStore) GetBool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

func (s *fakeConfigStore) GetFloat(key string) float64 {
	v, _ := s.Get(key)
	switch f := v.(type) {
	case float64:
		return f
	case int:
		return float64(f)
	}
	return 0
}

func (s *fakeConfigStore) GetDuration(key string) time.Duration {
	d, _ := time.ParseDuration(s.GetString(key))
	return d
}

func (s *fakeConfigStore) GetStringSlice(key string) []string {
	v, _ := s.Get(key)
	list, _ := v.([]string)
	return list
}

func (s *fakeConfigStore) Set(key string, value any) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *fakeConfigStore) Save() error { return nil }
func (s *fakeConfigStore) Load() error { return nil }
func (s *fakeConfigStore) Path() string {
	return "memory"
}

// mockVectorIndex returns canned results.
type mockVectorIndex struct {
	results []domain.SearchResult
	err     error
	delay   time.Duration
	calls   atomic.Int32

	mu        sync.Mutex
	lastQuery driven.VectorQuery
}

func (m *mockVectorIndex) Search(ctx context.Context, q driven.VectorQuery) ([]domain.SearchResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.lastQuery = q
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return limitResults(m.results, q.Limit), nil
}

func (m *mockVectorIndex) query() driven.VectorQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery
}

// mockTextIndex returns canned results.
type mockTextIndex struct {
	results []domain.SearchResult
	err     error
	delay   time.Duration
	calls   atomic.Int32

	mu        sync.Mutex
	lastQuery driven.TextQuery
}

func (m *mockTextIndex) Search(ctx context.Context, q driven.TextQuery) ([]domain.SearchResult, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.lastQuery = q
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return limitResults(m.results, q.Limit), nil
}

func (m *mockTextIndex) query() driven.TextQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery
}

func limitResults(results []domain.SearchResult, limit int) []domain.SearchResult {
	out := make([]domain.SearchResult, len(results))
	copy(out, results)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// mockEmbedding returns a fixed vector.
type mockEmbedding struct {
	err   error
	calls atomic.Int32
}

func (m *mockEmbedding) Embed(context.Context, string) ([]float32, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedding) Dimensions() int            { return 3 }
func (m *mockEmbedding) ModelName() string          { return "mock-embed" }
func (m *mockEmbedding) Ping(context.Context) error { return m.err }
func (m *mockEmbedding) Close() error               { return nil }

// mockCatalog serves books by filename.
type mockCatalog struct {
	unconfigured bool
	books        map[string][]domain.CatalogBook
	err          error
	delay        time.Duration
	libraries    int
	calls        atomic.Int32
}

func (m *mockCatalog) IsConfigured() bool { return !m.unconfigured }

func (m *mockCatalog) SearchBooks(ctx context.Context, filename string) ([]domain.CatalogBook, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.books[filename], nil
}

func (m *mockCatalog) Libraries(context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.libraries, nil
}

func (m *mockCatalog) PageURL(bookID string, page int) string {
	return fmt.Sprintf("https://komga.test/book/%s/read?page=%d", bookID, page)
}

// mockLinkStore records saves.
type mockLinkStore struct {
	mu      sync.Mutex
	initial map[string]string
	loadErr error
	saveErr error
	saved   []map[string]string
}

func (m *mockLinkStore) Load(context.Context) (map[string]string, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]string, len(m.initial))
	for k, v := range m.initial {
		out[k] = v
	}
	return out, nil
}

func (m *mockLinkStore) Save(_ context.Context, links map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, links)
	return nil
}

func (m *mockLinkStore) lastSaved() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return nil
	}
	return m.saved[len(m.saved)-1]
}

// mockLLM replies with fixed tokens.
type mockLLM struct {
	tokens []string
	err    error
	// failAfter makes ChatStream fail once this many tokens were sent.
	failAfter int
	// block makes ChatStream wait for cancellation after its tokens.
	block bool

	mu       sync.Mutex
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

func (m *mockLLM) record(messages []driven.ChatMessage, opts driven.ChatOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = messages
	m.opts = opts
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.record(messages, opts)
	if m.err != nil {
		return "", m.err
	}
	var reply string
	for _, t := range m.tokens {
		reply += t
	}
	return reply, nil
}

func (m *mockLLM) ChatStream(
	ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions, onToken func(string) error,
) error {
	m.record(messages, opts)
	if m.err != nil && m.failAfter == 0 {
		return m.err
	}
	for i, t := range m.tokens {
		if m.failAfter > 0 && i == m.failAfter {
			return m.err
		}
		if err := onToken(t); err != nil {
			return err
		}
	}
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (m *mockLLM) ModelName() string          { return "mock-llm" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }

// mockPromptStore serves prompts from a map.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("not found")
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// mockAIValidator records validations.
type mockAIValidator struct {
	embeddingErr error
	llmErr       error
	embedding    *domain.EmbeddingSettings
	llm          *domain.LLMSettings
}

func (m *mockAIValidator) ValidateEmbedding(cfg *domain.EmbeddingSettings) error {
	m.embedding = cfg
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(cfg *domain.LLMSettings) error {
	m.llm = cfg
	return m.llmErr
}

// result builds a search result for tests.
func result(id, source string, score float64, pages ...int) domain.SearchResult {
	return domain.SearchResult{
		ChunkID:        id,
		DocumentID:     "doc-" + id,
		Content:        "content of " + id,
		Score:          score,
		Metadata:       domain.ChunkMetadata{PageNumbers: pages},
		DocumentTitle:  "Title " + id,
		DocumentSource: source,
	}
}

func chunkIDs(results []domain.SearchResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ChunkID
	}
	return ids
}
