package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results  []domain.SearchResult
	err      error
	links    map[string]string
	lastOpts domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastOpts = opts
	return m.results, m.err
}

func (m *mockSearchService) FormatContext(
	_ context.Context,
	results []domain.SearchResult,
	citations domain.CitationMap,
) string {
	for _, r := range results {
		if url, ok := m.links[r.DocumentSource]; ok {
			for _, p := range r.Metadata.PageNumbers {
				citations.Record(r.DocumentSource, p, url)
			}
		}
	}
	if len(results) == 0 {
		return "No relevant information found in the knowledge base."
	}
	return "formatted context"
}

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	answer   *domain.Answer
	err      error
	question string
	lastOpts domain.AnswerOptions
}

func (m *mockAnswerService) Answer(
	_ context.Context,
	question string,
	opts domain.AnswerOptions,
) (*domain.Answer, error) {
	m.question = question
	m.lastOpts = opts
	return m.answer, m.err
}

func (m *mockAnswerService) StreamAnswer(
	ctx context.Context,
	question string,
	opts domain.AnswerOptions,
	emit func(string) error,
) (*domain.Answer, error) {
	a, err := m.Answer(ctx, question, opts)
	if err != nil {
		return nil, err
	}
	return a, emit(a.Text)
}
