package cli

import (
	"context"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

type mockSearchService struct {
	results  []domain.SearchResult
	err      error
	lastOpts domain.SearchOptions
	lastQ    string
}

func (m *mockSearchService) Search(
	_ context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQ = query
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockSearchService) FormatContext(
	_ context.Context, results []domain.SearchResult, _ domain.CitationMap,
) string {
	var b strings.Builder
	for _, r := range results {
		b.WriteString("[" + r.DocumentSource + "] " + r.Content + "\n")
	}
	return b.String()
}

type mockAnswerService struct {
	chunks   []string
	answer   *domain.Answer
	err      error
	streamed bool
	lastQ    string
	lastOpts domain.AnswerOptions
}

func (m *mockAnswerService) Answer(
	_ context.Context, question string, opts domain.AnswerOptions,
) (*domain.Answer, error) {
	m.lastQ = question
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

func (m *mockAnswerService) StreamAnswer(
	_ context.Context, question string, opts domain.AnswerOptions, emit func(string) error,
) (*domain.Answer, error) {
	m.streamed = true
	m.lastQ = question
	m.lastOpts = opts
	for _, c := range m.chunks {
		if err := emit(c); err != nil {
			return nil, err
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.answer, nil
}

type mockCatalogService struct {
	status   string
	err      error
	links    map[string]string
	lastPage int
}

func (m *mockCatalogService) TestConnection(_ context.Context) (string, error) {
	return m.status, m.err
}

func (m *mockCatalogService) ResolvePage(_ context.Context, source string, page int) (string, bool) {
	m.lastPage = page
	url, ok := m.links[source]
	return url, ok
}

type mockSettingsService struct {
	settings     domain.AppSettings
	validateErr  error
	embeddingErr error
	llmErr       error
	setErr       error
	set          map[string]string
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{
		settings: domain.DefaultAppSettings(),
		set:      make(map[string]string),
	}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.set[key] = value
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) SettableKeys() []string {
	return []string{"llm.api_key", "search.mode"}
}

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return m.embeddingErr }

func (m *mockSettingsService) ValidateLLMConfig() error { return m.llmErr }
