package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/metrics"
	"github.com/custodia-labs/sercha-rag/internal/response"
)

type answerFixture struct {
	service  *AnswerService
	text     *mockTextIndex
	llm      *mockLLM
	resolver *CitationResolver
	metrics  *metrics.Collector
}

// newAnswerFixture wires an AnswerService over a text-only search with a
// catalog that knows Core.pdf, and the default response pipeline.
func newAnswerFixture(t *testing.T, llm *mockLLM, settings domain.AppSettings) *answerFixture {
	t.Helper()

	text := &mockTextIndex{results: []domain.SearchResult{
		result("c1", "Core.pdf", 3.1, 3),
		result("c2", "notes.md", 1.4),
	}}
	catalog := &mockCatalog{books: map[string][]domain.CatalogBook{
		"Core.pdf": {{ID: "b1", Name: "Core"}},
	}}
	resolver := NewCitationResolver(catalog, nil, time.Second)

	search := NewSearchService(nil, text, nil, settings.Search)
	search.SetFormatter(NewResponseFormatter(resolver))

	pipeline, err := response.DefaultRegistry(resolver).BuildPipeline(settings.Response.Processors, nil)
	require.NoError(t, err)

	m := metrics.NewCollector(metrics.DefaultNamespace)
	service := NewAnswerService(search, llm, pipeline, settings)
	service.SetMetrics(m)

	return &answerFixture{service: service, text: text, llm: llm, resolver: resolver, metrics: m}
}

func (f *answerFixture) assertAnswers(t *testing.T, status string) {
	t.Helper()
	expected := `
# HELP sercha_rag_answers_total Answer requests by outcome
# TYPE sercha_rag_answers_total counter
sercha_rag_answers_total{status="` + status + `"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(f.metrics.Registry(), strings.NewReader(expected),
		"sercha_rag_answers_total"))
}

// collector gathers emitted chunks.
type collector struct {
	mu     sync.Mutex
	chunks []string
}

func (c *collector) emit(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, s)
	return nil
}

func (c *collector) text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.chunks, "")
}

func TestAnswerService_StreamAnswer(t *testing.T) {
	llm := &mockLLM{tokens: []string{
		"<think>look up the drive", "</think>\n\n", "The drive ", "works (Core.pdf, p. 3).",
	}}
	f := newAnswerFixture(t, llm, domain.DefaultAppSettings())
	out := &collector{}

	answer, err := f.service.StreamAnswer(context.Background(), "How does the drive work?", domain.AnswerOptions{}, out.emit)

	require.NoError(t, err)
	assert.Equal(t, []string{"\n\n", "The drive ", "works (Core.pdf, p. 3)."}, out.chunks)
	assert.Equal(t, "\n\nThe drive works (Core.pdf, p. 3).", answer.Raw)
	assert.Equal(t, "The drive works ([Core.pdf, p. 3](https://komga.test/book/b1/read?page=3)).", answer.Text)
	assert.NotEmpty(t, answer.RequestID)
	assert.Equal(t, []string{"c1", "c2"}, chunkIDs(answer.Results))

	url, ok := answer.Citations.Lookup("Core.pdf", 3)
	assert.True(t, ok)
	assert.Equal(t, "https://komga.test/book/b1/read?page=3", url)
	f.assertAnswers(t, metrics.AnswerOK)
}

func TestAnswerService_StreamAnswer_NoReasoningBlock(t *testing.T) {
	llm := &mockLLM{tokens: []string{"Plain ", "answer."}}
	f := newAnswerFixture(t, llm, domain.DefaultAppSettings())
	out := &collector{}

	answer, err := f.service.StreamAnswer(context.Background(), "q", domain.AnswerOptions{}, out.emit)

	require.NoError(t, err)
	// Without a marker everything is held until the stream ends.
	assert.Equal(t, []string{"Plain answer."}, out.chunks)
	assert.Equal(t, "Plain answer.", answer.Text)
}

func TestAnswerService_StreamAnswer_BufferOverflow(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.Response.MaxThinkBuffer = 8
	llm := &mockLLM{tokens: []string{"<think>this never ", "ends and keeps ", "going"}}
	f := newAnswerFixture(t, llm, settings)
	out := &collector{}

	_, err := f.service.StreamAnswer(context.Background(), "q", domain.AnswerOptions{}, out.emit)

	require.NoError(t, err)
	assert.Equal(t, "<think>this never ends and keeps going", out.text())

	expected := `
# HELP sercha_rag_stream_buffer_overflows_total Streams force-flushed before a reasoning block ended
# TYPE sercha_rag_stream_buffer_overflows_total counter
sercha_rag_stream_buffer_overflows_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(f.metrics.Registry(), strings.NewReader(expected),
		"sercha_rag_stream_buffer_overflows_total"))
}

func TestAnswerService_Answer(t *testing.T) {
	llm := &mockLLM{tokens: []string{"<think>hmm</think>", "  See (Core.pdf, p. 3)."}}
	f := newAnswerFixture(t, llm, domain.DefaultAppSettings())

	answer, err := f.service.Answer(context.Background(), "q", domain.AnswerOptions{})

	require.NoError(t, err)
	assert.Equal(t, "  See (Core.pdf, p. 3).", answer.Raw)
	assert.Equal(t, "See ([Core.pdf, p. 3](https://komga.test/book/b1/read?page=3)).", answer.Text)
}

func TestAnswerService_BuildsMessages(t *testing.T) {
	settings := domain.DefaultAppSettings()
	settings.LLM.MaxTokens = 512
	llm := &mockLLM{tokens: []string{"ok"}}
	f := newAnswerFixture(t, llm, settings)

	_, err := f.service.Answer(context.Background(), "  Who pilots the ship?  ", domain.AnswerOptions{})
	require.NoError(t, err)

	require.Len(t, llm.messages, 2)
	assert.Equal(t, driven.RoleSystem, llm.messages[0].Role)
	assert.Contains(t, llm.messages[0].Content, "(FILENAME.pdf, p. 42)")
	assert.Equal(t, driven.RoleUser, llm.messages[1].Role)
	assert.True(t, strings.HasPrefix(llm.messages[1].Content, "Context:\nFound 2 relevant documents:"))
	assert.Contains(t, llm.messages[1].Content, "[Read: https://komga.test/book/b1/read?page=3]")
	assert.True(t, strings.HasSuffix(llm.messages[1].Content, "Question: Who pilots the ship?"))

	assert.Equal(t, 512, llm.opts.MaxTokens)
	assert.InDelta(t, 0.2, llm.opts.Temperature, 1e-9)
}

func TestAnswerService_PromptStore(t *testing.T) {
	llm := &mockLLM{tokens: []string{"ok"}}
	f := newAnswerFixture(t, llm, domain.DefaultAppSettings())
	f.service.SetPromptStore(&mockPromptStore{prompts: map[string]string{
		driven.PromptAnswerSystem: "custom system",
		driven.PromptAnswerUser:   "Q<%[2]s> C<%[1]s>",
	}})

	_, err := f.service.Answer(context.Background(), "why", domain.AnswerOptions{})
	require.NoError(t, err)

	assert.Equal(t, "custom system", llm.messages[0].Content)
	assert.True(t, strings.HasPrefix(llm.messages[1].Content, "Q<why> C<Found 2"))
}

func TestAnswerService_PromptStoreMissingFallsBack(t *testing.T) {
	llm := &mockLLM{tokens: []string{"ok"}}
	f := newAnswerFixture(t, llm, domain.DefaultAppSettings())
	f.service.SetPromptStore(&mockPromptStore{})

	_, err := f.service.Answer(context.Background(), "why", domain.AnswerOptions{})
	require.NoError(t, err)

	assert.Equal(t, defaultAnswerSystemPrompt, llm.messages[0].Content)
}

func TestAnswerService_NoResults(t *testing.T) {
	llm := &mockLLM{tokens: []string{"I could not find that."}}
	f := newAnswerFixture(t, llm, domain.DefaultAppSettings())
	f.text.results = nil

	answer, err := f.service.Answer(context.Background(), "q", domain.AnswerOptions{})

	require.NoError(t, err)
	assert.Empty(t, answer.Results)
	assert.Contains(t, llm.messages[1].Content, NoResultsMessage)
}

func TestAnswerService_RetrievalOptions(t *testing.T) {
	llm := &mockLLM{tokens: []string{"ok"}}
	f := newAnswerFixture(t, llm, domain.DefaultAppSettings())

	answer, err := f.service.Answer(context.Background(), "q", domain.AnswerOptions{
		MatchCount:   3,
		SourceFilter: `\.md$`,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, chunkIDs(answer.Results))
	// Hybrid doubles the count and the filter triples it again.
	assert.Equal(t, 18, f.text.query().Limit)

	_, err = f.service.Answer(context.Background(), "q", domain.AnswerOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2*domain.DefaultMatchCount, f.text.query().Limit)
}

func TestAnswerService_Markup(t *testing.T) {
	llm := &mockLLM{tokens: []string{"**Bold** answer"}}
	f := newAnswerFixture(t, llm, domain.DefaultAppSettings())
	f.service.SetMarkupProcessor(domain.MarkupMrkdwn, response.NewProcessor("shout",
		func(text string, _ domain.CitationMap) string { return strings.ToUpper(text) }))

	answer, err := f.service.Answer(context.Background(), "q", domain.AnswerOptions{Markup: domain.MarkupMrkdwn})
	require.NoError(t, err)
	assert.Equal(t, "**BOLD** ANSWER", answer.Text)

	answer, err = f.service.Answer(context.Background(), "q", domain.AnswerOptions{Markup: domain.MarkupMarkdown})
	require.NoError(t, err)
	assert.Equal(t, "**Bold** answer", answer.Text)
}

func TestAnswerService_InvalidInput(t *testing.T) {
	llm := &mockLLM{tokens: []string{"ok"}}
	f := newAnswerFixture(t, llm, domain.DefaultAppSettings())

	_, err := f.service.Answer(context.Background(), "   ", domain.AnswerOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.service.Answer(context.Background(), "q", domain.AnswerOptions{Markup: "html"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.service.Answer(context.Background(), "q", domain.AnswerOptions{SourceFilter: "["})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Nil(t, llm.messages)
}

func TestAnswerService_NoLLM(t *testing.T) {
	search := NewSearchService(nil, &mockTextIndex{}, nil, domain.DefaultAppSettings().Search)
	service := NewAnswerService(search, nil, nil, domain.DefaultAppSettings())

	_, err := service.Answer(context.Background(), "q", domain.AnswerOptions{})

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestAnswerService_LLMError(t *testing.T) {
	providerErr := domain.NewStatusError("openai", 503, []byte("overloaded"))
	llm := &mockLLM{err: providerErr}
	f := newAnswerFixture(t, llm, domain.DefaultAppSettings())

	_, err := f.service.StreamAnswer(context.Background(), "q", domain.AnswerOptions{}, (&collector{}).emit)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	var se *domain.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 503, se.StatusCode)
	f.assertAnswers(t, metrics.AnswerError)
}

func TestAnswerService_LLMErrorMidStream(t *testing.T) {
	llm := &mockLLM{
		tokens:    []string{"</think>", "partial ", "never sent"},
		err:       errors.New("connection reset"),
		failAfter: 2,
	}
	f := newAnswerFixture(t, llm, domain.DefaultAppSettings())
	out := &collector{}

	answer, err := f.service.StreamAnswer(context.Background(), "q", domain.AnswerOptions{}, out.emit)

	assert.Nil(t, answer)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Equal(t, "partial ", out.text())
}

func TestAnswerService_EmitError(t *testing.T) {
	llm := &mockLLM{tokens: []string{"</think>", "first", "second"}}
	f := newAnswerFixture(t, llm, domain.DefaultAppSettings())
	clientGone := errors.New("client gone")

	_, err := f.service.StreamAnswer(context.Background(), "q", domain.AnswerOptions{}, func(string) error {
		return clientGone
	})

	assert.ErrorIs(t, err, clientGone)
	assert.NotErrorIs(t, err, domain.ErrLLMUnavailable)
	f.assertAnswers(t, metrics.AnswerError)
}

func TestAnswerService_Cancelled(t *testing.T) {
	llm := &mockLLM{tokens: []string{"</think>", "Streaming..."}, block: true}
	f := newAnswerFixture(t, llm, domain.DefaultAppSettings())

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	emit := func(string) error {
		once.Do(cancel)
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := f.service.StreamAnswer(ctx, "q", domain.AnswerOptions{}, emit)
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("StreamAnswer did not return after cancellation")
	}
	f.assertAnswers(t, metrics.AnswerCancelled)
}
