package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/metrics"
	"github.com/custodia-labs/sercha-rag/internal/response"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

// defaultAnswerSystemPrompt is the fallback when no PromptStore is configured.
const defaultAnswerSystemPrompt = `Answer the question using only the provided context.
When citing sources use the form (FILENAME.pdf, p. 42) or (FILENAME.pdf, pp. 42-45).`

// defaultAnswerUserPrompt is the fallback when no PromptStore is configured.
const defaultAnswerUserPrompt = `Context:
%s

Question: %s`

// AnswerService retrieves context, asks the model and post-processes the reply.
type AnswerService struct {
	search         driving.SearchService
	llm            driven.LLMService
	prompts        driven.PromptStore
	pipeline       driven.ResponsePipeline
	markup         map[domain.MarkupFormat]driven.ResponseProcessor
	chatOpts       driven.ChatOptions
	matchCount     int
	maxThinkBuffer int
	metrics        *metrics.Collector
}

// NewAnswerService creates an answer service.
// The llm parameter is optional; without it every request fails with
// ErrLLMUnavailable. pipeline may be nil to skip post-processing.
func NewAnswerService(
	search driving.SearchService,
	llm driven.LLMService,
	pipeline driven.ResponsePipeline,
	settings domain.AppSettings,
) *AnswerService {
	maxBuffer := settings.Response.MaxThinkBuffer
	if maxBuffer == 0 {
		maxBuffer = domain.DefaultMaxThinkBuffer
	}
	return &AnswerService{
		search:   search,
		llm:      llm,
		pipeline: pipeline,
		markup:   make(map[domain.MarkupFormat]driven.ResponseProcessor),
		chatOpts: driven.ChatOptions{
			MaxTokens:   settings.LLM.MaxTokens,
			Temperature: settings.LLM.Temperature,
		},
		matchCount:     settings.Search.DefaultMatchCount,
		maxThinkBuffer: maxBuffer,
	}
}

// SetPromptStore sets the store for the answer prompts.
// If not set, built-in prompts are used.
func (s *AnswerService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// SetMarkupProcessor registers the processor run last for a markup format.
func (s *AnswerService) SetMarkupProcessor(format domain.MarkupFormat, p driven.ResponseProcessor) {
	s.markup[format] = p
}

// SetMetrics sets the metrics collector.
func (s *AnswerService) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

// Answer returns a complete post-processed answer.
func (s *AnswerService) Answer(
	ctx context.Context, question string, opts domain.AnswerOptions,
) (*domain.Answer, error) {
	return s.answer(ctx, question, opts, nil)
}

// StreamAnswer streams the filtered model output to emit as it arrives.
func (s *AnswerService) StreamAnswer(
	ctx context.Context, question string, opts domain.AnswerOptions, emit func(string) error,
) (*domain.Answer, error) {
	return s.answer(ctx, question, opts, emit)
}

func (s *AnswerService) answer(
	ctx context.Context, question string, opts domain.AnswerOptions, emit func(string) error,
) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question: %w", domain.ErrInvalidInput)
	}
	if opts.Markup != "" && !opts.Markup.IsValid() {
		return nil, fmt.Errorf("markup %q: %w", opts.Markup, domain.ErrInvalidInput)
	}
	if s.llm == nil {
		s.metrics.RecordAnswer(metrics.AnswerError)
		return nil, domain.ErrLLMUnavailable
	}

	requestID := uuid.NewString()
	log := logger.L().With(zap.String("request_id", requestID))
	start := time.Now()

	matchCount := opts.MatchCount
	if matchCount <= 0 {
		matchCount = s.matchCount
	}
	results, err := s.search.Search(ctx, question, domain.SearchOptions{
		MatchCount:   matchCount,
		SourceFilter: opts.SourceFilter,
		Mode:         domain.SearchModeHybrid,
	})
	if err != nil {
		s.metrics.RecordAnswer(metrics.AnswerError)
		return nil, err
	}

	citations := domain.NewCitationMap()
	contextBlock := s.search.FormatContext(ctx, results, citations)
	log.Debug("retrieved context",
		zap.Int("results", len(results)),
		zap.Int("citations", citations.Len()))

	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: s.loadPrompt(driven.PromptAnswerSystem, defaultAnswerSystemPrompt)},
		{Role: driven.RoleUser, Content: fmt.Sprintf(
			s.loadPrompt(driven.PromptAnswerUser, defaultAnswerUserPrompt), contextBlock, question)},
	}

	filter := response.NewStreamFilter(
		response.WithMaxBuffer(s.maxThinkBuffer),
		response.WithOverflowHook(func(int) { s.metrics.RecordStreamOverflow() }),
	)

	var raw strings.Builder
	var emitErr error
	forward := func(text string) error {
		if text == "" {
			return nil
		}
		raw.WriteString(text)
		if emit == nil {
			return nil
		}
		if err := emit(text); err != nil {
			emitErr = err
			return err
		}
		return nil
	}

	if emit == nil {
		var reply string
		reply, err = s.llm.Chat(ctx, messages, s.chatOpts)
		if err == nil {
			_ = forward(filter.Push(reply))
		}
	} else {
		err = s.llm.ChatStream(ctx, messages, s.chatOpts, func(token string) error {
			return forward(filter.Push(token))
		})
	}
	if err == nil {
		err = forward(filter.Flush())
	}

	if err != nil {
		filter.Discard()
		switch {
		case ctx.Err() != nil:
			log.Info("answer cancelled", zap.Duration("elapsed", time.Since(start)))
			s.metrics.RecordAnswer(metrics.AnswerCancelled)
			return nil, ctx.Err()
		case emitErr != nil && errors.Is(err, emitErr):
			log.Warn("answer output failed", zap.Error(err))
			s.metrics.RecordAnswer(metrics.AnswerError)
			return nil, err
		default:
			short, detail := domain.ClassifyLLMError(err)
			log.Error("model request failed",
				zap.String("reason", short),
				zap.String("detail", detail),
				zap.Bool("retryable", domain.IsRetryableError(err)))
			s.metrics.RecordAnswer(metrics.AnswerError)
			return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
		}
	}

	text := raw.String()
	if s.pipeline != nil {
		text = s.pipeline.Process(text, citations)
	}
	if p, ok := s.markup[opts.Markup]; ok && p != nil {
		text = p.Process(text, citations)
	}

	log.Info("answer complete",
		zap.String("model", s.llm.ModelName()),
		zap.Int("results", len(results)),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	s.metrics.RecordAnswer(metrics.AnswerOK)

	return &domain.Answer{
		RequestID: requestID,
		Text:      text,
		Raw:       raw.String(),
		Results:   results,
		Citations: citations,
	}, nil
}

// loadPrompt loads a prompt from the store, falling back to the default if unavailable.
func (s *AnswerService) loadPrompt(name, fallback string) string {
	if s.prompts == nil {
		return fallback
	}
	prompt, err := s.prompts.Load(name)
	if err != nil || prompt == "" {
		return fallback
	}
	return prompt
}
