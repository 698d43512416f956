package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/metrics"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

const tracerName = "github.com/custodia-labs/sercha-rag/internal/core/services"

// Fuzzy text matching parameters.
const (
	textMaxEdits     = 2
	textPrefixLength = 3
)

// minNumCandidates is the floor for the ANN candidate pool.
const minNumCandidates = 100

// SearchService runs the vector and text channels and fuses their results.
type SearchService struct {
	vectorIndex      driven.VectorIndex
	textIndex        driven.TextIndex
	embeddingService driven.EmbeddingService
	settings         domain.SearchSettings
	formatter        *ResponseFormatter
	metrics          *metrics.Collector
	tracer           trace.Tracer
}

// NewSearchService creates a new search service.
// The vectorIndex and embeddingService parameters are optional (can be nil);
// without them the vector channel reports a failure and hybrid search
// degrades to text results.
func NewSearchService(
	vectorIndex driven.VectorIndex,
	textIndex driven.TextIndex,
	embeddingService driven.EmbeddingService,
	settings domain.SearchSettings,
) *SearchService {
	defaults := domain.DefaultAppSettings().Search
	if settings.DefaultMatchCount <= 0 {
		settings.DefaultMatchCount = defaults.DefaultMatchCount
	}
	if settings.MaxMatchCount <= 0 {
		settings.MaxMatchCount = defaults.MaxMatchCount
	}
	if !settings.Mode.IsValid() {
		settings.Mode = defaults.Mode
	}
	return &SearchService{
		vectorIndex:      vectorIndex,
		textIndex:        textIndex,
		embeddingService: embeddingService,
		settings:         settings,
		formatter:        NewResponseFormatter(nil),
		tracer:           otel.Tracer(tracerName),
	}
}

// SetFormatter sets the formatter used by FormatContext.
func (s *SearchService) SetFormatter(f *ResponseFormatter) {
	if f != nil {
		s.formatter = f
	}
}

// SetMetrics sets the metrics collector.
func (s *SearchService) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

// Search retrieves up to the resolved match count of results.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}

	matchCount := s.resolveMatchCount(opts.MatchCount)
	logger.Debug("Match count: %d (requested %d)", matchCount, opts.MatchCount)

	filter, err := compileSourceFilter(opts.SourceFilter)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		logger.Debug("Source filter: %s", filter)
	}

	mode := opts.Mode
	if mode == "" {
		mode = s.settings.Mode
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("search mode %q: %w", mode, domain.ErrInvalidInput)
	}
	logger.Info("Search mode: %s", mode.Description())

	ctx, span := s.tracer.Start(ctx, "search", trace.WithAttributes(
		attribute.String("search.mode", mode.String()),
		attribute.Int("search.match_count", matchCount),
		attribute.Bool("search.source_filter", filter != nil),
	))
	defer span.End()

	var results []domain.SearchResult
	switch mode {
	case domain.SearchModeSemantic:
		results = s.semanticChannel(ctx, query, matchCount, filter).Results
	case domain.SearchModeText:
		results = s.textChannel(ctx, query, matchCount, filter).Results
	default:
		results = s.hybridSearch(ctx, query, matchCount, filter)
	}

	if results == nil {
		results = []domain.SearchResult{}
	}
	span.SetAttributes(attribute.Int("search.results", len(results)))
	s.metrics.RecordSearch(len(results))
	logger.Info("Final results: %d", len(results))

	return results, nil
}

// FormatContext renders results for a language model.
func (s *SearchService) FormatContext(
	ctx context.Context, results []domain.SearchResult, citations domain.CitationMap,
) string {
	return s.formatter.Format(ctx, results, citations)
}

// resolveMatchCount applies the configured default and cap.
func (s *SearchService) resolveMatchCount(requested int) int {
	if requested <= 0 {
		return s.settings.DefaultMatchCount
	}
	if requested > s.settings.MaxMatchCount {
		return s.settings.MaxMatchCount
	}
	return requested
}

// hybridSearch runs both channels concurrently and fuses them with RRF.
// It never fails: with no usable channel output it returns an empty list.
func (s *SearchService) hybridSearch(
	ctx context.Context, query string, matchCount int, filter *regexp.Regexp,
) []domain.SearchResult {
	fetchCount := matchCount * 2
	logger.Debug("Hybrid search: running vector and text channels in parallel (fetch %d)", fetchCount)

	var vector, text domain.ChannelResult
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		vector = s.semanticChannel(ctx, query, fetchCount, filter)
	}()

	go func() {
		defer wg.Done()
		text = s.textChannel(ctx, query, fetchCount, filter)
	}()

	wg.Wait()

	if !vector.HasResults() && !text.HasResults() {
		logger.Error("Hybrid search: no results from either channel (vector=%s, text=%s)",
			vector.Status, text.Status)
		return []domain.SearchResult{}
	}

	var lists [][]domain.SearchResult
	for _, r := range []domain.ChannelResult{vector, text} {
		if r.HasResults() {
			lists = append(lists, r.Results)
		} else {
			logger.Warn("Hybrid search: %s channel %s, using remaining channel", r.Channel, r.Status)
		}
	}

	logger.Debug("Hybrid search: fusing %d vector + %d text results with RRF",
		len(vector.Results), len(text.Results))
	fused, err := Fuse(lists, DefaultRRFConstant)
	if err != nil {
		logger.Warn("Hybrid search: fusion failed, falling back to vector-only: %v", err)
		s.metrics.RecordFusionFallback()
		return s.semanticChannel(ctx, query, matchCount, filter).Results
	}

	return truncate(fused, matchCount)
}

// semanticChannel embeds the query and searches the vector index.
func (s *SearchService) semanticChannel(
	ctx context.Context, query string, limit int, filter *regexp.Regexp,
) domain.ChannelResult {
	return s.runChannel(ctx, domain.ChannelVector, limit, filter,
		func(ctx context.Context, backendLimit int) ([]domain.SearchResult, error) {
			if s.vectorIndex == nil {
				return nil, domain.ErrVectorIndexUnavailable
			}
			if s.embeddingService == nil {
				return nil, domain.ErrEmbeddingUnavailable
			}
			embedding, err := s.embeddingService.Embed(ctx, query)
			if err != nil {
				return nil, fmt.Errorf("generate query embedding: %w", err)
			}
			logger.Debug("Query embedding: %d dimensions", len(embedding))
			return s.vectorIndex.Search(ctx, driven.VectorQuery{
				Embedding:     embedding,
				Limit:         backendLimit,
				NumCandidates: max(minNumCandidates, 3*backendLimit),
			})
		})
}

// textChannel runs a fuzzy full-text search.
func (s *SearchService) textChannel(
	ctx context.Context, query string, limit int, filter *regexp.Regexp,
) domain.ChannelResult {
	return s.runChannel(ctx, domain.ChannelText, limit, filter,
		func(ctx context.Context, backendLimit int) ([]domain.SearchResult, error) {
			if s.textIndex == nil {
				return nil, domain.ErrTextIndexUnavailable
			}
			return s.textIndex.Search(ctx, driven.TextQuery{
				Text:         query,
				Limit:        backendLimit,
				MaxEdits:     textMaxEdits,
				PrefixLength: textPrefixLength,
			})
		})
}

// runChannel applies the shared channel contract: over-fetch when
// filtering, bounded time, post-filter, truncate, and failures reported as
// a ChannelFailed outcome instead of an error.
func (s *SearchService) runChannel(
	ctx context.Context,
	name string,
	limit int,
	filter *regexp.Regexp,
	fetch func(ctx context.Context, backendLimit int) ([]domain.SearchResult, error),
) domain.ChannelResult {
	backendLimit := limit
	if filter != nil {
		backendLimit = limit * sourceFilterOverFetch
	}

	ctx, span := s.tracer.Start(ctx, "search."+name, trace.WithAttributes(
		attribute.Int("channel.limit", backendLimit),
	))
	defer span.End()

	if s.settings.ChannelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.ChannelTimeout)
		defer cancel()
	}

	start := time.Now()
	results, err := fetch(ctx, backendLimit)

	var out domain.ChannelResult
	if err != nil {
		logger.Warn("%s channel failed: %v", name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		out = domain.ChannelFailure(name, err)
	} else {
		filtered := applySourceFilter(results, filter)
		logger.Debug("%s channel: %d hits, %d after source filter", name, len(results), len(filtered))
		out = domain.ChannelSuccess(name, truncate(filtered, limit))
	}

	span.SetAttributes(
		attribute.String("channel.status", out.Status.String()),
		attribute.Int("channel.results", len(out.Results)),
	)
	s.metrics.RecordChannel(name, out.Status.String(), time.Since(start))
	return out
}
