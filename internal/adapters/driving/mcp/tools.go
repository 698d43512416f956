package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// SearchInput is the input schema for the search_knowledge_base tool.
type SearchInput struct {
	Query        string `json:"query" jsonschema:"the search query"`
	MatchCount   int    `json:"match_count,omitempty" jsonschema:"number of passages to return (default from settings, capped by max)"`
	SearchType   string `json:"search_type,omitempty" jsonschema:"hybrid (default), semantic or text"`
	SourceFilter string `json:"source_filter,omitempty" jsonschema:"regular expression matched against document filenames"`
}

// SearchOutput is the output schema for the search_knowledge_base tool.
type SearchOutput struct {
	Context string               `json:"context"`
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved passage.
type SearchResultOutput struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Source     string  `json:"source"`
	Pages      []int   `json:"pages,omitempty"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
	ReadURL    string  `json:"read_url,omitempty"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question     string `json:"question" jsonschema:"the question to answer from the knowledge base"`
	MatchCount   int    `json:"match_count,omitempty" jsonschema:"number of passages used as context"`
	SourceFilter string `json:"source_filter,omitempty" jsonschema:"regular expression matched against document filenames"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string   `json:"answer"`
	RequestID string   `json:"request_id"`
	Sources   []string `json:"sources,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "search_knowledge_base",
		Description: "Search the knowledge base with hybrid vector and fuzzy text retrieval. " +
			"Returns passages with source filenames, page numbers and reader links.",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "ask",
		Description: "Answer a question from the knowledge base. " +
			"The answer cites sources as (FILENAME.pdf, p. N) with reader links.",
	}, s.handleAsk)
}

// handleSearch handles the search_knowledge_base tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	mode := domain.SearchMode(input.SearchType)
	if mode == "" {
		mode = domain.SearchModeHybrid
	}
	if !mode.IsValid() {
		return nil, SearchOutput{}, fmt.Errorf("search_type %q: use hybrid, semantic or text", input.SearchType)
	}

	results, err := s.ports.Search.Search(ctx, input.Query, domain.SearchOptions{
		MatchCount:   input.MatchCount,
		SourceFilter: input.SourceFilter,
		Mode:         mode,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	citations := domain.NewCitationMap()
	output := SearchOutput{
		Context: s.ports.Search.FormatContext(ctx, results, citations),
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i, r := range results {
		out := SearchResultOutput{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			Title:      r.DocumentTitle,
			Source:     r.DocumentSource,
			Pages:      r.Metadata.PageNumbers,
			Score:      r.Score,
			Content:    r.Content,
		}
		if page, ok := r.Metadata.FirstPage(); ok {
			out.ReadURL, _ = citations.Lookup(r.DocumentSource, page)
		}
		output.Results[i] = out
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: output.Context}},
	}, output, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Answer == nil {
		return nil, AskOutput{}, ErrMissingAnswerService
	}

	answer, err := s.ports.Answer.Answer(ctx, input.Question, domain.AnswerOptions{
		MatchCount:   input.MatchCount,
		SourceFilter: input.SourceFilter,
		Markup:       domain.MarkupMarkdown,
	})
	if err != nil {
		if errors.Is(err, domain.ErrLLMUnavailable) {
			short, _ := domain.ClassifyLLMError(err)
			return nil, AskOutput{}, fmt.Errorf("%s: %w", short, err)
		}
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:    answer.Text,
		RequestID: answer.RequestID,
		Sources:   sourcesOf(answer.Results),
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: answer.Text}},
	}, output, nil
}

// sourcesOf lists distinct document sources in retrieval order.
func sourcesOf(results []domain.SearchResult) []string {
	seen := make(map[string]bool, len(results))
	var sources []string
	for _, r := range results {
		if r.DocumentSource == "" || seen[r.DocumentSource] {
			continue
		}
		seen[r.DocumentSource] = true
		sources = append(sources, r.DocumentSource)
	}
	return sources
}
