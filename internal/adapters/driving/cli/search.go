package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// snippetLength caps the passage text shown per result.
const snippetLength = 200

var (
	searchLimit   int
	searchMode    string
	searchSource  string
	searchContext bool
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Performs hybrid search across the knowledge base.
Runs vector (semantic) and fuzzy text retrieval in parallel and fuses the
ranked lists with reciprocal rank fusion.

Modes:
  hybrid    - vector + fuzzy text, fused (default)
  semantic  - vector similarity only
  text      - fuzzy full-text only`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringVar(&searchMode, "mode", "", "search mode: hybrid, semantic or text (default from settings)")
	searchCmd.Flags().StringVar(&searchSource, "source", "", "regular expression matched against document filenames")
	searchCmd.Flags().BoolVar(&searchContext, "context", false, "print the context block given to the language model")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if searchService == nil {
		return errors.New("search service not configured")
	}

	ctx := cmd.Context()
	opts := domain.SearchOptions{
		MatchCount:   searchLimit,
		SourceFilter: searchSource,
		Mode:         domain.SearchMode(searchMode),
	}

	results, err := searchService.Search(ctx, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchContext {
		cmd.Print(searchService.FormatContext(ctx, results, nil))
		return nil
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}

	return outputSearchTable(cmd, results)
}

// searchResultJSON is the JSON shape of one result.
type searchResultJSON struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Source     string  `json:"source"`
	Pages      []int   `json:"pages,omitempty"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultJSON, len(results))
	for i, r := range results {
		out[i] = searchResultJSON{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			Title:      r.DocumentTitle,
			Source:     r.DocumentSource,
			Pages:      r.Metadata.PageNumbers,
			Score:      r.Score,
			Content:    r.Content,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	w := cmd.OutOrStdout()
	cmd.Println(style(w, headingStyle, "Results:"))
	cmd.Println()
	for i := range results {
		r := results[i]

		// Format: [N] Title (Score)
		title := r.DocumentTitle
		if title == "" {
			title = r.DocumentSource
		}
		if title == "" {
			title = r.DocumentID
		}

		cmd.Printf("  [%d] %s %s\n", i+1, title, style(w, mutedStyle, fmt.Sprintf("(%.4f)", r.Score)))
		if r.DocumentSource != "" {
			location := r.DocumentSource
			if label := r.Metadata.PageLabel(); label != "" {
				location += ", " + label
			}
			cmd.Printf("      Source: %s\n", location)
		}
		if snippet := snippetOf(r.Content); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}

	return nil
}

// snippetOf flattens whitespace and cuts text to snippetLength runes.
func snippetOf(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}
