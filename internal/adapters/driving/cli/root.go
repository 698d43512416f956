// Package cli provides the cobra command tree for sercha-rag.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

var verbose bool

// Services holds the driving ports the commands call.
type Services struct {
	Search   driving.SearchService
	Answer   driving.AnswerService
	Catalog  driving.CatalogService
	Settings driving.SettingsService

	// Metrics is served at /metrics by `mcp --http`. Optional.
	Metrics http.Handler

	// WatchPrompts runs for the life of `mcp`, reloading edited prompts.
	// It blocks until its context is done. Optional.
	WatchPrompts func(ctx context.Context) error
}

var (
	searchService   driving.SearchService
	answerService   driving.AnswerService
	catalogService  driving.CatalogService
	settingsService driving.SettingsService
	metricsHandler  http.Handler
	watchPrompts    func(ctx context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Hybrid retrieval and question answering over a document knowledge base",
	Long: `sercha-rag searches a document knowledge base with vector and fuzzy text
retrieval fused by reciprocal rank fusion, and answers questions from the
results with citations that link into the Komga reader.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging to stderr")
}

// SetServices wires the driving ports used by the commands.
func SetServices(s Services) {
	searchService = s.Search
	answerService = s.Answer
	catalogService = s.Catalog
	settingsService = s.Settings
	metricsHandler = s.Metrics
	watchPrompts = s.WatchPrompts
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and prints any error in a styled box.
// It returns the process exit code.
func Execute(ctx context.Context) int {
	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, renderError(os.Stderr, err))
		return 1
	}
	return 0
}
