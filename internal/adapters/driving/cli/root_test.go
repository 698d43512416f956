package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	search   *mockSearchService
	answer   *mockAnswerService
	catalog  *mockCatalogService
	settings *mockSettingsService
}

// setupTestServices installs mock services and returns them with a cleanup
// that restores the previous ones.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()

	ts := &testServices{
		search: &mockSearchService{results: []domain.SearchResult{
			{
				ChunkID: "c1", DocumentID: "d1", DocumentTitle: "Core Rules",
				DocumentSource: "Core.pdf", Content: "Grappling in zero gravity.",
				Score: 0.0325, Metadata: domain.ChunkMetadata{PageNumbers: []int{89, 90}},
			},
			{
				ChunkID: "c2", DocumentID: "d2", DocumentSource: "notes.md",
				Content: "The crew met a pirate.", Score: 0.0161,
			},
		}},
		answer:   &mockAnswerService{},
		catalog:  &mockCatalogService{},
		settings: newMockSettingsService(),
	}

	oldSearch, oldAnswer, oldCatalog, oldSettings := searchService, answerService, catalogService, settingsService
	SetServices(Services{
		Search:   ts.search,
		Answer:   ts.answer,
		Catalog:  ts.catalog,
		Settings: ts.settings,
	})
	t.Cleanup(func() {
		searchService, answerService, catalogService, settingsService =
			oldSearch, oldAnswer, oldCatalog, oldSettings
	})
	return ts
}

// resetFlags restores every command flag variable to its default.
func resetFlags() {
	searchLimit, searchMode, searchSource, searchContext, searchJSON = 10, "", "", false, false
	askLimit, askSource, askNoStream, askFormat = 0, "", false, string(domain.MarkupMarkdown)
	mcpHTTPAddr = ""
	verbose = false
}

// runCommand executes the root command with args and returns its output.
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags()
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCmd(t *testing.T) {
	assert.Equal(t, "sercha-rag", rootCmd.Use)
	assert.True(t, rootCmd.SilenceErrors)
	assert.True(t, rootCmd.SilenceUsage)

	flag := rootCmd.PersistentFlags().Lookup("verbose")
	if assert.NotNil(t, flag) {
		assert.Equal(t, "v", flag.Shorthand)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"search", "ask", "catalog", "settings", "mcp", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestSetVersion(t *testing.T) {
	original := version
	t.Cleanup(func() { version = original })

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)

	SetVersion("")
	assert.Equal(t, "1.2.3", version)
}

func TestSetServices(t *testing.T) {
	ts := setupTestServices(t)

	assert.Same(t, ts.search, searchService)
	assert.Same(t, ts.answer, answerService)
	assert.Same(t, ts.catalog, catalogService)
	assert.Same(t, ts.settings, settingsService)
	assert.Nil(t, metricsHandler)
}
