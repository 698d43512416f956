package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestAskCmd_Flags(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)

	flag := askCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "markdown", flag.DefValue)

	for _, name := range []string{"limit", "source", "no-stream"} {
		assert.NotNil(t, askCmd.Flags().Lookup(name), name)
	}
}

func TestAskCmd_Streams(t *testing.T) {
	ts := setupTestServices(t)
	citations := domain.NewCitationMap()
	citations.Record("Core.pdf", 89, "https://komga.test/book/b1/read?page=89")
	citations.Record("Other.pdf", 2, "https://komga.test/book/b2/read?page=2")
	ts.answer.chunks = []string{"Grapple ", "with a check (Core.pdf, p. 89)."}
	ts.answer.answer = &domain.Answer{
		Raw:       "Grapple with a check (Core.pdf, p. 89).",
		Text:      "Grapple with a check ([Core.pdf, p. 89](https://komga.test/book/b1/read?page=89)).",
		Citations: citations,
	}

	out, err := runCommand(t, "", "ask", "-n", "8", "--source", "Core", "how do I grapple?")

	require.NoError(t, err)
	assert.True(t, ts.answer.streamed)
	assert.Equal(t, "how do I grapple?", ts.answer.lastQ)
	assert.Equal(t, domain.AnswerOptions{
		MatchCount:   8,
		SourceFilter: "Core",
		Markup:       domain.MarkupMarkdown,
	}, ts.answer.lastOpts)

	assert.Contains(t, out, "Grapple with a check (Core.pdf, p. 89).\n")
	assert.Contains(t, out, "Links:")
	assert.Contains(t, out, "  Core.pdf, p. 89: https://komga.test/book/b1/read?page=89")
	assert.NotContains(t, out, "Other.pdf", "uncited sources are not listed")
}

func TestAskCmd_NoStream(t *testing.T) {
	ts := setupTestServices(t)
	ts.answer.answer = &domain.Answer{Text: "Final *answer*."}

	out, err := runCommand(t, "", "ask", "--no-stream", "question")

	require.NoError(t, err)
	assert.False(t, ts.answer.streamed)
	assert.Equal(t, "Final *answer*.\n", out)
}

func TestAskCmd_MrkdwnImpliesNoStream(t *testing.T) {
	ts := setupTestServices(t)
	ts.answer.answer = &domain.Answer{Text: "*bold*"}

	out, err := runCommand(t, "", "ask", "--format", "mrkdwn", "question")

	require.NoError(t, err)
	assert.False(t, ts.answer.streamed)
	assert.Equal(t, domain.MarkupMrkdwn, ts.answer.lastOpts.Markup)
	assert.Equal(t, "*bold*\n", out)
}

func TestAskCmd_InvalidFormat(t *testing.T) {
	setupTestServices(t)

	_, err := runCommand(t, "", "ask", "--format", "html", "question")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAskCmd_Error(t *testing.T) {
	ts := setupTestServices(t)
	ts.answer.chunks = []string{"partial"}
	ts.answer.err = fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, errors.New("connection refused"))

	out, err := runCommand(t, "", "ask", "question")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Equal(t, "partial\n", out)
}

func TestAskCmd_ServiceNotConfigured(t *testing.T) {
	setupTestServices(t)
	answerService = nil

	_, err := runCommand(t, "", "ask", "question")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "answer service not configured")
}

func TestPrintCitedLinks_NoCitations(t *testing.T) {
	setupTestServices(t)

	out, err := runCommand(t, "", "ask", "question")

	require.NoError(t, err)
	assert.NotContains(t, out, "Links:")
}
