package cli

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Palette shared with the rest of the CLI output.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourMuted   = lipgloss.Color("#6C7086")
	colourError   = lipgloss.Color("#F38BA8")
	colourWarning = lipgloss.Color("#F9E2AF")
)

var (
	errorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colourError).
			Padding(0, 1)

	errorTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colourError)

	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)

	mutedStyle = lipgloss.NewStyle().Foreground(colourMuted)

	warningStyle = lipgloss.NewStyle().Foreground(colourWarning)
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// style renders s with st only when w is a terminal.
func style(w io.Writer, st lipgloss.Style, s string) string {
	if !isTerminal(w) {
		return s
	}
	return st.Render(s)
}

// describeError returns a headline and an optional hint for err.
// Model failures are classified so the user sees what to fix.
func describeError(err error) (title, hint string) {
	switch {
	case errors.Is(err, domain.ErrLLMUnavailable):
		if err.Error() == domain.ErrLLMUnavailable.Error() {
			return "LLM not configured",
				"Set llm.provider (and llm.api_key for openai) with 'sercha-rag settings set'."
		}
		return domain.ClassifyLLMError(err)
	case errors.Is(err, domain.ErrCatalogNotConfigured):
		return "Catalog not configured", err.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return "Invalid input", err.Error()
	default:
		return "Error", err.Error()
	}
}

// renderError formats err for w: a bordered box on a terminal, plain
// "Error: ..." lines otherwise.
func renderError(w io.Writer, err error) string {
	title, hint := describeError(err)

	if !isTerminal(w) {
		if hint == "" || hint == title {
			return "Error: " + title
		}
		return "Error: " + title + "\n" + hint
	}

	var b strings.Builder
	b.WriteString(errorTitleStyle.Render(title))
	if hint != "" && hint != title {
		b.WriteString("\n")
		b.WriteString(hint)
	}
	return errorBoxStyle.Render(b.String())
}
