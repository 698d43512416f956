package domain

// MarkupFormat selects the final markup of an answer.
type MarkupFormat string

// Supported markup formats.
const (
	// MarkupMarkdown leaves the model's Markdown as is.
	MarkupMarkdown MarkupFormat = "markdown"

	// MarkupMrkdwn translates Markdown into Slack mrkdwn.
	MarkupMrkdwn MarkupFormat = "mrkdwn"
)

// IsValid returns true if the format is recognised.
func (f MarkupFormat) IsValid() bool {
	return f == MarkupMarkdown || f == MarkupMrkdwn
}

// AnswerOptions configures a question-answering request.
type AnswerOptions struct {
	// MatchCount is the number of passages retrieved as context.
	MatchCount int

	// SourceFilter restricts retrieval to matching document sources.
	SourceFilter string

	// Markup selects the output markup. Empty means Markdown.
	Markup MarkupFormat
}

// Answer is the result of a question-answering request.
type Answer struct {
	// RequestID correlates log lines for one request.
	RequestID string

	// Text is the fully post-processed answer.
	Text string

	// Raw is the model output after reasoning removal, before post-processing.
	Raw string

	// Results are the passages given to the model as context.
	Results []SearchResult

	// Citations are the deep links resolved for the context passages.
	Citations CitationMap
}
