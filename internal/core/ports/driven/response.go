package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// ResponseProcessor transforms a finished model answer.
// Processors are chained in a pipeline (reasoning removal, artifact
// cleanup, citation links, markup translation).
type ResponseProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process returns the transformed text. citations holds the deep links
	// resolved for this request and may be nil.
	Process(text string, citations domain.CitationMap) string
}

// ResponsePipeline runs the configured ResponseProcessors in order.
type ResponsePipeline interface {
	Process(text string, citations domain.CitationMap) string
}
