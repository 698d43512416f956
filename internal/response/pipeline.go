// Package response post-processes language model output: reasoning block
// removal (streaming and batch), tool artifact cleanup, citation deep links
// and Markdown to Slack mrkdwn translation.
package response

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Pipeline chains ResponseProcessors and runs them in order.
type Pipeline struct {
	processors []driven.ResponseProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.ResponseProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs text through all processors in order.
func (p *Pipeline) Process(text string, citations domain.CitationMap) string {
	for _, processor := range p.processors {
		text = processor.Process(text, citations)
	}
	return text
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.ResponseProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// Names lists the processors in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, processor := range p.processors {
		names[i] = processor.Name()
	}
	return names
}

// With returns a copy of the pipeline with extra processors appended.
// The receiver is not modified, so a shared base pipeline stays safe for
// concurrent requests.
func (p *Pipeline) With(extra ...driven.ResponseProcessor) *Pipeline {
	out := make([]driven.ResponseProcessor, 0, len(p.processors)+len(extra))
	out = append(out, p.processors...)
	out = append(out, extra...)
	return &Pipeline{processors: out}
}

// processorFunc adapts a plain function to ResponseProcessor.
type processorFunc struct {
	name string
	fn   func(text string, citations domain.CitationMap) string
}

func (p processorFunc) Name() string { return p.name }

func (p processorFunc) Process(text string, citations domain.CitationMap) string {
	return p.fn(text, citations)
}

// NewProcessor wraps fn as a named ResponseProcessor.
func NewProcessor(name string, fn func(text string, citations domain.CitationMap) string) driven.ResponseProcessor {
	return processorFunc{name: name, fn: fn}
}
