package response

import (
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Built-in processor names.
const (
	ProcessorThink         = "think"
	ProcessorToolArtifacts = "tool_artifacts"
	ProcessorCitations     = "citations"
	ProcessorMrkdwn        = "mrkdwn"
)

// RegisterDefaults registers all built-in processors with the registry.
// fallback resolves citations missing from the request's CitationMap; it
// may be nil.
func RegisterDefaults(r *Registry, fallback CachedResolver) {
	r.Register(ProcessorThink, func(map[string]any) (driven.ResponseProcessor, error) {
		return NewProcessor(ProcessorThink, func(text string, _ domain.CitationMap) string {
			return FilterThink(text)
		}), nil
	})
	r.Register(ProcessorToolArtifacts, func(map[string]any) (driven.ResponseProcessor, error) {
		return NewProcessor(ProcessorToolArtifacts, func(text string, _ domain.CitationMap) string {
			return FilterToolArtifacts(text)
		}), nil
	})
	r.Register(ProcessorCitations, func(map[string]any) (driven.ResponseProcessor, error) {
		return NewProcessor(ProcessorCitations, func(text string, citations domain.CitationMap) string {
			return LinkifyCitations(text, citations, fallback)
		}), nil
	})
	r.Register(ProcessorMrkdwn, func(map[string]any) (driven.ResponseProcessor, error) {
		return NewProcessor(ProcessorMrkdwn, func(text string, _ domain.CitationMap) string {
			return ToMrkdwn(text)
		}), nil
	})
}

// DefaultRegistry returns a registry with the built-in processors.
func DefaultRegistry(fallback CachedResolver) *Registry {
	r := NewRegistry()
	RegisterDefaults(r, fallback)
	return r
}
