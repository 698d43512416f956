package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown backend, provider or processor.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured or failed.
	// Question answering is disabled without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// The vector channel is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrSearchUnavailable indicates no retrieval backend is configured.
	ErrSearchUnavailable = errors.New("search backend unavailable")

	// ErrVectorIndexUnavailable indicates the vector channel has no index.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrTextIndexUnavailable indicates the text channel has no index.
	ErrTextIndexUnavailable = errors.New("text index unavailable")

	// Catalog Errors.

	// ErrCatalogNotConfigured indicates no document-reader catalog is set up.
	ErrCatalogNotConfigured = errors.New("catalog not configured")

	// ErrCatalogUnavailable indicates the catalog could not be reached.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrBookNotFound indicates no catalog book matched a filename.
	ErrBookNotFound = errors.New("book not found")

	// ErrRateLimited indicates an API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// StatusError is returned by HTTP adapters for non-2xx responses.
type StatusError struct {
	// Service names the remote, e.g. "openai", "ollama", "komga".
	Service string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Body is the (possibly truncated) response body.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.StatusCode, e.Body)
}

// NewStatusError builds a StatusError, truncating long bodies.
func NewStatusError(service string, code int, body []byte) *StatusError {
	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return &StatusError{Service: service, StatusCode: code, Body: string(body)}
}
