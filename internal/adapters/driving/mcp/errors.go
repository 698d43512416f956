// Package mcp provides an MCP (Model Context Protocol) server adapter for
// sercha-rag. It lets AI assistants search the knowledge base and ask
// questions answered from it.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingAnswerService is returned by the ask tool when no answer
// service is wired, typically because no LLM is configured.
var ErrMissingAnswerService = errors.New("mcp: answer service is not configured")
