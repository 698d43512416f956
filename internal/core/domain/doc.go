// Package domain defines the core business entities for sercha-rag.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SearchResult: A retrieved chunk joined with its parent document
//   - ChannelResult: The outcome of one retrieval channel
//   - CitationMap: Request-scoped (source, page) to deep link pairs
//   - Answer: A generated, post-processed answer
//   - AppSettings: Runtime configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
