// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - TextIndex: Fuzzy full-text retrieval (MongoDB $search, SQLite FTS5)
//   - ConfigStore: Application configuration
//   - PromptStore: LLM prompt templates
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - VectorIndex: Vector retrieval. Only used when EmbeddingService is configured.
//   - EmbeddingService: Generates query embeddings. Without it the vector channel is skipped.
//   - LLMService: Chat completion. Without it only retrieval is available.
//   - Catalog: Document-reader lookups. Without it no deep links are produced.
//   - BookLinkStore: Durable book ID cache. Without it the cache lives in memory only.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
