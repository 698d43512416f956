// Package sqlite provides a local knowledge base backed by SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. One database serves both retrieval channels:
//
//   - VectorIndex: exact cosine similarity over stored embeddings
//   - TextIndex: FTS5 prefix candidates re-scored by edit distance
//   - DocumentWriter: loading documents and chunks
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-rag/data/knowledge.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
