package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/scoring"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Store implements the interfaces.
var (
	_ driven.DocumentWriter = (*Store)(nil)
	_ driven.VectorIndex    = (*vectorIndex)(nil)
	_ driven.TextIndex      = (*textIndex)(nil)
)

// Text candidate pool bounds. FTS5 narrows the table to chunks sharing a
// term prefix; those candidates are then scored by edit distance.
const (
	minTextCandidates    = 200
	textCandidatesFactor = 20
)

// Store is a SQLite knowledge base serving both retrieval channels.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens or creates the database at path.
// If path is empty, defaults to ~/.sercha-rag/data/knowledge.db.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".sercha-rag", "data", "knowledge.db")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: path,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// VectorIndex returns the vector channel backed by this store.
func (s *Store) VectorIndex() driven.VectorIndex {
	return &vectorIndex{store: s}
}

// TextIndex returns the text channel backed by this store.
func (s *Store) TextIndex() driven.TextIndex {
	return &textIndex{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// SaveDocument stores or updates a document.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, source, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			source = excluded.source
	`, doc.ID, doc.Title, doc.Source, createdAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// SaveChunks stores or updates chunks in one transaction.
// Every chunk's document must already exist.
func (s *Store) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, position, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			content = excluded.content,
			position = excluded.position,
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if chunk.ID == "" {
			return domain.ErrInvalidInput
		}
		metadataJSON, err := json.Marshal(chunk.Metadata.Map())
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Content,
			chunk.Position, float32SliceToBytes(chunk.Embedding), string(metadataJSON)); err != nil {
			return fmt.Errorf("saving chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ==================== Vector Index ====================

// vectorIndex implements driven.VectorIndex with an exact scan.
type vectorIndex struct {
	store *Store
}

// Search ranks every embedded chunk by cosine similarity.
// NumCandidates is ignored: the scan is exact.
func (v *vectorIndex) Search(ctx context.Context, q driven.VectorQuery) ([]domain.SearchResult, error) {
	if len(q.Embedding) == 0 {
		return nil, domain.ErrInvalidInput
	}

	rows, err := v.store.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.content, c.metadata, c.embedding, d.title, d.source
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL
		ORDER BY c.rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		var metadataJSON string
		var blob []byte
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Content, &metadataJSON, &blob,
			&r.DocumentTitle, &r.DocumentSource); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		embedding := bytesToFloat32Slice(blob)
		if len(embedding) != len(q.Embedding) {
			continue
		}
		r.Score = scoring.VectorScore(q.Embedding, embedding)
		r.Metadata = parseMetadata(metadataJSON)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return topN(results, q.Limit), nil
}

// ==================== Text Index ====================

// textIndex implements driven.TextIndex.
type textIndex struct {
	store *Store
}

// Search finds FTS5 candidates sharing a term prefix and keeps those whose
// terms match within the edit budget, scored like Atlas fuzzy search.
// Candidates are the best BM25 matches; scored ties keep storage order.
func (t *textIndex) Search(ctx context.Context, q driven.TextQuery) ([]domain.SearchResult, error) {
	terms := scoring.Tokenize(q.Text)
	if len(terms) == 0 {
		return nil, nil
	}

	rows, err := t.store.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.content, c.metadata, d.title, d.source
		FROM (
			SELECT rowid FROM chunks_fts
			WHERE chunks_fts MATCH ?
			ORDER BY rank
			LIMIT ?
		) f
		JOIN chunks c ON c.rowid = f.rowid
		JOIN documents d ON d.id = c.document_id
		ORDER BY c.rowid
	`, prefixMatchQuery(terms, q.PrefixLength), max(minTextCandidates, q.Limit*textCandidatesFactor))
	if err != nil {
		return nil, fmt.Errorf("querying text index: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		var metadataJSON string
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Content, &metadataJSON,
			&r.DocumentTitle, &r.DocumentSource); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		r.Score = scoring.TextScore(terms, r.Content, q.MaxEdits, q.PrefixLength)
		if r.Score <= 0 {
			continue
		}
		r.Metadata = parseMetadata(metadataJSON)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return topN(results, q.Limit), nil
}

// prefixMatchQuery builds an FTS5 query OR-ing a prefix match per term.
// Terms shorter than the prefix length are matched as whole prefixes.
func prefixMatchQuery(terms []string, prefixLength int) string {
	parts := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		prefix := term
		if r := []rune(term); prefixLength > 0 && len(r) > prefixLength {
			prefix = string(r[:prefixLength])
		}
		if seen[prefix] {
			continue
		}
		seen[prefix] = true
		parts = append(parts, `"`+strings.ReplaceAll(prefix, `"`, `""`)+`"*`)
	}
	return strings.Join(parts, " OR ")
}

// ==================== Helper Functions ====================

// topN sorts by score descending, stable on storage order, and truncates.
func topN(results []domain.SearchResult, limit int) []domain.SearchResult {
	domain.SortByScore(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// parseMetadata decodes stored chunk metadata. Corrupt JSON yields empty metadata.
func parseMetadata(raw string) domain.ChunkMetadata {
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return domain.ChunkMetadata{}
	}
	return domain.ParseChunkMetadata(m)
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
