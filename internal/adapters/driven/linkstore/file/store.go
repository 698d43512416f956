// Package file persists the book link cache as a JSON file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BookLinkStore = (*Store)(nil)

// Store reads and writes a filename to book ID JSON object.
// Writes go to a temporary file that is renamed into place, so readers
// never see a partial file.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store for path.
// If path is empty, defaults to ~/.sercha-rag/book_links.json.
func NewStore(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(home, ".sercha-rag", "book_links.json")
	}
	return &Store{path: path}, nil
}

// Path returns the file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the file. A missing file is an empty map.
func (s *Store) Load(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read book links: %w", err)
	}

	links := map[string]string{}
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, fmt.Errorf("parse book links %s: %w", s.path, err)
	}
	return links, nil
}

// Save writes links atomically.
func (s *Store) Save(_ context.Context, links map[string]string) error {
	data, err := json.MarshalIndent(links, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal book links: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".book_links-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write book links: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace book links: %w", err)
	}
	return nil
}
