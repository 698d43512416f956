package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Catalog is the external document-reader service that can open a
// document at a given page.
type Catalog interface {
	// IsConfigured reports whether the catalog has a base URL and credentials.
	IsConfigured() bool

	// SearchBooks returns books whose metadata matches a filename.
	SearchBooks(ctx context.Context, filename string) ([]domain.CatalogBook, error)

	// Libraries returns the number of libraries visible to the configured user.
	// It doubles as a connectivity and credentials check.
	Libraries(ctx context.Context) (int, error)

	// PageURL builds the reader URL for a book and 1-based page.
	PageURL(bookID string, page int) string
}

// BookLinkStore persists the filename to book ID map.
type BookLinkStore interface {
	// Load returns the full persisted map. A store that has never been
	// written returns an empty map and no error.
	Load(ctx context.Context) (map[string]string, error)

	// Save persists links. Shared stores may merge them with entries
	// written by other processes; no entry is ever removed.
	Save(ctx context.Context, links map[string]string) error
}
