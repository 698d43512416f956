package driving

import "context"

// CatalogService exposes the document-reader catalog to external actors.
type CatalogService interface {
	// TestConnection checks credentials and reachability and returns a
	// human-readable status line.
	TestConnection(ctx context.Context) (string, error)

	// ResolvePage returns the deep link for a page of a source document.
	ResolvePage(ctx context.Context, source string, page int) (string, bool)
}
