package domain

import "strings"

// CitationKey identifies a page within a source document.
type CitationKey struct {
	Source string
	Page   int
}

// CitationMap holds the deep links resolved while formatting one request's
// context. It is owned by the request and must not be shared between
// requests; the process-wide filename to book ID cache is a separate type.
type CitationMap map[CitationKey]string

// NewCitationMap returns an empty map.
func NewCitationMap() CitationMap {
	return make(CitationMap)
}

// Record stores a deep link. Empty URLs are ignored.
func (m CitationMap) Record(source string, page int, url string) {
	if m == nil || url == "" {
		return
	}
	m[CitationKey{Source: source, Page: page}] = url
}

// Lookup returns the deep link for a page, if one was recorded.
func (m CitationMap) Lookup(source string, page int) (string, bool) {
	if m == nil {
		return "", false
	}
	url, ok := m[CitationKey{Source: source, Page: page}]
	return url, ok
}

// Len returns the number of recorded links.
func (m CitationMap) Len() int {
	return len(m)
}

// IsPaginatedSource reports whether a source is a document the catalog can
// open at a page. Only PDFs qualify.
func IsPaginatedSource(source string) bool {
	return strings.HasSuffix(strings.ToLower(source), ".pdf")
}

// CatalogBook is a book entry returned by the document-reader catalog.
type CatalogBook struct {
	ID   string
	Name string
	URL  string
}
