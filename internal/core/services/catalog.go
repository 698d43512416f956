package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ensure CatalogService implements the interface.
var _ driving.CatalogService = (*CatalogService)(nil)

// CatalogService exposes connection checks and page resolution.
type CatalogService struct {
	catalog  driven.Catalog
	resolver *CitationResolver
}

// NewCatalogService creates a catalog service.
func NewCatalogService(catalog driven.Catalog, resolver *CitationResolver) *CatalogService {
	return &CatalogService{catalog: catalog, resolver: resolver}
}

// TestConnection lists libraries to verify reachability and credentials.
func (s *CatalogService) TestConnection(ctx context.Context) (string, error) {
	if s.catalog == nil || !s.catalog.IsConfigured() {
		return "", fmt.Errorf("set catalog.base_url, catalog.username and catalog.password: %w",
			domain.ErrCatalogNotConfigured)
	}

	n, err := s.catalog.Libraries(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", describeCatalogError(err), err)
	}
	return fmt.Sprintf("Connected to catalog (%d libraries)", n), nil
}

// ResolvePage resolves a deep link, consulting the catalog when needed.
func (s *CatalogService) ResolvePage(ctx context.Context, source string, page int) (string, bool) {
	return s.resolver.Resolve(ctx, source, page)
}

func describeCatalogError(err error) string {
	var se *domain.StatusError
	var ne net.Error
	switch {
	case errors.As(err, &se) && se.StatusCode == 401:
		return "authentication failed, check catalog.username and catalog.password"
	case errors.As(err, &se):
		return fmt.Sprintf("catalog returned status %d", se.StatusCode)
	case errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()):
		return "connection timed out"
	case errors.Is(err, syscall.ECONNREFUSED):
		return "connection refused, check catalog.base_url"
	default:
		return "connection failed"
	}
}
