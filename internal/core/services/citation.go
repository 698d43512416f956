package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/metrics"
)

// CitationResolver turns (source, page) pairs into catalog deep links.
// Resolution never fails loudly: any problem yields no link.
type CitationResolver struct {
	catalog driven.Catalog
	cache   *BookLinkCache
	timeout time.Duration
	group   singleflight.Group
	metrics *metrics.Collector
	tracer  trace.Tracer
}

// NewCitationResolver creates a resolver. catalog may be nil, in which case
// only ResolveCached can produce links (and only if the cache was loaded).
// A nil cache is replaced by an in-memory one.
func NewCitationResolver(catalog driven.Catalog, cache *BookLinkCache, timeout time.Duration) *CitationResolver {
	if cache == nil {
		cache = NewBookLinkCache(context.Background(), nil)
	}
	if timeout <= 0 {
		timeout = domain.DefaultCatalogTimeout
	}
	return &CitationResolver{
		catalog: catalog,
		cache:   cache,
		timeout: timeout,
		tracer:  otel.Tracer(tracerName),
	}
}

// SetMetrics sets the metrics collector.
func (r *CitationResolver) SetMetrics(m *metrics.Collector) {
	r.metrics = m
}

// Cache returns the underlying link cache.
func (r *CitationResolver) Cache() *BookLinkCache {
	return r.cache
}

// Resolve returns a deep link to page of source, looking the book up in the
// catalog when it is not cached. Only PDF sources are resolved.
func (r *CitationResolver) Resolve(ctx context.Context, source string, page int) (string, bool) {
	if r == nil || r.catalog == nil || !r.catalog.IsConfigured() {
		return "", false
	}
	if !domain.IsPaginatedSource(source) {
		return "", false
	}
	if page <= 0 {
		page = 1
	}

	if id, ok := r.cache.Get(source); ok {
		r.metrics.RecordCitationLookup(metrics.LookupCacheHit)
		return r.catalog.PageURL(id, page), true
	}

	// Concurrent lookups for one file share a call. The call is detached
	// from any single caller's cancellation and bounded by the timeout.
	v, err, _ := r.group.Do(source, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.lookupBookID(lookupCtx, source)
	})
	if err != nil {
		if errors.Is(err, domain.ErrBookNotFound) {
			r.metrics.RecordCitationLookup(metrics.LookupMiss)
			logger.Debug("Citation: no catalog book for %q", source)
		} else {
			r.metrics.RecordCitationLookup(metrics.LookupError)
			logger.Warn("Citation: catalog lookup for %q failed: %v", source, err)
		}
		return "", false
	}

	id := v.(string)
	r.cache.Add(source, id)
	r.metrics.RecordCitationLookup(metrics.LookupCatalogHit)
	return r.catalog.PageURL(id, page), true
}

// ResolveCached resolves from the cache only, trying the filename as given
// and then with a ".pdf" extension. It never touches the network.
func (r *CitationResolver) ResolveCached(filename string, page int) (string, bool) {
	if r == nil || r.catalog == nil || !r.catalog.IsConfigured() || filename == "" {
		return "", false
	}
	if page <= 0 {
		page = 1
	}
	id, ok := r.cache.Get(filename)
	if !ok && !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		id, ok = r.cache.Get(filename + ".pdf")
	}
	if !ok {
		return "", false
	}
	return r.catalog.PageURL(id, page), true
}

// lookupBookID asks the catalog for a book matching filename.
func (r *CitationResolver) lookupBookID(ctx context.Context, filename string) (string, error) {
	ctx, span := r.tracer.Start(ctx, "citation.lookup", trace.WithAttributes(
		attribute.String("citation.filename", filename),
	))
	defer span.End()

	books, err := r.catalog.SearchBooks(ctx, filename)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("search books: %w", err)
	}

	stem := strings.TrimSuffix(filename, path.Ext(filename))
	for _, b := range books {
		if b.ID == "" {
			continue
		}
		if strings.Contains(b.Name, filename) || strings.Contains(b.URL, filename) || b.Name == stem {
			return b.ID, nil
		}
	}
	return "", fmt.Errorf("%q: %w", filename, domain.ErrBookNotFound)
}
