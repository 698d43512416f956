package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// persistTimeout bounds one background save of the link cache.
const persistTimeout = 10 * time.Second

// BookLinkCache maps document filenames to catalog book IDs for the life of
// the process. Entries are never overwritten or removed. New entries are
// saved to the optional store in the background.
type BookLinkCache struct {
	mu    sync.RWMutex
	links map[string]string
	store driven.BookLinkStore

	version int64

	saveMu    sync.Mutex
	savedUpTo int64
	inflight  sync.WaitGroup
}

// NewBookLinkCache loads all persisted links from store. A nil store keeps
// the cache in memory only. A load failure is logged and the cache starts
// empty.
func NewBookLinkCache(ctx context.Context, store driven.BookLinkStore) *BookLinkCache {
	c := &BookLinkCache{
		links: make(map[string]string),
		store: store,
	}
	if store == nil {
		return c
	}

	links, err := store.Load(ctx)
	if err != nil {
		logger.Warn("Book link cache: load failed, starting empty: %v", err)
		return c
	}
	for k, v := range links {
		c.links[k] = v
	}
	logger.Debug("Book link cache: loaded %d links", len(c.links))
	return c
}

// Get returns the book ID for a filename.
func (c *BookLinkCache) Get(filename string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.links[filename]
	return id, ok
}

// Add records a link if the filename is not already present and reports
// whether it was added.
func (c *BookLinkCache) Add(filename, bookID string) bool {
	if filename == "" || bookID == "" {
		return false
	}

	c.mu.Lock()
	if _, exists := c.links[filename]; exists {
		c.mu.Unlock()
		return false
	}
	c.links[filename] = bookID
	c.version++
	version := c.version
	snapshot := make(map[string]string, len(c.links))
	for k, v := range c.links {
		snapshot[k] = v
	}
	c.mu.Unlock()

	if c.store != nil {
		c.inflight.Add(1)
		go c.persist(version, snapshot)
	}
	return true
}

// Len returns the number of cached links.
func (c *BookLinkCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.links)
}

// Wait blocks until background saves finish.
func (c *BookLinkCache) Wait() {
	c.inflight.Wait()
}

// persist saves a snapshot unless a newer one has already been saved.
func (c *BookLinkCache) persist(version int64, snapshot map[string]string) {
	defer c.inflight.Done()

	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	if version <= c.savedUpTo {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := c.store.Save(ctx, snapshot); err != nil {
		logger.Warn("Book link cache: save failed: %v", err)
		return
	}
	c.savedUpTo = version
}
