// Package redis persists the book link cache in a Redis hash so several
// processes can share resolved book IDs.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.BookLinkStore = (*Store)(nil)

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// Key names the hash (default: sercha-rag:book-links).
	Key string
}

// Store keeps links in one hash: field filename, value book ID.
type Store struct {
	client *goredis.Client
	key    string
}

// NewStore connects and pings Redis.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address: %w", domain.ErrInvalidInput)
	}
	if cfg.Key == "" {
		cfg.Key = domain.DefaultRedisLinkKey
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Store{client: client, key: cfg.Key}, nil
}

// Load returns every link in the hash.
func (s *Store) Load(ctx context.Context) (map[string]string, error) {
	links, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load book links: %w", err)
	}
	return links, nil
}

// Save merges links into the hash. Fields already set by another process
// are left alone.
func (s *Store) Save(ctx context.Context, links map[string]string) error {
	if len(links) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for filename, id := range links {
			pipe.HSetNX(ctx, s.key, filename, id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save book links: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
