// Package mongodb provides the MongoDB Atlas knowledge base. The vector
// channel uses $vectorSearch and the text channel uses Atlas Search fuzzy
// $search; both join chunks to their parent documents with $lookup.
package mongodb

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure the channels implement the interfaces.
var (
	_ driven.VectorIndex = (*vectorIndex)(nil)
	_ driven.TextIndex   = (*textIndex)(nil)
)

// aggregator runs an aggregation pipeline on the chunks collection.
type aggregator interface {
	Aggregate(ctx context.Context, pipeline mongo.Pipeline) (*mongo.Cursor, error)
}

// collectionAggregator adapts *mongo.Collection to aggregator.
type collectionAggregator struct {
	coll *mongo.Collection
}

func (a collectionAggregator) Aggregate(ctx context.Context, pipeline mongo.Pipeline) (*mongo.Cursor, error) {
	return a.coll.Aggregate(ctx, pipeline)
}

// Store is a connected MongoDB knowledge base.
type Store struct {
	client   *mongo.Client
	settings domain.MongoSettings
	chunks   aggregator
}

// Connect opens a client and verifies the deployment is reachable.
func Connect(ctx context.Context, settings domain.MongoSettings) (*Store, error) {
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("mongodb: %w", domain.ErrInvalidInput)
	}

	client, err := mongo.Connect(options.Client().ApplyURI(settings.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	coll := client.Database(settings.Database).Collection(settings.ChunksCollection)
	return &Store{
		client:   client,
		settings: settings,
		chunks:   collectionAggregator{coll: coll},
	}, nil
}

// newStore builds a store over an arbitrary aggregator.
func newStore(settings domain.MongoSettings, chunks aggregator) *Store {
	return &Store{settings: settings, chunks: chunks}
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// VectorIndex returns the $vectorSearch channel.
func (s *Store) VectorIndex() driven.VectorIndex {
	return &vectorIndex{store: s}
}

// TextIndex returns the Atlas Search channel.
func (s *Store) TextIndex() driven.TextIndex {
	return &textIndex{store: s}
}

type vectorIndex struct {
	store *Store
}

// Search runs $vectorSearch against the chunk embeddings.
func (v *vectorIndex) Search(ctx context.Context, q driven.VectorQuery) ([]domain.SearchResult, error) {
	if len(q.Embedding) == 0 {
		return nil, domain.ErrInvalidInput
	}
	return v.store.aggregate(ctx, vectorPipeline(v.store.settings, q))
}

type textIndex struct {
	store *Store
}

// Search runs a fuzzy Atlas Search text query against chunk content.
func (t *textIndex) Search(ctx context.Context, q driven.TextQuery) ([]domain.SearchResult, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, nil
	}
	return t.store.aggregate(ctx, textPipeline(t.store.settings, q))
}

func (s *Store) aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]domain.SearchResult, error) {
	cursor, err := s.chunks.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []resultDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(docs))
	for _, d := range docs {
		results = append(results, d.toResult())
	}
	return results, nil
}
