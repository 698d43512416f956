package domain

import "time"

// Document is a source document in the knowledge base.
// Chunks reference it by ID and inherit its title and source on retrieval.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title.
	Title string

	// Source is the originating filename or URI, e.g. "CoreRules_2024.pdf".
	// Source filters and citation deep links operate on this value.
	Source string

	// CreatedAt is when the document was first stored.
	CreatedAt time.Time
}

// Chunk is a retrievable unit of a document.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector representation for semantic search.
	Embedding []float32

	// Metadata holds page numbers and any other chunk attributes.
	Metadata ChunkMetadata
}
