// Package rag defines the interfaces for the retrieval side of the knowledge
// base: vector storage, similarity search, and embedding. Concrete
// implementations (Qdrant, etc.) satisfy these interfaces so the builder and
// agent layers never depend on a specific backend.
package rag

import (
	"context"
)

// Document represents a unit of stored or retrieved knowledge.
type Document struct {
	// ID is the stable identifier of this chunk, used as the upsert key.
	ID string

	// Content is the raw text content of the chunk.
	Content string

	// Metadata holds string key-value pairs (source, type, table_name, ...).
	Metadata map[string]string

	// Score is the similarity score assigned during retrieval.
	// Zero value means the score was not computed.
	Score float32
}

// Filter restricts a similarity search to documents whose metadata matches
// every listed key-value pair. A nil or empty Filter matches everything.
type Filter map[string]string

// VectorStore is the interface for persisting and searching document
// embeddings. Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of documents with their pre-computed
	// embeddings. embeddings[i] is the vector for docs[i].
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns the top-k documents most similar to the query embedding,
	// restricted to documents matching filter when non-empty. Ordering is the
	// store's native descending-similarity order.
	Search(ctx context.Context, queryEmbedding []float32, topK int, filter Filter) ([]Document, error)

	// Count returns the number of documents currently in the collection.
	Count(ctx context.Context) (uint64, error)

	// Reset drops and recreates the collection, removing all documents.
	// A full rebuild calls this first so stale chunks cannot linger.
	Reset(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the high-level interface used by the query router and agent
// tools to fetch relevant chunks for a free-text query. It combines embedding
// and filtered vector search.
type Retriever interface {
	// Retrieve returns the top-k documents most relevant to the query,
	// restricted to filter when non-empty.
	Retrieve(ctx context.Context, query string, topK int, filter Filter) ([]Document, error)
}
