package vectorstore

import "context"

// Embedder generates vector embeddings from text.
//
// Embeddings are dense numerical representations that capture semantic meaning,
// enabling similarity search. Implementations can use local models (FastEmbed)
// or remote services (TEI). The store uses the returned vectors as-is and only
// checks that their length matches Dimension.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	// Returns a slice of embeddings (one per input text) or an error.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	// Some models optimize differently for queries vs documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the length of every vector the embedder produces.
	Dimension() int
}

// Store is the interface for vector storage operations.
//
// MemoryStore is the only implementation. The interface exists so outer
// layers (HTTP API, CLI) can be tested against fakes.
type Store interface {
	// Add embeds and stores documents, replacing any entry with the same ID.
	// Returns the IDs of the stored documents in input order.
	Add(ctx context.Context, docs []Document) ([]string, error)

	// Delete removes documents by ID. Unknown IDs are ignored and the
	// returned flag is always true when err is nil.
	Delete(ctx context.Context, ids []string) (bool, error)

	// SimilaritySearch ranks stored documents against the request query.
	SimilaritySearch(ctx context.Context, req SearchRequest) ([]SearchResult, error)

	// Search runs SimilaritySearch with the default threshold and top-k.
	Search(ctx context.Context, query string) ([]SearchResult, error)

	// Save writes a full snapshot to path.
	Save(ctx context.Context, path string) error

	// Load replaces the store contents with the snapshot at path.
	Load(ctx context.Context, path string) error

	// Count returns the number of stored documents.
	Count() int
}
