// Package vectorstore provides a concurrency-safe in-memory vector store.
//
// Documents are embedded on add and kept in a single map guarded by one
// RWMutex. Searches rank a point-in-time snapshot of the store by cosine
// similarity, and the full state can be saved to and restored from a JSON
// snapshot file.
//
// # Usage
//
//	store, err := vectorstore.NewMemoryStore(embedder, logger)
//	if err != nil {
//	    return err
//	}
//
//	ids, err := store.Add(ctx, []vectorstore.Document{
//	    {ID: "doc-1", Content: "User prefers dark mode", Metadata: map[string]interface{}{"category": "preference"}},
//	})
//
//	req, err := vectorstore.NewSearchRequest("user preferences",
//	    vectorstore.WithTopK(10),
//	    vectorstore.WithSimilarityThreshold(0.5),
//	)
//	results, err := store.SimilaritySearch(ctx, req)
//
//	err = store.Save(ctx, "/data/memvec/store.json")
//
// # Errors
//
// Failures wrap one of the package sentinels and can be classified with
// errors.Is:
//   - ErrInvalidArgument: empty document list, threshold outside [0,1], top-k <= 0
//   - ErrNullInput: nil document list or nil vector
//   - ErrDimensionMismatch: vectors of different lengths
//   - ErrZeroNorm: cosine similarity of a zero vector
//   - ErrIOFailure: snapshot could not be written or read (*IOError)
//
// Deleting an unknown ID is not an error.
//
// # Snapshot format
//
// Snapshots are pretty-printed JSON objects keyed by document ID:
//
//	{
//	  "doc-1": {
//	    "id": "doc-1",
//	    "content": "User prefers dark mode",
//	    "metadata": {"category": "preference"},
//	    "embedding": [0.1, 0.2, 0.3]
//	  }
//	}
//
// Embeddings round-trip exactly. Numeric metadata values come back as float64.
package vectorstore
