package vectorstore

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("memvec.vectorstore")

// newID is a variable for testing purposes (allows deterministic IDs).
var newID = uuid.NewString

// MemoryStore is a concurrency-safe in-memory vector store.
//
// All entries live in a single map guarded by one RWMutex. Embedding and
// scoring happen outside the lock; only the commit of a batch, deletion,
// snapshot copies and wholesale replacement on Load hold it.
type MemoryStore struct {
	embedder Embedder
	logger   *zap.Logger
	options  options

	mu      sync.RWMutex
	entries map[string]*entry
	seq     uint64

	savedMu sync.Mutex
	saved   os.FileInfo // last snapshot file written by Save
}

// Option configures a MemoryStore.
type Option func(*options)

type options struct {
	defaultTopK      int
	defaultThreshold float64
}

// WithDefaultTopK sets the top-k used by Search. Non-positive values are ignored.
func WithDefaultTopK(k int) Option {
	return func(o *options) {
		if k > 0 {
			o.defaultTopK = k
		}
	}
}

// WithDefaultThreshold sets the similarity threshold used by Search.
// Values outside [0, 1] are ignored.
func WithDefaultThreshold(threshold float64) Option {
	return func(o *options) {
		if threshold >= 0 && threshold <= 1 {
			o.defaultThreshold = threshold
		}
	}
}

// NewMemoryStore creates an empty store backed by the given embedder.
//
// The Prometheus collectors in this package are process-wide. With more than
// one store, DocumentsTotal reports the size of whichever store changed last
// and OperationsTotal sums across stores.
func NewMemoryStore(embedder Embedder, logger *zap.Logger, opts ...Option) (*MemoryStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if embedder.Dimension() <= 0 {
		return nil, fmt.Errorf("%w: embedder dimension must be positive, got %d", ErrInvalidConfig, embedder.Dimension())
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := options{
		defaultTopK:      DefaultTopK,
		defaultThreshold: SimilarityThresholdAcceptAll,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &MemoryStore{
		embedder: embedder,
		logger:   logger,
		options:  o,
		entries:  make(map[string]*entry),
	}, nil
}

// Add embeds docs and stores them, replacing any entry with the same ID.
//
// The whole batch is embedded before anything is written: if the embedder
// fails or returns a vector of the wrong length, no document of the batch is
// stored. Documents without an ID get a random UUID. Returns the stored IDs in
// input order.
func (s *MemoryStore) Add(ctx context.Context, docs []Document) (ids []string, err error) {
	ctx, span := tracer.Start(ctx, "MemoryStore.Add")
	defer span.End()
	defer func() { recordOperation("add", err) }()

	if docs == nil {
		return nil, fmt.Errorf("%w: documents list cannot be nil", ErrNullInput)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: documents list cannot be empty", ErrInvalidArgument)
	}

	span.SetAttributes(attribute.Int("document_count", len(docs)))

	ids = make([]string, len(docs))
	texts := make([]string, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
		if ids[i] == "" {
			ids[i] = newID()
			s.logger.Debug("generated document ID",
				zap.String("generated_id", ids[i]),
				zap.Int("index", i),
			)
		}
		texts[i] = doc.Content
	}

	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	if len(embeddings) != len(docs) {
		err = fmt.Errorf("%w: embedder returned %d vectors for %d documents", ErrEmbeddingFailed, len(embeddings), len(docs))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	dim := s.embedder.Dimension()
	batch := make([]*entry, len(docs))
	for i, doc := range docs {
		if len(embeddings[i]) != dim {
			err = fmt.Errorf("%w: document %q embedding has %d dimensions, want %d",
				ErrDimensionMismatch, ids[i], len(embeddings[i]), dim)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		batch[i] = &entry{Entry: Entry{
			ID:        ids[i],
			Content:   doc.Content,
			Metadata:  copyMetadata(doc.Metadata),
			Embedding: append([]float32(nil), embeddings[i]...),
		}}
	}

	s.mu.Lock()
	for _, e := range batch {
		s.seq++
		e.seq = s.seq
		s.entries[e.ID] = e
	}
	count := len(s.entries)
	s.mu.Unlock()

	DocumentsTotal.Set(float64(count))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("added documents",
		zap.Int("count", len(batch)),
		zap.Int("total", count),
	)

	return ids, nil
}

// Delete removes the documents with the given IDs. Unknown IDs are ignored;
// the result is always true once the call completes.
func (s *MemoryStore) Delete(ctx context.Context, ids []string) (bool, error) {
	_, span := tracer.Start(ctx, "MemoryStore.Delete")
	defer span.End()

	span.SetAttributes(attribute.Int("id_count", len(ids)))

	removed := 0
	s.mu.Lock()
	for _, id := range ids {
		if _, ok := s.entries[id]; ok {
			delete(s.entries, id)
			removed++
		}
	}
	count := len(s.entries)
	s.mu.Unlock()

	DocumentsTotal.Set(float64(count))
	recordOperation("delete", nil)
	span.SetAttributes(attribute.Int("removed", removed))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("deleted documents",
		zap.Int("requested", len(ids)),
		zap.Int("removed", removed),
	)

	return true, nil
}

// Snapshot returns a point-in-time copy of all entries in insertion order.
// The returned entries share no memory with the store.
func (s *MemoryStore) Snapshot() []Entry {
	s.mu.RLock()
	ordered := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		ordered = append(ordered, e)
	}
	result := make([]Entry, 0, len(ordered))
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })
	for _, e := range ordered {
		result = append(result, e.clone())
	}
	s.mu.RUnlock()

	return result
}

// Get returns a copy of the entry stored under id.
func (s *MemoryStore) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// Count returns the number of stored documents.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Dimension returns the embedding dimension enforced by the store.
func (s *MemoryStore) Dimension() int {
	return s.embedder.Dimension()
}

// replace swaps the full contents of the store for entries, in order.
func (s *MemoryStore) replace(entries []Entry) int {
	next := make(map[string]*entry, len(entries))

	s.mu.Lock()
	for _, e := range entries {
		s.seq++
		next[e.ID] = &entry{Entry: e, seq: s.seq}
	}
	s.entries = next
	count := len(next)
	s.mu.Unlock()

	DocumentsTotal.Set(float64(count))
	return count
}

// Ensure MemoryStore implements Store interface.
var _ Store = (*MemoryStore)(nil)
