package vectorstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fyrsmithlabs/memvec/internal/vectorstore"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEmbedder returns fixed vectors keyed by text, falling back to a
// default vector for unknown text.
type fakeEmbedder struct {
	dim      int
	fallback []float32

	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   int
}

func newFakeEmbedder(fallback ...float32) *fakeEmbedder {
	return &fakeEmbedder{
		dim:      len(fallback),
		fallback: fallback,
		vectors:  make(map[string][]float32),
	}
}

func (e *fakeEmbedder) set(text string, vector ...float32) *fakeEmbedder {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vectors[text] = vector
	return e
}

func (e *fakeEmbedder) failWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *fakeEmbedder) lookup(text string) []float32 {
	if v, ok := e.vectors[text]; ok {
		return v
	}
	return e.fallback
}

func (e *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	result := make([][]float32, len(texts))
	for i, text := range texts {
		result[i] = append([]float32(nil), e.lookup(text)...)
	}
	return result, nil
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return append([]float32(nil), e.lookup(text)...), nil
}

func (e *fakeEmbedder) Dimension() int {
	return e.dim
}

var errEmbedderDown = errors.New("embedder unavailable")

func newTestStore(t *testing.T, embedder vectorstore.Embedder, opts ...vectorstore.Option) *vectorstore.MemoryStore {
	t.Helper()

	store, err := vectorstore.NewMemoryStore(embedder, zap.NewNop(), opts...)
	require.NoError(t, err)
	return store
}

func resultIDs(results []vectorstore.SearchResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids
}
