package vectorstore_test

import (
	"context"
	"testing"

	"github.com/fyrsmithlabs/memvec/internal/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSearchRequest(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		req, err := vectorstore.NewSearchRequest("query")
		require.NoError(t, err)
		assert.Equal(t, "query", req.Query())
		assert.Equal(t, vectorstore.DefaultTopK, req.TopK())
		assert.Equal(t, vectorstore.SimilarityThresholdAcceptAll, req.SimilarityThreshold())
		assert.Nil(t, req.Filter())
	})

	tests := []struct {
		name    string
		opts    []vectorstore.SearchOption
		wantErr string
	}{
		{name: "threshold above range", opts: []vectorstore.SearchOption{vectorstore.WithSimilarityThreshold(2.0)}, wantErr: "similarity threshold must be in [0,1] range"},
		{name: "negative threshold", opts: []vectorstore.SearchOption{vectorstore.WithSimilarityThreshold(-0.1)}, wantErr: "similarity threshold must be in [0,1] range"},
		{name: "negative top-k", opts: []vectorstore.SearchOption{vectorstore.WithTopK(-1)}, wantErr: "top-k must be positive"},
		{name: "zero top-k", opts: []vectorstore.SearchOption{vectorstore.WithTopK(0)}, wantErr: "top-k must be positive"},
		{name: "bounds are inclusive", opts: []vectorstore.SearchOption{vectorstore.WithSimilarityThreshold(1), vectorstore.WithTopK(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := vectorstore.NewSearchRequest("test", tt.opts...)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, vectorstore.ErrInvalidArgument)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSimilaritySearch_Threshold(t *testing.T) {
	ctx := context.Background()
	embedder := newFakeEmbedder(0.1, 0.2, 0.3).set("query", 0.9, 0.9, 0.9)
	store := newTestStore(t, embedder)

	_, err := store.Add(ctx, []vectorstore.Document{{ID: "1", Content: "test content"}})
	require.NoError(t, err)

	req, err := vectorstore.NewSearchRequest("query",
		vectorstore.WithSimilarityThreshold(0.99),
		vectorstore.WithTopK(5),
	)
	require.NoError(t, err)

	results, err := store.SimilaritySearch(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, results)

	req, err = vectorstore.NewSearchRequest("query", vectorstore.WithSimilarityThreshold(0.9))
	require.NoError(t, err)

	results, err = store.SimilaritySearch(ctx, req)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0.9258, results[0].Score, 1e-3)
}

func TestSimilaritySearch_ThresholdIsInclusive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newFakeEmbedder(1, 0, 0))

	_, err := store.Add(ctx, []vectorstore.Document{{ID: "1", Content: "same"}})
	require.NoError(t, err)

	req, err := vectorstore.NewSearchRequest("same", vectorstore.WithSimilarityThreshold(1))
	require.NoError(t, err)

	results, err := store.SimilaritySearch(ctx, req)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSimilaritySearch_RanksAndTruncates(t *testing.T) {
	ctx := context.Background()
	embedder := newFakeEmbedder(1, 0, 0).
		set("far", 0, 1, 0).
		set("near", 0.8, 0.6, 0).
		set("exact", 1, 0, 0).
		set("opposite", -1, 0, 0)
	store := newTestStore(t, embedder)

	_, err := store.Add(ctx, []vectorstore.Document{
		{ID: "far", Content: "far"},
		{ID: "opposite", Content: "opposite"},
		{ID: "near", Content: "near"},
		{ID: "exact", Content: "exact"},
	})
	require.NoError(t, err)

	req, err := vectorstore.NewSearchRequest("query", vectorstore.WithTopK(10))
	require.NoError(t, err)
	results, err := store.SimilaritySearch(ctx, req)
	require.NoError(t, err)

	// Negative scores fall below the default threshold of zero.
	assert.Equal(t, []string{"exact", "near", "far"}, resultIDs(results))
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}

	req, err = vectorstore.NewSearchRequest("query", vectorstore.WithTopK(2))
	require.NoError(t, err)
	results, err = store.SimilaritySearch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"exact", "near"}, resultIDs(results))
}

func TestSimilaritySearch_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newFakeEmbedder(0.1, 0.2, 0.3))

	_, err := store.Add(ctx, []vectorstore.Document{
		{ID: "c", Content: "c"},
		{ID: "a", Content: "a"},
	})
	require.NoError(t, err)
	_, err = store.Add(ctx, []vectorstore.Document{{ID: "b", Content: "b"}})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		results, err := store.Search(ctx, "anything")
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a", "b"}, resultIDs(results))
	}
}

func TestSimilaritySearch_Filter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newFakeEmbedder(0.1, 0.2, 0.3))

	_, err := store.Add(ctx, []vectorstore.Document{
		{ID: "1", Content: "a", Metadata: map[string]interface{}{"owner": "alice", "year": 2024}},
		{ID: "2", Content: "b", Metadata: map[string]interface{}{"owner": "bob", "year": 2024}},
		{ID: "3", Content: "c"},
	})
	require.NoError(t, err)

	req, err := vectorstore.NewSearchRequest("q",
		vectorstore.WithFilter(map[string]interface{}{"owner": "alice"}),
	)
	require.NoError(t, err)
	results, err := store.SimilaritySearch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, resultIDs(results))

	req, err = vectorstore.NewSearchRequest("q",
		vectorstore.WithFilter(map[string]interface{}{"year": float64(2024)}),
	)
	require.NoError(t, err)
	results, err = store.SimilaritySearch(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, resultIDs(results))
}

func TestSimilaritySearch_FilterComparesTypes(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newFakeEmbedder(0.1, 0.2, 0.3))

	_, err := store.Add(ctx, []vectorstore.Document{
		{ID: "str", Content: "a", Metadata: map[string]interface{}{"n": "1", "ok": "true"}},
		{ID: "num", Content: "b", Metadata: map[string]interface{}{"n": int64(1), "ok": true}},
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter map[string]interface{}
		want   []string
	}{
		{name: "int matches numbers only", filter: map[string]interface{}{"n": 1}, want: []string{"num"}},
		{name: "float matches int", filter: map[string]interface{}{"n": 1.0}, want: []string{"num"}},
		{name: "string matches strings only", filter: map[string]interface{}{"n": "1"}, want: []string{"str"}},
		{name: "bool", filter: map[string]interface{}{"ok": true}, want: []string{"num"}},
		{name: "string bool", filter: map[string]interface{}{"ok": "true"}, want: []string{"str"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := vectorstore.NewSearchRequest("q", vectorstore.WithFilter(tt.filter))
			require.NoError(t, err)
			results, err := store.SimilaritySearch(ctx, req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resultIDs(results))
		})
	}
}

func TestSimilaritySearch_EmptyStore(t *testing.T) {
	store := newTestStore(t, newFakeEmbedder(0.1, 0.2, 0.3))

	results, err := store.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSimilaritySearch_ZeroNormPropagates(t *testing.T) {
	ctx := context.Background()
	embedder := newFakeEmbedder(0.1, 0.2, 0.3).set("zero", 0, 0, 0)
	store := newTestStore(t, embedder)

	_, err := store.Add(ctx, []vectorstore.Document{{ID: "z", Content: "zero"}})
	require.NoError(t, err)

	_, err = store.Search(ctx, "query")
	require.ErrorIs(t, err, vectorstore.ErrZeroNorm)
	assert.Contains(t, err.Error(), `"z"`)
}

func TestSimilaritySearch_EmbedderFailure(t *testing.T) {
	embedder := newFakeEmbedder(0.1, 0.2, 0.3)
	store := newTestStore(t, embedder)
	embedder.failWith(errEmbedderDown)

	_, err := store.Search(context.Background(), "query")
	require.ErrorIs(t, err, vectorstore.ErrEmbeddingFailed)
	assert.ErrorIs(t, err, errEmbedderDown)
}

func TestSimilaritySearch_RejectsZeroValueRequest(t *testing.T) {
	store := newTestStore(t, newFakeEmbedder(0.1, 0.2, 0.3))

	_, err := store.SimilaritySearch(context.Background(), vectorstore.SearchRequest{})
	assert.ErrorIs(t, err, vectorstore.ErrInvalidArgument)
}

func TestSearch_UsesStoreDefaults(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newFakeEmbedder(0.1, 0.2, 0.3), vectorstore.WithDefaultTopK(2))

	docs := make([]vectorstore.Document, 0, 5)
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		docs = append(docs, vectorstore.Document{ID: id, Content: id})
	}
	_, err := store.Add(ctx, docs)
	require.NoError(t, err)

	results, err := store.Search(ctx, "q")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	plain := newTestStore(t, newFakeEmbedder(0.1, 0.2, 0.3))
	_, err = plain.Add(ctx, docs)
	require.NoError(t, err)

	results, err = plain.Search(ctx, "q")
	require.NoError(t, err)
	assert.Len(t, results, vectorstore.DefaultTopK)
}
