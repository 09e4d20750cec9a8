package vectorstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/memvec/internal/vectorstore"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opCount(operation, result string) float64 {
	return testutil.ToFloat64(vectorstore.OperationsTotal.WithLabelValues(operation, result))
}

func TestMetrics_RecordsOperations(t *testing.T) {
	ctx := context.Background()
	embedder := newFakeEmbedder(1, 0)
	store := newTestStore(t, embedder)

	addOK := opCount("add", "success")
	addErr := opCount("add", "error")
	searchOK := opCount("search", "success")
	deleteOK := opCount("delete", "success")

	_, err := store.Add(ctx, []vectorstore.Document{{ID: "a", Content: "a"}, {ID: "b", Content: "b"}})
	require.NoError(t, err)
	assert.Equal(t, addOK+1, opCount("add", "success"))
	assert.Equal(t, float64(2), testutil.ToFloat64(vectorstore.DocumentsTotal))

	_, err = store.Search(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, searchOK+1, opCount("search", "success"))

	_, err = store.Delete(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, deleteOK+1, opCount("delete", "success"))
	assert.Equal(t, float64(1), testutil.ToFloat64(vectorstore.DocumentsTotal))

	embedder.failWith(errors.New("embedder down"))
	_, err = store.Add(ctx, []vectorstore.Document{{Content: "c"}})
	require.Error(t, err)
	assert.Equal(t, addErr+1, opCount("add", "error"))
}

func searchSamples(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, vectorstore.SearchDuration.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestMetrics_SearchDurationObserved(t *testing.T) {
	store := newTestStore(t, newFakeEmbedder(1, 0))
	before := searchSamples(t)

	_, err := store.Search(context.Background(), "anything")
	require.NoError(t, err)

	assert.Equal(t, before+1, searchSamples(t))
}
