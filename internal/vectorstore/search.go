package vectorstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const (
	// DefaultTopK is the number of results returned when no top-k is given.
	DefaultTopK = 4

	// SimilarityThresholdAcceptAll keeps every result regardless of score.
	SimilarityThresholdAcceptAll = 0.0
)

// SearchRequest describes a similarity search. Build it with NewSearchRequest;
// a constructed request is always valid.
type SearchRequest struct {
	query     string
	topK      int
	threshold float64
	filter    map[string]interface{}
}

// SearchOption configures a SearchRequest.
type SearchOption func(*SearchRequest) error

// WithTopK limits the number of results. k must be positive.
func WithTopK(k int) SearchOption {
	return func(r *SearchRequest) error {
		if k <= 0 {
			return fmt.Errorf("%w: top-k must be positive, got %d", ErrInvalidArgument, k)
		}
		r.topK = k
		return nil
	}
}

// WithSimilarityThreshold drops results scoring strictly below threshold.
// threshold must be within [0, 1].
func WithSimilarityThreshold(threshold float64) SearchOption {
	return func(r *SearchRequest) error {
		if threshold < 0 || threshold > 1 {
			return fmt.Errorf("%w: similarity threshold must be in [0,1] range, got %v", ErrInvalidArgument, threshold)
		}
		r.threshold = threshold
		return nil
	}
}

// WithFilter keeps only documents whose metadata contains every key of
// filter with an equal value.
func WithFilter(filter map[string]interface{}) SearchOption {
	return func(r *SearchRequest) error {
		r.filter = copyMetadata(filter)
		return nil
	}
}

// NewSearchRequest validates opts and returns an immutable request.
func NewSearchRequest(query string, opts ...SearchOption) (SearchRequest, error) {
	r := SearchRequest{
		query:     query,
		topK:      DefaultTopK,
		threshold: SimilarityThresholdAcceptAll,
	}
	for _, opt := range opts {
		if err := opt(&r); err != nil {
			return SearchRequest{}, err
		}
	}
	return r, nil
}

// Query returns the query text.
func (r SearchRequest) Query() string { return r.query }

// TopK returns the maximum number of results.
func (r SearchRequest) TopK() int { return r.topK }

// SimilarityThreshold returns the minimum accepted score.
func (r SearchRequest) SimilarityThreshold() float64 { return r.threshold }

// Filter returns a copy of the metadata filter, nil when unset.
func (r SearchRequest) Filter() map[string]interface{} { return copyMetadata(r.filter) }

// Search runs a similarity search with the store's default threshold and top-k.
func (s *MemoryStore) Search(ctx context.Context, query string) ([]SearchResult, error) {
	req, err := NewSearchRequest(query,
		WithTopK(s.options.defaultTopK),
		WithSimilarityThreshold(s.options.defaultThreshold),
	)
	if err != nil {
		return nil, err
	}
	return s.SimilaritySearch(ctx, req)
}

// SimilaritySearch embeds the request query, scores every stored document by
// cosine similarity and returns at most TopK documents scoring at least the
// threshold, highest first. Equal scores keep insertion order.
//
// A scoring failure (for example a zero-norm vector) aborts the search and is
// returned to the caller.
func (s *MemoryStore) SimilaritySearch(ctx context.Context, req SearchRequest) (results []SearchResult, err error) {
	ctx, span := tracer.Start(ctx, "MemoryStore.SimilaritySearch")
	defer span.End()

	start := time.Now()
	defer func() {
		SearchDuration.Observe(time.Since(start).Seconds())
		recordOperation("search", err)
	}()

	if req.topK <= 0 {
		return nil, fmt.Errorf("%w: search request must be built with NewSearchRequest", ErrInvalidArgument)
	}

	span.SetAttributes(
		attribute.Int("top_k", req.topK),
		attribute.Float64("threshold", req.threshold),
	)

	query, err := s.embedder.EmbedQuery(ctx, req.query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}

	snapshot := s.Snapshot()
	results = make([]SearchResult, 0, len(snapshot))
	for _, e := range snapshot {
		if !matchesFilter(e.Metadata, req.filter) {
			continue
		}

		score, err := CosineSimilarity(e.Embedding, query)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("scoring document %q: %w", e.ID, err)
		}
		if score < req.threshold {
			continue
		}

		results = append(results, SearchResult{
			ID:       e.ID,
			Content:  e.Content,
			Metadata: e.Metadata,
			Score:    score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > req.topK {
		results = results[:req.topK]
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("similarity search",
		zap.Int("candidates", len(snapshot)),
		zap.Int("results", len(results)),
		zap.Int("top_k", req.topK),
		zap.Float64("threshold", req.threshold),
	)

	return results, nil
}

// matchesFilter reports whether metadata contains every filter key with an
// equal value. Numbers compare by value regardless of Go type, so float64s
// restored from a JSON snapshot still match integer filters; values of
// different kinds never match.
func matchesFilter(metadata, filter map[string]interface{}) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(normalizeNumber(got), normalizeNumber(want)) {
			return false
		}
	}
	return true
}

func normalizeNumber(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	}
	return v
}
