//go:build cgo

package embeddings

import (
	"context"
	"fmt"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
	"go.uber.org/zap"
)

// FastEmbedProvider runs a local ONNX model through fastembed-go.
type FastEmbedProvider struct {
	mu        sync.RWMutex
	model     *fastembed.FlagEmbedding
	dimension int
	metrics   *embedMetrics
}

// huggingFaceModels maps Hugging Face names onto fastembed models. fastembed
// names (fast-bge-small-en-v1.5, ...) are accepted as they are.
var huggingFaceModels = map[string]fastembed.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fastembed.BGESmallENV15,
	"BAAI/bge-small-en":                      fastembed.BGESmallEN,
	"BAAI/bge-base-en-v1.5":                  fastembed.BGEBaseENV15,
	"BAAI/bge-base-en":                       fastembed.BGEBaseEN,
	"BAAI/bge-small-zh-v1.5":                 fastembed.BGESmallZH,
	"sentence-transformers/all-MiniLM-L6-v2": fastembed.AllMiniLML6V2,
}

func resolveFastEmbedModel(name string) (fastembed.EmbeddingModel, bool) {
	if m, ok := huggingFaceModels[name]; ok {
		return m, true
	}
	for _, m := range huggingFaceModels {
		if string(m) == name {
			return m, true
		}
	}
	return "", false
}

// passageBatchSize is the number of passages fastembed embeds per ONNX run.
const passageBatchSize = 256

// NewFastEmbedProvider loads cfg.Model, downloading it into cfg.CacheDir
// the first time.
func NewFastEmbedProvider(cfg FastEmbedConfig) (*FastEmbedProvider, error) {
	cfg = cfg.withDefaults()

	model, ok := resolveFastEmbedModel(cfg.Model)
	if !ok {
		return nil, fmt.Errorf("%w: fastembed does not support model %q", ErrInvalidConfig, cfg.Model)
	}
	dimension, _ := fastEmbedModelDimension(cfg.Model)

	if path := GetONNXLibraryPath(); path != "" {
		if err := setONNXPathEnv(path); err != nil {
			return nil, fmt.Errorf("setting ONNX_PATH: %w", err)
		}
	}

	quiet := false
	flag, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model,
		CacheDir:             cfg.CacheDir,
		MaxLength:            cfg.MaxLength,
		ShowDownloadProgress: &quiet,
	})
	if err != nil {
		return nil, fmt.Errorf("loading fastembed model %s: %w", cfg.Model, err)
	}

	cfg.Logger.Info("embedding model loaded",
		zap.String("model", cfg.Model),
		zap.Int("dimension", dimension),
		zap.String("cache_dir", cfg.CacheDir),
	)

	return &FastEmbedProvider{
		model:     flag,
		dimension: dimension,
		metrics:   newEmbedMetrics(nil, cfg.Model, cfg.Logger),
	}, nil
}

// EmbedDocuments embeds texts as passages.
func (p *FastEmbedProvider) EmbedDocuments(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	finish := p.metrics.start(ctx, opEmbedDocuments, len(texts))
	defer func() { finish(err) }()

	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: no texts", ErrEmptyInput)
	}
	return withModel(ctx, p, func(m *fastembed.FlagEmbedding) ([][]float32, error) {
		return m.PassageEmbed(texts, passageBatchSize)
	})
}

// EmbedQuery embeds text as a search query.
func (p *FastEmbedProvider) EmbedQuery(ctx context.Context, text string) (vector []float32, err error) {
	finish := p.metrics.start(ctx, opEmbedQuery, 1)
	defer func() { finish(err) }()

	if text == "" {
		return nil, fmt.Errorf("%w: empty query", ErrEmptyInput)
	}
	return withModel(ctx, p, func(m *fastembed.FlagEmbedding) ([]float32, error) {
		return m.QueryEmbed(text)
	})
}

// withModel runs fn under the read lock, failing if ctx is done or the
// provider has been closed.
func withModel[T any](ctx context.Context, p *FastEmbedProvider, fn func(*fastembed.FlagEmbedding) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.model == nil {
		return zero, fmt.Errorf("%w: provider closed", ErrEmbeddingFailed)
	}

	out, err := fn(p.model)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return out, nil
}

func (p *FastEmbedProvider) Dimension() int {
	return p.dimension
}

// Close releases the ONNX session. Further calls fail with ErrEmbeddingFailed.
func (p *FastEmbedProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.model == nil {
		return nil
	}
	err := p.model.Destroy()
	p.model = nil
	return err
}
