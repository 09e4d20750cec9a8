package embeddings

import (
	"fmt"

	"github.com/fyrsmithlabs/memvec/internal/config"
	"github.com/fyrsmithlabs/memvec/internal/vectorstore"
	"go.uber.org/zap"
)

// Provider is an Embedder that holds resources until closed.
type Provider interface {
	vectorstore.Embedder
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is the provider type: "fastembed" (default) or "tei".
	Provider string
	Model    string
	// BaseURL and APIKey are used by TEI only.
	BaseURL string
	APIKey  config.Secret
	// Dimension overrides the dimension derived from Model. TEI only.
	Dimension int
	// CacheDir is the model cache directory. FastEmbed only.
	CacheDir string
	Logger   *zap.Logger
}

// ProviderConfigFrom maps the embeddings section of the application config.
func ProviderConfigFrom(c config.EmbeddingsConfig, logger *zap.Logger) ProviderConfig {
	return ProviderConfig{
		Provider:  c.Provider,
		Model:     c.Model,
		BaseURL:   c.BaseURL,
		APIKey:    c.APIKey,
		Dimension: c.Dimension,
		CacheDir:  c.CacheDir,
		Logger:    logger,
	}
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case "fastembed", "":
		p, err := NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "tei":
		dim := cfg.Dimension
		if dim == 0 {
			dim = detectDimensionFromModel(cfg.Model)
		}
		svc, err := NewService(Config{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			Dimension: dim,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &teiProvider{Service: svc}, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}

// teiProvider adds Close to Service.
type teiProvider struct {
	*Service
}

// Close is a no-op for TEI since it uses HTTP.
func (t *teiProvider) Close() error {
	return nil
}
