package embeddings

import (
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	defaultFastEmbedModel     = "BAAI/bge-small-en-v1.5"
	defaultFastEmbedMaxLength = 512
)

// FastEmbedConfig configures the local ONNX provider.
type FastEmbedConfig struct {
	// Model is a Hugging Face name such as BAAI/bge-base-en-v1.5 or a
	// fastembed name such as fast-bge-base-en-v1.5.
	Model string

	// CacheDir holds downloaded model files. Defaults to ./local_cache.
	CacheDir string

	// MaxLength caps the tokenized input length.
	MaxLength int

	Logger *zap.Logger
}

func (c FastEmbedConfig) withDefaults() FastEmbedConfig {
	if c.Model == "" {
		c.Model = defaultFastEmbedModel
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(".", "local_cache")
	}
	if c.MaxLength <= 0 {
		c.MaxLength = defaultFastEmbedMaxLength
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// knownModelDimensions lists output sizes of the models both providers
// recognize, keyed by Hugging Face name and by fastembed name.
var knownModelDimensions = map[string]int{
	"BAAI/bge-small-en-v1.5":                 384,
	"BAAI/bge-small-en":                      384,
	"BAAI/bge-base-en-v1.5":                  768,
	"BAAI/bge-base-en":                       768,
	"BAAI/bge-small-zh-v1.5":                 512,
	"sentence-transformers/all-MiniLM-L6-v2": 384,
	"fast-bge-small-en-v1.5":                 384,
	"fast-bge-small-en":                      384,
	"fast-bge-base-en-v1.5":                  768,
	"fast-bge-base-en":                       768,
	"fast-bge-small-zh-v1.5":                 512,
	"fast-all-MiniLM-L6-v2":                  384,
}

// fastEmbedModelDimension returns the dimension of a known model.
func fastEmbedModelDimension(model string) (int, bool) {
	dim, ok := knownModelDimensions[model]
	return dim, ok
}

// detectDimensionFromModel guesses the embedding dimension from a model
// name. Unknown names fall back to 384 (bge-small).
func detectDimensionFromModel(model string) int {
	if dim, ok := fastEmbedModelDimension(model); ok {
		return dim
	}
	name := strings.ToLower(model)
	switch {
	case strings.Contains(name, "large"):
		return 1024
	case strings.Contains(name, "base"):
		return 768
	default:
		return 384
	}
}
