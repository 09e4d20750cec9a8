package embeddings

import "errors"

// Sentinel errors. Providers wrap them with detail; match with errors.Is.
var (
	ErrEmptyInput      = errors.New("embeddings: empty input")
	ErrInvalidConfig   = errors.New("embeddings: invalid config")
	ErrEmbeddingFailed = errors.New("embeddings: embedding failed")

	// ErrFastEmbedNotAvailable is returned by every FastEmbedProvider entry
	// point in binaries built with CGO_ENABLED=0.
	ErrFastEmbedNotAvailable = errors.New("embeddings: fastembed needs a cgo build, use the tei provider")
)
