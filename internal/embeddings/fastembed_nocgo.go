//go:build !cgo

package embeddings

import "context"

// FastEmbedProvider cannot run without cgo; every call fails.
type FastEmbedProvider struct{}

func NewFastEmbedProvider(FastEmbedConfig) (*FastEmbedProvider, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (*FastEmbedProvider) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (*FastEmbedProvider) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, ErrFastEmbedNotAvailable
}

func (*FastEmbedProvider) Dimension() int { return 0 }

func (*FastEmbedProvider) Close() error { return nil }
