package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fyrsmithlabs/memvec/internal/config"
	"github.com/fyrsmithlabs/memvec/internal/logging"
	"github.com/fyrsmithlabs/memvec/internal/vectorstore"
	"go.uber.org/zap"
)

const defaultRequestTimeout = 30 * time.Second

// maxErrorBody bounds how much of a failed response is echoed into errors.
const maxErrorBody = 4 << 10

// Config holds configuration for the TEI embedding service.
type Config struct {
	// BaseURL is the base URL of the TEI server, e.g. http://localhost:8080.
	BaseURL string

	// Model is the embedding model served at BaseURL. Used for metrics.
	Model string

	// APIKey is sent as a bearer token when set.
	APIKey config.Secret

	// Dimension is the vector length the server returns.
	Dimension int

	// Timeout bounds a single request. Zero means 30s.
	Timeout time.Duration
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("%w: base URL must start with http:// or https://, got %q", ErrInvalidConfig, c.BaseURL)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, c.Dimension)
	}
	return nil
}

// Service calls a text-embeddings-inference server.
type Service struct {
	config  Config
	client  *http.Client
	metrics *embedMetrics
	logger  *zap.Logger
}

var _ vectorstore.Embedder = (*Service)(nil)

// NewService creates a new embedding service with the given configuration.
func NewService(cfg Config, logger *zap.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	logger.Debug("tei embedding service configured",
		zap.String("base_url", cfg.BaseURL),
		zap.String("model", cfg.Model),
		zap.Int("dimension", cfg.Dimension),
		logging.Secret("api_key", cfg.APIKey),
	)

	return &Service{
		config:  cfg,
		client:  &http.Client{Timeout: timeout},
		metrics: newEmbedMetrics(nil, cfg.Model, logger),
		logger:  logger,
	}, nil
}

// teiRequest is the request body for TEI embed endpoint.
type teiRequest struct {
	Inputs   interface{} `json:"inputs"`
	Truncate bool        `json:"truncate"`
}

// Dimension returns the configured vector length.
func (s *Service) Dimension() int {
	return s.config.Dimension
}

// EmbedDocuments generates embeddings for multiple texts.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) (vectors [][]float32, err error) {
	finish := s.metrics.start(ctx, opEmbedDocuments, len(texts))
	defer func() { finish(err) }()

	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	vectors, err = s.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), len(texts))
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (s *Service) EmbedQuery(ctx context.Context, text string) (vector []float32, err error) {
	finish := s.metrics.start(ctx, opEmbedQuery, 1)
	defer func() { finish(err) }()

	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	vectors, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrEmbeddingFailed)
	}
	return vectors[0], nil
}

// embed posts inputs (a string or a []string) to /embed.
func (s *Service) embed(ctx context.Context, inputs interface{}) ([][]float32, error) {
	body, err := json.Marshal(teiRequest{Inputs: inputs, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.config.APIKey.IsSet() {
		httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey.Value())
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		s.logger.Debug("embedding request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("model", s.config.Model),
		)
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrEmbeddingFailed, err)
	}

	return vectors, nil
}
