// Package http exposes the vector store over a JSON HTTP API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/memvec/internal/logging"
	"github.com/fyrsmithlabs/memvec/internal/redact"
	"github.com/fyrsmithlabs/memvec/internal/vectorstore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Store is the part of the vector store the API serves.
type Store interface {
	vectorstore.Store
	Get(id string) (vectorstore.Entry, bool)
	Dimension() int
}

// Server provides HTTP endpoints for memvec.
type Server struct {
	echo    *echo.Echo
	store   Store
	logger  *logging.Logger
	config  *Config
	metrics *requestMetrics
	started time.Time
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// SnapshotPath is where POST /api/v1/snapshot saves and
	// POST /api/v1/snapshot/load reads. Empty disables both.
	SnapshotPath string

	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit float64

	DefaultTopK      int
	DefaultThreshold float64

	// Gatherer feeds /api/v1/stats. Defaults to the Prometheus default registry.
	Gatherer prometheus.Gatherer

	// Redactor, when set, scrubs document content before it is stored.
	Redactor Redactor

	// Meter records request instruments. Nil uses the global provider.
	Meter metric.Meter
}

// Redactor removes secrets from text.
type Redactor interface {
	Redact(content string) (redact.Result, error)
}

// NewServer creates a new HTTP server.
func NewServer(store Store, logger *logging.Logger, cfg *Config) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 9191,
		}
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = vectorstore.DefaultTopK
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:    e,
		store:   store,
		logger:  logger.Named("http"),
		config:  cfg,
		metrics: newRequestMetrics(cfg.Meter, logger.Underlying()),
		started: time.Now(),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger)
	e.Use(s.metrics.middleware())
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RateLimit),
				Burst:     burstFor(cfg.RateLimit),
				ExpiresIn: 3 * time.Minute,
			},
		)))
	}

	s.registerRoutes()

	return s, nil
}

// burstFor allows one second worth of requests at once, and at least one.
func burstFor(limit float64) int {
	if limit < 1 {
		return 1
	}
	return int(limit)
}

// requestLogger attaches the request id and logger to the request context
// and logs each completed request.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		ctx := logging.WithRequestID(req.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.SetRequest(req.WithContext(ctx))

		err := next(c)
		if err != nil {
			// Let echo write the error response so the status is known.
			c.Error(err)
		}

		s.logger.Info(ctx, "http request",
			zap.String("method", req.Method),
			zap.String("uri", req.RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)

		return nil
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/documents", s.handleAddDocuments)
	v1.DELETE("/documents", s.handleDeleteDocuments)
	v1.GET("/documents/:id", s.handleGetDocument)
	v1.POST("/search", s.handleSearch)
	v1.POST("/snapshot", s.handleSaveSnapshot)
	v1.POST("/snapshot/load", s.handleLoadSnapshot)
	v1.GET("/stats", s.handleStats)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Documents: s.store.Count()})
}

func (s *Server) handleAddDocuments(c echo.Context) error {
	var req AddDocumentsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Documents) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "documents field is required")
	}
	if s.config.Redactor != nil {
		if err := s.redactDocuments(c.Request().Context(), req.Documents); err != nil {
			return s.storeError(c, "redact documents", err)
		}
	}

	ids, err := s.store.Add(c.Request().Context(), req.Documents)
	if err != nil {
		return s.storeError(c, "add documents", err)
	}

	return c.JSON(http.StatusCreated, AddDocumentsResponse{IDs: ids})
}

// redactDocuments rewrites document content in place.
func (s *Server) redactDocuments(ctx context.Context, docs []vectorstore.Document) error {
	for i := range docs {
		result, err := s.config.Redactor.Redact(docs[i].Content)
		if err != nil {
			return err
		}
		if !result.Redacted() {
			continue
		}
		rules := make([]string, 0, len(result.Findings))
		for _, f := range result.Findings {
			rules = append(rules, f.RuleID)
		}
		logging.FromContext(ctx).Info(ctx, "redacted secrets from document",
			zap.Int("index", i),
			zap.String("id", docs[i].ID),
			zap.Strings("rules", rules),
		)
		docs[i].Content = result.Content
	}
	return nil
}

func (s *Server) handleDeleteDocuments(c echo.Context) error {
	var req DeleteDocumentsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.IDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ids field is required")
	}

	deleted, err := s.store.Delete(c.Request().Context(), req.IDs)
	if err != nil {
		return s.storeError(c, "delete documents", err)
	}

	return c.JSON(http.StatusOK, DeleteDocumentsResponse{Deleted: deleted})
}

func (s *Server) handleGetDocument(c echo.Context) error {
	entry, ok := s.store.Get(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	return c.JSON(http.StatusOK, entry.Document())
}

func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}

	topK := s.config.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	threshold := s.config.DefaultThreshold
	if req.SimilarityThreshold != nil {
		threshold = *req.SimilarityThreshold
	}

	searchReq, err := vectorstore.NewSearchRequest(req.Query,
		vectorstore.WithTopK(topK),
		vectorstore.WithSimilarityThreshold(threshold),
		vectorstore.WithFilter(req.Filter),
	)
	if err != nil {
		return s.storeError(c, "search", err)
	}

	results, err := s.store.SimilaritySearch(c.Request().Context(), searchReq)
	if err != nil {
		return s.storeError(c, "search", err)
	}

	return c.JSON(http.StatusOK, SearchResponse{Results: results})
}

func (s *Server) handleSaveSnapshot(c echo.Context) error {
	if s.config.SnapshotPath == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "snapshot path not configured")
	}
	if err := s.store.Save(c.Request().Context(), s.config.SnapshotPath); err != nil {
		return s.storeError(c, "save snapshot", err)
	}
	return c.JSON(http.StatusOK, SnapshotResponse{Path: s.config.SnapshotPath, Documents: s.store.Count()})
}

func (s *Server) handleLoadSnapshot(c echo.Context) error {
	if s.config.SnapshotPath == "" {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "snapshot path not configured")
	}
	if err := s.store.Load(c.Request().Context(), s.config.SnapshotPath); err != nil {
		return s.storeError(c, "load snapshot", err)
	}
	return c.JSON(http.StatusOK, SnapshotResponse{Path: s.config.SnapshotPath, Documents: s.store.Count()})
}

// storeError maps store errors to HTTP errors. Caller mistakes are 400,
// anything else is logged and returned as 500. Snapshot failures are always
// server side, even when a corrupt file wraps a validation error.
func (s *Server) storeError(c echo.Context, op string, err error) error {
	if !errors.Is(err, vectorstore.ErrIOFailure) &&
		(errors.Is(err, vectorstore.ErrInvalidArgument) || errors.Is(err, vectorstore.ErrNullInput)) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	logging.FromContext(ctx).Error(ctx, op+" failed", zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
