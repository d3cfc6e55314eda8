// Package server exposes the evaluation service over HTTP
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ppiankov/credence/internal/model"
	"github.com/ppiankov/credence/internal/pipeline"
	"github.com/ppiankov/credence/internal/store"
)

const (
	shutdownWait      = 5 * time.Second
	serverTimeout     = 120 * time.Second
	maxHeaderBytes    = 1 << 20
	defaultMaxBatch   = 100
	defaultHistoryLen = store.DefaultListLimit
)

// History reads the evaluation log
type History interface {
	Get(ctx context.Context, requestID string) (model.EvaluationRecord, error)
	List(ctx context.Context, opts store.ListOptions) ([]model.EvaluationRecord, error)
}

// Server is the HTTP surface of the service
type Server struct {
	svc      *pipeline.Service
	history  History
	logger   *slog.Logger
	version  string
	maxBatch int
}

// Option configures a Server
type Option func(*Server)

// WithHistory enables the audit endpoints
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithVersion sets the version reported by the health endpoint
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithMaxBatch caps the number of items in one batch request. Non-positive
// values keep the default.
func WithMaxBatch(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// New creates a server around svc
func New(svc *pipeline.Service, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		logger:   slog.Default(),
		version:  "dev",
		maxBatch: defaultMaxBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/healthz", s.health)

	api := r.Group("/api")
	{
		api.POST("/evaluate", s.evaluate)
		api.POST("/evaluate/batch", s.evaluateBatch)
		api.GET("/pending/:id", s.pending)
		api.GET("/evaluations", s.listEvaluations)
		api.GET("/evaluations/:id", s.getEvaluation)
		api.GET("/formulas", s.formulas)
	}
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:           addr,
		Handler:        s.Router(),
		ReadTimeout:    serverTimeout,
		WriteTimeout:   serverTimeout,
		MaxHeaderBytes: maxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("server started", "address", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

func (s *Server) evaluate(c *gin.Context) {
	var req model.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := s.svc.Validate(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	resp := s.svc.Handle(c.Request.Context(), req)
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, resp)
}

type batchRequest struct {
	Requests []model.EvaluateRequest `json:"requests" binding:"required,min=1"`
}

type batchResponse struct {
	Results   []batchItem `json:"results"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

type batchItem struct {
	Index    int                    `json:"index"`
	Response model.EvaluateResponse `json:"response"`
}

func (s *Server) evaluateBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if len(req.Requests) > s.maxBatch {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "batch too large: " + strconv.Itoa(len(req.Requests)) + " items, max " + strconv.Itoa(s.maxBatch),
		})
		return
	}

	items := s.svc.EvaluateBatch(c.Request.Context(), req.Requests)
	out := batchResponse{Results: make([]batchItem, len(items))}
	for i, item := range items {
		out.Results[i] = batchItem{Index: item.Index, Response: item.Response}
		if item.Response.Success {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}
	c.JSON(http.StatusOK, out)
}

// pending echoes a cached payload; the attestation service fetches this URL
func (s *Server) pending(c *gin.Context) {
	entry, ok := s.svc.PendingEntry(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "pending request not found or expired"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"requestId":  entry.RequestID,
		"sourceName": entry.SourceName,
		"category":   entry.Category,
		"data":       entry.Data,
		"createdAt":  entry.CreatedAt,
	})
}

func (s *Server) getEvaluation(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "evaluation log disabled"})
		return
	}
	rec, err := s.history.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("history lookup failed", "request_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) listEvaluations(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "evaluation log disabled"})
		return
	}
	recs, err := s.history.List(c.Request.Context(), store.ListOptions{
		Limit:      queryAsInt(c, "limit", defaultHistoryLen),
		SourceName: c.Query("source"),
		Category:   c.Query("category"),
	})
	if err != nil {
		s.logger.Error("history list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"evaluations": recs, "count": len(recs)})
}

func (s *Server) formulas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"formulas": s.svc.Pipeline().Catalog().Profiles()})
}

func queryAsInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return def
	}
	return i
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
