// Package server provides the HTTP API for kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/retrieval"
)

// WatchService is what the watch-management endpoints need from the watcher.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the kotae API.
type Server struct {
	engine    *retrieval.Engine
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
	uploadDir string

	watch      WatchService
	configPath string
	fullConfig *config.Config
	configMu   sync.Mutex
}

// ServerOption configures optional server features.
type ServerOption func(*Server)

// WithUploadDir enables the multipart upload endpoint, storing received
// files under dir.
func WithUploadDir(dir string) ServerOption {
	return func(s *Server) { s.uploadDir = dir }
}

// WithWatch enables the watch-directory management endpoints.
func WithWatch(ws WatchService) ServerOption {
	return func(s *Server) { s.watch = ws }
}

// WithConfigPersistence persists watch directory changes back to the config
// file at path.
func WithConfigPersistence(path string, cfg *config.Config) ServerOption {
	return func(s *Server) {
		s.configPath = path
		s.fullConfig = cfg
	}
}

// NewServer creates a server around the retrieval engine.
func NewServer(engine *retrieval.Engine, cfg *config.ServerConfig, logger *zap.Logger, opts ...ServerOption) *Server {
	s := &Server{
		engine: engine,
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/query", s.handleQuery)
	r.Post("/api/v1/documents", s.handleIngest)
	r.Post("/api/v1/documents/upload", s.handleUpload)
	r.Delete("/api/v1/documents", s.handleClear)
	r.Get("/api/v1/stats", s.handleStats)
	r.Get("/api/v1/sources", s.handleSources)
	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
