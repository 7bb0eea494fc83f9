// Package server provides the HTTP API for Seiri.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/seiri/internal/actions"
	"github.com/hyperjump/seiri/internal/assistant"
	"github.com/hyperjump/seiri/internal/cluster"
	"github.com/hyperjump/seiri/internal/config"
	"github.com/hyperjump/seiri/internal/ingest"
	"github.com/hyperjump/seiri/internal/retriever"
	"github.com/hyperjump/seiri/internal/store"
)

// Server is the HTTP server for the Seiri API.
type Server struct {
	store     *store.Store
	retriever *retriever.Retriever
	ingester  *ingest.Ingester
	organizer *cluster.Organizer
	history   *actions.Engine
	executor  *actions.Executor
	assistant *assistant.Assistant
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	st *store.Store,
	r *retriever.Retriever,
	ing *ingest.Ingester,
	org *cluster.Organizer,
	history *actions.Engine,
	executor *actions.Executor,
	assist *assistant.Assistant,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		store:     st,
		retriever: r,
		ingester:  ing,
		organizer: org,
		history:   history,
		executor:  executor,
		assistant: assist,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/ingest", s.handleIngest)
	r.Post("/api/v1/organize", s.handleOrganize)
	r.Post("/api/v1/undo", s.handleUndo)
	r.Post("/api/v1/ask", s.handleAsk)
	r.Get("/api/v1/records", s.handleListRecords)
	r.Get("/api/v1/records/{id}", s.handleGetRecord)
	r.Delete("/api/v1/records/{id}", s.handleDeleteRecord)
	r.Get("/api/v1/history", s.handleHistory)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
