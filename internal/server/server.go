// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server provides the HTTP API: protocol upload and analysis,
// per-drug research lookups, report export and download, and the
// single-page frontend.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/pdiddy/protocol-analyzer/internal/logging"
	"github.com/pdiddy/protocol-analyzer/internal/report"
	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

// Analyzer turns document text into an analysis result.
type Analyzer interface {
	Extract(ctx context.Context, text string) types.AnalysisResult
}

// Researcher gathers findings for one drug.
type Researcher interface {
	Aggregate(ctx context.Context, drug, condition string) types.ResearchEnvelope
}

// TextExtractor reads the text of an uploaded document.
type TextExtractor interface {
	ExtractText(r io.Reader, name string) (string, error)
}

// Reports renders and serves report files.
type Reports interface {
	Generate(ctx context.Context, doc report.Document, format report.Format) (report.Report, error)
	Open(ctx context.Context, filename string) (*os.File, report.Report, error)
}

// Deps are the services behind the API.
type Deps struct {
	Analyzer   Analyzer
	Researcher Researcher
	Ingest     TextExtractor
	Reports    Reports

	// AIConfigured is reported by the health endpoint.
	AIConfigured bool
	Version      string
}

// Server is the HTTP server for the protocol analyzer API.
type Server struct {
	deps   Deps
	config types.ServerConfig
	logger *zap.Logger
	server *http.Server
	now    func() time.Time
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg types.ServerConfig, logger *zap.Logger) *Server {
	s := &Server{
		deps:   deps,
		config: cfg,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Get("/research/{drug}", s.handleResearch)
		r.Post("/export/{format}", s.handleExport)
		r.Get("/download/{filename}", s.handleDownload)
		r.Get("/health", s.handleHealth)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			s.respondError(w, http.StatusNotFound, "not found")
		})
	})

	if s.config.StaticDir != "" {
		r.Get("/*", s.handleStatic)
	}
	return r
}

// Start starts the HTTP server and blocks until it stops. After Stop it
// returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server. It is safe to call before or
// concurrently with Start.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger logs one line per request at Info level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
