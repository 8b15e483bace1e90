// Package server exposes documentation runs over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/julianshen/docgen/internal/archive"
	"github.com/julianshen/docgen/internal/docgen"
)

// DefaultMaxBodySize bounds request bodies, including uploaded archives.
const DefaultMaxBodySize = 100 << 20

// BranchLister lists the branches of a remote repository.
type BranchLister interface {
	Branches(ctx context.Context, repoURL string) ([]string, error)
}

// Runner executes one documentation run.
type Runner func(ctx context.Context, req docgen.Request) (*docgen.Result, error)

// Config holds the collaborators and limits of a Server.
type Config struct {
	Addr        string
	Run         Runner
	Store       *archive.Store
	Branches    BranchLister
	MaxBodySize int64
	ReadTimeout time.Duration
	Logger      *slog.Logger
}

// Server serves the documentation API.
type Server struct {
	cfg        Config
	httpServer *http.Server
}

// New returns a Server for cfg.
func New(cfg Config) *Server {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{cfg: cfg}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
	}
	return s
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("POST /generate-and-download", s.handleGenerateAndDownload)
	mux.HandleFunc("POST /download-zip", s.handleBuildZip)
	mux.HandleFunc("GET /download-zip/{id}", s.handleDownload)
	mux.HandleFunc("GET /branches", s.handleBranches)
	mux.Handle("GET /metrics", promhttp.Handler())
	return cors(s.logRequests(mux))
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.cfg.Logger.Info("starting API server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.cfg.Logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
