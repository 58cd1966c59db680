// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/internal/archive"
	"github.com/pdiddy/answer-engine/internal/pipeline"
	"github.com/pdiddy/answer-engine/internal/report"
	"github.com/pdiddy/answer-engine/pkg/types"
)

// Runner answers one query. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, query string, opts types.Options) (*types.PipelineResponse, error)
}

// History is the optional run archive.
type History interface {
	Save(ctx context.Context, resp *types.PipelineResponse) error
	List(ctx context.Context, limit int, contains string) ([]archive.Run, error)
	Get(ctx context.Context, id string) (*types.PipelineResponse, error)
}

// Server routes HTTP requests to a Runner.
type Server struct {
	runner         Runner
	providers      []types.ProviderName
	history        History
	requestTimeout time.Duration
	logger         *zap.Logger
	router         chi.Router
}

// Config holds the collaborators of a Server. History may be nil.
type Config struct {
	Runner         Runner
	Providers      []types.ProviderName
	History        History
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// New builds the router.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner:         cfg.Runner,
		providers:      cfg.Providers,
		history:        cfg.History,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleIndex)
	r.Get("/api/health", s.handleHealth)
	r.Post("/api/search", s.handleSearch)
	r.Get("/ws", s.handleWebSocket)
	r.Route("/api/history", func(r chi.Router) {
		r.Get("/", s.handleHistoryList)
		r.Get("/{id}", s.handleHistoryGet)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("http_request_id", middleware.GetReqID(r.Context())))
	})
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query   string         `json:"query"`
	Options RequestOptions `json:"options"`
}

// RequestOptions mirrors types.Options with a human-readable timeout.
type RequestOptions struct {
	MaxProviders       int      `json:"max_providers"`
	PerProviderTimeout string   `json:"per_provider_timeout"`
	MaxSynthesisTokens int      `json:"max_synthesis_tokens"`
	Providers          []string `json:"providers"`
}

func (o RequestOptions) toOptions() (types.Options, error) {
	providers, err := report.ParseProviders(o.Providers)
	if err != nil {
		return types.Options{}, err
	}
	opts := types.Options{
		MaxProviders:       o.MaxProviders,
		MaxSynthesisTokens: o.MaxSynthesisTokens,
		Providers:          providers,
	}
	if o.PerProviderTimeout != "" {
		d, err := time.ParseDuration(o.PerProviderTimeout)
		if err != nil {
			return types.Options{}, fmt.Errorf("invalid per_provider_timeout: %w", err)
		}
		opts.PerProviderTimeout = d
	}
	return opts, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	opts, err := req.Options.toOptions()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	resp, err := s.runner.Run(ctx, req.Query, opts)
	if err != nil {
		var fe *pipeline.FatalError
		if errors.As(err, &fe) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.archive(r.Context(), resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) archive(ctx context.Context, resp *types.PipelineResponse) {
	if s.history == nil {
		return
	}
	if err := s.history.Save(ctx, resp); err != nil {
		s.logger.Warn("archiving run failed", zap.String("request_id", resp.RequestID), zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": s.providers,
		"time":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "answer-engine",
		"endpoints": map[string]string{
			"POST /api/search":      "answer a question",
			"GET /api/health":       "health check",
			"GET /api/history":      "recent runs",
			"GET /api/history/{id}": "one archived run",
			"GET /ws":               "answer questions over a websocket",
		},
	})
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errors.New("history is disabled"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &limit); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
	}
	runs, err := s.history.List(r.Context(), limit, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []archive.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, errors.New("history is disabled"))
		return
	}
	resp, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
