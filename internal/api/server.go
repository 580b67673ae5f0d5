// Package api exposes matching and job description generation over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spigell/hr-matcher/internal/ai"
	"github.com/spigell/hr-matcher/internal/intake"
	"github.com/spigell/hr-matcher/internal/jobdesc"
	"github.com/spigell/hr-matcher/internal/recruit"
	"go.uber.org/zap"
)

const (
	defaultMaxUploadBytes = 32 << 20
	shutdownTimeout       = 10 * time.Second
)

type matchService interface {
	Match(ctx context.Context, jobText string, candidates []ai.Candidate) (*recruit.Result, error)
}

type jobWriter interface {
	Generate(ctx context.Context, req jobdesc.Request) (string, error)
}

type textExtractor interface {
	Text(ctx context.Context, data []byte, filename string) string
}

// Deps are the collaborators behind the HTTP handlers.
type Deps struct {
	Matcher   matchService
	Writer    jobWriter
	Extractor textExtractor
	Logger    *zap.Logger
}

// Options tunes the HTTP surface.
type Options struct {
	AllowedOrigins []string
	MaxUploadBytes int64
	// MaxCandidates caps the resumes read from one request.
	MaxCandidates int
}

type Server struct {
	router    *chi.Mux
	matcher   matchService
	writer    jobWriter
	extractor textExtractor
	opts      Options
	logger    *zap.Logger
}

func NewServer(deps Deps, opts Options) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = intake.DefaultMaxCandidates
	}

	s := &Server{
		router:    chi.NewRouter(),
		matcher:   deps.Matcher,
		writer:    deps.Writer,
		extractor: deps.Extractor,
		opts:      opts,
		logger:    deps.Logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/match", s.handleMatch)
		r.Post("/generate_jd", s.handleGenerateJD)
	})
}

func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", addr, err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", requestID(r)),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"detail": message})
}
