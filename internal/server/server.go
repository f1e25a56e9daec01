package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/interview-prep/internal/db"
	"github.com/jonathan/interview-prep/internal/observability"
	"github.com/jonathan/interview-prep/internal/pipeline"
	"github.com/jonathan/interview-prep/internal/progress"
	"github.com/jonathan/interview-prep/internal/server/middleware"
	"github.com/jonathan/interview-prep/internal/types"
)

// Store is the read and create surface the handlers need.
type Store interface {
	CreateSearch(ctx context.Context, in db.SearchInput) error
	GetSearch(ctx context.Context, id string) (*db.Search, error)
	ListSearches(ctx context.Context, userID string, limit int) ([]db.Search, error)
	GetResearchArtifact(ctx context.Context, searchID string) (*db.ResearchArtifact, error)
	ListStagesWithQuestions(ctx context.Context, searchID string) ([]db.StageWithQuestions, error)
	Ping(ctx context.Context) error
}

// Runner executes a research run.
type Runner interface {
	Run(ctx context.Context, req types.ResearchRequest) (*pipeline.Result, error)
}

// Config holds server configuration
type Config struct {
	Port            int
	AllowedOrigins  []string
	RateLimitPerMin int
	ShutdownTimeout time.Duration
	// KeepAlive is the SSE heartbeat interval; each beat also re-reads the
	// search so runs executing on another instance still terminate the stream.
	KeepAlive time.Duration
	// Auth enables bearer tokens; nil serves every request anonymously.
	Auth        middleware.TokenValidator
	RequireAuth bool
}

// Server is the HTTP API.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	cfg        Config
	store      Store
	runner     Runner
	tracker    *progress.Tracker
	logger     *slog.Logger

	runs  sync.WaitGroup
	// newID generates search ids when the client supplies none.
	newID func() string
}

// New creates a server. Runs submitted over HTTP report to tracker.
func New(cfg Config, store Store, runner Runner, tracker *progress.Tracker, logger *slog.Logger) *Server {
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 15 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		store:   store,
		runner:  runner,
		tracker: tracker,
		logger:  logger,
		newID:   newULID,
	}
	s.handler = s.routes()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	submit := http.Handler(http.HandlerFunc(s.handleSubmit))
	if s.cfg.RateLimitPerMin > 0 {
		submit = httprate.LimitByIP(s.cfg.RateLimitPerMin, time.Minute)(submit)
	}
	mux.Handle("POST /research", submit)
	mux.HandleFunc("GET /research", s.handleList)
	mux.HandleFunc("GET /research/{id}", s.handleStatus)
	mux.HandleFunc("GET /research/{id}/artifact", s.handleArtifact)
	mux.HandleFunc("GET /research/{id}/stages", s.handleStages)
	mux.HandleFunc("GET /research/{id}/events", s.handleEvents)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	var h http.Handler = observability.HTTPMetricsMiddleware(mux)
	if s.cfg.Auth != nil {
		h = middleware.Authenticate(s.cfg.Auth, s.cfg.RequireAuth)(h)
	}
	h = cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	})(h)
	h = s.withLogging(h)
	return s.withRecover(h)
}

func (s *Server) allowedOrigins() []string {
	if len(s.cfg.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.cfg.AllowedOrigins
}

// Start serves until ctx is cancelled, then shuts down gracefully and waits
// for in-flight runs up to the shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := s.Wait(shutdownCtx); err != nil {
		s.logger.Warn("research runs still in flight at shutdown", slog.String("error", err.Error()))
	}
	s.logger.Info("server stopped")
	return nil
}

// Wait blocks until every run started by the server has returned or ctx ends.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.runs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// withRecover turns handler panics into a 500.
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				observability.LoggerFromContext(r.Context()).Error("panic recovered", slog.Any("recover", rec))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withLogging attaches a request-scoped logger and logs one access line per
// request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = newULID()
		}
		w.Header().Set("X-Request-Id", reqID)

		logger := s.logger.With(slog.String("request_id", reqID))
		r = r.WithContext(observability.ContextWithLogger(r.Context(), logger))

		start := time.Now()
		rec := &accessRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		switch {
		case rec.status >= 500:
			level = slog.LevelError
		case rec.status >= 400:
			level = slog.LevelWarn
		}
		logger.LogAttrs(r.Context(), level, "http_access",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)))
	})
}

type accessRecorder struct {
	http.ResponseWriter
	status int
}

func (r *accessRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *accessRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0) //nolint:gosec // ids need uniqueness, not secrecy
)

// newULID returns a lexicographically sortable id for searches and requests.
func newULID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy).String()
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding JSON response failed", slog.String("error", err.Error()))
	}
}

// writeError maps err to a status and writes {"error": ...}. Internal errors
// are logged and hidden from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error("request failed", slog.String("error", err.Error()))
		msg = "internal error"
	}
	s.jsonResponse(w, status, map[string]string{"error": msg})
}
