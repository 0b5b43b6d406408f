// Package simulator serves a fake auto-fix backend whose runs progress on a
// schedule derived from elapsed time.
package simulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/marcin-skalski/fixwatch/internal/run"
)

// Naive ISO-8601 with microseconds, local time.
const timestampLayout = "2006-01-02T15:04:05.000000"

type Config struct {
	PendingFor     time.Duration
	IterationEvery time.Duration
	MaxIterations  int
	InitialIssues  int
	// FailRepos lists repository URLs whose runs fail after the first
	// iteration.
	FailRepos []string
}

type Server struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	mu   sync.Mutex
	runs map[string]*simRun
}

type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Server) { s.newID = newID }
}

func New(cfg Config, logger *slog.Logger, opts ...Option) *Server {
	if cfg.IterationEvery <= 0 {
		cfg.IterationEvery = 5 * time.Second
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = run.DefaultMaxIterations
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
		runs:   make(map[string]*simRun),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(middleware.Recoverer, s.logRequests)

	r.Post("/analyze", s.handleAnalyze)
	r.Get("/results/{run_id}", s.handleResults)
	r.Get("/status", s.handleStatus)

	return r
}

// Serve listens on addr and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		s.logger.Info("simulated backend listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve simulator: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down simulated backend")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "took", time.Since(start))
	})
}

type analyzeRequest struct {
	RepoURL    string `json:"repo_url"`
	TeamName   string `json:"team_name"`
	LeaderName string `json:"leader_name"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, detail("invalid request body: "+err.Error()))
		return
	}
	sr := run.StartRequest{RepoURL: req.RepoURL, TeamName: req.TeamName, LeaderName: req.LeaderName}
	if err := sr.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, detail(err.Error()))
		return
	}

	id := s.newID()
	sim := &simRun{
		req:     req,
		created: s.now(),
		issues:  seedIssues(s.cfg.InitialIssues),
		fails:   slices.Contains(s.cfg.FailRepos, req.RepoURL),
	}

	s.mu.Lock()
	s.runs[id] = sim
	s.mu.Unlock()

	s.logger.Info("run accepted", "run_id", id, "repo", req.RepoURL, "issues", len(sim.issues), "fails", sim.fails)
	writeJSON(w, http.StatusOK, map[string]string{"run_id": id, "status": "started"})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "run_id")

	s.mu.Lock()
	sim, ok := s.runs[id]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, detail("Run ID not found"))
		return
	}
	writeJSON(w, http.StatusOK, sim.render(s.cfg, s.now()))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "fixwatch simulator"})
}

func detail(msg string) map[string]string {
	return map[string]string{"detail": msg}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
