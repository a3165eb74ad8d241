// Package server exposes agents and retrieval answering over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atelier-ai/atelier/pkg/agent"
	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/llms"
	"github.com/atelier-ai/atelier/pkg/rag"
	"github.com/atelier-ai/atelier/pkg/session"
)

// Runner is the part of an agent the server invokes.
type Runner interface {
	Name() string
	Run(ctx context.Context, history []llms.Message, input string, sink agent.TextSink) (*agent.RunResult, error)
}

// Answerer produces grounded answers for the /v1/answer endpoint.
type Answerer interface {
	Answer(ctx context.Context, question string) (*rag.Answer, error)
}

// Options carries the wired components the server serves.
type Options struct {
	Agents   map[string]Runner
	Sessions session.Store
	Answerer Answerer
}

type Server struct {
	cfg      config.ServerConfig
	agents   map[string]Runner
	sessions session.Store
	answerer Answerer
	srv      *http.Server
}

func New(cfg config.ServerConfig, opts Options) *Server {
	s := &Server{
		cfg:      cfg,
		agents:   opts.Agents,
		sessions: opts.Sessions,
		answerer: opts.Answerer,
	}
	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}
	return s
}

// Handler builds the router. Exposed separately so tests can drive it
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(countRequests)

	r.Get("/healthz", s.handleHealth)
	if s.cfg.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/agents", s.handleListAgents)
		r.Post("/agents/{agent}/messages", s.handleAgentMessage)
		r.Post("/answer", s.handleAnswer)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}/messages", s.handleSessionMessages)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
	})
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("server shutting down")
		return s.srv.Shutdown(shutdownCtx)
	}
}
