// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server assembles the HTTP surface: the middleware pipeline
// (request IDs, sessions, admission) and the introspection routes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kadirpekel/archange/pkg/admission"
	"github.com/kadirpekel/archange/pkg/config"
	"github.com/kadirpekel/archange/pkg/events"
	"github.com/kadirpekel/archange/pkg/hell"
	"github.com/kadirpekel/archange/pkg/session"
)

// EventServerReady is emitted once the server configuration is complete
// and the listener is about to accept traffic.
const EventServerReady = "http server configuration complete"

// Server owns the HTTP listener and the admission stack behind it.
type Server struct {
	cfg      *config.Config
	hub      *events.Hub
	engine   *admission.Engine
	sessions *session.Store
	hellSM   *hell.Hell
	pool     *config.DBPool

	server    *http.Server
	startedAt time.Time
}

// New builds the full stack from configuration: database pool, ban ledger,
// ban state machine, admission engine, session store, routes.
func New(ctx context.Context, cfg *config.Config, hub *events.Hub) (*Server, error) {
	pool := config.NewDBPool()

	ledger, err := hell.NewLedger(cfg, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to build ban ledger: %w", err)
	}

	hellSM, err := hell.New(ctx, &cfg.Admission.Hell, ledger, hub)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize ban state machine: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		hub:      hub,
		engine:   admission.NewEngine(&cfg.Admission, cfg.Server.APIPrefix, hellSM, hub),
		sessions: session.NewStore(),
		hellSM:   hellSM,
		pool:     pool,
	}

	return s, nil
}

// Engine exposes the admission engine, for tests and embedders.
func (s *Server) Engine() *admission.Engine {
	return s.engine
}

// Handler builds the middleware pipeline and routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(session.Middleware(s.sessions, s.cfg.Session, s.cfg.Server.HTTPSMode))
	r.Use(s.engine.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route(s.cfg.Server.APIPrefix, func(r chi.Router) {
		r.Get("/whoia", s.handleWhoia)
		r.Get("/info", s.handleInfo)
	})

	return r
}

// Start runs the listener until the context is canceled or the listener
// fails. Shutdown is graceful.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Address(),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.startedAt = time.Now()

	s.hub.Info(events.CategoryServer, EventServerReady, map[string]any{
		"address":   s.cfg.Server.Address(),
		"admission": s.cfg.Admission.IsEnabled(),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the listener and releases the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error

	if s.server != nil {
		slog.Info("HTTP server shutting down")
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP shutdown error: %w", err))
		}
	}

	if err := s.hellSM.Close(); err != nil {
		errs = append(errs, fmt.Errorf("ledger close error: %w", err))
	}
	if err := s.pool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database pool close error: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	return nil
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.cfg.Server.Address()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"duration", time.Since(start),
		)
	})
}
