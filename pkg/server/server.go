// Package server exposes the TupleDB engine over HTTP: transaction
// lifecycle, row operations, commit streams, metrics exposition, and
// dataset import/export.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnohosten/tupledb/pkg/auth"
	"github.com/mnohosten/tupledb/pkg/database"
	"github.com/mnohosten/tupledb/pkg/logger"
	"github.com/mnohosten/tupledb/pkg/metrics"
	"github.com/mnohosten/tupledb/pkg/server/handlers"
)

// Server is the HTTP server for TupleDB.
type Server struct {
	config       *Config
	db           *database.Database
	router       *chi.Mux
	httpSrv      *http.Server
	startTime    time.Time
	promExporter *metrics.PrometheusExporter
	users        *auth.UserStore
}

// New creates a server with a fresh in-memory database.
func New(config *Config) (*Server, error) {
	logger.Init(logger.Config{Level: config.LogLevel, Format: config.LogFormat})

	db := database.Open(nil)

	srv := &Server{
		config:       config,
		db:           db,
		router:       chi.NewRouter(),
		startTime:    time.Now(),
		promExporter: metrics.NewPrometheusExporter(db.Metrics()),
	}

	if config.EnableAuth {
		srv.users = auth.NewUserStore()
		for _, u := range config.Users {
			if err := srv.users.CreateUser(u.Username, u.Password, auth.Role(u.Role)); err != nil {
				return nil, fmt.Errorf("invalid user %q: %w", u.Username, err)
			}
		}
		if srv.users.Count() == 0 {
			return nil, fmt.Errorf("auth enabled but no users configured")
		}
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return srv, nil
}

// Database returns the server's engine, for embedding and tests.
func (s *Server) Database() *database.Database {
	return s.db
}

// Router returns the configured router, for tests driving the server
// through httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures the HTTP middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	if s.config.EnableLogging {
		s.router.Use(middleware.Logger)
	}

	s.router.Use(s.requestSizeLimitMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.config.EnableAuth {
		s.router.Use(s.authMiddleware)
	}
}

// setupRoutes configures HTTP routes.
func (s *Server) setupRoutes() {
	h := handlers.New(s.db)

	// Health and admin endpoints
	s.router.Get("/_health", h.Health(s.startTime))
	s.router.Get("/_stats", h.Stats)
	s.router.Get("/_metrics", s.handlePrometheusMetrics)

	// Commit event stream
	s.router.Get("/_watch", h.Watch)

	// Dataset import/export
	s.router.Get("/_export", h.Export)
	s.router.Post("/_import", h.Import)

	// Transaction lifecycle and row operations
	s.router.Post("/_txn", h.BeginTxn)
	s.router.Route("/_txn/{txnID}", func(r chi.Router) {
		r.Post("/_commit", h.CommitTxn)
		r.Post("/_abort", h.AbortTxn)
		r.Get("/_select", h.Select)
		r.Post("/row/{key}", h.InsertRow)
		r.Put("/row/{key}", h.UpdateRow)
		r.Delete("/row/{key}", h.DeleteRow)
	})
}

// handlePrometheusMetrics serves the text exposition format.
func (s *Server) handlePrometheusMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := s.promExporter.WriteMetrics(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// requestSizeLimitMiddleware bounds request bodies.
func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.MaxRequestSize > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
		}
		next.ServeHTTP(w, r)
	})
}

// authMiddleware enforces basic auth and role-based access: mutations need
// readWrite, import needs admin, reads need read.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="tupledb"`)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		user, err := s.users.Verify(username, password)
		if err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		if !user.Role.Allows(requiredRole(r)) {
			http.Error(w, "permission denied", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func requiredRole(r *http.Request) auth.Role {
	switch {
	case r.URL.Path == "/_import":
		return auth.RoleAdmin
	case r.Method == http.MethodGet:
		return auth.RoleRead
	default:
		return auth.RoleReadWrite
	}
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		logger.Get().Info("server listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Get().Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	s.db.Close()
	return nil
}
