// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer of the local UI bridge. It decides
// which URL patterns map to which handler functions, which middleware
// guards which routes, and how the server stops.
//
// DEPENDENCY INJECTION FLOW:
// main.go creates:
//
//	sqlite.Conn → sqlite.Factory → services → session.Machine
//
// and hands the services and the machine to New. The server builds the
// handlers from them and never touches storage itself.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/newsdesk/internal/auth"
	"github.com/sakif/newsdesk/internal/handler"
	"github.com/sakif/newsdesk/internal/middleware"
	"github.com/sakif/newsdesk/internal/service"
	"github.com/sakif/newsdesk/internal/session"
)

// DefaultShutdownTimeout is how long in-flight requests get to finish.
const DefaultShutdownTimeout = 30 * time.Second

// Config holds server configuration.
type Config struct {
	Port            int
	ShutdownTimeout time.Duration
}

// Deps are the services the routes call into.
type Deps struct {
	Machine     *session.Machine
	Users       *service.UserManagementService
	Articles    *service.ArticleService
	News        *service.NewsService
	Preferences *service.PreferencesService
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the session machine's lifetime once Start runs: on
// shutdown it stops the HTTP listener first, then the machine, so no
// request can observe a stopped machine.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	deps   Deps
}

// New creates a Server and registers every route.
func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		deps:   deps,
	}
	s.setupRoutes()
	return s
}

// Handler returns the router. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /health
//	GET    /api/auth/state                   public
//	POST   /api/auth/{initialize,login,signup,logout}
//	DELETE /api/auth/error
//	/api/users/...                           admin only
//	/api/articles/...                        signed in
//	/api/news, /api/news/sources             signed in
//	DELETE /api/news/cache                   admin only
//	/api/preferences/...                     signed in
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: tags the request with an id (X-Request-Id)
//  2. RealIP: extracts real client IP from proxy headers
//  3. Logger: logs each request with timing info and the request id
//  4. Recoverer: catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes() {
	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	machine := s.deps.Machine
	requireUser := auth.RequireUser(machine)
	requireAdmin := auth.RequireAdmin(machine)

	authHandler := handler.NewAuthHandler(machine, s.logger)
	usersHandler := handler.NewUsersHandler(s.deps.Users, s.logger)
	articlesHandler := handler.NewArticlesHandler(s.deps.Articles, s.logger)
	newsHandler := handler.NewNewsHandler(s.deps.News, s.logger)
	prefsHandler := handler.NewPreferencesHandler(s.deps.Preferences, s.logger)

	s.router.Get("/health", handler.NewHealthHandler(machine).HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// === Auth (public) ===
		r.Route("/auth", func(r chi.Router) {
			r.Get("/state", authHandler.HandleState)
			r.Post("/initialize", authHandler.HandleInitialize)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/signup", authHandler.HandleSignup)
			r.Post("/logout", authHandler.HandleLogout)
			r.Delete("/error", authHandler.HandleClearError)
		})

		// === Admin console ===
		r.Route("/users", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Get("/", usersHandler.HandleList)
			r.Get("/stats", usersHandler.HandleStats)
			r.Put("/{id}/role", usersHandler.HandleUpdateRole)
			r.Delete("/{id}", usersHandler.HandleDelete)
		})

		// === Articles ===
		r.Route("/articles", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", articlesHandler.HandleList)
			r.Post("/", articlesHandler.HandleCreate)
			r.Get("/mine", articlesHandler.HandleMine)
			r.Get("/search", articlesHandler.HandleSearch)
			r.Get("/dashboard", articlesHandler.HandleDashboard)
			r.Get("/{id}", articlesHandler.HandleGet)
			r.Patch("/{id}", articlesHandler.HandleUpdate)
			r.Delete("/{id}", articlesHandler.HandleDelete)
		})

		// === News feed ===
		r.Route("/news", func(r chi.Router) {
			r.With(requireUser).Get("/", newsHandler.HandleArticles)
			r.With(requireUser).Get("/sources", newsHandler.HandleSources)
			r.With(requireAdmin).Delete("/cache", newsHandler.HandleClearCache)
		})

		// === Preferences ===
		r.Route("/preferences", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", prefsHandler.HandleGet)
			r.Patch("/", prefsHandler.HandleUpdate)
			r.Get("/news", prefsHandler.HandleGetNews)
			r.Patch("/news", prefsHandler.HandleUpdateNews)
			r.Post("/news/read/{articleId}", prefsHandler.HandleMarkAsRead)
			r.Post("/news/bookmark/{articleId}", prefsHandler.HandleToggleBookmark)
		})
	})
}

// Start starts the HTTP server and blocks until it is shut down.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (ShutdownTimeout)
//  3. Stop the session machine's monitor and cleanup loops
//
// Closing the database is left to the caller, which opened it.
func (s *Server) Start() error {
	defer s.deps.Machine.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
