// Package server wires the dependency graph and owns the HTTP lifecycle.
//
// This is the composition root: everything is constructed here, in one
// place — sqlite pool, key-value store, session manager, mail sender,
// services, handlers — and each layer receives only what it needs. Nothing
// below this package reaches for a global.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mehedi/linkloom/internal/auth"
	"github.com/mehedi/linkloom/internal/config"
	"github.com/mehedi/linkloom/internal/handler"
	"github.com/mehedi/linkloom/internal/kv"
	"github.com/mehedi/linkloom/internal/mail"
	"github.com/mehedi/linkloom/internal/middleware"
	sqliteRepo "github.com/mehedi/linkloom/internal/repository/sqlite"
	"github.com/mehedi/linkloom/internal/service"
	"github.com/mehedi/linkloom/internal/session"
)

// Server holds the router and the resources that need closing on
// shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	redis  *kv.RedisStore // nil when running on the in-memory store
}

// New assembles the full dependency graph.
//
// Redis is preferred for sessions and reset tokens; when it is not
// reachable the server falls back to the in-process store so local
// development works with nothing but `go run`. The fallback loses all
// sessions on restart — fine for dev, logged loudly so it is never a
// surprise in production.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var store kv.Store
	redisStore, err := kv.NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory store (sessions will not survive restarts)",
			slog.String("addr", cfg.Redis.Addr),
			slog.String("error", err.Error()),
		)
		store = kv.NewMemoryStore()
	} else {
		s.redis = redisStore
		store = redisStore
	}

	var sender mail.Sender
	if cfg.SMTP.Host != "" {
		sender = mail.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port,
			cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	} else {
		logger.Warn("SMTP not configured, reset emails will be logged instead of sent")
		sender = mail.NewLogSender(logger)
	}

	s.setupRoutes(store, sender)
	return s, nil
}

// setupRoutes builds services and handlers and binds them to URLs.
func (s *Server) setupRoutes(store kv.Store, sender mail.Sender) {
	sessions := session.NewManager(store, s.config.Session.CookieName, s.config.Session.Secure)

	authService := service.NewAuthService(
		s.db, auth.NewPasswordService(), store, sender, s.config.FrontendURL, s.logger)
	postService := service.NewPostService(s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, sessions, s.logger)
	postHandler := handler.NewPostHandler(postService, sessions, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Route("/api", func(r chi.Router) {
		// Public surface.
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/me", authHandler.HandleMe)
		r.Post("/forgot-password", authHandler.HandleForgotPassword)
		r.Post("/change-password", authHandler.HandleChangePassword)

		r.Get("/posts", postHandler.HandleList)
		r.Get("/posts/{id}", postHandler.HandleGet)

		// Writes require a session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(sessions))
			r.Post("/posts", postHandler.HandleCreate)
			r.Put("/posts/{id}", postHandler.HandleUpdate)
			r.Delete("/posts/{id}", postHandler.HandleDelete)
			r.Post("/posts/{id}/vote", postHandler.HandleVote)
		})
	})
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests (30s budget) and closes the database and redis pools.
func (s *Server) Start() error {
	defer s.db.Close()
	if s.redis != nil {
		defer s.redis.Close()
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
