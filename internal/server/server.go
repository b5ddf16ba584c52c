// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every dependency is built and wired here,
//
//	sqlite.DB ─┐
//	weather.Client ─┬─ refresh.Scheduler
//	                └─ service.SubscriptionService ── handler.WeatherHandler ── chi routes
//
// and torn down here in reverse order on shutdown.
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

	"github.com/sakif/city-weather/internal/handler"
	"github.com/sakif/city-weather/internal/middleware"
	"github.com/sakif/city-weather/internal/refresh"
	sqliteRepo "github.com/sakif/city-weather/internal/repository/sqlite"
	"github.com/sakif/city-weather/internal/service"
	"github.com/sakif/city-weather/internal/weather"
)

// Config holds server configuration.
type Config struct {
	Port   int
	DBPath string

	WeatherAPIURL   string
	FetchTimeout    time.Duration
	RefreshInterval time.Duration
}

// Server represents the HTTP server and all its dependencies.
//
// The server owns the database handle and the refresh scheduler; both are
// released by Close (called from Start on shutdown).
type Server struct {
	router    *chi.Mux
	config    Config
	logger    *slog.Logger
	db        *sqliteRepo.DB
	scheduler *refresh.Scheduler
	service   *service.SubscriptionService
}

// New opens the database, builds every layer and registers the routes.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	client := weather.NewClient(weather.Config{
		BaseURL: cfg.WeatherAPIURL,
		Timeout: cfg.FetchTimeout,
	})
	scheduler := refresh.New(db, client, refresh.Config{
		Interval: cfg.RefreshInterval,
		Timeout:  cfg.FetchTimeout,
	}, logger)

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		db:        db,
		scheduler: scheduler,
		service:   service.NewSubscriptionService(db, client, scheduler, logger),
	}
	s.setupRoutes()

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTES:
// POST /weather/by-coordinates             → current conditions at a point
// POST /city/{userId}                      → track a city
// GET  /cities/{userId}                    → list tracked cities
// POST /weather/by-city-and-time/{userId}  → cached forecast at HH:MM
// POST /user                               → register a user
//
// Middleware runs in the order it is added: request id, real ip, request
// logging, then panic recovery closest to the handler.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	weatherHandler := handler.NewWeatherHandler(s.service, s.logger)
	weatherHandler.Routes(s.router)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Resume restarts refresh jobs for cities stored by a previous run.
func (s *Server) Resume(ctx context.Context) error {
	n, err := s.service.ResumeTracking(ctx)
	if err != nil {
		return err
	}
	s.logger.Debug("resume complete", slog.Int("jobs", n))
	return nil
}

// Close stops every refresh job and closes the database.
func (s *Server) Close() error {
	s.scheduler.Shutdown()
	return s.db.Close()
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down:
//  1. stop accepting connections and drain in-flight requests (30s)
//  2. stop all refresh jobs
//  3. close the database
func (s *Server) Start() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Error("failed to close resources", slog.String("error", err.Error()))
		}
	}()

	if err := s.Resume(context.Background()); err != nil {
		return fmt.Errorf("resuming refresh jobs: %w", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second, // covers a first-subscription upstream fetch
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
			slog.String("database", s.config.DBPath),
			slog.Duration("refresh_interval", s.config.RefreshInterval),
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

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully",
			slog.Int("refresh_jobs", s.scheduler.Len()),
		)
	}

	return nil
}
