package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/macroscope/internal/app"
	"github.com/ternarybob/macroscope/internal/handlers"
)

// Server manages the HTTP server and routes
type Server struct {
	app    *app.App
	router *http.ServeMux
	server *http.Server

	statusHandler   *handlers.StatusHandler
	runHandler      *handlers.RunHandler
	analysisHandler *handlers.AnalysisHandler
}

// New creates a new HTTP server with the given app
func New(application *app.App) *Server {
	s := &Server{
		app:             application,
		statusHandler:   handlers.NewStatusHandler(application.Config, application.MacroStorage, application.Logger),
		runHandler:      handlers.NewRunHandler(application, application.Logger),
		analysisHandler: handlers.NewAnalysisHandler(application.AnalysisStorage, application.Config.Analysis.Topic, application.Logger),
	}

	s.router = s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", application.Config.Server.Host, application.Config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // pipeline runs block on model calls
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.app.Config.Server.Host, s.app.Config.Server.Port)

	s.app.Logger.Info().
		Str("address", addr).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Logger.Info().Msg("Shutting down HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.app.Logger.Info().Msg("HTTP server stopped")
	return nil
}
