// Package server provides the HTTP server of the MundoCerca API.
// It wires repositories, services and handlers together, configures routing
// and middleware, and manages the server lifecycle including background
// maintenance and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mundocerca/backend/internal/auth"
	"github.com/mundocerca/backend/internal/config"
	"github.com/mundocerca/backend/internal/constants"
	"github.com/mundocerca/backend/internal/database"
	"github.com/mundocerca/backend/internal/handlers"
	"github.com/mundocerca/backend/internal/repository"
	"github.com/mundocerca/backend/internal/service"
	"github.com/mundocerca/backend/internal/utils"
	"github.com/mundocerca/backend/migrations"
)

// Handlers contains all HTTP handlers for the application.
type Handlers struct {
	// PasswordResetHandler serves the three reset endpoints
	PasswordResetHandler *handlers.PasswordResetHandler

	// GenericHandler serves health and version
	GenericHandler *handlers.GenericHandler
}

// Server represents the API server.
// It encapsulates all server components and handles server lifecycle management,
// including initialization, startup, and graceful shutdown.
type Server struct {
	// Config contains application configuration
	Config *config.AppConfig

	// Db provides database access
	Db *database.Pool

	// router handles HTTP routing
	router chi.Router

	// Handlers contains all HTTP request handlers
	Handlers *Handlers

	// httpServer is the underlying HTTP server
	httpServer *http.Server

	security     *service.SecurityService
	emailService *service.EmailService
	maintenance  *Maintenance
}

// NewServer connects to the configured database, brings the schema up to
// date and assembles the server around the connection.
//
// Parameters:
//   - cfg: Application configuration
//
// Returns:
//   - A fully initialized Server instance ready to start
//   - An error if the database, migrations or any component fails
func NewServer(cfg *config.AppConfig) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	migrator := migrations.NewMigrator(db)
	if err := migrator.RunMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	s, err := New(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New assembles a server on an already migrated connection pool.
// The initialization order is repositories, then services, then handlers and routes.
func New(cfg *config.AppConfig, db *database.Pool) (*Server, error) {
	s := &Server{
		Config: cfg,
		Db:     db,
	}

	hasher, err := auth.NewHasher(&cfg.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to set up hasher: %w", err)
	}

	sender, err := service.NewEmailSender(&cfg.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to set up email sender: %w", err)
	}

	clock := utils.SystemClock{}

	resetRepo := repository.NewPasswordResetRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	s.emailService = service.NewEmailService(sender, cfg.Email.SendTimeout)
	s.security = service.NewSecurityService(&cfg.Throttle)

	resetService := service.NewPasswordResetService(
		resetRepo,
		userRepo,
		hasher,
		s.emailService,
		service.NewAuditService(auditRepo, clock),
		&cfg.PasswordReset,
		clock,
	)

	s.maintenance = NewMaintenance(resetService, constants.DBMaintenanceInterval, constants.DBMaintenanceTimeout)

	s.Handlers = &Handlers{
		PasswordResetHandler: handlers.NewPasswordResetHandler(resetService),
		GenericHandler: handlers.NewGenericHandler(
			service.NewDatabaseService(db),
			cfg.App.Name,
			cfg.App.Version,
			cfg.App.Environment,
		),
	}

	s.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Server.ServerAddress(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  constants.DefaultIdleTimeout,
	}

	return s, nil
}

// Start runs the server until SIGINT or SIGTERM is received.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Run(ctx)
}

// Run serves HTTP and runs the background workers until ctx is cancelled or
// one of them fails, then shuts everything down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Str("address", s.httpServer.Addr).
			Msg("Starting server")

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.security.Run(gctx)
		return nil
	})

	g.Go(func() error {
		s.maintenance.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			// close immediately when graceful shutdown fails
			if closeErr := s.httpServer.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the server.
// In-flight requests finish first, then queued reset emails are flushed,
// then the database connection is closed.
// Emails and the database are released even when the HTTP shutdown times out.
func (s *Server) Shutdown(ctx context.Context) error {
	defer func() {
		s.emailService.Wait()

		s.Db.Close()
		log.Info().Msg("Database connection closed")
	}()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	log.Info().Msg("Server stopped gracefully")
	return nil
}

// GetRouter returns the configured router
func (s *Server) GetRouter() chi.Router {
	return s.router
}
