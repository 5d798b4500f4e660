package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"intentio/backend/internal/config"
	"intentio/backend/internal/events"
	"intentio/backend/internal/handler"
	"intentio/backend/internal/repository"
	"intentio/backend/internal/router"
	"intentio/backend/internal/service"
	"intentio/backend/internal/timer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the timer API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting intentio")

	database, applied, err := openDatabase(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database")
		}
	}()
	logger.Info().
		Str("path", cfg.Database.Path).
		Strs("migrations_applied", applied).
		Msg("Database initialized")

	policyStore := config.NewPolicyStore(cfg.Timer.PolicyPath)
	if _, err := policyStore.Snapshot(); err != nil {
		logger.Warn().Err(err).Str("path", policyStore.Path()).Msg("Timer policy unreadable, using defaults")
	}

	bus := events.NewBus(
		events.WithBuffer(cfg.Events.Buffer),
		events.WithLogger(logger.With().Str("component", "events").Logger()),
	)
	sessionRepo := repository.NewSessionRepository(database)

	engine := timer.NewEngine(policyStore, sessionRepo, bus, timer.Config{
		TickInterval:   cfg.Timer.TickInterval,
		PersistTimeout: cfg.Timer.PersistTimeout,
	}, logger)
	defer engine.Close()

	var authService *service.AuthService
	if cfg.Auth.Secret != "" {
		authService = service.NewAuthService(cfg.Auth.Secret, cfg.Auth.PassphraseHash, cfg.Auth.TokenTTL)
	} else {
		logger.Warn().Msg("auth.secret is not set, API is served without authentication")
	}

	timerService := service.NewTimerService(engine)
	handlers := router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Timer:    handler.NewTimerHandler(timerService),
		Queue:    handler.NewQueueHandler(timerService),
		Events:   handler.NewEventsHandler(bus, cfg.Events.Buffer, logger),
		Sessions: handler.NewSessionHandler(service.NewSessionService(sessionRepo)),
		Settings: handler.NewSettingsHandler(service.NewSettingsService(policyStore, logger)),
	}

	gin.SetMode(gin.ReleaseMode)
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()

	server := &http.Server{
		Addr:        cfg.Server.Address,
		Handler:     router.New(authService, handlers, cfg.CORS.Origins, logger),
		BaseContext: func(net.Listener) context.Context { return baseCtx },
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	logger.Info().Str("addr", cfg.Server.Address).Msg("API server started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received, gracefully stopping...")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
	}

	// Event streams only end when their request context does.
	cancelRequests()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error stopping API server")
	}

	logger.Info().Msg("intentio stopped")
	return nil
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
