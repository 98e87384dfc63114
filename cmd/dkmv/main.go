package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	githubadapter "github.com/dkmv/dkmv/internal/adapter/driven/github"
	"github.com/dkmv/dkmv/internal/adapter/driven/reviewapi"
	sqliteadapter "github.com/dkmv/dkmv/internal/adapter/driven/sqlite"
	httphandler "github.com/dkmv/dkmv/internal/adapter/driving/http"
	webhandler "github.com/dkmv/dkmv/internal/adapter/driving/web"
	"github.com/dkmv/dkmv/internal/application"
	"github.com/dkmv/dkmv/internal/config"
	"github.com/dkmv/dkmv/internal/domain/port/driven"
)

// profileSource converts the optional client without smuggling a typed
// nil pointer into the interface value.
func profileSource(c *githubadapter.ProfileClient) driven.ProfileSource {
	if c == nil {
		return nil
	}
	return c
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"backend_url", cfg.BackendURL,
		"backend_timeout", cfg.BackendTimeout,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.EncryptionKey)
	settingsStore := sqliteadapter.NewSettingsRepo(db)

	tokens := application.NewTokenProvider(credentialStore, slog.Default())
	tokens.Load(ctx)

	backend, err := reviewapi.NewClient(cfg.BackendURL, cfg.BackendTimeout, tokens)
	if err != nil {
		return err
	}

	// GitHub profile enrichment is optional; without a token the login
	// avatar and display name come from the backend alone.
	var profiles *githubadapter.ProfileClient
	if cfg.GitHubToken != "" {
		profiles = githubadapter.NewProfileClient(cfg.GitHubToken)
		slog.Info("github profile enrichment enabled")
	}

	// 6. Create application services.
	sessionSvc := application.NewSessionService(backend, profileSource(profiles), tokens, slog.Default())
	reviewSvc := application.NewReviewService(backend)
	statsSvc := application.NewStatsService(backend)
	settingsSvc := application.NewSettingsService(settingsStore, cfg.DefaultModel, slog.Default())
	workflows := application.NewWorkflowManager(backend, slog.Default())

	// Resolve any persisted session before serving traffic. Failure just
	// means the first visitor sees the login page.
	if identity := sessionSvc.Refresh(ctx); identity != nil {
		slog.Info("session restored", "login", identity.Login)
	}

	// 7. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(sessionSvc, workflows, reviewSvc, statsSvc, slog.Default())
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	// 7b. Create web handler and register GUI routes.
	webHandler, err := webhandler.NewHandler(
		sessionSvc, reviewSvc, statsSvc, settingsSvc, workflows,
		tokens, backend, cfg.Models, slog.Default(),
	)
	if err != nil {
		return err
	}
	webHandler.RegisterRoutes(mux)

	// Apply middleware.
	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("dkmv started", "listen_addr", cfg.ListenAddr, "backend_url", cfg.BackendURL)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout to drain the HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
