// Copyright 2026 Vetpraxis Contributors
// Licensed under the EUPL-1.2

// Package server wires the HTTP server together.
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

	"codeberg.org/vetpraxis/vetpraxis/internal/config"
	"codeberg.org/vetpraxis/vetpraxis/internal/database"
	"codeberg.org/vetpraxis/vetpraxis/internal/handlers"
	appmiddleware "codeberg.org/vetpraxis/vetpraxis/internal/middleware"
	"codeberg.org/vetpraxis/vetpraxis/internal/repository"
	"codeberg.org/vetpraxis/vetpraxis/internal/services/account"
	"codeberg.org/vetpraxis/vetpraxis/internal/services/email"
	"codeberg.org/vetpraxis/vetpraxis/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := database.Close(db); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// Repository
	repo := repository.New(db)

	// Services
	issuer, err := token.NewIssuer(&cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create token issuer: %w", err)
	}

	notifier, err := email.NewService(&cfg.SMTP, cfg.Server.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to create email service: %w", err)
	}

	accountService := account.NewService(repo, notifier, issuer)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, repo, accountService, issuer)

	return startWithGracefulShutdown(ctx, e, cfg)
}

func setupRoutes(e *echo.Echo, repo *repository.Repository, svc *account.Service, issuer *token.Issuer) {
	h := handlers.New(repo)
	ah := handlers.NewAccount(svc)

	e.GET("/health", h.Health)

	api := e.Group("/api/accounts")

	// Public account lifecycle
	api.POST("", ah.Register)
	api.GET("/confirm/:token", ah.Confirm)
	api.POST("/login", ah.Login)
	api.POST("/password-reset", ah.ForgotPassword)
	api.GET("/password-reset/:token", ah.ValidateResetToken)
	api.POST("/password-reset/:token", ah.CommitNewPassword)

	// Authenticated routes
	authed := api.Group("", appmiddleware.RequireAuth(issuer, repo))
	authed.GET("/profile", ah.Profile)
	authed.PUT("/profile/:id", ah.UpdateProfile)
	authed.PUT("/password", ah.ChangePassword)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
