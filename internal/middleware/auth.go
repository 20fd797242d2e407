// Copyright 2026 Vetpraxis Contributors
// Licensed under the EUPL-1.2

// Package middleware contains the HTTP middleware.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/vetpraxis/vetpraxis/internal/models"
	"codeberg.org/vetpraxis/vetpraxis/internal/repository"
	"codeberg.org/vetpraxis/vetpraxis/internal/services/token"
	"github.com/labstack/echo/v4"
)

// accountKey is the echo context key holding the authenticated account.
const accountKey = "account"

// AccountFromContext returns the authenticated account, or nil if the
// request did not pass RequireAuth.
func AccountFromContext(c echo.Context) *models.Account {
	acc, _ := c.Get(accountKey).(*models.Account)
	return acc
}

// SetAccount stores the authenticated account in the request context.
func SetAccount(c echo.Context, acc *models.Account) {
	c.Set(accountKey, acc)
}

// RequireAuth verifies the bearer session token and loads the bound account
// into the request context. Requests without a valid token get a 401; a
// token bound to an account that no longer exists gets a 401 as well.
func RequireAuth(issuer *token.Issuer, repo *repository.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			bearer, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || bearer == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"msg": "authentication required"})
			}

			accountID, err := issuer.VerifySession(bearer)
			if err != nil {
				slog.Warn("auth_failed", "reason", "invalid_session_token")
				return c.JSON(http.StatusUnauthorized, map[string]string{"msg": "invalid or expired token"})
			}

			acc, err := repo.GetAccountByID(c.Request().Context(), accountID)
			if err != nil {
				slog.Warn("auth_failed", "reason", "account_not_found", "account_id", accountID)
				return c.JSON(http.StatusUnauthorized, map[string]string{"msg": "invalid or expired token"})
			}

			SetAccount(c, acc)
			return next(c)
		}
	}
}
