// Copyright 2026 Vetpraxis Contributors
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/vetpraxis/vetpraxis/internal/services/account"
	"github.com/labstack/echo/v4"
)

// msg is the error payload shape: {"msg": "..."}.
func msg(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"msg": message})
}

// serviceError maps account service failures to HTTP responses. Anything
// that is not a business-rule error is logged and answered with a generic
// 500; the cause is not re-surfaced to the caller.
func serviceError(c echo.Context, err error) error {
	var verr *account.PasswordValidationError

	switch {
	case errors.Is(err, account.ErrDuplicateAccount):
		return msg(c, http.StatusBadRequest, "account already registered")
	case errors.Is(err, account.ErrEmailTaken):
		return msg(c, http.StatusBadRequest, "email already registered")
	case errors.Is(err, account.ErrInvalidEmail):
		return msg(c, http.StatusBadRequest, "invalid email format")
	case errors.Is(err, account.ErrInvalidToken):
		return msg(c, http.StatusBadRequest, "invalid token")
	case errors.Is(err, account.ErrAccountNotFound):
		return msg(c, http.StatusNotFound, "account not found")
	case errors.Is(err, account.ErrAccountNotConfirmed):
		return msg(c, http.StatusForbidden, "account not confirmed")
	case errors.Is(err, account.ErrInvalidCredentials):
		return msg(c, http.StatusForbidden, "invalid credentials")
	case errors.As(err, &verr):
		return msg(c, http.StatusBadRequest, verr.Error())
	default:
		slog.Error("internal_error", "path", c.Path(), "error", err)
		return msg(c, http.StatusInternalServerError, "internal server error")
	}
}
