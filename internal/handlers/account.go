// Copyright 2026 Vetpraxis Contributors
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"codeberg.org/vetpraxis/vetpraxis/internal/middleware"
	"codeberg.org/vetpraxis/vetpraxis/internal/services/account"
	"github.com/labstack/echo/v4"
)

// AccountHandlers contains the handlers for the account lifecycle.
type AccountHandlers struct {
	svc *account.Service
}

// NewAccount creates a new AccountHandlers instance.
func NewAccount(svc *account.Service) *AccountHandlers {
	return &AccountHandlers{svc: svc}
}

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
}

// Register creates a new account and sends the confirmation email. The
// response carries the account without its pending token or password hash.
func (h *AccountHandlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return msg(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Name == "" || req.Password == "" {
		return msg(c, http.StatusBadRequest, "email, name and password are required")
	}

	acc, err := h.svc.Register(c.Request().Context(), account.RegisterParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Phone:    req.Phone,
		Website:  req.Website,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusCreated, acc)
}

// Confirm flips the account behind the confirmation token to confirmed.
func (h *AccountHandlers) Confirm(c echo.Context) error {
	if err := h.svc.Confirm(c.Request().Context(), c.Param("token")); err != nil {
		return serviceError(c, err)
	}
	return msg(c, http.StatusOK, "account confirmed")
}

// LoginRequest is the request body for authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the success payload for authentication.
type LoginResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// Login authenticates an account and issues a session token.
func (h *AccountHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return msg(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return msg(c, http.StatusBadRequest, "email and password are required")
	}

	acc, session, err := h.svc.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, LoginResponse{
		ID:    acc.ID,
		Name:  acc.Name,
		Email: acc.Email,
		Token: session,
	})
}

// ForgotPasswordRequest is the request body for a password-reset request.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword starts the password-reset flow.
func (h *AccountHandlers) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return msg(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" {
		return msg(c, http.StatusBadRequest, "email is required")
	}

	if err := h.svc.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return serviceError(c, err)
	}

	return msg(c, http.StatusOK, "we have sent an email with instructions")
}

// ValidateResetToken reports whether a reset token is usable.
func (h *AccountHandlers) ValidateResetToken(c echo.Context) error {
	if err := h.svc.ValidateResetToken(c.Request().Context(), c.Param("token")); err != nil {
		return serviceError(c, err)
	}
	return msg(c, http.StatusOK, "token valid")
}

// NewPasswordRequest is the request body for committing a new password.
type NewPasswordRequest struct {
	Password string `json:"password"`
}

// CommitNewPassword consumes the reset token and stores the new password.
func (h *AccountHandlers) CommitNewPassword(c echo.Context) error {
	var req NewPasswordRequest
	if err := c.Bind(&req); err != nil {
		return msg(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Password == "" {
		return msg(c, http.StatusBadRequest, "password is required")
	}

	if err := h.svc.CommitNewPassword(c.Request().Context(), c.Param("token"), req.Password); err != nil {
		return serviceError(c, err)
	}

	return msg(c, http.StatusOK, "password changed successfully")
}

// Profile returns the authenticated account's profile.
func (h *AccountHandlers) Profile(c echo.Context) error {
	acc := middleware.AccountFromContext(c)
	if acc == nil {
		return msg(c, http.StatusUnauthorized, "authentication required")
	}

	profile, err := h.svc.GetProfile(c.Request().Context(), acc.ID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateProfileRequest is the request body for a profile update. All four
// fields are rewritten from the input; omitted optional fields come back
// empty.
type UpdateProfileRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Website string `json:"website"`
}

// UpdateProfile overwrites the profile fields of the account in the path.
func (h *AccountHandlers) UpdateProfile(c echo.Context) error {
	acc := middleware.AccountFromContext(c)
	if acc == nil {
		return msg(c, http.StatusUnauthorized, "authentication required")
	}
	if c.Param("id") != acc.ID {
		return msg(c, http.StatusForbidden, "cannot update another account")
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return msg(c, http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Email == "" {
		return msg(c, http.StatusBadRequest, "name and email are required")
	}

	updated, err := h.svc.UpdateProfile(c.Request().Context(), acc.ID, account.UpdateProfileParams{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Website: req.Website,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, updated)
}

// ChangePasswordRequest is the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the authenticated account's password.
func (h *AccountHandlers) ChangePassword(c echo.Context) error {
	acc := middleware.AccountFromContext(c)
	if acc == nil {
		return msg(c, http.StatusUnauthorized, "authentication required")
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return msg(c, http.StatusBadRequest, "invalid request body")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return msg(c, http.StatusBadRequest, "current and new password are required")
	}

	if err := h.svc.ChangePassword(c.Request().Context(), acc.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return serviceError(c, err)
	}

	return msg(c, http.StatusOK, "password changed successfully")
}
