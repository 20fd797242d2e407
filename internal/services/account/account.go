// Copyright 2026 Vetpraxis Contributors
// Licensed under the EUPL-1.2

// Package account implements the staff account lifecycle: registration with
// email confirmation, authentication, password reset and profile updates.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"codeberg.org/vetpraxis/vetpraxis/internal/models"
	"codeberg.org/vetpraxis/vetpraxis/internal/repository"
	"codeberg.org/vetpraxis/vetpraxis/internal/services/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDuplicateAccount    = errors.New("account already registered")
	ErrInvalidToken        = errors.New("invalid token")
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountNotConfirmed = errors.New("account not confirmed")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidEmail        = errors.New("invalid email format")
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Notifier sends account lifecycle emails. Failures are logged by the
// service, never surfaced to the caller: a committed account mutation is not
// rolled back because a mail could not be delivered.
type Notifier interface {
	SendConfirmation(ctx context.Context, email, name, token string) error
	SendPasswordReset(ctx context.Context, email, name, token string) error
}

// Service orchestrates the account lifecycle against the credential store.
type Service struct {
	repo              *repository.Repository
	notifier          Notifier
	issuer            *token.Issuer
	passwordValidator *PasswordValidator
}

// NewService creates a new account lifecycle service.
func NewService(repo *repository.Repository, notifier Notifier, issuer *token.Issuer) *Service {
	return &Service{
		repo:              repo,
		notifier:          notifier,
		issuer:            issuer,
		passwordValidator: DefaultPasswordValidator(),
	}
}

// PasswordValidator returns the password validator for use in handlers.
func (s *Service) PasswordValidator() *PasswordValidator {
	return s.passwordValidator
}

// RegisterParams holds the parameters for account registration.
type RegisterParams struct {
	Email    string
	Name     string
	Password string
	Phone    string
	Website  string
}

// Register creates a new unconfirmed account, persists it and sends the
// confirmation email.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.Account, error) {
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, ErrInvalidEmail
	}

	validation := s.passwordValidator.Validate(params.Password, params.Email, params.Name)
	if !validation.Valid {
		return nil, &PasswordValidationError{Errors: validation.Errors}
	}

	_, err := s.repo.GetAccountByEmail(ctx, params.Email)
	if err == nil {
		return nil, ErrDuplicateAccount
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	confirmToken, err := token.GenerateOpaque()
	if err != nil {
		return nil, fmt.Errorf("failed to generate confirmation token: %w", err)
	}

	acc := &models.Account{
		ID:           uuid.NewString(),
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		Name:         params.Name,
		Phone:        params.Phone,
		Website:      params.Website,
		Token:        &confirmToken,
	}

	if err := s.repo.CreateAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if err := s.notifier.SendConfirmation(ctx, acc.Email, acc.Name, confirmToken); err != nil {
		slog.Error("confirmation_email_failed", "account_id", acc.ID, "error", err)
	}

	slog.Info("register_success", "account_id", acc.ID, "email", acc.Email)

	return acc, nil
}

// Confirm marks the account holding the given pending token as confirmed
// and clears the token. An unknown or already-used token fails with
// ErrInvalidToken; the two cases are intentionally indistinguishable.
func (s *Service) Confirm(ctx context.Context, confirmToken string) error {
	err := s.repo.ConfirmAccountByToken(ctx, confirmToken)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("failed to confirm account: %w", err)
	}

	slog.Info("account_confirmed")
	return nil
}

// Authenticate checks the credentials and, on success, returns the account
// together with a freshly issued session token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.Account, string, error) {
	acc, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform a bcrypt comparison
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "email", email, "reason", "account_not_found")
			return nil, "", ErrAccountNotFound
		}
		return nil, "", fmt.Errorf("failed to get account: %w", err)
	}

	if !acc.Confirmed {
		slog.Warn("login_failed", "email", email, "reason", "not_confirmed")
		return nil, "", ErrAccountNotConfirmed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "email", email, "reason", "invalid_password")
		return nil, "", ErrInvalidCredentials
	}

	session, err := s.issuer.IssueSession(acc.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	slog.Info("login_success", "account_id", acc.ID, "email", email)
	return acc, session, nil
}

// RequestPasswordReset assigns a fresh reset token to a confirmed account
// and sends the reset email. An unknown email and an unconfirmed account
// both fail with ErrAccountNotFound so the response does not leak
// confirmation state.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	acc, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to get account: %w", err)
	}
	if !acc.Confirmed {
		return ErrAccountNotFound
	}

	resetToken, err := token.GenerateOpaque()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	if err := s.repo.SetAccountToken(ctx, acc.ID, resetToken); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, acc.Email, acc.Name, resetToken); err != nil {
		slog.Error("reset_email_failed", "account_id", acc.ID, "error", err)
	}

	slog.Info("password_reset_requested", "account_id", acc.ID)
	return nil
}

// ValidateResetToken reports whether a reset token is usable. Read-only;
// clients call it to decide whether to show the new-password form.
func (s *Service) ValidateResetToken(ctx context.Context, resetToken string) error {
	acc, err := s.repo.GetAccountByToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("failed to look up token: %w", err)
	}
	if !acc.Confirmed {
		return ErrInvalidToken
	}
	return nil
}

// CommitNewPassword consumes the reset token and stores the new password.
// The token is single-use: two racing commits on the same token cannot both
// succeed.
func (s *Service) CommitNewPassword(ctx context.Context, resetToken, newPassword string) error {
	validation := s.passwordValidator.Validate(newPassword)
	if !validation.Valid {
		return &PasswordValidationError{Errors: validation.Errors}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.repo.ConsumeResetToken(ctx, resetToken, string(passwordHash))
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("failed to commit new password: %w", err)
	}

	slog.Info("password_reset_committed")
	return nil
}

// GetProfile returns the account for an already-authenticated caller.
func (s *Service) GetProfile(ctx context.Context, accountID string) (*models.Account, error) {
	acc, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// UpdateProfileParams holds the parameters for a profile update. All four
// fields are rewritten from the input; partial updates are not supported.
type UpdateProfileParams struct {
	Name    string
	Email   string
	Phone   string
	Website string
}

// UpdateProfile overwrites the account's profile fields. Changing the email
// to one held by another account fails with ErrEmailTaken.
func (s *Service) UpdateProfile(ctx context.Context, accountID string, params UpdateProfileParams) (*models.Account, error) {
	acc, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if !acc.Confirmed {
		return nil, ErrAccountNotConfirmed
	}

	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, ErrInvalidEmail
	}

	if params.Email != acc.Email {
		_, err := s.repo.GetAccountByEmail(ctx, params.Email)
		if err == nil {
			return nil, ErrEmailTaken
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	acc.Name = params.Name
	acc.Email = params.Email
	acc.Phone = params.Phone
	acc.Website = params.Website

	if err := s.repo.SaveAccount(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	slog.Info("profile_updated", "account_id", acc.ID)
	return acc, nil
}

// ChangePassword replaces the password of an authenticated account after
// verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string) error {
	acc, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to get account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	validation := s.passwordValidator.Validate(newPassword, acc.Email, acc.Name)
	if !validation.Valid {
		return &PasswordValidationError{Errors: validation.Errors}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdateAccountPassword(ctx, acc.ID, string(passwordHash)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password_changed", "account_id", acc.ID)
	return nil
}
