// Copyright 2026 Vetpraxis Contributors
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"codeberg.org/vetpraxis/vetpraxis/internal/database"
	"codeberg.org/vetpraxis/vetpraxis/internal/models"
	"codeberg.org/vetpraxis/vetpraxis/internal/repository"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestAccount creates an account in the database. The plaintext password
// is bcrypt-hashed; the account starts unconfirmed with a pending token.
func NewTestAccount(t *testing.T, repo *repository.Repository, email, password string) *models.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	token := uuid.NewString()
	acc := &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         "Test Vet",
		Token:        &token,
	}
	require.NoError(t, repo.CreateAccount(context.Background(), acc))
	return acc
}

// NewConfirmedAccount creates a confirmed account with no pending token.
func NewConfirmedAccount(t *testing.T, repo *repository.Repository, email, password string) *models.Account {
	t.Helper()
	acc := NewTestAccount(t, repo, email, password)
	acc.Confirmed = true
	acc.Token = nil
	require.NoError(t, repo.SaveAccount(context.Background(), acc))
	return acc
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
