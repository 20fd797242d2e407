// Copyright 2026 Vetpraxis Contributors
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/vetpraxis/vetpraxis/internal/models"
)

// GetAccountByEmail retrieves an account by its email address.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var acc models.Account
	err := r.db.GetContext(ctx, &acc, `SELECT * FROM accounts WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &acc, nil
}

// GetAccountByID retrieves an account by its ID.
func (r *Repository) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	var acc models.Account
	err := r.db.GetContext(ctx, &acc, `SELECT * FROM accounts WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &acc, nil
}

// GetAccountByToken retrieves an account by its pending confirmation or
// reset token.
func (r *Repository) GetAccountByToken(ctx context.Context, token string) (*models.Account, error) {
	var acc models.Account
	err := r.db.GetContext(ctx, &acc, `SELECT * FROM accounts WHERE token = ?`, token)
	if err != nil {
		return nil, wrapError(err)
	}
	return &acc, nil
}

// CreateAccount inserts a new account.
func (r *Repository) CreateAccount(ctx context.Context, acc *models.Account) error {
	now := time.Now().UTC()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, name, phone, website, confirmed, token, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		acc.ID, acc.Email, acc.PasswordHash, acc.Name, acc.Phone, acc.Website,
		acc.Confirmed, acc.Token, acc.CreatedAt, acc.UpdatedAt)
	return err
}

// SaveAccount persists all mutable fields of a previously fetched account.
func (r *Repository) SaveAccount(ctx context.Context, acc *models.Account) error {
	acc.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts
		 SET email = ?, password_hash = ?, name = ?, phone = ?, website = ?, confirmed = ?, token = ?, updated_at = ?
		 WHERE id = ?`,
		acc.Email, acc.PasswordHash, acc.Name, acc.Phone, acc.Website,
		acc.Confirmed, acc.Token, acc.UpdatedAt, acc.ID)
	return err
}

// ConfirmAccountByToken atomically marks the account holding the given
// pending confirmation token as confirmed and clears the token. Returns
// ErrNotFound if no unconfirmed account holds the token, so a replayed
// token is indistinguishable from an unknown one.
func (r *Repository) ConfirmAccountByToken(ctx context.Context, token string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET token = NULL, confirmed = 1, updated_at = ? WHERE token = ? AND confirmed = 0`,
		time.Now().UTC(), token)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeResetToken atomically clears the given reset token and stores the
// new password hash. The conditional WHERE makes the token single-use: a
// second commit racing on the same token affects zero rows and gets
// ErrNotFound.
func (r *Repository) ConsumeResetToken(ctx context.Context, token, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET token = NULL, password_hash = ?, updated_at = ? WHERE token = ? AND confirmed = 1`,
		passwordHash, time.Now().UTC(), token)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAccountPassword replaces an account's password hash.
func (r *Repository) UpdateAccountPassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	return err
}

// SetAccountToken assigns a fresh pending token to an account.
func (r *Repository) SetAccountToken(ctx context.Context, id, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET token = ?, updated_at = ? WHERE id = ?`,
		token, time.Now().UTC(), id)
	return err
}

// CountAccounts returns the total number of accounts.
func (r *Repository) CountAccounts(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM accounts`); err != nil {
		return 0, err
	}
	return count, nil
}
