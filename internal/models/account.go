// Copyright 2026 Vetpraxis Contributors
// Licensed under the EUPL-1.2

package models

import "time"

// Account is a veterinary-clinic staff account.
//
// Token is dual-purpose: it holds the confirmation token before the first
// confirmation and the reset token while a password reset is pending. It is
// nil at all other times.
type Account struct { //nolint:govet // fieldalignment: readability over optimization
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Phone        string    `db:"phone" json:"phone"`
	Website      string    `db:"website" json:"website"`
	Confirmed    bool      `db:"confirmed" json:"confirmed"`
	Token        *string   `db:"token" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// HasPendingToken reports whether a confirmation or reset token is active.
func (a *Account) HasPendingToken() bool {
	return a.Token != nil && *a.Token != ""
}
