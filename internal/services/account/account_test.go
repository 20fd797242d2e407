// Copyright 2026 Vetpraxis Contributors
// Licensed under the EUPL-1.2

package account_test

import (
	"context"
	"errors"
	"testing"

	"codeberg.org/vetpraxis/vetpraxis/internal/config"
	"codeberg.org/vetpraxis/vetpraxis/internal/repository"
	"codeberg.org/vetpraxis/vetpraxis/internal/services/account"
	"codeberg.org/vetpraxis/vetpraxis/internal/services/token"
	"codeberg.org/vetpraxis/vetpraxis/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	Email string
	Name  string
	Token string
}

// fakeNotifier records outgoing mail instead of talking to an SMTP server.
type fakeNotifier struct {
	confirmations []sentMail
	resets        []sentMail
	fail          bool
}

func (f *fakeNotifier) SendConfirmation(_ context.Context, email, name, token string) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.confirmations = append(f.confirmations, sentMail{email, name, token})
	return nil
}

func (f *fakeNotifier) SendPasswordReset(_ context.Context, email, name, token string) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.resets = append(f.resets, sentMail{email, name, token})
	return nil
}

func newTestService(t *testing.T) (*account.Service, *repository.Repository, *fakeNotifier, *token.Issuer) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	notifier := &fakeNotifier{}
	issuer, err := token.NewIssuer(&config.AuthConfig{JWTSecret: "test-secret", SessionHours: 1})
	require.NoError(t, err)
	return account.NewService(repo, notifier, issuer), repo, notifier, issuer
}

func register(t *testing.T, svc *account.Service, email, name, password string) string {
	t.Helper()
	acc, err := svc.Register(context.Background(), account.RegisterParams{
		Email:    email,
		Name:     name,
		Password: password,
	})
	require.NoError(t, err)
	return acc.ID
}

func TestRegister(t *testing.T) {
	svc, repo, notifier, _ := newTestService(t)
	ctx := context.Background()

	acc, err := svc.Register(ctx, account.RegisterParams{
		Email:    "ann@clinic.example.com",
		Name:     "Ann",
		Password: "correct-horse",
		Phone:    "555-0100",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, acc.ID)
	assert.False(t, acc.Confirmed)
	require.NotNil(t, acc.Token)
	assert.NotEmpty(t, *acc.Token)
	assert.NotEqual(t, "correct-horse", acc.PasswordHash)

	// Confirmation email carries the pending token
	require.Len(t, notifier.confirmations, 1)
	assert.Equal(t, "ann@clinic.example.com", notifier.confirmations[0].Email)
	assert.Equal(t, *acc.Token, notifier.confirmations[0].Token)

	stored, err := repo.GetAccountByEmail(ctx, "ann@clinic.example.com")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, stored.ID)
}

func TestRegister_Duplicate(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")

	_, err := svc.Register(ctx, account.RegisterParams{
		Email:    "ann@clinic.example.com",
		Name:     "Other Ann",
		Password: "battery-staple",
	})
	assert.ErrorIs(t, err, account.ErrDuplicateAccount)

	count, err := repo.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRegister_InvalidEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), account.RegisterParams{
		Email:    "not-an-email",
		Name:     "Ann",
		Password: "correct-horse",
	})
	assert.ErrorIs(t, err, account.ErrInvalidEmail)
}

func TestRegister_WeakPassword(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), account.RegisterParams{
		Email:    "ann@clinic.example.com",
		Name:     "Ann",
		Password: "short",
	})

	var verr *account.PasswordValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Messages())
}

func TestRegister_MailFailureDoesNotRollBack(t *testing.T) {
	svc, repo, notifier, _ := newTestService(t)
	notifier.fail = true

	register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")

	// Account exists even though the confirmation mail never went out
	_, err := repo.GetAccountByEmail(context.Background(), "ann@clinic.example.com")
	assert.NoError(t, err)
}

func TestConfirm(t *testing.T) {
	svc, repo, notifier, _ := newTestService(t)
	ctx := context.Background()

	id := register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")
	confirmToken := notifier.confirmations[0].Token

	require.NoError(t, svc.Confirm(ctx, confirmToken))

	acc, err := repo.GetAccountByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, acc.Confirmed)
	assert.Nil(t, acc.Token)

	// Replay fails just like an unknown token
	assert.ErrorIs(t, svc.Confirm(ctx, confirmToken), account.ErrInvalidToken)
	assert.ErrorIs(t, svc.Confirm(ctx, "unknown"), account.ErrInvalidToken)
}

func TestAuthenticate(t *testing.T) {
	svc, _, notifier, issuer := newTestService(t)
	ctx := context.Background()

	id := register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")
	require.NoError(t, svc.Confirm(ctx, notifier.confirmations[0].Token))

	acc, session, err := svc.Authenticate(ctx, "ann@clinic.example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, id, acc.ID)

	// The session token resolves back to the same account id
	boundID, err := issuer.VerifySession(session)
	require.NoError(t, err)
	assert.Equal(t, id, boundID)
}

func TestAuthenticate_Failures(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")

	_, _, err := svc.Authenticate(ctx, "nobody@clinic.example.com", "correct-horse")
	assert.ErrorIs(t, err, account.ErrAccountNotFound)

	_, _, err = svc.Authenticate(ctx, "ann@clinic.example.com", "correct-horse")
	assert.ErrorIs(t, err, account.ErrAccountNotConfirmed)

	require.NoError(t, svc.Confirm(ctx, notifier.confirmations[0].Token))

	_, _, err = svc.Authenticate(ctx, "ann@clinic.example.com", "wrong-password")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
}

func TestRequestPasswordReset(t *testing.T) {
	svc, repo, notifier, _ := newTestService(t)
	ctx := context.Background()

	id := register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")
	confirmToken := notifier.confirmations[0].Token
	require.NoError(t, svc.Confirm(ctx, confirmToken))

	require.NoError(t, svc.RequestPasswordReset(ctx, "ann@clinic.example.com"))

	acc, err := repo.GetAccountByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, acc.Token)
	assert.NotEqual(t, confirmToken, *acc.Token)

	require.Len(t, notifier.resets, 1)
	assert.Equal(t, *acc.Token, notifier.resets[0].Token)
}

func TestRequestPasswordReset_UnknownOrUnconfirmed(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	// Unknown email and unconfirmed account yield the same error
	err := svc.RequestPasswordReset(ctx, "nobody@clinic.example.com")
	assert.ErrorIs(t, err, account.ErrAccountNotFound)

	register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")
	err = svc.RequestPasswordReset(ctx, "ann@clinic.example.com")
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestValidateResetToken(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	ctx := context.Background()

	register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")
	require.NoError(t, svc.Confirm(ctx, notifier.confirmations[0].Token))
	require.NoError(t, svc.RequestPasswordReset(ctx, "ann@clinic.example.com"))

	assert.NoError(t, svc.ValidateResetToken(ctx, notifier.resets[0].Token))
	assert.ErrorIs(t, svc.ValidateResetToken(ctx, "unknown"), account.ErrInvalidToken)
}

func TestValidateResetToken_PendingConfirmation(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)

	// A confirmation token on an unconfirmed account is not a reset token
	register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")
	err := svc.ValidateResetToken(context.Background(), notifier.confirmations[0].Token)
	assert.ErrorIs(t, err, account.ErrInvalidToken)
}

func TestCommitNewPassword(t *testing.T) {
	svc, repo, notifier, _ := newTestService(t)
	ctx := context.Background()

	id := register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")
	require.NoError(t, svc.Confirm(ctx, notifier.confirmations[0].Token))
	require.NoError(t, svc.RequestPasswordReset(ctx, "ann@clinic.example.com"))
	resetToken := notifier.resets[0].Token

	require.NoError(t, svc.CommitNewPassword(ctx, resetToken, "battery-staple"))

	acc, err := repo.GetAccountByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, acc.Token)

	// Old password no longer works, new one does
	_, _, err = svc.Authenticate(ctx, "ann@clinic.example.com", "correct-horse")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
	_, _, err = svc.Authenticate(ctx, "ann@clinic.example.com", "battery-staple")
	assert.NoError(t, err)

	// Token was consumed, a second commit fails
	err = svc.CommitNewPassword(ctx, resetToken, "third-password")
	assert.ErrorIs(t, err, account.ErrInvalidToken)
}

func TestCommitNewPassword_InvalidToken(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	err := svc.CommitNewPassword(context.Background(), "unknown", "battery-staple")
	assert.ErrorIs(t, err, account.ErrInvalidToken)
}

func TestGetProfile(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	id := register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")

	acc, err := svc.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ann@clinic.example.com", acc.Email)

	_, err = svc.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestUpdateProfile(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	ctx := context.Background()

	id := register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")
	require.NoError(t, svc.Confirm(ctx, notifier.confirmations[0].Token))

	acc, err := svc.UpdateProfile(ctx, id, account.UpdateProfileParams{
		Name:    "Dr. Ann",
		Email:   "dr.ann@clinic.example.com",
		Phone:   "555-0100",
		Website: "https://ann.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Ann", acc.Name)
	assert.Equal(t, "dr.ann@clinic.example.com", acc.Email)
	assert.Equal(t, "555-0100", acc.Phone)
	assert.Equal(t, "https://ann.example.com", acc.Website)

	// All four fields are rewritten; omitted ones become empty
	acc, err = svc.UpdateProfile(ctx, id, account.UpdateProfileParams{
		Name:  "Dr. Ann",
		Email: "dr.ann@clinic.example.com",
	})
	require.NoError(t, err)
	assert.Empty(t, acc.Phone)
	assert.Empty(t, acc.Website)
}

func TestUpdateProfile_EmailTaken(t *testing.T) {
	svc, repo, notifier, _ := newTestService(t)
	ctx := context.Background()

	annID := register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")
	require.NoError(t, svc.Confirm(ctx, notifier.confirmations[0].Token))
	bobID := register(t, svc, "bob@clinic.example.com", "Bob", "hunter-twelve")

	_, err := svc.UpdateProfile(ctx, annID, account.UpdateProfileParams{
		Name:  "Ann",
		Email: "bob@clinic.example.com",
	})
	assert.ErrorIs(t, err, account.ErrEmailTaken)

	// Both accounts keep their emails
	ann, err := repo.GetAccountByID(ctx, annID)
	require.NoError(t, err)
	assert.Equal(t, "ann@clinic.example.com", ann.Email)
	bob, err := repo.GetAccountByID(ctx, bobID)
	require.NoError(t, err)
	assert.Equal(t, "bob@clinic.example.com", bob.Email)
}

func TestUpdateProfile_NotConfirmed(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	id := register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")

	_, err := svc.UpdateProfile(ctx, id, account.UpdateProfileParams{
		Name:  "Ann",
		Email: "ann@clinic.example.com",
	})
	assert.ErrorIs(t, err, account.ErrAccountNotConfirmed)
}

func TestChangePassword(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	ctx := context.Background()

	id := register(t, svc, "ann@clinic.example.com", "Ann", "correct-horse")
	require.NoError(t, svc.Confirm(ctx, notifier.confirmations[0].Token))

	err := svc.ChangePassword(ctx, id, "wrong-password", "battery-staple")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)

	require.NoError(t, svc.ChangePassword(ctx, id, "correct-horse", "battery-staple"))

	_, _, err = svc.Authenticate(ctx, "ann@clinic.example.com", "battery-staple")
	assert.NoError(t, err)
}

func TestAccountLifecycle(t *testing.T) {
	svc, repo, notifier, _ := newTestService(t)
	ctx := context.Background()

	// register → one unconfirmed account with a pending token
	acc, err := svc.Register(ctx, account.RegisterParams{
		Email:    "a@x.com",
		Name:     "Ann",
		Password: "first-password",
	})
	require.NoError(t, err)
	require.NotNil(t, acc.Token)
	assert.False(t, acc.Confirmed)

	// confirm → confirmed, token cleared
	require.NoError(t, svc.Confirm(ctx, *acc.Token))
	stored, err := repo.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.Confirmed)
	assert.Nil(t, stored.Token)

	// login with the original password
	_, session, err := svc.Authenticate(ctx, "a@x.com", "first-password")
	require.NoError(t, err)
	assert.NotEmpty(t, session)

	// reset flow replaces the password
	require.NoError(t, svc.RequestPasswordReset(ctx, "a@x.com"))
	resetToken := notifier.resets[0].Token
	require.NoError(t, svc.CommitNewPassword(ctx, resetToken, "second-password"))

	_, _, err = svc.Authenticate(ctx, "a@x.com", "first-password")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
	_, _, err = svc.Authenticate(ctx, "a@x.com", "second-password")
	assert.NoError(t, err)
}
