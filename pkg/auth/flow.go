package auth

import (
	"fmt"
	"time"

	"github.com/avast/retry-go"

	"github.com/nexa-sys/userhub/pkg/errors"
	"github.com/nexa-sys/userhub/pkg/logger"
	"github.com/nexa-sys/userhub/pkg/users"
)

// MinPasswordLength is the minimum accepted length for new passwords
const MinPasswordLength = 8

// credentialsMessage is the single message surfaced for both unknown email
// and wrong password, to avoid user enumeration at the wire level.
const credentialsMessage = "invalid email or password"

// AuthenticationFlow orchestrates login, logout and password maintenance
// over the password hasher, bearer issuer, opaque token generator and the
// session store.
type AuthenticationFlow struct {
	repo   *users.Repository
	hasher *PasswordHasher
	issuer *BearerTokenIssuer
	opaque *OpaqueTokenGenerator
	log    logger.Logger
}

// NewAuthenticationFlow creates a new authentication flow
func NewAuthenticationFlow(repo *users.Repository, hasher *PasswordHasher, issuer *BearerTokenIssuer, opaque *OpaqueTokenGenerator, log logger.Logger) *AuthenticationFlow {
	return &AuthenticationFlow{
		repo:   repo,
		hasher: hasher,
		issuer: issuer,
		opaque: opaque,
		log:    log,
	}
}

// LoginResult carries the issued token and profile data back to the caller
type LoginResult struct {
	Token       string
	ExpiresAt   time.Time
	User        users.User
	Preferences *users.Preference
}

// Login verifies credentials, issues a bearer token, records a session row
// keyed by the token's digest and updates the last-login timestamp. Both
// writes complete before the result is returned.
func (f *AuthenticationFlow) Login(email, password string) (*LoginResult, error) {
	user, err := f.repo.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Internally distinct from a wrong password, identical on the wire
		return nil, errors.NewUnauthorizedError(credentialsMessage)
	}

	ok, err := f.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		f.log.Error("stored password hash could not be verified", err,
			map[string]interface{}{"operation": "login", "user_id": user.ID})
		return nil, errors.NewUnauthorizedError(credentialsMessage)
	}
	if !ok {
		return nil, errors.NewUnauthorizedError(credentialsMessage)
	}

	// Credentials are correct; a blocked or disabled account is a stronger,
	// distinct signal than bad credentials.
	if !user.CanLogin() {
		return nil, errors.NewForbiddenError("account is disabled")
	}

	if err := f.touchLastLogin(user); err != nil {
		return nil, err
	}

	token, err := f.issuer.Issue(user.ID, user.Email, user.Role, user.DisplayName)
	if err != nil {
		return nil, errors.NewInternalErrorWithCause("failed to issue token", err)
	}

	expiresAt := f.issuer.ExpiryFor(time.Now())
	session := &users.Session{
		UserID:    user.ID,
		TokenHash: f.opaque.Hash(token),
		ExpiresAt: expiresAt,
	}
	if _, err := f.repo.CreateSession(session); err != nil {
		return nil, err
	}

	prefs, err := f.repo.GetPreferences(user.ID)
	if err != nil {
		return nil, err
	}

	f.log.Info("user logged in", map[string]interface{}{
		"user_id":    user.ID,
		"session_id": session.SessionID,
	})

	return &LoginResult{
		Token:       token,
		ExpiresAt:   expiresAt,
		User:        user.Sanitized(),
		Preferences: prefs,
	}, nil
}

// touchLastLogin stamps the user's last login. A concurrent update to the
// same row surfaces as a conflict; the row is reloaded and the update
// retried once before giving up.
func (f *AuthenticationFlow) touchLastLogin(user *users.User) error {
	return retry.Do(
		func() error {
			now := time.Now()
			user.LastLoginAt = &now
			return f.repo.UpdateUserVersioned(user)
		},
		retry.Attempts(2),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if !errors.IsCode(err, errors.ErrCodeConflict) {
				return false
			}
			fresh, reloadErr := f.repo.GetUser(user.ID)
			if reloadErr != nil || fresh == nil {
				return false
			}
			*user = *fresh
			return true
		}),
	)
}

// Logout removes every session for the user (global logout) and clears the
// last-login timestamp. Logging out a user with zero sessions succeeds.
func (f *AuthenticationFlow) Logout(email string) error {
	user, err := f.repo.GetUserByEmail(email)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.NewNotFoundError("user")
	}

	if err := f.repo.DeleteUserSessions(user.ID); err != nil {
		return err
	}

	user.LastLoginAt = nil
	if err := f.repo.UpdateUserVersioned(user); err != nil {
		// A conflicting concurrent write does not undo the session delete
		if !errors.IsCode(err, errors.ErrCodeConflict) {
			return err
		}
	}

	f.log.Info("user logged out", map[string]interface{}{"user_id": user.ID})
	return nil
}

// ResetPassword replaces a user's password without verifying the old one
func (f *AuthenticationFlow) ResetPassword(email, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return errors.NewValidationError(
			fmt.Sprintf("password must be at least %d characters long", MinPasswordLength))
	}

	user, err := f.repo.GetUserByEmail(email)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.NewNotFoundError("user")
	}

	hash, err := f.hasher.Hash(newPassword)
	if err != nil {
		return errors.NewInternalErrorWithCause("failed to hash password", err)
	}

	user.PasswordHash = hash
	return f.repo.UpdateUserVersioned(user)
}

// ChangePassword replaces a user's password after verifying the current
// one. A new password equal to the old one is rejected rather than masked
// as a successful no-op.
func (f *AuthenticationFlow) ChangePassword(userID uint, currentPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return errors.NewValidationError(
			fmt.Sprintf("password must be at least %d characters long", MinPasswordLength))
	}

	user, err := f.repo.GetUser(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.NewNotFoundError("user")
	}

	ok, err := f.hasher.Verify(currentPassword, user.PasswordHash)
	if err != nil {
		f.log.Error("stored password hash could not be verified", err,
			map[string]interface{}{"operation": "change_password", "user_id": user.ID})
		return errors.NewValidationError("invalid current password")
	}
	if !ok {
		return errors.NewValidationError("invalid current password")
	}

	if newPassword == currentPassword {
		return errors.NewValidationError("new password must differ from the current password")
	}

	hash, err := f.hasher.Hash(newPassword)
	if err != nil {
		return errors.NewInternalErrorWithCause("failed to hash password", err)
	}

	user.PasswordHash = hash
	return f.repo.UpdateUserVersioned(user)
}
