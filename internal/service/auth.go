// Package service contains the business logic layer of the application.
//
// Handlers parse HTTP and write JSON; services validate, enforce rules,
// and orchestrate the collaborators; repositories talk to storage. Each
// service receives its dependencies through its constructor — interfaces
// where an implementation can vary (repository, kv store, mail sender),
// concrete types where it can't.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mehedi/linkloom/internal/apperror"
	"github.com/mehedi/linkloom/internal/auth"
	"github.com/mehedi/linkloom/internal/kv"
	"github.com/mehedi/linkloom/internal/mail"
	"github.com/mehedi/linkloom/internal/model"
	"github.com/mehedi/linkloom/internal/repository"
)

const (
	// forgetPasswordPrefix namespaces reset tokens in the key-value
	// store, away from session keys.
	forgetPasswordPrefix = "forget-password:"

	// resetTokenTTL is how long an emailed reset link stays redeemable.
	resetTokenTTL = 3 * 24 * time.Hour
)

// AuthService implements registration, login, and the password-reset
// token lifecycle. Session establishment is the handler's job — the
// service returns the authenticated user and never touches cookies.
type AuthService struct {
	users       repository.UserRepository
	passwords   *auth.PasswordService
	tokens      kv.Store
	mailer      mail.Sender
	frontendURL string
	logger      *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// frontendURL is the base URL embedded in password-reset links.
func NewAuthService(
	users repository.UserRepository,
	passwords *auth.PasswordService,
	tokens kv.Store,
	mailer mail.Sender,
	frontendURL string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		passwords:   passwords,
		tokens:      tokens,
		mailer:      mailer,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// validateRegister checks the registration input shape. Returns the first
// failing rule as a field-attributed validation error, nil when all pass.
func validateRegister(username, email, password string) *apperror.AppError {
	if len(username) <= 2 {
		return apperror.ValidationFailed("username", "length must be greater than 2")
	}
	if strings.Contains(username, "@") {
		return apperror.ValidationFailed("username", "cannot include an @ sign")
	}
	if len(password) <= 2 {
		return apperror.ValidationFailed("password", "length must be greater than 2")
	}
	if !strings.Contains(email, "@") {
		return apperror.ValidationFailed("email", "invalid email")
	}
	return nil
}

// Register validates the input, hashes the password, and persists the new
// user.
//
// The uniqueness of the username is checked twice: a friendly pre-check
// here, and the UNIQUE index inside the repository. The pre-check catches
// the common case with a clean error; the index decides races between two
// concurrent registrations, and the repository maps its violation to the
// same DuplicateError — so the caller can't tell which check fired.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	if verr := validateRegister(username, email, password); verr != nil {
		return nil, verr
	}

	// Pre-check for a taken username.
	if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
		return nil, apperror.Duplicate("username", "already taken")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking username %q: %w", username, err)
	}

	hashed, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username: username,
		Email:    email,
		Password: hashed,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// A duplicate here means we lost a race with a concurrent
		// registration — already mapped by the repository, pass it up.
		if errors.Is(err, apperror.ErrDuplicate) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: creating user %q: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login authenticates by username or email (an "@" in the input selects
// the email lookup) and verifies the password.
//
// ENUMERATION SAFETY: a failed lookup and the error message attached to
// it never reveal whether the account exists — "that user doesn't exist"
// is reported against the combined input field, and a wrong password gets
// its own distinct error only because at that point the caller already
// proved they know a valid username.
func (s *AuthService) Login(ctx context.Context, usernameOrEmail, password string) (*model.User, error) {
	var (
		user *model.User
		err  error
	)
	if strings.Contains(usernameOrEmail, "@") {
		user, err = s.users.GetUserByEmail(ctx, usernameOrEmail)
	} else {
		user, err = s.users.GetUserByUsername(ctx, usernameOrEmail)
	}
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("usernameOrEmail", "that user doesn't exist")
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", usernameOrEmail, err)
	}

	if err := s.passwords.Verify(user.Password, password); err != nil {
		if errors.Is(err, auth.ErrMismatch) {
			return nil, apperror.InvalidCredentials("password", "incorrect password")
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	return user, nil
}

// Me returns the user for the given id, as resolved from a session.
func (s *AuthService) Me(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", userID, err)
	}
	return user, nil
}

// ForgotPassword issues a reset token and emails a reset link.
//
// It reports success for unknown email addresses too — a different
// response (or error) would let anyone probe which emails have accounts.
// Mail delivery failures are logged at error level but are also not
// surfaced to the caller, for the same reason: the visible outcome must
// be identical in every case.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// No account — do nothing, report nothing.
			return nil
		}
		return fmt.Errorf("service/auth: looking up email: %w", err)
	}

	token := uuid.NewString()
	if err := s.tokens.Set(ctx, forgetPasswordPrefix+token,
		fmt.Sprintf("%d", user.ID), resetTokenTTL); err != nil {
		return fmt.Errorf("service/auth: storing reset token: %w", err)
	}

	link := fmt.Sprintf("%s/change-password/%s", s.frontendURL, token)
	body := fmt.Sprintf(`<a href=%q>reset password</a>`, link)
	if err := s.mailer.Send(ctx, user.Email, "Reset your password", body); err != nil {
		s.logger.Error("reset email delivery failed",
			slog.Int64("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// ChangePassword redeems a reset token: validates the new password, maps
// the token back to a user, replaces the hash, and burns the token.
//
// Token states collapse deliberately: expired, already redeemed, and
// never-issued all look like "token expired" to the caller.
//
// KNOWN RACE: the token is read and deleted in two steps, so two
// simultaneous redemptions of one still-valid token can both succeed.
// Closing it would need an atomic get-and-delete at the cache boundary
// (Redis GETDEL); acceptable since both redemptions prove token
// possession.
func (s *AuthService) ChangePassword(ctx context.Context, token, newPassword string) (*model.User, error) {
	if len(newPassword) <= 2 {
		return nil, apperror.ValidationFailed("newPassword", "length must be greater than 2")
	}

	key := forgetPasswordPrefix + token
	value, err := s.tokens.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, apperror.TokenExpired()
		}
		return nil, fmt.Errorf("service/auth: loading reset token: %w", err)
	}

	var userID int64
	if _, err := fmt.Sscanf(value, "%d", &userID); err != nil {
		return nil, fmt.Errorf("service/auth: corrupt reset token value %q: %w", value, err)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Account deleted after the token was issued.
			return nil, apperror.UserGone()
		}
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", userID, err)
	}

	hashed, err := s.passwords.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing new password: %w", err)
	}
	if err := s.users.UpdateUserPassword(ctx, user.ID, hashed); err != nil {
		return nil, fmt.Errorf("service/auth: updating password: %w", err)
	}
	user.Password = hashed

	// Burn the token so it can't be redeemed twice.
	if err := s.tokens.Del(ctx, key); err != nil {
		return nil, fmt.Errorf("service/auth: deleting reset token: %w", err)
	}

	s.logger.Info("password changed via reset token", slog.Int64("userID", user.ID))
	return user, nil
}
