// Package service holds the business rules of the buddy system.
//
// Services sit between the HTTP handlers and the repositories:
//
//	Handler (HTTP) → Service (business rules) → Repository (DB)
//	               ↘ auth.TokenService / auth.PasswordService
//
// They never touch http.Request or http.ResponseWriter. Failures the client
// should see are returned as *apperror.AppError; everything else is wrapped
// with %w and becomes a 500 at the handler.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/sakif/buddy-system/internal/apperror"
	"github.com/sakif/buddy-system/internal/auth"
	"github.com/sakif/buddy-system/internal/model"
	"github.com/sakif/buddy-system/internal/repository"
)

// MaxUsernameLength bounds usernames. Password length is bounded by bcrypt.
const MaxUsernameLength = 64

// AuthService handles registration, login and bearer-token authentication.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository → read/write user records
//   - tokens     *auth.TokenService        → issue/validate JWTs
//   - passwords  *auth.PasswordService     → bcrypt hashing
//   - logger     *slog.Logger              → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// compile-time check: AuthService backs the RequireAuth middleware
var _ auth.Authenticator = (*AuthService)(nil)

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates a new account.
//
// Username and email must be unused. The password is hashed exactly once,
// here, and only the hash reaches the repository.
func (s *AuthService) Register(ctx context.Context, reg model.UserRegistration) (*model.User, error) {
	username := strings.TrimSpace(reg.Username)
	email := strings.TrimSpace(reg.Email)

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(reg.Password); err != nil {
		return nil, err
	}

	if err := checkUnique(ctx, s.users, repository.UserFieldUsername, username, ""); err != nil {
		return nil, err
	}
	if err := checkUnique(ctx, s.users, repository.UserFieldEmail, email, ""); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		// the repository maps a lost race on the unique index to DuplicateValue
		return nil, fmt.Errorf("service/auth: registering %q: %w", username, err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login checks a username/password pair and issues an access token.
//
// Unknown usernames and wrong passwords produce the same InvalidCredentials
// error, so the response never reveals which usernames exist.
func (s *AuthService) Login(ctx context.Context, username, password string) (auth.AccessToken, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return auth.AccessToken{}, apperror.InvalidCredentials()
		}
		return auth.AccessToken{}, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	if !s.passwords.Verify(user.PasswordHash, password) {
		s.logger.Info("login rejected", slog.String("userID", user.ID))
		return auth.AccessToken{}, apperror.InvalidCredentials()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return auth.AccessToken{}, fmt.Errorf("service/auth: issuing token for %s: %w", user.ID, err)
	}

	s.logger.Info("token issued", slog.String("userID", user.ID))
	return token, nil
}

// Authenticate resolves a bearer token to its user.
//
// A token whose subject no longer exists is answered with InvalidToken, the
// same as a forged one; the log line is what tells the two apart.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("valid token for unknown user", slog.String("userID", userID))
			return nil, apperror.InvalidToken()
		}
		return nil, fmt.Errorf("service/auth: loading token subject %s: %w", userID, err)
	}
	return user, nil
}

// =========================================================================
// VALIDATION HELPERS (shared with UserService)
// =========================================================================

func validateUsername(username string) error {
	if username == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return apperror.ValidationFailed("email", "email is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	if len(password) > 72 {
		return apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}
	return nil
}

// checkUnique returns DuplicateValue if a user other than excludeID already
// holds value in field.
func checkUnique(ctx context.Context, users repository.UserRepository, field, value, excludeID string) error {
	taken, err := users.ExistsByField(ctx, field, value, excludeID)
	if err != nil {
		return fmt.Errorf("service: checking %s: %w", field, err)
	}
	if taken {
		return apperror.DuplicateValue(repository.EntityUser, field, value)
	}
	return nil
}
