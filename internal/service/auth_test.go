package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sakif/buddy-system/internal/apperror"
	"github.com/sakif/buddy-system/internal/auth"
	"github.com/sakif/buddy-system/internal/model"
)

// newTestAuthService wires an AuthService to a fresh fake store.
// bcrypt cost 4 keeps the tests fast.
func newTestAuthService(t *testing.T) (*AuthService, *fakeStore) {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	store := newFakeStore()
	svc := NewAuthService(fakeUserRepo{store}, tokens, auth.NewPasswordServiceForTest(4), discardLogger())
	return svc, store
}

func juniper() model.UserRegistration {
	return model.UserRegistration{
		Username: "juniper",
		Email:    "juniper@cool.email",
		Password: "password",
	}
}

// =========================================================================
// REGISTER TESTS
// =========================================================================

func TestRegister_Success(t *testing.T) {
	svc, store := newTestAuthService(t)

	user, err := svc.Register(context.Background(), juniper())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.ID == "" {
		t.Error("Register() should assign an id")
	}
	if user.Username != "juniper" || user.Email != "juniper@cool.email" {
		t.Errorf("Register() = %+v", user)
	}
	if len(store.users) != 1 {
		t.Fatalf("stored users = %d, want 1", len(store.users))
	}
	if store.users[0].PasswordHash == "password" || !strings.HasPrefix(store.users[0].PasswordHash, "$2a$") {
		t.Errorf("stored password should be a bcrypt hash, got %q", store.users[0].PasswordHash)
	}
}

func TestRegister_TrimsWhitespace(t *testing.T) {
	svc, _ := newTestAuthService(t)

	reg := juniper()
	reg.Username = "  juniper  "
	reg.Email = " juniper@cool.email "
	user, err := svc.Register(context.Background(), reg)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Username != "juniper" || user.Email != "juniper@cool.email" {
		t.Errorf("Register() did not trim: %+v", user)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*model.UserRegistration)
		field string
	}{
		{"empty username", func(r *model.UserRegistration) { r.Username = " " }, "username"},
		{"long username", func(r *model.UserRegistration) { r.Username = strings.Repeat("j", MaxUsernameLength+1) }, "username"},
		{"empty email", func(r *model.UserRegistration) { r.Email = "" }, "email"},
		{"bad email", func(r *model.UserRegistration) { r.Email = "not-an-email" }, "email"},
		{"display name email", func(r *model.UserRegistration) { r.Email = "June <juniper@cool.email>" }, "email"},
		{"empty password", func(r *model.UserRegistration) { r.Password = "" }, "password"},
		{"long password", func(r *model.UserRegistration) { r.Password = strings.Repeat("p", 73) }, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestAuthService(t)
			reg := juniper()
			tt.edit(&reg)

			_, err := svc.Register(context.Background(), reg)
			assertValidation(t, err, tt.field)
			if len(store.users) != 0 {
				t.Error("invalid registration should not store a user")
			}
		})
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, juniper()); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	reg := juniper()
	reg.Email = "other@cool.email"
	_, err := svc.Register(ctx, reg)
	assertDuplicate(t, err, "username", "juniper")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, juniper()); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	reg := juniper()
	reg.Username = "juniper2"
	_, err := svc.Register(ctx, reg)
	assertDuplicate(t, err, "email", "juniper@cool.email")
}

func TestRegister_RepositoryFailure(t *testing.T) {
	svc, store := newTestAuthService(t)
	store.failWith = errors.New("disk on fire")

	_, err := svc.Register(context.Background(), juniper())
	if err == nil {
		t.Fatal("Register() should fail when the repository fails")
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		t.Errorf("infrastructure failure should not be an AppError, got %v", appErr)
	}
}

// =========================================================================
// LOGIN TESTS
// =========================================================================

func TestLogin_Success(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, juniper())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tok, err := svc.Login(ctx, "juniper", "password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if tok.TokenType != "Bearer" || tok.ExpiresIn != 3600 || tok.AccessToken == "" {
		t.Errorf("Login() token = %+v", tok)
	}

	got, err := svc.Authenticate(ctx, tok.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("Authenticate() user = %s, want %s", got.ID, user.ID)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, juniper()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := svc.Login(ctx, "juniper", "hunter2")
	if !errors.Is(err, apperror.ErrInvalidCredentials) {
		t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), "nobody", "password")
	if !errors.Is(err, apperror.ErrInvalidCredentials) {
		t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

// =========================================================================
// AUTHENTICATE TESTS
// =========================================================================

func TestAuthenticate_Garbage(t *testing.T) {
	svc, _ := newTestAuthService(t)

	_, err := svc.Authenticate(context.Background(), "not.a.jwt")
	if !errors.Is(err, apperror.ErrInvalidToken) {
		t.Errorf("Authenticate() error = %v, want ErrInvalidToken", err)
	}
}

func TestAuthenticate_Expired(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, juniper())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tok, err := svc.tokens.IssueWithDuration(user.ID, -time.Minute)
	if err != nil {
		t.Fatalf("IssueWithDuration() error = %v", err)
	}
	_, err = svc.Authenticate(ctx, tok.AccessToken)
	if !errors.Is(err, apperror.ErrExpiredToken) {
		t.Errorf("Authenticate() error = %v, want ErrExpiredToken", err)
	}
}

func TestAuthenticate_DeletedUser(t *testing.T) {
	svc, store := newTestAuthService(t)
	ctx := context.Background()
	user, err := svc.Register(ctx, juniper())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	tok, err := svc.Login(ctx, "juniper", "password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := (fakeUserRepo{store}).Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err = svc.Authenticate(ctx, tok.AccessToken)
	if !errors.Is(err, apperror.ErrInvalidToken) {
		t.Errorf("Authenticate() error = %v, want ErrInvalidToken", err)
	}
}

// =========================================================================
// ASSERTION HELPERS
// =========================================================================

func assertValidation(t *testing.T, err error, field string) {
	t.Helper()
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an AppError", err)
	}
	if appErr.Field != field {
		t.Errorf("validation field = %q, want %q", appErr.Field, field)
	}
}

func assertDuplicate(t *testing.T, err error, field, value string) {
	t.Helper()
	if !errors.Is(err, apperror.ErrDuplicate) {
		t.Fatalf("error = %v, want ErrDuplicate", err)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an AppError", err)
	}
	if appErr.Entity != "User" || appErr.Field != field || appErr.Value != value {
		t.Errorf("duplicate = %s.%s=%q, want User.%s=%q", appErr.Entity, appErr.Field, appErr.Value, field, value)
	}
}

func assertNotFound(t *testing.T, err error, entity, id string) {
	t.Helper()
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an AppError", err)
	}
	if appErr.Entity != entity || appErr.ID != id {
		t.Errorf("not found = %s/%s, want %s/%s", appErr.Entity, appErr.ID, entity, id)
	}
}
