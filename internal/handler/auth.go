package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/buddy-system/internal/apperror"
	"github.com/sakif/buddy-system/internal/auth"
	"github.com/sakif/buddy-system/internal/model"
)

// AuthService is what AuthHandler needs from the service layer.
type AuthService interface {
	Register(ctx context.Context, reg model.UserRegistration) (*model.User, error)
	Login(ctx context.Context, username, password string) (auth.AccessToken, error)
}

// AuthHandler manages registration and token issuing.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account from a JSON body
//   - HandleToken    → OAuth2 password grant: form-encoded username/password in,
//     bearer access token out
type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// HandleRegister creates a new user account.
//
// HTTP: POST /auth/registration
// REQUEST BODY: {"username":"juniper","email":"juniper@cool.email","password":"password"}
// RESPONSE: 201 Created with the user (never the password hash)
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var reg model.UserRegistration
	if err := decodeJSON(w, r, &reg); err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.auth.Register(r.Context(), reg)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// HandleToken exchanges a username and password for an access token.
//
// HTTP: POST /auth/token
// Content-Type: application/x-www-form-urlencoded
// BODY: grant_type=password&username=juniper&password=password
//
// This is the OAuth2 "resource owner password credentials" grant
// (RFC 6749 §4.3), so any OAuth2 client library can log in. grant_type may
// be omitted; if present it must be "password". Client credentials, if a
// client sends them, are ignored.
//
// RESPONSE: {"access_token":"eyJ...","token_type":"Bearer","expires_in":3600}
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		WriteError(w, r, apperror.ValidationFailed("body", "request body must be a valid form"))
		return
	}

	if gt := r.PostForm.Get("grant_type"); gt != "" && gt != "password" {
		WriteError(w, r, apperror.ValidationFailed("grant_type", `grant_type must be "password"`))
		return
	}

	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" {
		WriteError(w, r, apperror.ValidationFailed("username", "username is required"))
		return
	}
	if password == "" {
		WriteError(w, r, apperror.ValidationFailed("password", "password is required"))
		return
	}

	token, err := h.auth.Login(r.Context(), username, password)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	// RFC 6749 §5.1: token responses must not be cached
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, http.StatusOK, token)
}
