// Package auth provides password hashing, bearer token issuing and validation,
// and the request-authentication middleware for the buddy system API.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client registers via POST /auth/registration (password hashed with bcrypt)
//  2. Client posts username+password as an OAuth2 password grant to /auth/token
//  3. Server verifies the password and issues a signed JWT access token
//  4. Client sends "Authorization: Bearer <token>" on protected routes
//  5. RequireAuth validates the token, loads the user and puts it in the context
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":"<user id>","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
//
// The signature can be checked without any DB lookup, just the secret.
// Whether the subject still exists is a separate question the service answers.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/buddy-system/internal/apperror"
)

// AccessTokenDuration is how long an issued access token stays valid.
const AccessTokenDuration = time.Hour

const (
	tokenType = "Bearer"
	issuer    = "buddy-system"
)

// AccessToken is the OAuth2 token response body returned by POST /auth/token.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret used for both signing and verifying. It has no
// mutable state, so one instance is shared by all request goroutines.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// Example: JWT_KEY=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT key must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. "sub" carries the user id.
type claims struct {
	jwt.RegisteredClaims
}

// Issue signs a new access token for userID, valid for AccessTokenDuration.
func (s *TokenService) Issue(userID string) (AccessToken, error) {
	return s.IssueWithDuration(userID, AccessTokenDuration)
}

// IssueWithDuration signs a token with a custom lifetime.
// A negative duration yields an already-expired token, which tests rely on.
func (s *TokenService) IssueWithDuration(userID string, d time.Duration) (AccessToken, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return AccessToken{}, fmt.Errorf("auth: signing token: %w", err)
	}

	return AccessToken{
		AccessToken: signed,
		TokenType:   tokenType,
		ExpiresIn:   int(d / time.Second),
	}, nil
}

// Validate parses and verifies a JWT string and returns its subject.
//
// Failures are reported as:
//   - apperror.ErrExpiredToken: signature is good but "exp" is in the past
//   - apperror.ErrInvalidToken: anything else (bad signature, wrong algorithm,
//     foreign issuer, garbage input, missing subject)
//
// ALGORITHM CONFUSION ATTACK:
// Without pinning the algorithm, an attacker could send a token signed with
// "none" and the library might accept it. jwt.WithValidMethods prevents this.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		// jwt/v5 verifies the signature before the claims, so an expiry error
		// here means the token itself was genuine.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: %w", apperror.ExpiredToken())
		}
		return "", fmt.Errorf("auth: %w (%v)", apperror.InvalidToken(), err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid || c.Subject == "" {
		return "", fmt.Errorf("auth: %w (no subject)", apperror.InvalidToken())
	}

	return c.Subject, nil
}
