package model

import "time"

// User represents a registered user account.
//
// PasswordHash holds the bcrypt output ($2a$12$...), never the plaintext.
// The `json:"-"` tag keeps it out of every API response, no matter which
// handler serializes the struct.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRegistration is the body of POST /auth/registration.
type UserRegistration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserUpdate is a partial update of a user.
//
// Password arrives in plaintext from the client; the service hashes it into
// PasswordHash before merging, so the plaintext never reaches the repository.
type UserUpdate struct {
	Username     Optional[string] `json:"username"`
	Email        Optional[string] `json:"email"`
	Password     Optional[string] `json:"password"`
	PasswordHash Optional[string] `json:"-"`
}
