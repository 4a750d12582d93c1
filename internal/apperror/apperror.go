// Package apperror defines the domain error taxonomy shared by the repository,
// service and handler layers.
//
// Every error that must reach the client as something other than a 500 is an
// *AppError wrapping one of the sentinel errors below. Callers classify with
// errors.Is (which sentinel?) and extract details with errors.As (which entity,
// which field?). The HTTP layer is the only place that maps them to status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrDuplicate          = errors.New("duplicate value")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("expired token")
)

type AppError struct {
	Err     error  // sentinel
	Message string // Human-readable error message
	Entity  string // Optional: entity name, e.g. "Animal"
	ID      string // Optional: entity id for not-found errors
	Field   string // Optional: field causing the error
	Value   string // Optional: offending value for duplicate errors
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NotFound reports that no entity of the given kind has the given id.
func NotFound(entity, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", entity, id),
		Entity:  entity,
		ID:      id,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// DuplicateValue reports a uniqueness violation on entity.field.
func DuplicateValue(entity, field, value string) *AppError {
	return &AppError{
		Err:     ErrDuplicate,
		Message: fmt.Sprintf("%s with %s %q already exists", entity, field, value),
		Entity:  entity,
		Field:   field,
		Value:   value,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated means no credentials were presented at all.
func Unauthenticated() *AppError {
	return &AppError{Err: ErrUnauthenticated, Message: "Not authenticated"}
}

func InvalidCredentials() *AppError {
	return &AppError{Err: ErrInvalidCredentials, Message: "invalid username or password"}
}

func InvalidToken() *AppError {
	return &AppError{Err: ErrInvalidToken, Message: "invalid bearer token"}
}

func ExpiredToken() *AppError {
	return &AppError{Err: ErrExpiredToken, Message: "expired bearer token"}
}
