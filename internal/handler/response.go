package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// Every error body has a single top-level "detail" key. Its value is either a
// plain string (for generic failures) or an object with a "type" field the
// frontend can switch on:
//
//	{"detail": "Not authenticated"}
//	{"detail": {"type": "entity_not_found", "entity_name": "Animal", "entity_id": "..."}}
//	{"detail": {"type": "duplicate_value", "entity_name": "User", "entity_field": "email", ...}}
//	{"detail": {"type": "validation_error", "field": "age", "message": "..."}}
//	{"detail": {"error": "invalid_client", "error_description": "..."}}
//
// Successful single-entity responses are wrapped too ({"animal": {...}}),
// and list responses carry a count:
//
//	{"meta": {"count": 2}, "animals": [...]}

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/buddy-system/internal/apperror"
)

// maxBodyBytes caps request bodies. Every payload in this API is a small object.
const maxBodyBytes = 1 << 20

// ErrorResponse is the envelope of every error body.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

type notFoundDetail struct {
	Type       string `json:"type"`
	EntityName string `json:"entity_name"`
	EntityID   string `json:"entity_id"`
}

type duplicateDetail struct {
	Type             string `json:"type"`
	EntityName       string `json:"entity_name"`
	EntityField      string `json:"entity_field"`
	EntityFieldValue string `json:"entity_field_value"`
}

type validationDetail struct {
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type forbiddenDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// oauthDetail follows the OAuth2 error response fields (RFC 6749 §5.2).
type oauthDetail struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Meta accompanies every list response.
type Meta struct {
	Count int `json:"count"`
}

func metaOf[T any](items []T) Meta {
	return Meta{Count: len(items)}
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// You MUST set headers and status code BEFORE writing the body.
// Once you call w.Write() (which Encode does internally), the headers are sent.
// Any header changes after that are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already sent, we can only log it
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// WriteError maps a domain error to the appropriate HTTP status code and body.
// It has the auth.ErrorWriter signature so RequireAuth failures look the same
// as handler failures.
//
// ERROR MAPPING:
//
//	ErrNotFound                            → 404 entity_not_found
//	ErrDuplicate                           → 422 duplicate_value
//	ErrValidation                          → 422 validation_error
//	ErrUnauthenticated                     → 401 "Not authenticated" + WWW-Authenticate
//	ErrInvalidCredentials / Invalid / Expired token → 401 invalid_client
//	ErrForbidden                           → 403 forbidden
//	anything else                          → 500, logged, details withheld
//
// errors.As walks the wrap chain, so a service may return
// fmt.Errorf("service/animal: ...: %w", apperror.NotFound(...)) and the
// client still gets the structured 404.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// NEVER expose internal error details to the client.
		// The raw message might contain SQL, file paths, or other sensitive info.
		slog.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("requestID", chimiddleware.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "Internal server error"})
		return
	}

	switch {
	case errors.Is(err, apperror.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: notFoundDetail{
			Type:       "entity_not_found",
			EntityName: appErr.Entity,
			EntityID:   appErr.ID,
		}})

	case errors.Is(err, apperror.ErrDuplicate):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: duplicateDetail{
			Type:             "duplicate_value",
			EntityName:       appErr.Entity,
			EntityField:      appErr.Field,
			EntityFieldValue: appErr.Value,
		}})

	case errors.Is(err, apperror.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: validationDetail{
			Type:    "validation_error",
			Field:   appErr.Field,
			Message: appErr.Message,
		}})

	case errors.Is(err, apperror.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Detail: appErr.Message})

	case errors.Is(err, apperror.ErrInvalidCredentials),
		errors.Is(err, apperror.ErrInvalidToken),
		errors.Is(err, apperror.ErrExpiredToken):
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Detail: oauthDetail{
			Error:            "invalid_client",
			ErrorDescription: appErr.Message,
		}})

	case errors.Is(err, apperror.ErrForbidden):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Detail: forbiddenDetail{
			Type:    "forbidden",
			Message: appErr.Message,
		}})

	default:
		slog.Error("unmapped application error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "Internal server error"})
	}
}

// decodeJSON reads a JSON request body into dst.
//
// Malformed JSON, a wrong field type and an oversized body are all client
// errors, so they come back as validation errors (422) rather than 500s.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &typeErr):
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return apperror.ValidationFailed(field,
				fmt.Sprintf("%s must be of type %s", field, typeErr.Type))
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("body", "request body is too large")
		default:
			return apperror.ValidationFailed("body", "request body must be valid JSON: "+err.Error())
		}
	}
	return nil
}

// NotFound answers requests no route matched.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: "Not Found"})
}

// MethodNotAllowed answers a known path requested with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Detail: "Method Not Allowed"})
}
