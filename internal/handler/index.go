// Package handler contains the HTTP request handlers of the buddy system API.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, we use http.HandlerFunc, a function with the right signature
// that automatically satisfies the Handler interface. Chi's router accepts these directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path params, query, body)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers should NOT contain business logic. They are the "glue" between
// HTTP and the services, and every failure goes through WriteError.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const (
	apiTitle       = "buddy system API"
	apiDescription = "API for managing fosters and adoptions."
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexHandler serves the root description and the health check.
type IndexHandler struct {
	store   Pinger
	version string
	logger  *slog.Logger
}

func NewIndexHandler(store Pinger, version string, logger *slog.Logger) *IndexHandler {
	return &IndexHandler{store: store, version: version, logger: logger}
}

type indexResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// HandleIndex describes the API.
//
// HTTP: GET /
func (h *IndexHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, indexResponse{
		Title:       apiTitle,
		Description: apiDescription,
		Version:     h.version,
	})
}

// HandleHealth answers "ok" while the database answers pings.
//
// HTTP: GET /health → 200 "ok" or 503 "unavailable"
func (h *IndexHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unavailable"))
		return
	}
	_, _ = w.Write([]byte("ok"))
}
