package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/buddy-system/internal/apperror"
	"github.com/sakif/buddy-system/internal/auth"
	"github.com/sakif/buddy-system/internal/model"
)

// UserService is what UserHandler needs from the service layer.
type UserService interface {
	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	Update(ctx context.Context, actorID, id string, upd model.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, actorID, id string) error
	Fosters(ctx context.Context, userID string) ([]model.FosterView, error)
	Pets(ctx context.Context, userID string) ([]model.PetView, error)
}

// UserHandler serves /users.
//
// Reads are public. PUT and DELETE run behind RequireAuth and the service
// only lets a user change their own account.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type userResponse struct {
	User *model.User `json:"user"`
}

type userListResponse struct {
	Meta  Meta         `json:"meta"`
	Users []model.User `json:"users"`
}

type userFostersResponse struct {
	Meta    Meta               `json:"meta"`
	Fosters []model.FosterView `json:"fosters"`
}

type userPetsResponse struct {
	Meta Meta            `json:"meta"`
	Pets []model.PetView `json:"pets"`
}

// HandleList returns every user.
//
// HTTP: GET /users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userListResponse{Meta: metaOf(users), Users: users})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /users/me
// Auth: Required (RequireAuth has already loaded the user into the context)
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		// only reachable if the route was registered without RequireAuth
		WriteError(w, r, apperror.Unauthenticated())
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// HandleGet returns one user.
//
// HTTP: GET /users/{id}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// HandleUpdate changes the caller's username, email or password.
//
// HTTP: PUT /users/{id}
// Auth: Required, {id} must be the caller
// REQUEST BODY: any subset of {"username":"...","email":"...","password":"..."}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		WriteError(w, r, apperror.Unauthenticated())
		return
	}

	var upd model.UserUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.users.Update(r.Context(), actor.ID, chi.URLParam(r, "id"), upd)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// HandleDelete removes the caller's account.
//
// HTTP: DELETE /users/{id} → 204 No Content
// Auth: Required, {id} must be the caller
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		WriteError(w, r, apperror.Unauthenticated())
		return
	}

	if err := h.users.Delete(r.Context(), actor.ID, chi.URLParam(r, "id")); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFosters lists the animals a user fosters.
//
// HTTP: GET /users/{id}/fosters
func (h *UserHandler) HandleFosters(w http.ResponseWriter, r *http.Request) {
	fosters, err := h.users.Fosters(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userFostersResponse{Meta: metaOf(fosters), Fosters: fosters})
}

// HandlePets lists the animals a user adopted.
//
// HTTP: GET /users/{id}/pets
func (h *UserHandler) HandlePets(w http.ResponseWriter, r *http.Request) {
	pets, err := h.users.Pets(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userPetsResponse{Meta: metaOf(pets), Pets: pets})
}
