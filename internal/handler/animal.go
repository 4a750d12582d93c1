package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/buddy-system/internal/apperror"
	"github.com/sakif/buddy-system/internal/auth"
	"github.com/sakif/buddy-system/internal/model"
	"github.com/sakif/buddy-system/internal/repository"
)

// AnimalService is what AnimalHandler needs from the service layer.
// service.AnimalService satisfies it; tests pass a hand-written fake.
type AnimalService interface {
	List(ctx context.Context, q repository.AnimalQuery) ([]model.Animal, error)
	Create(ctx context.Context, in model.AnimalCreate) (*model.Animal, error)
	Get(ctx context.Context, id string) (*model.Animal, error)
	Update(ctx context.Context, id string, upd model.AnimalUpdate) (*model.Animal, error)
	Delete(ctx context.Context, id string) error
	ListFosters(ctx context.Context, animalID string) ([]model.Foster, error)
	AddFoster(ctx context.Context, animalID, userID string, in model.FosterCreate) (*model.Foster, error)
}

// AnimalHandler serves /animals and its foster sub-resource.
type AnimalHandler struct {
	animals AnimalService
	logger  *slog.Logger
}

// NewAnimalHandler creates a new AnimalHandler.
func NewAnimalHandler(animals AnimalService, logger *slog.Logger) *AnimalHandler {
	return &AnimalHandler{animals: animals, logger: logger}
}

type animalResponse struct {
	Animal *model.Animal `json:"animal"`
}

type animalListResponse struct {
	Meta    Meta           `json:"meta"`
	Animals []model.Animal `json:"animals"`
}

type fosterListResponse struct {
	Meta    Meta           `json:"meta"`
	Fosters []model.Foster `json:"fosters"`
}

// HandleList returns the animals, sorted and optionally filtered by intake date.
//
// HTTP: GET /animals?sort=age&intake_after=2023-01-01&intake_before=2023-12-31
//
// sort is one of name (default), age, intake_date. Both date bounds are
// inclusive. Anything unparseable is a 422.
func (h *AnimalHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q, err := parseAnimalQuery(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	animals, err := h.animals.List(r.Context(), q)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, animalListResponse{Meta: metaOf(animals), Animals: animals})
}

// HandleCreate adds an animal to the shelter.
//
// HTTP: POST /animals
// REQUEST BODY: {"name":"Mochi","age":2,"kind":"cat","fixed":true,"vaccinated":true,"intake_date":"2023-12-10"}
func (h *AnimalHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in model.AnimalCreate
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	animal, err := h.animals.Create(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, animalResponse{Animal: animal})
}

// HandleGet returns one animal.
//
// HTTP: GET /animals/{id}
func (h *AnimalHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	animal, err := h.animals.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, animalResponse{Animal: animal})
}

// HandleUpdate applies a partial update. Omitted fields are left alone;
// "adopter_id": null returns the animal to the shelter.
//
// HTTP: PUT /animals/{id}
func (h *AnimalHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var upd model.AnimalUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		WriteError(w, r, err)
		return
	}

	animal, err := h.animals.Update(r.Context(), chi.URLParam(r, "id"), upd)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, animalResponse{Animal: animal})
}

// HandleDelete removes an animal.
//
// HTTP: DELETE /animals/{id} → 204 No Content
func (h *AnimalHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.animals.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListFosters returns the foster links of one animal.
//
// HTTP: GET /animals/{id}/fosters
func (h *AnimalHandler) HandleListFosters(w http.ResponseWriter, r *http.Request) {
	fosters, err := h.animals.ListFosters(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fosterListResponse{Meta: metaOf(fosters), Fosters: fosters})
}

// HandleAddFoster records the authenticated user as a foster of the animal.
//
// HTTP: POST /animals/{id}/fosters
// Auth: Required
// REQUEST BODY: {"start_date":"2024-01-15","end_date":"2024-02-10"}
func (h *AnimalHandler) HandleAddFoster(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		WriteError(w, r, apperror.Unauthenticated())
		return
	}

	var in model.FosterCreate
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	foster, err := h.animals.AddFoster(r.Context(), chi.URLParam(r, "id"), user.ID, in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, foster)
}

func parseAnimalQuery(r *http.Request) (repository.AnimalQuery, error) {
	values := r.URL.Query()

	sort, err := repository.ParseAnimalSort(values.Get("sort"))
	if err != nil {
		return repository.AnimalQuery{}, apperror.ValidationFailed("sort", err.Error())
	}
	q := repository.AnimalQuery{Sort: sort}

	if q.IntakeAfter, err = parseDateParam(values.Get("intake_after"), "intake_after"); err != nil {
		return repository.AnimalQuery{}, err
	}
	if q.IntakeBefore, err = parseDateParam(values.Get("intake_before"), "intake_before"); err != nil {
		return repository.AnimalQuery{}, err
	}
	return q, nil
}

// parseDateParam returns nil for an absent parameter.
func parseDateParam(raw, name string) (*model.Date, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return nil, apperror.ValidationFailed(name, err.Error())
	}
	return &d, nil
}
