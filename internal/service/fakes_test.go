package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/sakif/buddy-system/internal/apperror"
	"github.com/sakif/buddy-system/internal/model"
	"github.com/sakif/buddy-system/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// The fakes below are in-memory implementations of the repository
// interfaces. Plain structs (not a mock framework) keep the tests readable:
// you can see exactly what each fake does. They share one store so cascades
// behave like the real backends.

type fakeStore struct {
	users   []model.User
	animals []model.Animal
	fosters []model.Foster
	nextID  int

	// set to a non-nil error to simulate a database failure
	failWith error
}

func newFakeStore() *fakeStore { return &fakeStore{} }

func (s *fakeStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%03d", prefix, s.nextID)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- users ---------------------------------------------------------------

type fakeUserRepo struct{ *fakeStore }

var _ repository.UserRepository = fakeUserRepo{}

func (f fakeUserRepo) List(context.Context) ([]model.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return slices.Clone(f.users), nil
}

func (f fakeUserRepo) Create(_ context.Context, u *model.User) error {
	if f.failWith != nil {
		return f.failWith
	}
	u.ID = f.id("user")
	u.CreatedAt = time.Now()
	f.users = append(f.users, *u)
	return nil
}

func (f fakeUserRepo) find(pred func(model.User) bool) int {
	return slices.IndexFunc(f.users, pred)
}

func (f fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	i := f.find(func(u model.User) bool { return u.ID == id })
	if i < 0 {
		return nil, apperror.NotFound(repository.EntityUser, id)
	}
	u := f.users[i]
	return &u, nil
}

func (f fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	i := f.find(func(u model.User) bool { return u.Username == username })
	if i < 0 {
		return nil, apperror.NotFound(repository.EntityUser, username)
	}
	u := f.users[i]
	return &u, nil
}

func (f fakeUserRepo) ExistsByField(_ context.Context, field, value, excludeID string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	i := f.find(func(u model.User) bool {
		if u.ID == excludeID {
			return false
		}
		if field == repository.UserFieldEmail {
			return u.Email == value
		}
		return u.Username == value
	})
	return i >= 0, nil
}

func (f fakeUserRepo) Update(_ context.Context, id string, mutate repository.Mutator[model.User]) (*model.User, error) {
	i := f.find(func(u model.User) bool { return u.ID == id })
	if i < 0 {
		return nil, apperror.NotFound(repository.EntityUser, id)
	}
	u := f.users[i]
	if err := mutate(&u); err != nil {
		return nil, err
	}
	f.users[i] = u
	return &u, nil
}

func (f fakeUserRepo) Delete(_ context.Context, id string) error {
	i := f.find(func(u model.User) bool { return u.ID == id })
	if i < 0 {
		return apperror.NotFound(repository.EntityUser, id)
	}
	f.users = slices.Delete(f.users, i, i+1)
	f.fosters = slices.DeleteFunc(f.fosters, func(fo model.Foster) bool { return fo.UserID == id })
	for j := range f.animals {
		if a := &f.animals[j]; a.AdopterID != nil && *a.AdopterID == id {
			a.AdopterID, a.AdoptionDate = nil, nil
		}
	}
	return nil
}

// --- animals -------------------------------------------------------------

type fakeAnimalRepo struct{ *fakeStore }

var _ repository.AnimalRepository = fakeAnimalRepo{}

func (f fakeAnimalRepo) index(id string) int {
	return slices.IndexFunc(f.animals, func(a model.Animal) bool { return a.ID == id })
}

func (f fakeAnimalRepo) List(_ context.Context, q repository.AnimalQuery) ([]model.Animal, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return q.Apply(f.animals), nil
}

func (f fakeAnimalRepo) Create(_ context.Context, a *model.Animal) error {
	if f.failWith != nil {
		return f.failWith
	}
	a.ID = f.id("animal")
	f.animals = append(f.animals, *a)
	return nil
}

func (f fakeAnimalRepo) GetByID(_ context.Context, id string) (*model.Animal, error) {
	i := f.index(id)
	if i < 0 {
		return nil, apperror.NotFound(repository.EntityAnimal, id)
	}
	a := f.animals[i]
	return &a, nil
}

// Update only stores the result when mutate succeeds, like a rolled-back tx.
func (f fakeAnimalRepo) Update(_ context.Context, id string, mutate repository.Mutator[model.Animal]) (*model.Animal, error) {
	i := f.index(id)
	if i < 0 {
		return nil, apperror.NotFound(repository.EntityAnimal, id)
	}
	a := f.animals[i]
	if err := mutate(&a); err != nil {
		return nil, err
	}
	f.animals[i] = a
	return &a, nil
}

func (f fakeAnimalRepo) Delete(_ context.Context, id string) error {
	i := f.index(id)
	if i < 0 {
		return apperror.NotFound(repository.EntityAnimal, id)
	}
	f.animals = slices.Delete(f.animals, i, i+1)
	f.fosters = slices.DeleteFunc(f.fosters, func(fo model.Foster) bool { return fo.AnimalID == id })
	return nil
}

func (f fakeAnimalRepo) ListByAdopter(_ context.Context, userID string) ([]model.PetView, error) {
	pets := make([]model.PetView, 0)
	for _, a := range f.animals {
		if a.AdopterID != nil && *a.AdopterID == userID {
			pets = append(pets, model.PetView{Animal: a, AdoptionDate: *a.AdoptionDate})
		}
	}
	return pets, nil
}

// --- fosters -------------------------------------------------------------

type fakeFosterRepo struct{ *fakeStore }

var _ repository.FosterRepository = fakeFosterRepo{}

func (f fakeFosterRepo) Create(ctx context.Context, fo *model.Foster) error {
	if _, err := (fakeUserRepo{f.fakeStore}).GetByID(ctx, fo.UserID); err != nil {
		return err
	}
	if _, err := (fakeAnimalRepo{f.fakeStore}).GetByID(ctx, fo.AnimalID); err != nil {
		return err
	}
	for _, existing := range f.fosters {
		if existing.UserID == fo.UserID && existing.AnimalID == fo.AnimalID {
			return apperror.DuplicateValue(repository.EntityFoster, "animal_id", fo.AnimalID)
		}
	}
	f.fosters = append(f.fosters, *fo)
	return nil
}

func (f fakeFosterRepo) ListByUser(ctx context.Context, userID string) ([]model.FosterView, error) {
	views := make([]model.FosterView, 0)
	for _, fo := range f.fosters {
		if fo.UserID != userID {
			continue
		}
		a, err := (fakeAnimalRepo{f.fakeStore}).GetByID(ctx, fo.AnimalID)
		if err != nil {
			return nil, err
		}
		views = append(views, model.FosterView{Animal: *a, StartDate: fo.StartDate, EndDate: fo.EndDate})
	}
	return views, nil
}

func (f fakeFosterRepo) ListByAnimal(_ context.Context, animalID string) ([]model.Foster, error) {
	out := make([]model.Foster, 0)
	for _, fo := range f.fosters {
		if fo.AnimalID == animalID {
			out = append(out, fo)
		}
	}
	return out, nil
}
