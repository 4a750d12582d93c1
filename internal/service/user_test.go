package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/buddy-system/internal/apperror"
	"github.com/sakif/buddy-system/internal/auth"
	"github.com/sakif/buddy-system/internal/model"
)

func newTestUserService(t *testing.T) (*UserService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	svc := NewUserService(fakeUserRepo{store}, fakeAnimalRepo{store}, fakeFosterRepo{store},
		auth.NewPasswordServiceForTest(4), discardLogger())
	return svc, store
}

// =========================================================================
// LIST / GET TESTS
// =========================================================================

func TestUserList(t *testing.T) {
	svc, store := newTestUserService(t)
	seedUser(t, store, "juniper")
	seedUser(t, store, "rowan")

	users, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("List() returned %d users, want 2", len(users))
	}
}

func TestUserGet_NotFound(t *testing.T) {
	svc, _ := newTestUserService(t)

	_, err := svc.Get(context.Background(), "nope")
	assertNotFound(t, err, "User", "nope")
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUserUpdate_OnlySelf(t *testing.T) {
	svc, store := newTestUserService(t)
	juniper := seedUser(t, store, "juniper")
	rowan := seedUser(t, store, "rowan")

	_, err := svc.Update(context.Background(), rowan.ID, juniper.ID, model.UserUpdate{
		Username: model.Some("stolen"),
	})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Update() error = %v, want ErrForbidden", err)
	}
	if store.users[0].Username != "juniper" {
		t.Error("forbidden update changed the user")
	}
}

func TestUserUpdate_Username(t *testing.T) {
	svc, store := newTestUserService(t)
	u := seedUser(t, store, "juniper")

	got, err := svc.Update(context.Background(), u.ID, u.ID, model.UserUpdate{
		Username: model.Some(" june "),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Username != "june" || got.Email != u.Email {
		t.Errorf("Update() = %+v", got)
	}
}

func TestUserUpdate_SameValueIsNotDuplicate(t *testing.T) {
	svc, store := newTestUserService(t)
	u := seedUser(t, store, "juniper")

	if _, err := svc.Update(context.Background(), u.ID, u.ID, model.UserUpdate{
		Username: model.Some("juniper"),
		Email:    model.Some(u.Email),
	}); err != nil {
		t.Errorf("re-saving own values error = %v", err)
	}
}

func TestUserUpdate_Duplicate(t *testing.T) {
	svc, store := newTestUserService(t)
	u := seedUser(t, store, "juniper")
	other := seedUser(t, store, "rowan")
	ctx := context.Background()

	_, err := svc.Update(ctx, u.ID, u.ID, model.UserUpdate{Username: model.Some("rowan")})
	assertDuplicate(t, err, "username", "rowan")

	_, err = svc.Update(ctx, u.ID, u.ID, model.UserUpdate{Email: model.Some(other.Email)})
	assertDuplicate(t, err, "email", other.Email)
}

func TestUserUpdate_Validation(t *testing.T) {
	svc, store := newTestUserService(t)
	u := seedUser(t, store, "juniper")
	ctx := context.Background()

	tests := []struct {
		name  string
		upd   model.UserUpdate
		field string
	}{
		{"null username", model.UserUpdate{Username: model.Null[string]()}, "username"},
		{"blank username", model.UserUpdate{Username: model.Some("  ")}, "username"},
		{"bad email", model.UserUpdate{Email: model.Some("nope")}, "email"},
		{"null password", model.UserUpdate{Password: model.Null[string]()}, "password"},
		{"empty password", model.UserUpdate{Password: model.Some("")}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, u.ID, u.ID, tt.upd)
			assertValidation(t, err, tt.field)
		})
	}
}

func TestUserUpdate_PasswordIsRehashed(t *testing.T) {
	svc, store := newTestUserService(t)
	u := seedUser(t, store, "juniper")

	_, err := svc.Update(context.Background(), u.ID, u.ID, model.UserUpdate{
		Password: model.Some("new-password"),
		// a client cannot smuggle a hash in
		PasswordHash: model.Some("attacker-hash"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stored := store.users[0].PasswordHash
	if stored == "attacker-hash" || stored == "new-password" {
		t.Fatalf("stored hash = %q", stored)
	}
	if !auth.NewPasswordServiceForTest(4).Verify(stored, "new-password") {
		t.Error("stored hash does not verify the new password")
	}
}

func TestUserUpdate_NotFound(t *testing.T) {
	svc, _ := newTestUserService(t)

	_, err := svc.Update(context.Background(), "ghost", "ghost", model.UserUpdate{})
	assertNotFound(t, err, "User", "ghost")
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestUserDelete_OnlySelf(t *testing.T) {
	svc, store := newTestUserService(t)
	juniper := seedUser(t, store, "juniper")
	rowan := seedUser(t, store, "rowan")

	err := svc.Delete(context.Background(), rowan.ID, juniper.ID)
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Delete() error = %v, want ErrForbidden", err)
	}
	if len(store.users) != 2 {
		t.Error("forbidden delete removed a user")
	}
}

func TestUserDelete_ReleasesPetsAndFosters(t *testing.T) {
	svc, store := newTestUserService(t)
	animals, _ := newTestAnimalServiceOn(store)
	u := seedUser(t, store, "juniper")
	ctx := context.Background()

	a := mustCreateAnimal(t, animals, "Mochi")
	if _, err := animals.Update(ctx, a.ID, model.AnimalUpdate{AdopterID: model.Some(u.ID)}); err != nil {
		t.Fatalf("adopting: %v", err)
	}
	jan := model.NewDate(2024, time.January, 15)
	if _, err := animals.AddFoster(ctx, a.ID, u.ID, model.FosterCreate{StartDate: &jan, EndDate: &jan}); err != nil {
		t.Fatalf("fostering: %v", err)
	}

	if err := svc.Delete(ctx, u.ID, u.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := animals.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.AdopterID != nil || got.AdoptionDate != nil {
		t.Errorf("pet still adopted after owner deletion: %+v", got)
	}
	if len(store.fosters) != 0 {
		t.Errorf("fosters after delete = %d, want 0", len(store.fosters))
	}
}

// =========================================================================
// FOSTERS / PETS TESTS
// =========================================================================

func TestUserFostersAndPets(t *testing.T) {
	svc, store := newTestUserService(t)
	animals, _ := newTestAnimalServiceOn(store)
	u := seedUser(t, store, "juniper")
	ctx := context.Background()

	fostered := mustCreateAnimal(t, animals, "Mochi")
	adopted := mustCreateAnimal(t, animals, "Pepper")
	start := model.NewDate(2024, time.January, 15)
	end := model.NewDate(2024, time.February, 10)
	if _, err := animals.AddFoster(ctx, fostered.ID, u.ID, model.FosterCreate{StartDate: &start, EndDate: &end}); err != nil {
		t.Fatalf("fostering: %v", err)
	}
	if _, err := animals.Update(ctx, adopted.ID, model.AnimalUpdate{AdopterID: model.Some(u.ID)}); err != nil {
		t.Fatalf("adopting: %v", err)
	}

	fosters, err := svc.Fosters(ctx, u.ID)
	if err != nil {
		t.Fatalf("Fosters() error = %v", err)
	}
	if len(fosters) != 1 || fosters[0].Animal.ID != fostered.ID || fosters[0].EndDate != end {
		t.Errorf("Fosters() = %+v", fosters)
	}

	pets, err := svc.Pets(ctx, u.ID)
	if err != nil {
		t.Fatalf("Pets() error = %v", err)
	}
	if len(pets) != 1 || pets[0].Animal.ID != adopted.ID || pets[0].AdoptionDate != fixedToday {
		t.Errorf("Pets() = %+v", pets)
	}
}

func TestUserFostersAndPets_UnknownUser(t *testing.T) {
	svc, _ := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.Fosters(ctx, "ghost")
	assertNotFound(t, err, "User", "ghost")

	_, err = svc.Pets(ctx, "ghost")
	assertNotFound(t, err, "User", "ghost")
}

func TestUserFostersAndPets_EmptyLists(t *testing.T) {
	svc, store := newTestUserService(t)
	u := seedUser(t, store, "juniper")
	ctx := context.Background()

	fosters, err := svc.Fosters(ctx, u.ID)
	if err != nil || fosters == nil || len(fosters) != 0 {
		t.Errorf("Fosters() = %v, %v; want empty non-nil", fosters, err)
	}
	pets, err := svc.Pets(ctx, u.ID)
	if err != nil || pets == nil || len(pets) != 0 {
		t.Errorf("Pets() = %v, %v; want empty non-nil", pets, err)
	}
}

// newTestAnimalServiceOn builds an AnimalService sharing an existing store.
func newTestAnimalServiceOn(store *fakeStore) (*AnimalService, *fakeStore) {
	svc := NewAnimalService(fakeAnimalRepo{store}, fakeUserRepo{store}, fakeFosterRepo{store}, discardLogger())
	svc.today = func() model.Date { return fixedToday }
	return svc, store
}
