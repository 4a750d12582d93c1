package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/buddy-system/internal/apperror"
	"github.com/sakif/buddy-system/internal/model"
	"github.com/sakif/buddy-system/internal/repository"
)

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := &model.User{Username: "juniper", Email: "juniper@cool.email", PasswordHash: "hash"}
	if err := db.Users().Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.ID == "" {
		t.Error("Create() should set an ID")
	}
	if u.CreatedAt.IsZero() {
		t.Error("Create() should set CreatedAt")
	}

	got, err := db.Users().GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Username != "juniper" || got.Email != "juniper@cool.email" || got.PasswordHash != "hash" {
		t.Errorf("GetByID() = %+v", got)
	}
	if got.CreatedAt.Unix() != u.CreatedAt.Unix() {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, u.CreatedAt)
	}
}

func TestUserCreate_Duplicates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "juniper") // juniper@cool.email

	tests := []struct {
		name      string
		user      model.User
		wantField string
		wantValue string
	}{
		{"same username", model.User{Username: "juniper", Email: "other@cool.email"}, "username", "juniper"},
		{"same email", model.User{Username: "basil", Email: "juniper@cool.email"}, "email", "juniper@cool.email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			err := db.Users().Create(ctx, &u)

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrDuplicate) {
				t.Fatalf("Create() error = %v, want DuplicateValue", err)
			}
			if appErr.Entity != "User" || appErr.Field != tt.wantField || appErr.Value != tt.wantValue {
				t.Errorf("duplicate (%s, %s, %s)", appErr.Entity, appErr.Field, appErr.Value)
			}
		})
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestUserGetByUsername(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "juniper")

	got, err := db.Users().GetByUsername(context.Background(), "juniper")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByUsername() ID = %s, want %s", got.ID, created.ID)
	}

	_, err = db.Users().GetByUsername(context.Background(), "nobody")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByUsername(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Users().GetByID(context.Background(), "missing")
	assertNotFound(t, err, "User", "missing")
}

func TestUserList(t *testing.T) {
	db := newTestDB(t)
	first := createTestUser(t, db, "zinnia")
	second := createTestUser(t, db, "aster")

	users, err := db.Users().List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 2 || users[0].ID != first.ID || users[1].ID != second.ID {
		t.Errorf("List() should return users in creation order, got %+v", users)
	}
}

func TestUserExistsByField(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	juniper := createTestUser(t, db, "juniper")

	tests := []struct {
		field, value, exclude string
		want                  bool
	}{
		{repository.UserFieldUsername, "juniper", "", true},
		{repository.UserFieldUsername, "juniper", juniper.ID, false},
		{repository.UserFieldUsername, "basil", "", false},
		{repository.UserFieldEmail, "juniper@cool.email", "", true},
		{repository.UserFieldEmail, "juniper@cool.email", juniper.ID, false},
	}
	for _, tt := range tests {
		got, err := db.Users().ExistsByField(ctx, tt.field, tt.value, tt.exclude)
		if err != nil {
			t.Fatalf("ExistsByField(%s, %s) error = %v", tt.field, tt.value, err)
		}
		if got != tt.want {
			t.Errorf("ExistsByField(%s, %s, exclude=%q) = %v, want %v", tt.field, tt.value, tt.exclude, got, tt.want)
		}
	}

	if _, err := db.Users().ExistsByField(ctx, "password_hash", "x", ""); err == nil {
		t.Error("ExistsByField() should reject unknown fields")
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUserUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "juniper")

	updated, err := db.Users().Update(ctx, u.ID, func(cur *model.User) error {
		cur.Email = "j@new.email"
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Email != "j@new.email" || updated.Username != "juniper" {
		t.Errorf("Update() = %+v", updated)
	}
}

func TestUserUpdate_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "juniper")
	basil := createTestUser(t, db, "basil")

	_, err := db.Users().Update(ctx, basil.ID, func(cur *model.User) error {
		cur.Username = "juniper"
		return nil
	})
	if !errors.Is(err, apperror.ErrDuplicate) {
		t.Fatalf("Update() error = %v, want ErrDuplicate", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestUserDelete_CascadesFostersAndAdoptions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "juniper")
	fostered := createTestAnimal(t, db, "Mochi", 1, date(2024, time.January, 1))
	adopted := createTestAnimal(t, db, "Biscuit", 3, date(2023, time.December, 10))

	if err := db.Fosters().Create(ctx, &model.Foster{
		UserID: u.ID, AnimalID: fostered.ID,
		StartDate: date(2024, time.January, 15), EndDate: date(2024, time.February, 10),
	}); err != nil {
		t.Fatalf("Fosters().Create() error = %v", err)
	}
	on := date(2024, time.March, 1)
	if _, err := db.Animals().Update(ctx, adopted.ID, func(a *model.Animal) error {
		a.AdopterID, a.AdoptionDate = &u.ID, &on
		return nil
	}); err != nil {
		t.Fatalf("adopting: %v", err)
	}

	if err := db.Users().Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := db.Users().GetByID(ctx, u.ID)
	assertNotFound(t, err, "User", u.ID)

	fosters, err := db.Fosters().ListByAnimal(ctx, fostered.ID)
	if err != nil {
		t.Fatalf("ListByAnimal() error = %v", err)
	}
	if len(fosters) != 0 {
		t.Errorf("fosters survived user deletion: %+v", fosters)
	}

	a, err := db.Animals().GetByID(ctx, adopted.ID)
	if err != nil {
		t.Fatalf("adopted animal should survive its adopter: %v", err)
	}
	if a.AdopterID != nil || a.AdoptionDate != nil {
		t.Errorf("adoption not cleared: %v / %v", a.AdopterID, a.AdoptionDate)
	}
}

func TestUserDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Users().Delete(context.Background(), "missing")
	assertNotFound(t, err, "User", "missing")
}
