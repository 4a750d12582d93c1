package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/buddy-system/internal/apperror"
	"github.com/sakif/buddy-system/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" creates a fresh database that exists only during the test.
// Each test gets its own database; it is destroyed when the connection closes.
//
// t.Helper() makes failures report the CALLER's line number, and t.Cleanup
// works like defer scoped to the test (subtests included).
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	u := &model.User{
		Username:     username,
		Email:        username + "@cool.email",
		PasswordHash: "$2a$04$not-a-real-hash",
	}
	if err := db.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

func createTestAnimal(t *testing.T, db *DB, name string, age int, intake model.Date) *model.Animal {
	t.Helper()
	a := &model.Animal{Name: name, Age: age, Kind: "cat", IntakeDate: intake}
	if err := db.Animals().Create(context.Background(), a); err != nil {
		t.Fatalf("failed to create test animal: %v", err)
	}
	return a
}

func date(y int, m time.Month, d int) model.Date { return model.NewDate(y, m, d) }

func assertNotFound(t *testing.T, err error, entity, id string) {
	t.Helper()
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an *AppError", err)
	}
	if appErr.Entity != entity || appErr.ID != id {
		t.Errorf("not found (%s, %s), want (%s, %s)", appErr.Entity, appErr.ID, entity, id)
	}
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}
