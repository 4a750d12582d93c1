// Package repository defines the persistence contracts of the buddy system.
//
// Services depend on these interfaces only; the sqlite and postgres packages
// implement them. Every implementation must:
//   - return apperror.NotFound(entity, id) from GetByID, Update and Delete
//     when no row matches
//   - return apperror.DuplicateValue(entity, field, value) on unique violations
//   - run each multi-statement operation in a single transaction
package repository

import (
	"context"

	"github.com/sakif/buddy-system/internal/model"
)

// Mutator edits an entity inside an Update transaction. Returning an error
// aborts the update and rolls the transaction back.
type Mutator[T any] func(*T) error

type AnimalRepository interface {
	// List fetches every animal in creation order and applies q in memory.
	List(ctx context.Context, q AnimalQuery) ([]model.Animal, error)
	// Create assigns a.ID and inserts the row.
	Create(ctx context.Context, a *model.Animal) error
	GetByID(ctx context.Context, id string) (*model.Animal, error)
	// Update loads the animal, applies mutate and writes the result back,
	// all in one transaction. It returns the stored animal.
	Update(ctx context.Context, id string, mutate Mutator[model.Animal]) (*model.Animal, error)
	// Delete removes the animal together with its foster rows.
	Delete(ctx context.Context, id string) error
	// ListByAdopter returns the animals adopted by userID, in creation order.
	ListByAdopter(ctx context.Context, userID string) ([]model.PetView, error)
}

type UserRepository interface {
	List(ctx context.Context) ([]model.User, error)
	// Create assigns u.ID and u.CreatedAt and inserts the row.
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// ExistsByField reports whether a user other than excludeID has the given
	// value in field. field is one of UserFieldUsername, UserFieldEmail.
	ExistsByField(ctx context.Context, field, value, excludeID string) (bool, error)
	Update(ctx context.Context, id string, mutate Mutator[model.User]) (*model.User, error)
	// Delete removes the user, their foster rows, and clears the adoption
	// fields of every animal they adopted.
	Delete(ctx context.Context, id string) error
}

type FosterRepository interface {
	// Create inserts the link. Unknown user or animal ids fail with NotFound;
	// an existing (user, animal) pair fails with DuplicateValue.
	Create(ctx context.Context, f *model.Foster) error
	// ListByUser joins the user's fosters with their animals, ordered by start date.
	ListByUser(ctx context.Context, userID string) ([]model.FosterView, error)
	ListByAnimal(ctx context.Context, animalID string) ([]model.Foster, error)
}

// Store is an opened database exposing all repositories.
type Store interface {
	Animals() AnimalRepository
	Users() UserRepository
	Fosters() FosterRepository
	Ping(ctx context.Context) error
	Close() error
}

// Entity names used in errors and in the API's error bodies.
const (
	EntityAnimal = "Animal"
	EntityUser   = "User"
	EntityFoster = "Foster"
)

// Columns accepted by UserRepository.ExistsByField.
const (
	UserFieldUsername = "username"
	UserFieldEmail    = "email"
)
