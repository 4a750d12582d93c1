package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/buddy-system/internal/apperror"
	"github.com/sakif/buddy-system/internal/auth"
	"github.com/sakif/buddy-system/internal/model"
	"github.com/sakif/buddy-system/internal/repository"
)

// UserService reads user accounts and lets users change or delete their own.
type UserService struct {
	users     repository.UserRepository
	animals   repository.AnimalRepository
	fosters   repository.FosterRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	animals repository.AnimalRepository,
	fosters repository.FosterRepository,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		animals:   animals,
		fosters:   fosters,
		passwords: passwords,
		logger:    logger,
	}
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing: %w", err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// Update applies a partial update to the actor's own account.
// A new password is hashed before the merge.
func (s *UserService) Update(ctx context.Context, actorID, id string, upd model.UserUpdate) (*model.User, error) {
	if actorID != id {
		return nil, apperror.Forbidden("you can only modify your own account")
	}

	if upd.Username.Set {
		if upd.Username.Null {
			return nil, apperror.ValidationFailed("username", "username must not be null")
		}
		upd.Username.Value = strings.TrimSpace(upd.Username.Value)
		if err := validateUsername(upd.Username.Value); err != nil {
			return nil, err
		}
		if err := checkUnique(ctx, s.users, repository.UserFieldUsername, upd.Username.Value, id); err != nil {
			return nil, err
		}
	}
	if upd.Email.Set {
		if upd.Email.Null {
			return nil, apperror.ValidationFailed("email", "email must not be null")
		}
		upd.Email.Value = strings.TrimSpace(upd.Email.Value)
		if err := validateEmail(upd.Email.Value); err != nil {
			return nil, err
		}
		if err := checkUnique(ctx, s.users, repository.UserFieldEmail, upd.Email.Value, id); err != nil {
			return nil, err
		}
	}
	// PasswordHash never comes from the client; only the hash computed here is merged.
	upd.PasswordHash = model.Optional[string]{}
	if upd.Password.Set {
		if upd.Password.Null {
			return nil, apperror.ValidationFailed("password", "password must not be null")
		}
		if err := validatePassword(upd.Password.Value); err != nil {
			return nil, err
		}
		hash, err := s.passwords.Hash(upd.Password.Value)
		if err != nil {
			return nil, fmt.Errorf("service/user: hashing password: %w", err)
		}
		upd.PasswordHash = model.Some(hash)
	}

	updated, err := s.users.Update(ctx, id, func(cur *model.User) error {
		*cur = cur.Merge(upd)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user updated", slog.String("userID", id))
	return updated, nil
}

// Delete removes the actor's own account. Their foster links go with it and
// their pets become adoptable again.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	if actorID != id {
		return apperror.Forbidden("you can only delete your own account")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.String("userID", id))
	return nil
}

// Fosters lists the animals the user fosters, with the foster periods.
func (s *UserService) Fosters(ctx context.Context, userID string) ([]model.FosterView, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	views, err := s.fosters.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing fosters of %s: %w", userID, err)
	}
	return views, nil
}

// Pets lists the animals the user adopted, with the adoption dates.
func (s *UserService) Pets(ctx context.Context, userID string) ([]model.PetView, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	pets, err := s.animals.ListByAdopter(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: listing pets of %s: %w", userID, err)
	}
	return pets, nil
}
