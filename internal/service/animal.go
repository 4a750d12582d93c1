package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/buddy-system/internal/apperror"
	"github.com/sakif/buddy-system/internal/model"
	"github.com/sakif/buddy-system/internal/repository"
)

// MaxAnimalNameLength bounds animal names.
const MaxAnimalNameLength = 100

// AnimalService owns animals, their adoption state and their foster links.
type AnimalService struct {
	animals repository.AnimalRepository
	users   repository.UserRepository
	fosters repository.FosterRepository
	logger  *slog.Logger

	// today is the default intake/adoption date; tests replace it.
	today func() model.Date
}

func NewAnimalService(
	animals repository.AnimalRepository,
	users repository.UserRepository,
	fosters repository.FosterRepository,
	logger *slog.Logger,
) *AnimalService {
	return &AnimalService{
		animals: animals,
		users:   users,
		fosters: fosters,
		logger:  logger,
		today:   model.Today,
	}
}

func (s *AnimalService) List(ctx context.Context, q repository.AnimalQuery) ([]model.Animal, error) {
	animals, err := s.animals.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("service/animal: listing: %w", err)
	}
	return animals, nil
}

// Create validates the payload and stores a new, unadopted animal.
// intake_date defaults to today.
func (s *AnimalService) Create(ctx context.Context, in model.AnimalCreate) (*model.Animal, error) {
	if in.Name == nil {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if in.Age == nil {
		return nil, apperror.ValidationFailed("age", "age is required")
	}
	if in.Kind == nil {
		return nil, apperror.ValidationFailed("kind", "kind is required")
	}

	a := &model.Animal{
		Name:       strings.TrimSpace(*in.Name),
		Age:        *in.Age,
		Kind:       strings.TrimSpace(*in.Kind),
		Fixed:      in.Fixed,
		Vaccinated: in.Vaccinated,
		IntakeDate: s.today(),
	}
	if in.IntakeDate != nil {
		a.IntakeDate = *in.IntakeDate
	}
	if err := validateAnimal(a); err != nil {
		return nil, err
	}

	if err := s.animals.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("service/animal: creating %q: %w", a.Name, err)
	}

	s.logger.Info("animal created",
		slog.String("id", a.ID),
		slog.String("name", a.Name),
	)
	return a, nil
}

func (s *AnimalService) Get(ctx context.Context, id string) (*model.Animal, error) {
	return s.animals.GetByID(ctx, id)
}

// Update applies a partial update.
//
// The merge, the adoption normalization and the write happen inside one
// repository transaction:
//   - adopter set without a date → adoption_date = today
//   - adopter changed without a date → adoption_date = today
//   - adopter cleared            → adoption_date cleared
//   - date set with no adopter   → validation error
//   - date cleared, adopter kept → validation error
func (s *AnimalService) Update(ctx context.Context, id string, upd model.AnimalUpdate) (*model.Animal, error) {
	if err := validateAnimalUpdate(upd); err != nil {
		return nil, err
	}
	upd.Name.Value = strings.TrimSpace(upd.Name.Value)
	upd.Kind.Value = strings.TrimSpace(upd.Kind.Value)

	// Check the adopter before opening the transaction: the SQLite backend
	// runs on a single connection, so the mutator must not query other repositories.
	if upd.AdopterID.Set && !upd.AdopterID.Null {
		if _, err := s.users.GetByID(ctx, upd.AdopterID.Value); err != nil {
			return nil, err
		}
	}

	today := s.today()
	updated, err := s.animals.Update(ctx, id, func(cur *model.Animal) error {
		merged := cur.Merge(upd)
		if err := normalizeAdoption(&merged, cur.AdopterID, upd, today); err != nil {
			return err
		}
		if err := validateAnimal(&merged); err != nil {
			return err
		}
		*cur = merged
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("animal updated", slog.String("id", id))
	return updated, nil
}

// Delete removes the animal together with its foster links.
func (s *AnimalService) Delete(ctx context.Context, id string) error {
	if err := s.animals.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("animal deleted", slog.String("id", id))
	return nil
}

// ListFosters lists the foster links of one animal.
func (s *AnimalService) ListFosters(ctx context.Context, animalID string) ([]model.Foster, error) {
	if _, err := s.animals.GetByID(ctx, animalID); err != nil {
		return nil, err
	}
	fosters, err := s.fosters.ListByAnimal(ctx, animalID)
	if err != nil {
		return nil, fmt.Errorf("service/animal: listing fosters of %s: %w", animalID, err)
	}
	return fosters, nil
}

// AddFoster records that userID fosters animalID over the given period.
func (s *AnimalService) AddFoster(ctx context.Context, animalID, userID string, in model.FosterCreate) (*model.Foster, error) {
	if in.StartDate == nil {
		return nil, apperror.ValidationFailed("start_date", "start_date is required")
	}
	if in.EndDate == nil {
		return nil, apperror.ValidationFailed("end_date", "end_date is required")
	}
	if in.EndDate.Compare(*in.StartDate) < 0 {
		return nil, apperror.ValidationFailed("end_date", "end_date must not be before start_date")
	}

	f := &model.Foster{
		UserID:    userID,
		AnimalID:  animalID,
		StartDate: *in.StartDate,
		EndDate:   *in.EndDate,
	}
	if err := s.fosters.Create(ctx, f); err != nil {
		return nil, err
	}

	s.logger.Info("foster recorded",
		slog.String("animalID", animalID),
		slog.String("userID", userID),
	)
	return f, nil
}

// normalizeAdoption keeps adopter_id and adoption_date set or unset together.
// prevAdopter is the adopter before the merge; a new adopter never inherits
// the previous adopter's date.
func normalizeAdoption(a *model.Animal, prevAdopter *string, upd model.AnimalUpdate, today model.Date) error {
	if upd.AdopterID.Set && upd.AdopterID.Null {
		a.AdoptionDate = nil
		return nil
	}
	adopterChanged := upd.AdopterID.Set && (prevAdopter == nil || *prevAdopter != upd.AdopterID.Value)
	if adopterChanged && !upd.AdoptionDate.Set {
		a.AdoptionDate = &today
	}
	if upd.AdoptionDate.Set && upd.AdoptionDate.Null && a.AdopterID != nil {
		return apperror.ValidationFailed("adoption_date", "adoption_date cannot be cleared while adopter_id is set")
	}
	if a.AdopterID != nil && a.AdoptionDate == nil {
		a.AdoptionDate = &today
	}
	if a.AdopterID == nil && a.AdoptionDate != nil {
		return apperror.ValidationFailed("adoption_date", "adoption_date requires adopter_id")
	}
	return nil
}

func validateAnimal(a *model.Animal) error {
	if a.Name == "" {
		return apperror.ValidationFailed("name", "name must not be empty")
	}
	if len(a.Name) > MaxAnimalNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxAnimalNameLength))
	}
	if a.Age < 0 {
		return apperror.ValidationFailed("age", "age must not be negative")
	}
	if a.Kind == "" {
		return apperror.ValidationFailed("kind", "kind must not be empty")
	}
	return nil
}

// validateAnimalUpdate rejects explicit nulls on fields that cannot be null.
// Value checks happen on the merged animal.
func validateAnimalUpdate(upd model.AnimalUpdate) error {
	nonNullable := []struct {
		field string
		null  bool
	}{
		{"name", upd.Name.Null},
		{"age", upd.Age.Null},
		{"kind", upd.Kind.Null},
		{"fixed", upd.Fixed.Null},
		{"vaccinated", upd.Vaccinated.Null},
		{"intake_date", upd.IntakeDate.Null},
	}
	for _, f := range nonNullable {
		if f.null {
			return apperror.ValidationFailed(f.field, f.field+" must not be null")
		}
	}
	return nil
}
