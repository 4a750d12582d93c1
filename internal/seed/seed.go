// Package seed fills an empty database with demo users, animals, adoptions
// and fosters.
//
// Everything goes through the services, so seeded data obeys the same
// validation and adoption rules as data created over HTTP. Every seeded user
// has the password "password".
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/sakif/buddy-system/internal/model"
	"github.com/sakif/buddy-system/internal/service"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password"

//go:embed seed.json
var defaultFixture []byte

// Fixture is the seed file format. Adoptions and fosters refer to animals by
// key and to users by username, because ids only exist after insertion.
type Fixture struct {
	Users []struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	} `json:"users"`

	Animals []struct {
		Key string `json:"key"`
		model.AnimalCreate
	} `json:"animals"`

	Adoptions []struct {
		Animal       string     `json:"animal"`
		User         string     `json:"user"`
		AdoptionDate model.Date `json:"adoption_date"`
	} `json:"adoptions"`

	Fosters []struct {
		Animal    string     `json:"animal"`
		User      string     `json:"user"`
		StartDate model.Date `json:"start_date"`
		EndDate   model.Date `json:"end_date"`
	} `json:"fosters"`
}

// Result counts what Apply inserted.
type Result struct {
	Users     int `json:"user_count"`
	Animals   int `json:"animal_count"`
	Adoptions int `json:"adoption_count"`
	Fosters   int `json:"foster_count"`
}

// Default returns the fixture embedded in the binary.
func Default() (*Fixture, error) {
	var f Fixture
	if err := json.Unmarshal(defaultFixture, &f); err != nil {
		return nil, fmt.Errorf("seed: parsing embedded fixture: %w", err)
	}
	return &f, nil
}

// Load parses a fixture from r.
func Load(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("seed: parsing fixture: %w", err)
	}
	return &f, nil
}

// Seeder applies fixtures through the services.
type Seeder struct {
	auth    *service.AuthService
	animals *service.AnimalService
	logger  *slog.Logger
}

func NewSeeder(auth *service.AuthService, animals *service.AnimalService, logger *slog.Logger) *Seeder {
	return &Seeder{auth: auth, animals: animals, logger: logger}
}

// Apply inserts the fixture. It stops at the first failure; rows inserted
// before it stay, so seed an empty database.
func (s *Seeder) Apply(ctx context.Context, f *Fixture) (Result, error) {
	var res Result
	userIDs := make(map[string]string, len(f.Users))
	animalIDs := make(map[string]string, len(f.Animals))

	for _, u := range f.Users {
		user, err := s.auth.Register(ctx, model.UserRegistration{
			Username: u.Username,
			Email:    u.Email,
			Password: DefaultPassword,
		})
		if err != nil {
			return res, fmt.Errorf("seed: user %q: %w", u.Username, err)
		}
		userIDs[u.Username] = user.ID
		res.Users++
	}

	for _, a := range f.Animals {
		if _, dup := animalIDs[a.Key]; dup {
			return res, fmt.Errorf("seed: animal key %q used twice", a.Key)
		}
		animal, err := s.animals.Create(ctx, a.AnimalCreate)
		if err != nil {
			return res, fmt.Errorf("seed: animal %q: %w", a.Key, err)
		}
		animalIDs[a.Key] = animal.ID
		res.Animals++
	}

	resolve := func(animalKey, username string) (string, string, error) {
		animalID, ok := animalIDs[animalKey]
		if !ok {
			return "", "", fmt.Errorf("seed: unknown animal key %q", animalKey)
		}
		userID, ok := userIDs[username]
		if !ok {
			return "", "", fmt.Errorf("seed: unknown user %q", username)
		}
		return animalID, userID, nil
	}

	for _, ad := range f.Adoptions {
		animalID, userID, err := resolve(ad.Animal, ad.User)
		if err != nil {
			return res, err
		}
		if _, err := s.animals.Update(ctx, animalID, model.AnimalUpdate{
			AdopterID:    model.Some(userID),
			AdoptionDate: model.Some(ad.AdoptionDate),
		}); err != nil {
			return res, fmt.Errorf("seed: adoption of %q: %w", ad.Animal, err)
		}
		res.Adoptions++
	}

	for _, fo := range f.Fosters {
		animalID, userID, err := resolve(fo.Animal, fo.User)
		if err != nil {
			return res, err
		}
		if _, err := s.animals.AddFoster(ctx, animalID, userID, model.FosterCreate{
			StartDate: &fo.StartDate,
			EndDate:   &fo.EndDate,
		}); err != nil {
			return res, fmt.Errorf("seed: foster of %q: %w", fo.Animal, err)
		}
		res.Fosters++
	}

	s.logger.Info("database seeded",
		slog.Int("users", res.Users),
		slog.Int("animals", res.Animals),
		slog.Int("adoptions", res.Adoptions),
		slog.Int("fosters", res.Fosters),
	)
	return res, nil
}
