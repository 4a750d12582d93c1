package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/buddy-system/internal/apperror"
	"github.com/sakif/buddy-system/internal/model"
	"github.com/sakif/buddy-system/internal/repository"
)

// AnimalDB implements repository.AnimalRepository.
type AnimalDB struct {
	conn *sql.DB
}

var _ repository.AnimalRepository = (*AnimalDB)(nil)

const animalColumns = `id, name, age, kind, fixed, vaccinated, intake_date, adopter_id, adoption_date`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanAnimal reads one row selected with animalColumns.
// adopter_id and adoption_date may be NULL; database/sql leaves the
// pointer fields nil in that case.
func scanAnimal(s rowScanner, a *model.Animal) error {
	return s.Scan(
		&a.ID,
		&a.Name,
		&a.Age,
		&a.Kind,
		&a.Fixed,
		&a.Vaccinated,
		&a.IntakeDate,
		&a.AdopterID,
		&a.AdoptionDate,
	)
}

// Create generates an ID and inserts the animal.
func (r *AnimalDB) Create(ctx context.Context, a *model.Animal) error {
	a.ID = xid.New().String()

	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO animals (`+animalColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.Name,
		a.Age,
		a.Kind,
		a.Fixed,
		a.Vaccinated,
		a.IntakeDate,
		a.AdopterID,
		a.AdoptionDate,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating animal: %w", err)
	}

	return nil
}

// GetByID retrieves one animal.
// Returns apperror.ErrNotFound if no animal exists with that ID.
func (r *AnimalDB) GetByID(ctx context.Context, id string) (*model.Animal, error) {
	return getAnimal(ctx, r.conn, id)
}

func getAnimal(ctx context.Context, q querier, id string) (*model.Animal, error) {
	var a model.Animal

	err := scanAnimal(q.QueryRowContext(ctx,
		`SELECT `+animalColumns+` FROM animals WHERE id = ?`, id,
	), &a)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(repository.EntityAnimal, id)
		}
		return nil, fmt.Errorf("sqlite: getting animal %s: %w", id, err)
	}

	return &a, nil
}

// List fetches every animal in creation order, then filters and sorts in memory.
func (r *AnimalDB) List(ctx context.Context, q repository.AnimalQuery) ([]model.Animal, error) {
	all, err := r.queryAnimals(ctx, `SELECT `+animalColumns+` FROM animals ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing animals: %w", err)
	}
	return q.Apply(all), nil
}

// ListByAdopter returns the user's adopted animals.
func (r *AnimalDB) ListByAdopter(ctx context.Context, userID string) ([]model.PetView, error) {
	animals, err := r.queryAnimals(ctx,
		`SELECT `+animalColumns+` FROM animals WHERE adopter_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing pets of user %s: %w", userID, err)
	}

	pets := make([]model.PetView, 0, len(animals))
	for _, a := range animals {
		pv := model.PetView{Animal: a}
		if a.AdoptionDate != nil {
			pv.AdoptionDate = *a.AdoptionDate
		}
		pets = append(pets, pv)
	}
	return pets, nil
}

func (r *AnimalDB) queryAnimals(ctx context.Context, query string, args ...any) ([]model.Animal, error) {
	rows, err := r.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	animals := make([]model.Animal, 0)
	for rows.Next() {
		var a model.Animal
		if err := scanAnimal(rows, &a); err != nil {
			return nil, fmt.Errorf("scanning animal row: %w", err)
		}
		animals = append(animals, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating animals: %w", err)
	}
	return animals, nil
}

// Update runs read → mutate → write in one transaction, so two concurrent
// partial updates cannot overwrite each other's fields.
func (r *AnimalDB) Update(ctx context.Context, id string, mutate repository.Mutator[model.Animal]) (*model.Animal, error) {
	var updated *model.Animal

	err := withTx(ctx, r.conn, func(tx *sql.Tx) error {
		a, err := getAnimal(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := mutate(a); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE animals
			 SET name = ?, age = ?, kind = ?, fixed = ?, vaccinated = ?,
			     intake_date = ?, adopter_id = ?, adoption_date = ?
			 WHERE id = ?`,
			a.Name,
			a.Age,
			a.Kind,
			a.Fixed,
			a.Vaccinated,
			a.IntakeDate,
			a.AdopterID,
			a.AdoptionDate,
			id,
		)
		if err != nil {
			// adopter_id is the only foreign key on animals
			if isForeignKeyViolation(err) && a.AdopterID != nil {
				return apperror.NotFound(repository.EntityUser, *a.AdopterID)
			}
			return fmt.Errorf("sqlite: updating animal %s: %w", id, err)
		}

		a.ID = id
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the animal and its foster rows.
func (r *AnimalDB) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fosters WHERE animal_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting fosters of animal %s: %w", id, err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM animals WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting animal %s: %w", id, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound(repository.EntityAnimal, id)
		}
		return nil
	})
}
