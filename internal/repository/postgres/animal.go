package postgres

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

type AnimalDB struct {
	conn *sql.DB
}

var _ repository.AnimalRepository = (*AnimalDB)(nil)

const animalColumns = `id, name, age, kind, fixed, vaccinated, intake_date, adopter_id, adoption_date`

func scanAnimal(s rowScanner, a *model.Animal) error {
	return s.Scan(
		&a.ID, &a.Name, &a.Age, &a.Kind, &a.Fixed, &a.Vaccinated,
		&a.IntakeDate, &a.AdopterID, &a.AdoptionDate,
	)
}

func (r *AnimalDB) Create(ctx context.Context, a *model.Animal) error {
	a.ID = xid.New().String()

	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO animals (`+animalColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		a.ID, a.Name, a.Age, a.Kind, a.Fixed, a.Vaccinated,
		a.IntakeDate, a.AdopterID, a.AdoptionDate,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating animal: %w", err)
	}
	return nil
}

func (r *AnimalDB) GetByID(ctx context.Context, id string) (*model.Animal, error) {
	return getAnimal(ctx, r.conn, id, false)
}

// getAnimal loads one animal; forUpdate locks the row until the tx ends.
func getAnimal(ctx context.Context, q querier, id string, forUpdate bool) (*model.Animal, error) {
	query := `SELECT ` + animalColumns + ` FROM animals WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var a model.Animal
	err := scanAnimal(q.QueryRowContext(ctx, query, id), &a)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound(repository.EntityAnimal, id)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting animal %s: %w", id, err)
	}
	return &a, nil
}

func (r *AnimalDB) List(ctx context.Context, q repository.AnimalQuery) ([]model.Animal, error) {
	all, err := r.queryAnimals(ctx, `SELECT `+animalColumns+` FROM animals ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing animals: %w", err)
	}
	return q.Apply(all), nil
}

func (r *AnimalDB) ListByAdopter(ctx context.Context, userID string) ([]model.PetView, error) {
	animals, err := r.queryAnimals(ctx,
		`SELECT `+animalColumns+` FROM animals WHERE adopter_id = $1 ORDER BY seq`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing pets of user %s: %w", userID, err)
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
			return nil, err
		}
		animals = append(animals, a)
	}
	return animals, rows.Err()
}

// Update locks the row with SELECT ... FOR UPDATE, applies mutate and writes back.
func (r *AnimalDB) Update(ctx context.Context, id string, mutate repository.Mutator[model.Animal]) (*model.Animal, error) {
	var updated *model.Animal

	err := withTx(ctx, r.conn, func(tx *sql.Tx) error {
		a, err := getAnimal(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := mutate(a); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE animals
			SET name = $2, age = $3, kind = $4, fixed = $5, vaccinated = $6,
			    intake_date = $7, adopter_id = $8, adoption_date = $9
			WHERE id = $1
		`,
			id, a.Name, a.Age, a.Kind, a.Fixed, a.Vaccinated,
			a.IntakeDate, a.AdopterID, a.AdoptionDate,
		)
		if err != nil {
			if _, ok := violation(err, pgErrForeignKeyViolation); ok && a.AdopterID != nil {
				return apperror.NotFound(repository.EntityUser, *a.AdopterID)
			}
			return fmt.Errorf("postgres: updating animal %s: %w", id, err)
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

func (r *AnimalDB) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fosters WHERE animal_id = $1`, id); err != nil {
			return fmt.Errorf("postgres: deleting fosters of animal %s: %w", id, err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM animals WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("postgres: deleting animal %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("postgres: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFound(repository.EntityAnimal, id)
		}
		return nil
	})
}
