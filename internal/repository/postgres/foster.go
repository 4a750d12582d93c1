package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/buddy-system/internal/apperror"
	"github.com/sakif/buddy-system/internal/model"
	"github.com/sakif/buddy-system/internal/repository"
)

type FosterDB struct {
	conn *sql.DB
}

var _ repository.FosterRepository = (*FosterDB)(nil)

func (r *FosterDB) Create(ctx context.Context, f *model.Foster) error {
	return withTx(ctx, r.conn, func(tx *sql.Tx) error {
		var userOK, animalOK bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM users WHERE id = $1),
			       EXISTS (SELECT 1 FROM animals WHERE id = $2)
		`, f.UserID, f.AnimalID).Scan(&userOK, &animalOK)
		if err != nil {
			return fmt.Errorf("postgres: checking foster references: %w", err)
		}
		if !userOK {
			return apperror.NotFound(repository.EntityUser, f.UserID)
		}
		if !animalOK {
			return apperror.NotFound(repository.EntityAnimal, f.AnimalID)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO fosters (user_id, animal_id, start_date, end_date)
			VALUES ($1,$2,$3,$4)
		`, f.UserID, f.AnimalID, f.StartDate, f.EndDate)
		if err != nil {
			if _, dup := violation(err, pgErrUniqueViolation); dup {
				return apperror.DuplicateValue(repository.EntityFoster, "animal_id", f.AnimalID)
			}
			return fmt.Errorf("postgres: inserting foster (%s, %s): %w", f.UserID, f.AnimalID, err)
		}
		return nil
	})
}

func (r *FosterDB) ListByUser(ctx context.Context, userID string) ([]model.FosterView, error) {
	rows, err := r.conn.QueryContext(ctx, `
		SELECT a.id, a.name, a.age, a.kind, a.fixed, a.vaccinated, a.intake_date,
		       a.adopter_id, a.adoption_date, f.start_date, f.end_date
		FROM fosters f
		JOIN animals a ON a.id = f.animal_id
		WHERE f.user_id = $1
		ORDER BY f.start_date, a.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing fosters of user %s: %w", userID, err)
	}
	defer rows.Close()

	views := make([]model.FosterView, 0)
	for rows.Next() {
		var v model.FosterView
		a := &v.Animal
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Age, &a.Kind, &a.Fixed, &a.Vaccinated, &a.IntakeDate,
			&a.AdopterID, &a.AdoptionDate, &v.StartDate, &v.EndDate,
		); err != nil {
			return nil, fmt.Errorf("postgres: scanning foster row: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating fosters: %w", err)
	}
	return views, nil
}

func (r *FosterDB) ListByAnimal(ctx context.Context, animalID string) ([]model.Foster, error) {
	rows, err := r.conn.QueryContext(ctx, `
		SELECT user_id, animal_id, start_date, end_date
		FROM fosters WHERE animal_id = $1
		ORDER BY start_date, user_id
	`, animalID)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing fosters of animal %s: %w", animalID, err)
	}
	defer rows.Close()

	fosters := make([]model.Foster, 0)
	for rows.Next() {
		var f model.Foster
		if err := rows.Scan(&f.UserID, &f.AnimalID, &f.StartDate, &f.EndDate); err != nil {
			return nil, fmt.Errorf("postgres: scanning foster row: %w", err)
		}
		fosters = append(fosters, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating fosters: %w", err)
	}
	return fosters, nil
}
