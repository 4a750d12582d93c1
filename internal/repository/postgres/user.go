package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/buddy-system/internal/apperror"
	"github.com/sakif/buddy-system/internal/model"
	"github.com/sakif/buddy-system/internal/repository"
)

type UserDB struct {
	conn *sql.DB
}

var _ repository.UserRepository = (*UserDB)(nil)

const userColumns = `id, username, email, password_hash, created_at`

func scanUser(s rowScanner, u *model.User) error {
	return s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
}

// duplicateUser maps a unique violation to DuplicateValue by constraint name.
// It returns nil for any other error.
func duplicateUser(err error, u *model.User) *apperror.AppError {
	constraint, ok := violation(err, pgErrUniqueViolation)
	if !ok {
		return nil
	}
	switch constraint {
	case "users_username_key":
		return apperror.DuplicateValue(repository.EntityUser, repository.UserFieldUsername, u.Username)
	case "users_email_key":
		return apperror.DuplicateValue(repository.EntityUser, repository.UserFieldEmail, u.Email)
	}
	return nil
}

func (r *UserDB) Create(ctx context.Context, u *model.User) error {
	u.ID = xid.New().String()
	u.CreatedAt = time.Now().UTC()

	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if dup := duplicateUser(err, u); dup != nil {
			return dup
		}
		return fmt.Errorf("postgres: inserting user %q: %w", u.Username, err)
	}
	return nil
}

func (r *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return getUser(ctx, r.conn, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return getUser(ctx, r.conn, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func getUser(ctx context.Context, q querier, query, key string) (*model.User, error) {
	var u model.User
	err := scanUser(q.QueryRowContext(ctx, query, key), &u)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound(repository.EntityUser, key)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: getting user %s: %w", key, err)
	}
	return &u, nil
}

func (r *UserDB) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.conn.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("postgres: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating users: %w", err)
	}
	return users, nil
}

func (r *UserDB) ExistsByField(ctx context.Context, field, value, excludeID string) (bool, error) {
	var query string
	switch field {
	case repository.UserFieldUsername:
		query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2)`
	case repository.UserFieldEmail:
		query = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`
	default:
		return false, fmt.Errorf("postgres: unknown user field %q", field)
	}

	var found bool
	if err := r.conn.QueryRowContext(ctx, query, value, excludeID).Scan(&found); err != nil {
		return false, fmt.Errorf("postgres: checking user %s: %w", field, err)
	}
	return found, nil
}

func (r *UserDB) Update(ctx context.Context, id string, mutate repository.Mutator[model.User]) (*model.User, error) {
	var updated *model.User

	err := withTx(ctx, r.conn, func(tx *sql.Tx) error {
		u, err := getUser(ctx, tx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		if err := mutate(u); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET username = $2, email = $3, password_hash = $4 WHERE id = $1`,
			id, u.Username, u.Email, u.PasswordHash,
		)
		if err != nil {
			if dup := duplicateUser(err, u); dup != nil {
				return dup
			}
			return fmt.Errorf("postgres: updating user %s: %w", id, err)
		}

		u.ID = id
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the user with their fosters and un-adopts their pets.
func (r *UserDB) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fosters WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("postgres: deleting fosters of user %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE animals SET adopter_id = NULL, adoption_date = NULL WHERE adopter_id = $1`, id,
		); err != nil {
			return fmt.Errorf("postgres: clearing adoptions of user %s: %w", id, err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("postgres: deleting user %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("postgres: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFound(repository.EntityUser, id)
		}
		return nil
	})
}
