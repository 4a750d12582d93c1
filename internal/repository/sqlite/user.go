package sqlite

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

// UserDB implements repository.UserRepository.
type UserDB struct {
	conn *sql.DB
}

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

const userColumns = `id, username, email, password_hash, created_at`

func scanUser(s rowScanner, u *model.User) error {
	return s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
}

// duplicateUser turns a UNIQUE violation on users into apperror.DuplicateValue.
// It returns nil for any other error.
func duplicateUser(err error, u *model.User) *apperror.AppError {
	col, ok := uniqueColumn(err)
	if !ok {
		return nil
	}
	switch col {
	case "users.username":
		return apperror.DuplicateValue(repository.EntityUser, repository.UserFieldUsername, u.Username)
	case "users.email":
		return apperror.DuplicateValue(repository.EntityUser, repository.UserFieldEmail, u.Email)
	}
	return nil
}

// Create generates an ID, stamps CreatedAt and inserts the user.
// The caller must have hashed the password already.
func (r *UserDB) Create(ctx context.Context, u *model.User) error {
	u.ID = xid.New().String()
	u.CreatedAt = time.Now().UTC()

	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)`,
		u.ID,
		u.Username,
		u.Email,
		u.PasswordHash,
		u.CreatedAt,
	)
	if err != nil {
		if dup := duplicateUser(err, u); dup != nil {
			return dup
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", u.Username, err)
	}

	return nil
}

// GetByID retrieves a user by ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (r *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	return getUser(ctx, r.conn, `id`, id)
}

// GetByUsername is the login lookup.
func (r *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return getUser(ctx, r.conn, `username`, username)
}

// getUser loads a user by a unique column. column is a constant.
func getUser(ctx context.Context, q querier, column, value string) (*model.User, error) {
	var u model.User

	err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value,
	), &u)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(repository.EntityUser, value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}

	return &u, nil
}

// List returns all users in creation order.
func (r *UserDB) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.conn.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// ExistsByField reports whether another user already holds value in field.
func (r *UserDB) ExistsByField(ctx context.Context, field, value, excludeID string) (bool, error) {
	var query string
	switch field {
	case repository.UserFieldUsername:
		query = `SELECT COUNT(*) FROM users WHERE username = ? AND id <> ?`
	case repository.UserFieldEmail:
		query = `SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?`
	default:
		return false, fmt.Errorf("sqlite: unknown user field %q", field)
	}

	var count int
	if err := r.conn.QueryRowContext(ctx, query, value, excludeID).Scan(&count); err != nil {
		return false, fmt.Errorf("sqlite: checking user %s: %w", field, err)
	}
	return count > 0, nil
}

// Update runs read → mutate → write in one transaction.
func (r *UserDB) Update(ctx context.Context, id string, mutate repository.Mutator[model.User]) (*model.User, error) {
	var updated *model.User

	err := withTx(ctx, r.conn, func(tx *sql.Tx) error {
		u, err := getUser(ctx, tx, `id`, id)
		if err != nil {
			return err
		}
		if err := mutate(u); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE users SET username = ?, email = ?, password_hash = ? WHERE id = ?`,
			u.Username,
			u.Email,
			u.PasswordHash,
			id,
		)
		if err != nil {
			if dup := duplicateUser(err, u); dup != nil {
				return dup
			}
			return fmt.Errorf("sqlite: updating user %s: %w", id, err)
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

// Delete removes the user. In the same transaction it deletes the user's
// fosters and un-adopts their pets, so no row is left pointing at a missing user.
func (r *UserDB) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM fosters WHERE user_id = ?`, id); err != nil {
			return fmt.Errorf("sqlite: deleting fosters of user %s: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE animals SET adopter_id = NULL, adoption_date = NULL WHERE adopter_id = ?`, id,
		); err != nil {
			return fmt.Errorf("sqlite: clearing adoptions of user %s: %w", id, err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperror.NotFound(repository.EntityUser, id)
		}
		return nil
	})
}
