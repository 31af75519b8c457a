package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mehedi/linkloom/internal/apperror"
	"github.com/mehedi/linkloom/internal/model"
	"github.com/mehedi/linkloom/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// mapUniqueViolation translates SQLite's unique-constraint error into the
// domain's DuplicateError, attributed to the colliding column.
//
// Two concurrent registrations with the same username both pass the
// service-level pre-check; the UNIQUE index is what actually decides the
// race, and its loser must see the same DuplicateError as someone who
// picked a taken name outright — not a raw driver error.
//
// The driver exposes the violated index only in the message text
// ("UNIQUE constraint failed: users.username"), so matching on the text
// is the pragmatic option here.
func mapUniqueViolation(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	switch {
	case strings.Contains(msg, "users.username"):
		return apperror.Duplicate("username", "already taken")
	case strings.Contains(msg, "users.email"):
		return apperror.Duplicate("email", "already taken")
	}
	return apperror.Duplicate("", "already exists")
}

// CreateUser inserts a new user and fills in the generated ID and timestamps.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (username, email, password, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.Username,
		user.Email,
		user.Password,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("sqlite: inserting user %q: %w", user.Username, err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading new user id: %w", err)
	}
	return nil
}

const userColumns = `id, username, email, password, created_at, updated_at`

// scanUser reads one user row.
func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by primary key.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("id", "user not found")
		}
		return nil, fmt.Errorf("sqlite: getting user %d: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by their unique username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("username", "user not found")
		}
		return nil, fmt.Errorf("sqlite: getting user by username %q: %w", username, err)
	}
	return u, nil
}

// GetUserByEmail retrieves a user by their unique email address.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("email", "user not found")
		}
		return nil, fmt.Errorf("sqlite: getting user by email %q: %w", email, err)
	}
	return u, nil
}

// UpdateUserPassword replaces a user's password hash.
func (db *DB) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("id", "user not found")
	}
	return nil
}
