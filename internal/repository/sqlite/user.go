package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/model"
	"github.com/sakif/videohub/internal/repository"
)

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore persists users.
type UserStore struct {
	conn *sql.DB
}

const userColumns = `id, external_id, email, name, avatar_url, role, origin, password_hash, created_at, updated_at`

// Create inserts a new user. The caller assigns user.ID (a UserRef string).
// A duplicate email or external id is reported as apperror.ErrConflict.
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		nullString(user.ExternalID),
		user.Email,
		user.Name,
		user.AvatarURL,
		user.Role,
		user.Origin,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("a user with email %s already exists", user.Email))
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a user by canonical ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row, "id", id)
}

// GetByExternalID retrieves a user by Google subject id.
func (s *UserStore) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = ?`, externalID)
	return scanUser(row, "external id", externalID)
}

// GetByEmail retrieves a user by email, ignoring case.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row, "email", email)
}

// Update rewrites the mutable profile fields. ID, Origin and CreatedAt
// never change.
func (s *UserStore) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := s.conn.ExecContext(ctx,
		`UPDATE users
		 SET external_id = ?, email = ?, name = ?, avatar_url = ?, role = ?, password_hash = ?, updated_at = ?
		 WHERE id = ?`,
		nullString(user.ExternalID),
		user.Email,
		user.Name,
		user.AvatarURL,
		user.Role,
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("a user with email %s already exists", user.Email))
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// Delete removes a user. Role assignments go with it (ON DELETE CASCADE);
// accounts and videos that reference the user are left alone.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	result, err := s.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

func scanUser(row *sql.Row, by, value string) (*model.User, error) {
	var (
		u          model.User
		externalID sql.NullString
	)
	err := row.Scan(
		&u.ID,
		&externalID,
		&u.Email,
		&u.Name,
		&u.AvatarURL,
		&u.Role,
		&u.Origin,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: getting user by %s %s: %w", by, value, err)
	}
	u.ExternalID = externalID.String
	return &u, nil
}
