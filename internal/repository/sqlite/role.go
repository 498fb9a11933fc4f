package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/model"
	"github.com/sakif/videohub/internal/repository"
)

var _ repository.RoleRepository = (*RoleStore)(nil)

// RoleStore persists role assignments.
type RoleStore struct {
	conn *sql.DB
}

// Create inserts a per-account assignment. A second assignment for the same
// (user, account) pair is a conflict.
func (s *RoleStore) Create(ctx context.Context, assignment *model.RoleAssignment) error {
	assignment.ID = xid.New().String()
	assignment.CreatedAt = time.Now().UTC()

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO role_assignments (id, user_id, account_id, role, is_global_admin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		assignment.ID,
		assignment.UserID,
		assignment.AccountID,
		assignment.Role,
		assignment.IsGlobalAdmin,
		assignment.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user already has a role on this account")
		}
		return fmt.Errorf("sqlite: inserting role assignment for %s: %w", assignment.UserID, err)
	}
	return nil
}

// EnsureGlobalOwner writes the global-owner sentinel for userID unless one
// already exists. The partial unique index on (user_id) WHERE account_id IS
// NULL makes the insert a no-op on repeat calls, including concurrent ones.
func (s *RoleStore) EnsureGlobalOwner(ctx context.Context, userID string) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO role_assignments (id, user_id, account_id, role, is_global_admin, created_at)
		 VALUES (?, ?, NULL, ?, 1, ?)`,
		xid.New().String(),
		userID,
		model.AccountRoleOwner,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: ensuring global owner for %s: %w", userID, err)
	}
	return nil
}

// Get returns the assignment userID holds on accountID.
func (s *RoleStore) Get(ctx context.Context, userID, accountID string) (*model.RoleAssignment, error) {
	var (
		r          model.RoleAssignment
		accountCol sql.NullString
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, user_id, account_id, role, is_global_admin, created_at
		 FROM role_assignments WHERE user_id = ? AND account_id = ?`,
		userID, accountID,
	).Scan(&r.ID, &r.UserID, &accountCol, &r.Role, &r.IsGlobalAdmin, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("role assignment", userID+"@"+accountID)
		}
		return nil, fmt.Errorf("sqlite: getting role for %s on %s: %w", userID, accountID, err)
	}
	if accountCol.Valid {
		r.AccountID = &accountCol.String
	}
	return &r, nil
}

// HasGlobalOwner reports whether userID holds the sentinel.
func (s *RoleStore) HasGlobalOwner(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.conn.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM role_assignments
			WHERE user_id = ? AND account_id IS NULL AND role = ? AND is_global_admin = 1
		)`,
		userID, model.AccountRoleOwner,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking global owner for %s: %w", userID, err)
	}
	return exists, nil
}

// ListByUser returns every assignment the user holds, sentinel included.
func (s *RoleStore) ListByUser(ctx context.Context, userID string) ([]model.RoleAssignment, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, user_id, account_id, role, is_global_admin, created_at
		 FROM role_assignments WHERE user_id = ?
		 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing roles for %s: %w", userID, err)
	}
	defer rows.Close()

	var assignments []model.RoleAssignment
	for rows.Next() {
		var (
			r          model.RoleAssignment
			accountCol sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.UserID, &accountCol, &r.Role, &r.IsGlobalAdmin, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning role row: %w", err)
		}
		if accountCol.Valid {
			id := accountCol.String
			r.AccountID = &id
		}
		assignments = append(assignments, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating role rows: %w", err)
	}
	return assignments, nil
}

// ListEditors returns the editor roster of an account, oldest first.
func (s *RoleStore) ListEditors(ctx context.Context, accountID string) ([]model.Editor, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT u.id, u.email, u.name, r.role, r.created_at
		 FROM role_assignments r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.account_id = ? AND r.role = ?
		 ORDER BY r.created_at`,
		accountID, model.AccountRoleEditor,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing editors for %s: %w", accountID, err)
	}
	defer rows.Close()

	editors := []model.Editor{}
	for rows.Next() {
		var e model.Editor
		if err := rows.Scan(&e.UserID, &e.Email, &e.Name, &e.Role, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning editor row: %w", err)
		}
		editors = append(editors, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating editor rows: %w", err)
	}
	return editors, nil
}

// DeleteEditor removes an editor assignment. Owner rows are never touched.
func (s *RoleStore) DeleteEditor(ctx context.Context, userID, accountID string) error {
	result, err := s.conn.ExecContext(ctx,
		`DELETE FROM role_assignments WHERE user_id = ? AND account_id = ? AND role = ?`,
		userID, accountID, model.AccountRoleEditor,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting editor %s from %s: %w", userID, accountID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("editor", userID)
	}
	return nil
}
