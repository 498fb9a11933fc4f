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

var _ repository.AccountRepository = (*AccountStore)(nil)

// AccountStore persists accounts and their channel credentials.
type AccountStore struct {
	conn *sql.DB
}

const accountColumns = `a.id, a.name, a.channel_id, a.owner_id, a.access_token, a.refresh_token, a.token_expiry, a.authorized_by, a.created_at, a.updated_at`

// CreateWithOwner inserts the account and the owner's role assignment in a
// single transaction. If either insert fails, neither row is kept.
//
// TRANSACTIONS:
//
//	tx, _ := db.BeginTx(ctx, nil)
//	defer tx.Rollback()   // no-op once Commit has succeeded
//	tx.ExecContext(...)
//	tx.Commit()
func (s *AccountStore) CreateWithOwner(ctx context.Context, account *model.Account, owner *model.RoleAssignment) error {
	now := time.Now().UTC()
	account.ID = xid.New().String()
	account.CreatedAt = now
	account.UpdatedAt = now

	owner.ID = xid.New().String()
	owner.UserID = account.OwnerID
	owner.AccountID = &account.ID
	owner.Role = model.AccountRoleOwner
	owner.CreatedAt = now

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning account transaction: %w", err)
	}
	defer tx.Rollback()

	access, refresh, expiry := credentialColumns(account.Credentials)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, name, channel_id, owner_id, access_token, refresh_token, token_expiry, authorized_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Name,
		account.ChannelID,
		account.OwnerID,
		access,
		refresh,
		expiry,
		nullString(account.AuthorizedBy),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting account %s: %w", account.ID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO role_assignments (id, user_id, account_id, role, is_global_admin, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		owner.ID,
		owner.UserID,
		account.ID,
		owner.Role,
		owner.IsGlobalAdmin,
		owner.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting owner assignment for account %s: %w", account.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing account %s: %w", account.ID, err)
	}
	return nil
}

// GetByID retrieves an account with its credentials.
func (s *AccountStore) GetByID(ctx context.Context, id string) (*model.Account, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.id = ?`, id)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", id)
		}
		return nil, fmt.Errorf("sqlite: getting account %s: %w", id, err)
	}
	return account, nil
}

// ListOwnedOrAuthorizedBy returns the accounts a user created or connected
// a channel for, newest first.
func (s *AccountStore) ListOwnedOrAuthorizedBy(ctx context.Context, userID string) ([]model.Account, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+accountColumns+`
		 FROM accounts a
		 WHERE a.owner_id = ? OR a.authorized_by = ?
		 ORDER BY a.created_at DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing accounts for %s: %w", userID, err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning account row: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating account rows: %w", err)
	}
	return accounts, nil
}

// ListForMember returns one entry per role assignment the user holds on an
// account, carrying the assignment's role. The sentinel row has no account
// and drops out of the join.
func (s *AccountStore) ListForMember(ctx context.Context, userID string) ([]model.AccessibleAccount, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+accountColumns+`, r.role
		 FROM role_assignments r
		 JOIN accounts a ON a.id = r.account_id
		 WHERE r.user_id = ?
		 ORDER BY a.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing memberships for %s: %w", userID, err)
	}
	defer rows.Close()

	var accounts []model.AccessibleAccount
	for rows.Next() {
		var role model.AccountRole
		account, err := scanAccount(rows, &role)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning membership row: %w", err)
		}
		accounts = append(accounts, model.AccessibleAccount{Account: *account, ViewerRole: role})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating membership rows: %w", err)
	}
	return accounts, nil
}

// UpdateCredentials stores the channel tokens, channel id and the user who
// authorized them.
func (s *AccountStore) UpdateCredentials(ctx context.Context, account *model.Account) error {
	account.UpdatedAt = time.Now().UTC()
	access, refresh, expiry := credentialColumns(account.Credentials)

	result, err := s.conn.ExecContext(ctx,
		`UPDATE accounts
		 SET channel_id = ?, access_token = ?, refresh_token = ?, token_expiry = ?, authorized_by = ?, updated_at = ?
		 WHERE id = ?`,
		account.ChannelID,
		access,
		refresh,
		expiry,
		nullString(account.AuthorizedBy),
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating credentials for account %s: %w", account.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("account", account.ID)
	}
	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner, extra ...any) (*model.Account, error) {
	var (
		a            model.Account
		access       sql.NullString
		refresh      sql.NullString
		expiry       sql.NullTime
		authorizedBy sql.NullString
	)
	dest := []any{
		&a.ID,
		&a.Name,
		&a.ChannelID,
		&a.OwnerID,
		&access,
		&refresh,
		&expiry,
		&authorizedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	a.AuthorizedBy = authorizedBy.String
	if access.Valid {
		a.Credentials = &model.ChannelCredentials{
			AccessToken:  access.String,
			RefreshToken: refresh.String,
			Expiry:       expiry.Time,
		}
	}
	return &a, nil
}

func credentialColumns(c *model.ChannelCredentials) (access, refresh sql.NullString, expiry sql.NullTime) {
	if c == nil {
		return
	}
	access = nullString(c.AccessToken)
	refresh = nullString(c.RefreshToken)
	expiry = sql.NullTime{Time: c.Expiry.UTC(), Valid: !c.Expiry.IsZero()}
	return
}
