// Package repository declares the storage contracts the services depend on.
// internal/repository/sqlite is the production implementation.
package repository

import (
	"context"

	"github.com/sakif/videohub/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository stores users. Create returns an apperror.ErrConflict
// error when the email is already taken.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

// AccountRepository stores accounts.
//
// CreateWithOwner writes the account and the owner's RoleAssignment
// atomically: either both rows exist afterwards or neither does.
type AccountRepository interface {
	CreateWithOwner(ctx context.Context, account *model.Account, owner *model.RoleAssignment) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	ListOwnedOrAuthorizedBy(ctx context.Context, userID string) ([]model.Account, error)
	ListForMember(ctx context.Context, userID string) ([]model.AccessibleAccount, error)
	UpdateCredentials(ctx context.Context, account *model.Account) error
}

// RoleRepository stores role assignments, including the global-owner
// sentinel.
type RoleRepository interface {
	Create(ctx context.Context, assignment *model.RoleAssignment) error
	EnsureGlobalOwner(ctx context.Context, userID string) error
	Get(ctx context.Context, userID, accountID string) (*model.RoleAssignment, error)
	HasGlobalOwner(ctx context.Context, userID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]model.RoleAssignment, error)
	ListEditors(ctx context.Context, accountID string) ([]model.Editor, error)
	DeleteEditor(ctx context.Context, userID, accountID string) error
}

// VideoRepository stores videos.
type VideoRepository interface {
	Create(ctx context.Context, video *model.Video) error
	GetByID(ctx context.Context, id string) (*model.Video, error)
	ListByAccount(ctx context.Context, accountID string, opts ListOptions) ([]model.Video, error)
	Update(ctx context.Context, video *model.Video) error
}
