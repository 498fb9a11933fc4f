// Package policy decides who may see and act on accounts and videos.
//
// Every handler and service asks the Evaluator instead of querying role
// tables itself, so the rules below live in exactly one place:
//
//  1. Admins see the accounts they own or authorized a channel for, always
//     as owner. They never see accounts they merely edit.
//  2. Everyone else sees one entry per role assignment, with that
//     assignment's role.
//  3. Managing editors and publishing need the owner role on the account.
//  4. Reviewing needs an owner assignment on the video's account or the
//     global-owner sentinel.
package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/model"
	"github.com/sakif/videohub/internal/repository"
)

// Evaluator answers authorization questions from stored ownership and role
// assignments. It holds no state of its own.
type Evaluator struct {
	accounts repository.AccountRepository
	roles    repository.RoleRepository
}

func NewEvaluator(accounts repository.AccountRepository, roles repository.RoleRepository) *Evaluator {
	return &Evaluator{accounts: accounts, roles: roles}
}

// CanAccessAccount returns the caller's viewer role on account, or "" when
// the caller has no access.
func (e *Evaluator) CanAccessAccount(ctx context.Context, id model.Identity, account *model.Account) (model.AccountRole, error) {
	if id.IsAdmin() {
		if account.OwnerID == id.UserID || account.AuthorizedBy == id.UserID {
			return model.AccountRoleOwner, nil
		}
		return "", nil
	}

	assignment, err := e.roles.Get(ctx, id.UserID, account.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("policy: loading role for %s on %s: %w", id.UserID, account.ID, err)
	}
	return assignment.Role, nil
}

// ListAccessibleAccounts returns every account the caller can see, each
// tagged with the caller's viewer role. No access yields an empty slice.
func (e *Evaluator) ListAccessibleAccounts(ctx context.Context, id model.Identity) ([]model.AccessibleAccount, error) {
	result := []model.AccessibleAccount{}

	if id.IsAdmin() {
		accounts, err := e.accounts.ListOwnedOrAuthorizedBy(ctx, id.UserID)
		if err != nil {
			return nil, fmt.Errorf("policy: listing admin accounts: %w", err)
		}
		for _, a := range accounts {
			result = append(result, model.AccessibleAccount{Account: a, ViewerRole: model.AccountRoleOwner})
		}
		return result, nil
	}

	accounts, err := e.accounts.ListForMember(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("policy: listing member accounts: %w", err)
	}
	return append(result, accounts...), nil
}

// CanManageEditors reports whether the caller may add, remove or list the
// editors of account.
func (e *Evaluator) CanManageEditors(ctx context.Context, id model.Identity, account *model.Account) (bool, error) {
	return e.isOwner(ctx, id, account)
}

// CanPublish reports whether the caller may connect a channel to account
// and trigger uploads to it.
func (e *Evaluator) CanPublish(ctx context.Context, id model.Identity, account *model.Account) (bool, error) {
	return e.isOwner(ctx, id, account)
}

// CanReview reports whether the caller may approve or reject video. This
// is the only check that consults the global-owner sentinel.
func (e *Evaluator) CanReview(ctx context.Context, id model.Identity, video *model.Video) (bool, error) {
	assignment, err := e.roles.Get(ctx, id.UserID, video.AccountID)
	switch {
	case err == nil:
		if assignment.Role == model.AccountRoleOwner {
			return true, nil
		}
	case !errors.Is(err, apperror.ErrNotFound):
		return false, fmt.Errorf("policy: loading role for %s on %s: %w", id.UserID, video.AccountID, err)
	}

	ok, err := e.roles.HasGlobalOwner(ctx, id.UserID)
	if err != nil {
		return false, fmt.Errorf("policy: checking global owner: %w", err)
	}
	return ok, nil
}

// CanViewVideos reports whether the caller may list and read the videos
// of account: any viewer role, or the right to review them.
func (e *Evaluator) CanViewVideos(ctx context.Context, id model.Identity, account *model.Account) (bool, error) {
	role, err := e.CanAccessAccount(ctx, id, account)
	if err != nil {
		return false, err
	}
	if role != "" {
		return true, nil
	}
	return e.CanReview(ctx, id, &model.Video{AccountID: account.ID})
}

// RequireAccount loads accountID and returns it with the caller's viewer
// role. A missing account is ErrNotFound; no role is ErrForbidden.
func (e *Evaluator) RequireAccount(ctx context.Context, id model.Identity, accountID string) (*model.AccessibleAccount, error) {
	account, err := e.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	role, err := e.CanAccessAccount(ctx, id, account)
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, apperror.AccessDenied("no access to this account")
	}
	return &model.AccessibleAccount{Account: *account, ViewerRole: role}, nil
}

func (e *Evaluator) isOwner(ctx context.Context, id model.Identity, account *model.Account) (bool, error) {
	role, err := e.CanAccessAccount(ctx, id, account)
	if err != nil {
		return false, err
	}
	return role == model.AccountRoleOwner, nil
}
