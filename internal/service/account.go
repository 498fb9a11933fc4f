package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/model"
	"github.com/sakif/videohub/internal/policy"
	"github.com/sakif/videohub/internal/repository"
)

// AccountService manages accounts, their editors and their channel
// connection. Every check goes through the policy evaluator.
type AccountService struct {
	accounts repository.AccountRepository
	roles    repository.RoleRepository
	users    repository.UserRepository
	policy   *policy.Evaluator
	logger   *slog.Logger
}

func NewAccountService(
	accounts repository.AccountRepository,
	roles repository.RoleRepository,
	users repository.UserRepository,
	evaluator *policy.Evaluator,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		roles:    roles,
		users:    users,
		policy:   evaluator,
		logger:   logger,
	}
}

type CreateAccountInput struct {
	Name      string `json:"name" validate:"required,max=100"`
	ChannelID string `json:"channelId" validate:"max=64"`
}

type AddEditorInput struct {
	Email string `json:"email" validate:"required,email"`
}

// Create makes the caller the owner of a new account. The account row and
// the owner assignment are written in one transaction.
func (s *AccountService) Create(ctx context.Context, id model.Identity, in CreateAccountInput) (*model.AccessibleAccount, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	account := &model.Account{
		Name:      in.Name,
		ChannelID: in.ChannelID,
		OwnerID:   id.UserID,
	}
	if err := s.accounts.CreateWithOwner(ctx, account, &model.RoleAssignment{}); err != nil {
		return nil, fmt.Errorf("service/account: creating account: %w", err)
	}

	s.logger.Info("account created",
		slog.String("account_id", account.ID),
		slog.String("owner_id", id.UserID),
	)
	return &model.AccessibleAccount{Account: *account, ViewerRole: model.AccountRoleOwner}, nil
}

func (s *AccountService) List(ctx context.Context, id model.Identity) ([]model.AccessibleAccount, error) {
	return s.policy.ListAccessibleAccounts(ctx, id)
}

func (s *AccountService) Get(ctx context.Context, id model.Identity, accountID string) (*model.AccessibleAccount, error) {
	return s.policy.RequireAccount(ctx, id, accountID)
}

// AddEditor grants the editor role to an existing user, found by email.
func (s *AccountService) AddEditor(ctx context.Context, id model.Identity, accountID string, in AddEditorInput) (*model.Editor, error) {
	account, err := s.requireEditorManager(ctx, id, accountID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.NotFound("user", in.Email)
		}
		return nil, fmt.Errorf("service/account: looking up %s: %w", in.Email, err)
	}
	if user.ID == account.OwnerID {
		return nil, apperror.Conflict("the account owner cannot be added as an editor")
	}

	assignment := &model.RoleAssignment{
		UserID:    user.ID,
		AccountID: &account.ID,
		Role:      model.AccountRoleEditor,
	}
	if err := s.roles.Create(ctx, assignment); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: adding editor: %w", err)
	}

	s.logger.Info("editor added",
		slog.String("account_id", account.ID),
		slog.String("user_id", user.ID),
		slog.String("added_by", id.UserID),
	)
	return &model.Editor{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Role:    model.AccountRoleEditor,
		AddedAt: assignment.CreatedAt,
	}, nil
}

func (s *AccountService) RemoveEditor(ctx context.Context, id model.Identity, accountID, userID string) error {
	if _, err := s.requireEditorManager(ctx, id, accountID); err != nil {
		return err
	}

	if err := s.roles.DeleteEditor(ctx, userID, accountID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/account: removing editor: %w", err)
	}

	s.logger.Info("editor removed",
		slog.String("account_id", accountID),
		slog.String("user_id", userID),
		slog.String("removed_by", id.UserID),
	)
	return nil
}

func (s *AccountService) ListEditors(ctx context.Context, id model.Identity, accountID string) ([]model.Editor, error) {
	if _, err := s.requireEditorManager(ctx, id, accountID); err != nil {
		return nil, err
	}
	return s.roles.ListEditors(ctx, accountID)
}

// RequirePublisher checks that the caller may connect a channel to the
// account, before the browser is sent to Google.
func (s *AccountService) RequirePublisher(ctx context.Context, id model.Identity, accountID string) (*model.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	ok, err := s.policy.CanPublish(ctx, id, account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.AccessDenied("only owners may publish")
	}
	return account, nil
}

// ConnectChannel stores channel credentials obtained by the caller.
func (s *AccountService) ConnectChannel(ctx context.Context, id model.Identity, accountID, channelID string, creds model.ChannelCredentials) (*model.Account, error) {
	account, err := s.RequirePublisher(ctx, id, accountID)
	if err != nil {
		return nil, err
	}

	if channelID != "" {
		account.ChannelID = channelID
	}
	account.Credentials = &creds
	account.AuthorizedBy = id.UserID

	if err := s.accounts.UpdateCredentials(ctx, account); err != nil {
		return nil, fmt.Errorf("service/account: storing channel credentials: %w", err)
	}

	s.logger.Info("channel connected",
		slog.String("account_id", account.ID),
		slog.String("channel_id", account.ChannelID),
		slog.String("authorized_by", id.UserID),
	)
	return account, nil
}

func (s *AccountService) requireEditorManager(ctx context.Context, id model.Identity, accountID string) (*model.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	ok, err := s.policy.CanManageEditors(ctx, id, account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.AccessDenied("only owners may manage editors")
	}
	return account, nil
}
