package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/auth"
	"github.com/sakif/videohub/internal/model"
	"github.com/sakif/videohub/internal/repository"
)

// IdentityService turns verified principals into canonical identities and
// manages the users behind them.
type IdentityService struct {
	users     repository.UserRepository
	roles     repository.RoleRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewIdentityService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		users:     users,
		roles:     roles,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is a signed-in user plus the session token issued for them.
type AuthResult struct {
	User     *model.User
	Identity model.Identity
	Token    string
}

// CreateEditorInput provisions a password user.
type CreateEditorInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ResolveOAuth signs in a Google principal.
//
// Lookup order: external id, then email. A match by email is a password
// user linking Google for the first time; it keeps its local ID. Linking
// requires Google to have verified the address. Every
// Google sign-in leaves the user with the admin role and the global-owner
// sentinel.
func (s *IdentityService) ResolveOAuth(ctx context.Context, p *auth.Principal) (*AuthResult, error) {
	if p == nil || p.Subject == "" || p.Email == "" {
		return nil, apperror.AuthenticationFailed()
	}

	user, err := s.users.GetByExternalID(ctx, p.Subject)
	switch {
	case err == nil:
		user.Name = p.Name
		user.AvatarURL = p.AvatarURL
		user.Role = model.RoleAdmin
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("service/identity: refreshing user %s: %w", user.ID, err)
		}

	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.linkOrCreate(ctx, p)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("service/identity: looking up external id: %w", err)
	}

	if err := s.roles.EnsureGlobalOwner(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("service/identity: ensuring global owner for %s: %w", user.ID, err)
	}

	s.logger.Info("user signed in with google",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return s.issue(user)
}

func (s *IdentityService) linkOrCreate(ctx context.Context, p *auth.Principal) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, p.Email)
	switch {
	case err == nil:
		if !p.EmailVerified {
			s.logger.Warn("refused to link google account with unverified email",
				slog.String("user_id", user.ID),
				slog.String("subject", p.Subject),
			)
			return nil, apperror.AuthenticationFailed()
		}
		user.ExternalID = p.Subject
		user.Role = model.RoleAdmin
		if user.Name == "" {
			user.Name = p.Name
		}
		if user.AvatarURL == "" {
			user.AvatarURL = p.AvatarURL
		}
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("service/identity: linking google account to %s: %w", user.ID, err)
		}
		s.logger.Warn("linked google account to existing user and promoted to admin",
			slog.String("user_id", user.ID),
			slog.String("origin", string(user.Origin)),
		)
		return user, nil

	case errors.Is(err, apperror.ErrNotFound):
		user = &model.User{
			ID:         model.ExternalRef(p.Subject).String(),
			ExternalID: p.Subject,
			Email:      p.Email,
			Name:       p.Name,
			AvatarURL:  p.AvatarURL,
			Role:       model.RoleAdmin,
			Origin:     model.OriginOAuth,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("service/identity: creating user: %w", err)
		}
		return user, nil

	default:
		return nil, fmt.Errorf("service/identity: looking up email: %w", err)
	}
}

// LoginWithPassword signs in a password user. Unknown email, wrong origin
// and wrong password all produce the same AuthenticationFailed error.
func (s *IdentityService) LoginWithPassword(ctx context.Context, email, password string) (*AuthResult, error) {
	if email == "" || password == "" {
		return nil, apperror.AuthenticationFailed()
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.AuthenticationFailed()
		}
		return nil, fmt.Errorf("service/identity: looking up %s: %w", email, err)
	}

	if user.Origin != model.OriginPassword || user.PasswordHash == "" {
		return nil, apperror.AuthenticationFailed()
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash is unusable",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.AuthenticationFailed()
	}

	s.logger.Info("user signed in with password", slog.String("user_id", user.ID))
	return s.issue(user)
}

// Identify loads the identity behind a session token subject. The role is
// read from storage on every call.
func (s *IdentityService) Identify(ctx context.Context, userID string) (model.Identity, error) {
	if _, err := model.ParseUserRef(userID); err != nil {
		return model.Identity{}, apperror.AuthenticationFailed()
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.Identity{}, apperror.AuthenticationFailed()
		}
		return model.Identity{}, fmt.Errorf("service/identity: loading %s: %w", userID, err)
	}
	return model.IdentityOf(user), nil
}

// Profile is the caller's user record with every role assignment they
// hold, the global-owner sentinel included.
type Profile struct {
	*model.User
	Roles []model.RoleAssignment `json:"roles"`
}

// Me returns the caller's profile.
func (s *IdentityService) Me(ctx context.Context, id model.Identity) (*Profile, error) {
	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/identity: loading %s: %w", id.UserID, err)
	}

	roles, err := s.roles.ListByUser(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/identity: listing roles for %s: %w", id.UserID, err)
	}
	if roles == nil {
		roles = []model.RoleAssignment{}
	}
	return &Profile{User: user, Roles: roles}, nil
}

// CreateEditor lets an admin provision a password user with role user.
func (s *IdentityService) CreateEditor(ctx context.Context, caller model.Identity, in CreateEditorInput) (*model.User, error) {
	if !caller.IsAdmin() {
		return nil, apperror.AccessDenied("only admins may create users")
	}

	user, err := s.Provision(ctx, in, model.RoleUser)
	if err != nil {
		return nil, err
	}

	s.logger.Info("editor created",
		slog.String("user_id", user.ID),
		slog.String("created_by", caller.UserID),
	)
	return user, nil
}

// Provision creates a password user with the given role without a caller
// check. It backs CreateEditor and the create-editor CLI command. Admins
// get the global-owner sentinel like Google-created admins do.
func (s *IdentityService) Provision(ctx context.Context, in CreateEditorInput, role model.Role) (*model.User, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/identity: %w", err)
	}

	user := &model.User{
		ID:           model.NewLocalRef().String(),
		Email:        in.Email,
		Name:         in.Name,
		Role:         role,
		Origin:       model.OriginPassword,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/identity: creating %s: %w", in.Email, err)
	}

	if role == model.RoleAdmin {
		if err := s.roles.EnsureGlobalOwner(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("service/identity: ensuring global owner for %s: %w", user.ID, err)
		}
	}
	return user, nil
}

// DeleteUser removes a user and, through the schema, their role
// assignments. Accounts and videos stay.
func (s *IdentityService) DeleteUser(ctx context.Context, caller model.Identity, userID string) error {
	if !caller.IsAdmin() {
		return apperror.AccessDenied("only admins may delete users")
	}
	if userID == caller.UserID {
		return apperror.ValidationFailed("id", "admins cannot delete themselves")
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/identity: deleting %s: %w", userID, err)
	}

	s.logger.Info("user deleted",
		slog.String("user_id", userID),
		slog.String("deleted_by", caller.UserID),
	)
	return nil
}

func (s *IdentityService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/identity: generating token for %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Identity: model.IdentityOf(user), Token: token}, nil
}
