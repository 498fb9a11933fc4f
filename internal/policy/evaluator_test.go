package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/model"
)

// =========================================================================
// FAKE STORE
// =========================================================================

// fakeStore is an in-memory AccountRepository and RoleRepository.
type fakeStore struct {
	accounts map[string]*model.Account
	roles    []model.RoleAssignment
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: make(map[string]*model.Account)}
}

func (f *fakeStore) addAccount(id, name, ownerID string) *model.Account {
	a := &model.Account{ID: id, Name: name, OwnerID: ownerID}
	f.accounts[id] = a
	f.assign(ownerID, id, model.AccountRoleOwner)
	return a
}

func (f *fakeStore) assign(userID, accountID string, role model.AccountRole) {
	acc := accountID
	f.roles = append(f.roles, model.RoleAssignment{UserID: userID, AccountID: &acc, Role: role})
}

func (f *fakeStore) CreateWithOwner(_ context.Context, a *model.Account, owner *model.RoleAssignment) error {
	f.accounts[a.ID] = a
	f.assign(a.OwnerID, a.ID, model.AccountRoleOwner)
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*model.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.accounts[id]
	if !ok {
		return nil, apperror.NotFound("account", id)
	}
	return a, nil
}

func (f *fakeStore) ListOwnedOrAuthorizedBy(_ context.Context, userID string) ([]model.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Account
	for _, a := range f.accounts {
		if a.OwnerID == userID || a.AuthorizedBy == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListForMember(_ context.Context, userID string) ([]model.AccessibleAccount, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.AccessibleAccount
	for _, r := range f.roles {
		if r.UserID != userID || r.AccountID == nil {
			continue
		}
		out = append(out, model.AccessibleAccount{Account: *f.accounts[*r.AccountID], ViewerRole: r.Role})
	}
	return out, nil
}

func (f *fakeStore) UpdateCredentials(context.Context, *model.Account) error { return nil }

func (f *fakeStore) Create(_ context.Context, r *model.RoleAssignment) error {
	f.roles = append(f.roles, *r)
	return nil
}

func (f *fakeStore) EnsureGlobalOwner(_ context.Context, userID string) error {
	for _, r := range f.roles {
		if r.UserID == userID && r.IsSentinel() {
			return nil
		}
	}
	f.roles = append(f.roles, model.RoleAssignment{UserID: userID, Role: model.AccountRoleOwner, IsGlobalAdmin: true})
	return nil
}

func (f *fakeStore) Get(_ context.Context, userID, accountID string) (*model.RoleAssignment, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.roles {
		if r.UserID == userID && r.AccountID != nil && *r.AccountID == accountID {
			return &r, nil
		}
	}
	return nil, apperror.NotFound("role assignment", userID)
}

func (f *fakeStore) HasGlobalOwner(_ context.Context, userID string) (bool, error) {
	for _, r := range f.roles {
		if r.UserID == userID && r.IsSentinel() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListByUser(context.Context, string) ([]model.RoleAssignment, error) {
	return f.roles, nil
}

func (f *fakeStore) ListEditors(context.Context, string) ([]model.Editor, error) { return nil, nil }

func (f *fakeStore) DeleteEditor(context.Context, string, string) error { return nil }

var (
	admin1  = model.Identity{UserID: "google:u1", Role: model.RoleAdmin, Email: "u1@example.com"}
	admin2  = model.Identity{UserID: "google:u3", Role: model.RoleAdmin, Email: "u3@example.com"}
	editor2 = model.Identity{UserID: "local:u2", Role: model.RoleUser, Email: "u2@example.com"}
	nobody  = model.Identity{UserID: "local:u9", Role: model.RoleUser, Email: "u9@example.com"}
)

// =========================================================================
// VISIBILITY TESTS
// =========================================================================

// An admin who created an account sees it as owner.
func TestListAccessibleAccounts_AdminOwner(t *testing.T) {
	store := newFakeStore()
	store.addAccount("a1", "Channel A", admin1.UserID)
	e := NewEvaluator(store, store)

	accounts, err := e.ListAccessibleAccounts(context.Background(), admin1)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Channel A", accounts[0].Name)
	assert.Equal(t, model.AccountRoleOwner, accounts[0].ViewerRole)
}

// Admins see owned or authorized accounts and never accounts they only edit.
func TestListAccessibleAccounts_AdminIgnoresEditorRoles(t *testing.T) {
	store := newFakeStore()
	store.addAccount("own", "Own", admin1.UserID)
	authorized := store.addAccount("auth", "Authorized", admin2.UserID)
	authorized.AuthorizedBy = admin1.UserID
	store.addAccount("edit", "Edited", admin2.UserID)
	store.assign(admin1.UserID, "edit", model.AccountRoleEditor)
	e := NewEvaluator(store, store)

	accounts, err := e.ListAccessibleAccounts(context.Background(), admin1)
	require.NoError(t, err)

	names := map[string]model.AccountRole{}
	for _, a := range accounts {
		names[a.Name] = a.ViewerRole
	}
	assert.Equal(t, map[string]model.AccountRole{
		"Own":        model.AccountRoleOwner,
		"Authorized": model.AccountRoleOwner,
	}, names)
}

// An editor sees the account tagged as editor and cannot publish.
func TestListAccessibleAccounts_NonAdminFromAssignments(t *testing.T) {
	store := newFakeStore()
	account := store.addAccount("a1", "Channel A", admin1.UserID)
	store.assign(editor2.UserID, "a1", model.AccountRoleEditor)
	e := NewEvaluator(store, store)
	ctx := context.Background()

	accounts, err := e.ListAccessibleAccounts(ctx, editor2)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Channel A", accounts[0].Name)
	assert.Equal(t, model.AccountRoleEditor, accounts[0].ViewerRole)

	canPublish, err := e.CanPublish(ctx, editor2, account)
	require.NoError(t, err)
	assert.False(t, canPublish)

	canManage, err := e.CanManageEditors(ctx, editor2, account)
	require.NoError(t, err)
	assert.False(t, canManage)
}

func TestListAccessibleAccounts_NoAssignmentsIsEmpty(t *testing.T) {
	store := newFakeStore()
	store.addAccount("a1", "Channel A", admin1.UserID)
	e := NewEvaluator(store, store)

	accounts, err := e.ListAccessibleAccounts(context.Background(), nobody)
	require.NoError(t, err)
	assert.NotNil(t, accounts)
	assert.Empty(t, accounts)
}

func TestListAccessibleAccounts_StorageError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("disk on fire")
	e := NewEvaluator(store, store)

	_, err := e.ListAccessibleAccounts(context.Background(), editor2)
	assert.Error(t, err)
}

// =========================================================================
// ACCOUNT ROLE TESTS
// =========================================================================

func TestCanAccessAccount(t *testing.T) {
	store := newFakeStore()
	account := store.addAccount("a1", "Channel A", admin1.UserID)
	store.assign(editor2.UserID, "a1", model.AccountRoleEditor)
	store.assign(admin2.UserID, "a1", model.AccountRoleEditor)
	e := NewEvaluator(store, store)

	tests := []struct {
		name string
		id   model.Identity
		want model.AccountRole
	}{
		{"owning admin", admin1, model.AccountRoleOwner},
		{"admin holding only an editor assignment", admin2, ""},
		{"editor", editor2, model.AccountRoleEditor},
		{"stranger", nobody, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.CanAccessAccount(context.Background(), tt.id, account)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanPublish_Owner(t *testing.T) {
	store := newFakeStore()
	account := store.addAccount("a1", "Channel A", admin1.UserID)
	e := NewEvaluator(store, store)

	ok, err := e.CanPublish(context.Background(), admin1, account)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRequireAccount(t *testing.T) {
	store := newFakeStore()
	store.addAccount("a1", "Channel A", admin1.UserID)
	e := NewEvaluator(store, store)
	ctx := context.Background()

	got, err := e.RequireAccount(ctx, admin1, "a1")
	require.NoError(t, err)
	assert.Equal(t, model.AccountRoleOwner, got.ViewerRole)

	_, err = e.RequireAccount(ctx, admin1, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = e.RequireAccount(ctx, nobody, "a1")
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

// =========================================================================
// REVIEW TESTS
// =========================================================================

// The uploader-editor cannot review, the owner can.
func TestCanReview(t *testing.T) {
	store := newFakeStore()
	store.addAccount("a1", "Channel A", admin1.UserID)
	store.assign(editor2.UserID, "a1", model.AccountRoleEditor)
	e := NewEvaluator(store, store)
	ctx := context.Background()

	video := &model.Video{ID: "v1", AccountID: "a1", UploadedBy: editor2.UserID, Status: model.StatusPending}

	ok, err := e.CanReview(ctx, editor2, video)
	require.NoError(t, err)
	assert.False(t, ok, "editor must not review")

	ok, err = e.CanReview(ctx, admin1, video)
	require.NoError(t, err)
	assert.True(t, ok, "owner must review")
}

func TestCanReview_GlobalOwnerSentinel(t *testing.T) {
	store := newFakeStore()
	store.addAccount("a1", "Channel A", admin1.UserID)
	e := NewEvaluator(store, store)
	ctx := context.Background()
	video := &model.Video{ID: "v1", AccountID: "a1"}

	ok, err := e.CanReview(ctx, admin2, video)
	require.NoError(t, err)
	assert.False(t, ok, "admin without sentinel or ownership")

	require.NoError(t, store.EnsureGlobalOwner(ctx, admin2.UserID))

	ok, err = e.CanReview(ctx, admin2, video)
	require.NoError(t, err)
	assert.True(t, ok, "sentinel holder")
}

// Every identity that is neither an owner on the account nor a sentinel
// holder is refused.
func TestCanReview_DeniedForEveryNonOwner(t *testing.T) {
	store := newFakeStore()
	store.addAccount("a1", "Channel A", admin1.UserID)
	store.addAccount("a2", "Channel B", admin2.UserID)
	store.assign(editor2.UserID, "a1", model.AccountRoleEditor)
	e := NewEvaluator(store, store)
	video := &model.Video{ID: "v1", AccountID: "a1"}

	for _, id := range []model.Identity{admin2, editor2, nobody} {
		ok, err := e.CanReview(context.Background(), id, video)
		require.NoError(t, err)
		assert.False(t, ok, "identity %s", id.UserID)
	}
}

func TestCanViewVideos(t *testing.T) {
	store := newFakeStore()
	account := store.addAccount("a1", "Channel A", admin1.UserID)
	store.assign(editor2.UserID, "a1", model.AccountRoleEditor)
	ctx := context.Background()
	require.NoError(t, store.EnsureGlobalOwner(ctx, admin2.UserID))
	e := NewEvaluator(store, store)

	for _, tt := range []struct {
		id   model.Identity
		want bool
	}{
		{admin1, true},
		{editor2, true},
		{admin2, true}, // sentinel holder reviewing from outside
		{nobody, false},
	} {
		ok, err := e.CanViewVideos(ctx, tt.id, account)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, tt.id.UserID)
	}
}
