package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/model"
)

// ===== ACCOUNT LIFECYCLE TESTS =====

func TestAccountCreate_OwnerSeesAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u1 := h.signInGoogle(t, "1001", "u1@example.com")

	created := h.createAccount(t, u1, "Channel A")
	assert.Equal(t, model.AccountRoleOwner, created.ViewerRole)
	assert.Equal(t, u1.UserID, created.OwnerID)

	accounts, err := h.accounts.List(ctx, u1)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Channel A", accounts[0].Name)
	assert.Equal(t, model.AccountRoleOwner, accounts[0].ViewerRole)

	assignment, err := h.db.Roles().Get(ctx, u1.UserID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AccountRoleOwner, assignment.Role)
}

func TestAccountCreate_Validation(t *testing.T) {
	h := newHarness(t)
	u1 := h.signInGoogle(t, "1001", "u1@example.com")

	_, err := h.accounts.Create(context.Background(), u1, CreateAccountInput{})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestAccountGet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u1 := h.signInGoogle(t, "1001", "u1@example.com")
	other := h.signInGoogle(t, "1002", "other@example.com")
	account := h.createAccount(t, u1, "Channel A")

	got, err := h.accounts.Get(ctx, u1, account.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AccountRoleOwner, got.ViewerRole)

	_, err = h.accounts.Get(ctx, other, account.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = h.accounts.Get(ctx, u1, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// ===== EDITOR ROSTER TESTS =====

func TestAddEditor_EditorSeesAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u1 := h.signInGoogle(t, "1001", "u1@example.com")
	u2 := h.provisionEditor(t, "u2@example.com")
	account := h.createAccount(t, u1, "Channel A")

	editor, err := h.accounts.AddEditor(ctx, u1, account.ID, AddEditorInput{Email: "u2@example.com"})
	require.NoError(t, err)
	assert.Equal(t, u2.UserID, editor.UserID)
	assert.Equal(t, model.AccountRoleEditor, editor.Role)

	accounts, err := h.accounts.List(ctx, u2)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Channel A", accounts[0].Name)
	assert.Equal(t, model.AccountRoleEditor, accounts[0].ViewerRole)

	_, err = h.accounts.RequirePublisher(ctx, u2, account.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	roster, err := h.accounts.ListEditors(ctx, u1, account.ID)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "u2@example.com", roster[0].Email)
}

func TestAddEditor_Errors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u1 := h.signInGoogle(t, "1001", "u1@example.com")
	h.provisionEditor(t, "u2@example.com")
	account := h.createAccount(t, u1, "Channel A")
	h.addEditor(t, u1, account.ID, "u2@example.com")

	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		{"unknown user", "ghost@example.com", apperror.ErrNotFound},
		{"already an editor", "u2@example.com", apperror.ErrConflict},
		{"owner", "u1@example.com", apperror.ErrConflict},
		{"bad email", "not-an-email", apperror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.accounts.AddEditor(ctx, u1, account.ID, AddEditorInput{Email: tt.email})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEditorManagement_OwnersOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u1 := h.signInGoogle(t, "1001", "u1@example.com")
	u2 := h.provisionEditor(t, "u2@example.com")
	h.provisionEditor(t, "u3@example.com")
	account := h.createAccount(t, u1, "Channel A")
	h.addEditor(t, u1, account.ID, "u2@example.com")

	_, err := h.accounts.AddEditor(ctx, u2, account.ID, AddEditorInput{Email: "u3@example.com"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = h.accounts.ListEditors(ctx, u2, account.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	err = h.accounts.RemoveEditor(ctx, u2, account.ID, u2.UserID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestRemoveEditor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u1 := h.signInGoogle(t, "1001", "u1@example.com")
	u2 := h.provisionEditor(t, "u2@example.com")
	account := h.createAccount(t, u1, "Channel A")
	h.addEditor(t, u1, account.ID, "u2@example.com")

	require.NoError(t, h.accounts.RemoveEditor(ctx, u1, account.ID, u2.UserID))

	accounts, err := h.accounts.List(ctx, u2)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	err = h.accounts.RemoveEditor(ctx, u1, account.ID, u2.UserID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// The owner row is not an editor and cannot be removed this way.
	err = h.accounts.RemoveEditor(ctx, u1, account.ID, u1.UserID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// ===== CHANNEL CONNECTION TESTS =====

func TestConnectChannel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u1 := h.signInGoogle(t, "1001", "u1@example.com")
	account := h.createAccount(t, u1, "Channel A")

	h.connectChannel(t, u1, account.ID)

	stored, err := h.db.Accounts().GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasCredentials())
	assert.Equal(t, "UC123", stored.ChannelID)
	assert.Equal(t, u1.UserID, stored.AuthorizedBy)
	assert.Equal(t, "refresh-token", stored.Credentials.RefreshToken)
}

func TestConnectChannel_EditorDenied(t *testing.T) {
	h := newHarness(t)
	u1 := h.signInGoogle(t, "1001", "u1@example.com")
	u2 := h.provisionEditor(t, "u2@example.com")
	account := h.createAccount(t, u1, "Channel A")
	h.addEditor(t, u1, account.ID, "u2@example.com")

	_, err := h.accounts.ConnectChannel(context.Background(), u2, account.ID, "UC1", model.ChannelCredentials{AccessToken: "x"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)
}

// An admin who is only an editor on someone else's account does not see it.
func TestAccountList_AdminEditorHidden(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u1 := h.signInGoogle(t, "1001", "u1@example.com")
	u3 := h.signInGoogle(t, "1003", "u3@example.com")
	account := h.createAccount(t, u1, "Channel A")
	h.addEditor(t, u1, account.ID, "u3@example.com")

	accounts, err := h.accounts.List(ctx, u3)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
