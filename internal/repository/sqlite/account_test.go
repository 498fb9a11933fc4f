package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/model"
)

func TestAccountCreateWithOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner@example.com", model.RoleAdmin)

	account := &model.Account{Name: "Cooking", OwnerID: owner.ID}
	assignment := &model.RoleAssignment{}
	if err := db.Accounts().CreateWithOwner(ctx, account, assignment); err != nil {
		t.Fatalf("CreateWithOwner() error = %v", err)
	}
	if account.ID == "" {
		t.Fatal("CreateWithOwner() did not set account.ID")
	}

	got, err := db.Roles().Get(ctx, owner.ID, account.ID)
	if err != nil {
		t.Fatalf("Roles().Get() error = %v", err)
	}
	if got.Role != model.AccountRoleOwner {
		t.Errorf("owner assignment role = %q, want owner", got.Role)
	}
	if got.AccountID == nil || *got.AccountID != account.ID {
		t.Errorf("owner assignment account = %v, want %q", got.AccountID, account.ID)
	}
}

func TestAccountCreateWithOwner_RollsBackOnFailure(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// The owner does not exist, so the role_assignments FK rejects the
	// second insert and the account insert must be rolled back with it.
	account := &model.Account{Name: "Orphan", OwnerID: "local:nobody"}
	if err := db.Accounts().CreateWithOwner(ctx, account, &model.RoleAssignment{}); err == nil {
		t.Fatal("CreateWithOwner() succeeded for a missing owner")
	}

	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		t.Fatalf("counting accounts: %v", err)
	}
	if count != 0 {
		t.Errorf("accounts table has %d rows after rollback, want 0", count)
	}
}

func TestAccountGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Accounts().GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestAccountUpdateCredentials(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner@example.com", model.RoleAdmin)
	account := createTestAccount(t, db, "Travel", owner.ID)

	if account.HasCredentials() {
		t.Fatal("new account already has credentials")
	}

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	account.ChannelID = "UC123"
	account.AuthorizedBy = owner.ID
	account.Credentials = &model.ChannelCredentials{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       expiry,
	}
	if err := db.Accounts().UpdateCredentials(ctx, account); err != nil {
		t.Fatalf("UpdateCredentials() error = %v", err)
	}

	got, err := db.Accounts().GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if !got.HasCredentials() {
		t.Fatal("GetByID() lost credentials")
	}
	if got.Credentials.RefreshToken != "refresh" || got.ChannelID != "UC123" || got.AuthorizedBy != owner.ID {
		t.Errorf("GetByID() = %+v", got)
	}
	if !got.Credentials.Expiry.Equal(expiry) {
		t.Errorf("Expiry = %v, want %v", got.Credentials.Expiry, expiry)
	}
}

func TestAccountListOwnedOrAuthorizedBy(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := createTestUser(t, db, "admin@example.com", model.RoleAdmin)
	other := createTestUser(t, db, "other@example.com", model.RoleAdmin)

	owned := createTestAccount(t, db, "Owned", admin.ID)
	authorized := createTestAccount(t, db, "Authorized", other.ID)
	createTestAccount(t, db, "Unrelated", other.ID)

	authorized.AuthorizedBy = admin.ID
	authorized.Credentials = &model.ChannelCredentials{AccessToken: "a"}
	if err := db.Accounts().UpdateCredentials(ctx, authorized); err != nil {
		t.Fatalf("UpdateCredentials() error = %v", err)
	}

	accounts, err := db.Accounts().ListOwnedOrAuthorizedBy(ctx, admin.ID)
	if err != nil {
		t.Fatalf("ListOwnedOrAuthorizedBy() error = %v", err)
	}
	ids := map[string]bool{}
	for _, a := range accounts {
		ids[a.ID] = true
	}
	if len(accounts) != 2 || !ids[owned.ID] || !ids[authorized.ID] {
		t.Errorf("ListOwnedOrAuthorizedBy() = %v, want %s and %s", ids, owned.ID, authorized.ID)
	}
}

func TestAccountListForMember(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner@example.com", model.RoleAdmin)
	editor := createTestUser(t, db, "editor@example.com", model.RoleUser)
	account := createTestAccount(t, db, "Music", owner.ID)
	createTestAccount(t, db, "Hidden", owner.ID)

	if err := db.Roles().Create(ctx, &model.RoleAssignment{UserID: editor.ID, AccountID: &account.ID, Role: model.AccountRoleEditor}); err != nil {
		t.Fatalf("Roles().Create() error = %v", err)
	}

	accounts, err := db.Accounts().ListForMember(ctx, editor.ID)
	if err != nil {
		t.Fatalf("ListForMember() error = %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("ListForMember() returned %d accounts, want 1", len(accounts))
	}
	if accounts[0].ID != account.ID || accounts[0].ViewerRole != model.AccountRoleEditor {
		t.Errorf("ListForMember()[0] = %+v", accounts[0])
	}
}

func TestAccountListForMember_IgnoresSentinel(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	admin := createTestUser(t, db, "admin@example.com", model.RoleAdmin)

	if err := db.Roles().EnsureGlobalOwner(ctx, admin.ID); err != nil {
		t.Fatalf("EnsureGlobalOwner() error = %v", err)
	}

	accounts, err := db.Accounts().ListForMember(ctx, admin.ID)
	if err != nil {
		t.Fatalf("ListForMember() error = %v", err)
	}
	if len(accounts) != 0 {
		t.Errorf("ListForMember() = %d accounts, want 0", len(accounts))
	}
}
