package model

import "time"

// AccountRole is the role a user holds on a single account.
type AccountRole string

const (
	AccountRoleOwner  AccountRole = "owner"
	AccountRoleEditor AccountRole = "editor"
)

// ChannelCredentials are the OAuth tokens that let the system upload to the
// account's YouTube channel. They are never serialized to clients.
type ChannelCredentials struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Account is one tenant, backed by one external channel.
//
// OwnerID is fixed at creation; there is no transfer operation.
type Account struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	ChannelID    string              `json:"channelId,omitempty"`
	OwnerID      string              `json:"ownerId"`
	Credentials  *ChannelCredentials `json:"-"`
	AuthorizedBy string              `json:"authorizedBy,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// HasCredentials reports whether a channel has been connected.
func (a *Account) HasCredentials() bool {
	return a.Credentials != nil && a.Credentials.AccessToken != ""
}

// AccessibleAccount is an account as seen by a particular identity.
type AccessibleAccount struct {
	Account
	ViewerRole AccountRole `json:"viewerRole"`
}
