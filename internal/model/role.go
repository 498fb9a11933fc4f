package model

import "time"

// RoleAssignment links a user to an account with a role.
//
// An assignment with a nil AccountID, role owner and IsGlobalAdmin set is
// the global-owner sentinel: a marker written once for every admin. It
// does not make accounts visible; it only lets the holder review videos on
// any account.
type RoleAssignment struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	AccountID     *string     `json:"accountId"`
	Role          AccountRole `json:"role"`
	IsGlobalAdmin bool        `json:"isGlobalAdmin"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// IsSentinel reports whether the assignment is the global-owner marker.
func (r *RoleAssignment) IsSentinel() bool {
	return r.AccountID == nil && r.Role == AccountRoleOwner && r.IsGlobalAdmin
}

// Editor is a user listed on an account's editor roster.
type Editor struct {
	UserID  string      `json:"userId"`
	Email   string      `json:"email"`
	Name    string      `json:"name"`
	Role    AccountRole `json:"role"`
	AddedAt time.Time   `json:"addedAt"`
}
