// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is a user's global role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Origin records how a user authenticates.
type Origin string

const (
	OriginOAuth    Origin = "oauth"
	OriginPassword Origin = "password"
)

// User represents a person who can sign in.
//
// ID is the canonical user identifier (see UserRef). Users created through
// Google sign-in get an external ref built from the Google subject id;
// users provisioned by an admin get a local ref. A password user who later
// signs in with Google keeps its local ID and gains an ExternalID, so every
// foreign key keeps pointing at the same row.
//
// Email is unique across all users regardless of origin.
type User struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"-"` // Google subject id, empty until linked
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	Role         Role      `json:"role"`
	Origin       Origin    `json:"origin"`
	PasswordHash string    `json:"-"` // bcrypt, only for OriginPassword
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the global admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
