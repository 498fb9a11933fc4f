package model

// Identity is the canonical view of the caller that every authorization
// decision is made against.
type Identity struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
	Email  string `json:"email"`
}

// IsAdmin reports whether the caller holds the global admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// IdentityOf builds the identity for a stored user.
func IdentityOf(u *User) Identity {
	return Identity{UserID: u.ID, Role: u.Role, Email: u.Email}
}
