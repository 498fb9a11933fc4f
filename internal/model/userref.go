package model

import (
	"fmt"
	"strings"

	"github.com/rs/xid"
)

// RefKind tags which identifier scheme a UserRef uses.
type RefKind string

const (
	RefExternal RefKind = "google"
	RefLocal    RefKind = "local"
)

// UserRef is the canonical reference to a user.
//
// The string form ("google:<sub>" or "local:<xid>") is what the database
// stores in users.id and in every column that points at a user. Code that
// needs to know where an id came from switches on Kind instead of guessing
// from the shape of the value.
type UserRef struct {
	Kind RefKind
	ID   string
}

// ExternalRef builds the reference for a Google subject id.
func ExternalRef(subject string) UserRef {
	return UserRef{Kind: RefExternal, ID: subject}
}

// NewLocalRef allocates a fresh local reference.
func NewLocalRef() UserRef {
	return UserRef{Kind: RefLocal, ID: xid.New().String()}
}

func (r UserRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

// ParseUserRef parses the string form produced by UserRef.String.
func ParseUserRef(s string) (UserRef, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return UserRef{}, fmt.Errorf("model: malformed user ref %q", s)
	}

	switch RefKind(kind) {
	case RefExternal, RefLocal:
		return UserRef{Kind: RefKind(kind), ID: id}, nil
	default:
		return UserRef{}, fmt.Errorf("model: unknown user ref kind %q", kind)
	}
}
