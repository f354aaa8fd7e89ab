// Package models defines principals, roles, and trusted invites.
package models

import (
	"strings"
	"time"

	id "watchpost/pkg/domain"
)

// Role is a principal's trust tier. Ordering matters: admin outranks
// trusted outranks anonymous.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleTrusted   Role = "trusted"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAnonymous, RoleTrusted, RoleAdmin:
		return true
	}
	return false
}

// rank orders roles for AtLeast comparisons.
func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleTrusted:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r carries the privileges of required.
func (r Role) AtLeast(required Role) bool {
	return r.rank() >= required.rank()
}

// Principal is a known account. Unauthenticated requests have no principal
// row at all; they are anonymous by absence.
type Principal struct {
	ID        id.PrincipalID `json:"id"`
	Email     string         `json:"email"`
	Role      Role           `json:"role"`
	CreatedAt time.Time      `json:"created_at"`
}

// Invite grants trusted status to the named email, once. Consumption is
// one-shot: the first sign-in claims it, every later sign-in finds nothing.
type Invite struct {
	ID        id.InviteID    `json:"id"`
	Email     string         `json:"email"`
	InvitedBy id.PrincipalID `json:"invited_by"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Expired reports whether the invite is past its window.
func (i *Invite) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && now.After(i.ExpiresAt)
}

// NormalizeEmail canonicalizes an email for matching: invites and sign-ins
// compare case-insensitively with surrounding whitespace stripped.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
