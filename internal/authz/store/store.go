// Package store persists principals and trusted invites.
package store

import (
	"context"

	"watchpost/internal/authz/models"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
)

var (
	ErrPrincipalNotFound = dErrors.New(dErrors.CodeNotFound, "principal not found")
	ErrEmailTaken        = dErrors.New(dErrors.CodeConflict, "email already registered")
	ErrInviteNotFound    = dErrors.New(dErrors.CodeNotFound, "no invite for this email")
)

type PrincipalStore interface {
	Create(ctx context.Context, principal *models.Principal) error
	Get(ctx context.Context, principalID id.PrincipalID) (*models.Principal, error)
	GetByEmail(ctx context.Context, email string) (*models.Principal, error)
	UpdateRole(ctx context.Context, principalID id.PrincipalID, role models.Role) error
}

type InviteStore interface {
	// Create stores an invite keyed by normalized email, replacing any
	// unconsumed invite for the same address.
	Create(ctx context.Context, invite *models.Invite) error

	// Consume atomically claims and removes the invite for the email. The
	// second concurrent caller gets ErrInviteNotFound; that is the one-shot
	// guarantee.
	Consume(ctx context.Context, email string) (*models.Invite, error)
}
