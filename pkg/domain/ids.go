// Package domain holds typed identifiers shared across feature modules.
//
// IDs are distinct types over uuid.UUID so a SightingID can never be passed
// where a PrincipalID is expected. Parse functions enforce the trust-boundary
// invariant: IDs arriving over the wire must be valid, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "watchpost/pkg/domain-errors"
)

type (
	// SightingID identifies a reported sighting.
	SightingID uuid.UUID
	// ValidationID identifies a recorded validation.
	ValidationID uuid.UUID
	// PrincipalID identifies an authenticated principal.
	PrincipalID uuid.UUID
	// InviteID identifies a pending trusted-verifier invitation.
	InviteID uuid.UUID
)

func NewSightingID() SightingID     { return SightingID(uuid.New()) }
func NewValidationID() ValidationID { return ValidationID(uuid.New()) }
func NewPrincipalID() PrincipalID   { return PrincipalID(uuid.New()) }
func NewInviteID() InviteID         { return InviteID(uuid.New()) }

func (id SightingID) String() string   { return uuid.UUID(id).String() }
func (id ValidationID) String() string { return uuid.UUID(id).String() }
func (id PrincipalID) String() string  { return uuid.UUID(id).String() }
func (id InviteID) String() string     { return uuid.UUID(id).String() }

func (id SightingID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ValidationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PrincipalID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id InviteID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// Text marshaling keeps the canonical UUID string form on the wire.

func (id SightingID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ValidationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id PrincipalID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id InviteID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }

func (id *SightingID) UnmarshalText(text []byte) error {
	parsed, err := ParseSightingID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ValidationID) UnmarshalText(text []byte) error {
	parsed, err := ParseValidationID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PrincipalID) UnmarshalText(text []byte) error {
	parsed, err := ParsePrincipalID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *InviteID) UnmarshalText(text []byte) error {
	parsed, err := ParseInviteID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseSightingID parses and validates a sighting ID from its string form.
func ParseSightingID(raw string) (SightingID, error) {
	parsed, err := parseUUID(raw, "sighting_id")
	return SightingID(parsed), err
}

// ParseValidationID parses and validates a validation ID from its string form.
func ParseValidationID(raw string) (ValidationID, error) {
	parsed, err := parseUUID(raw, "validation_id")
	return ValidationID(parsed), err
}

// ParsePrincipalID parses and validates a principal ID from its string form.
func ParsePrincipalID(raw string) (PrincipalID, error) {
	parsed, err := parseUUID(raw, "principal_id")
	return PrincipalID(parsed), err
}

// ParseInviteID parses and validates an invite ID from its string form.
func ParseInviteID(raw string) (InviteID, error) {
	parsed, err := parseUUID(raw, "invite_id")
	return InviteID(parsed), err
}

func parseUUID(raw, field string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", field)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", field)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", field)
	}
	return parsed, nil
}
