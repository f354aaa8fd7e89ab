// Package models defines validation records and the rejection taxonomy for
// the community vouching flow.
package models

import (
	"errors"
	"fmt"
	"time"

	id "watchpost/pkg/domain"
)

// Validation is one device's vouch for a sighting. The unique
// (sighting, device) pair is enforced by the store, making it the single
// anti-double-vote mechanism. The validator's coordinates are checked and
// discarded; only the boolean outcome is stored.
type Validation struct {
	ID                id.ValidationID `json:"id"`
	SightingID        id.SightingID   `json:"sighting_id"`
	DeviceFingerprint string          `json:"-"`
	IsWithinRange     bool            `json:"-"`
	PrincipalID       id.PrincipalID  `json:"-"` // zero for anonymous validators
	CreatedAt         time.Time       `json:"created_at"`
}

// Position is a validator's resolved location. Used only for the proximity
// gate; never persisted and never echoed back to clients.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SubmitRequest carries the client's geolocation outcome. Position is nil
// when the browser reported a permission denial.
type SubmitRequest struct {
	Position *Position `json:"position"`
}

// Reason identifies why a validation attempt was rejected. These values are
// part of the API contract.
type Reason string

const (
	ReasonOutOfRange         Reason = "OUT_OF_RANGE"
	ReasonDuplicateDevice    Reason = "DUPLICATE_DEVICE"
	ReasonGeolocationDenied  Reason = "GEOLOCATION_DENIED"
	ReasonGeolocationTimeout Reason = "GEOLOCATION_TIMEOUT"
)

// Rejection is a refused validation attempt. It is an expected outcome, not
// a server fault, and maps to a 4xx at the transport layer.
type Rejection struct {
	Reason Reason `json:"reason"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("validation rejected: %s", r.Reason)
}

// ReasonOf extracts the rejection reason from an error chain, or "" when
// the error is not a rejection.
func ReasonOf(err error) Reason {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection.Reason
	}
	return ""
}
