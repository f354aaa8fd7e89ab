package audit

import "time"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out. Events never carry validator
// coordinates or raw emails; identifiers only.
type Event struct {
	Timestamp   time.Time         `json:"timestamp"`
	Action      string            `json:"action"`
	PrincipalID string            `json:"principal_id,omitempty"`
	SightingID  string            `json:"sighting_id,omitempty"`
	Detail      map[string]string `json:"detail,omitempty"`
}

// Actions emitted by the domain services.
const (
	ActionSightingCreated   = "sighting_created"
	ActionValidationAdded   = "validation_recorded"
	ActionStatusChanged     = "sighting_status_changed"
	ActionSightingConfirmed = "sighting_confirmed"
	ActionRoleChanged       = "role_changed"
	ActionInviteCreated     = "invite_created"
	ActionInviteConsumed    = "invite_consumed"
	ActionMediaAttached     = "media_attached"
)
