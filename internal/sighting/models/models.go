// Package models defines the sighting record and its submission contract.
package models

import (
	"fmt"
	"strings"
	"time"

	"watchpost/internal/geo"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
)

// Status is the trust tier of a sighting. Escalation is one-way: unverified
// climbs to verified via community validations, confirmed only via a
// trusted/admin override, and confirmed is terminal for automatic
// recomputation.
type Status string

const (
	StatusUnverified Status = "unverified"
	StatusVerified   Status = "verified"
	StatusConfirmed  Status = "confirmed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusUnverified, StatusVerified, StatusConfirmed:
		return true
	}
	return false
}

// Display maps verified to "active", the label map clients show. Not a
// distinct semantic state.
func (s Status) Display() string {
	if s == StatusVerified {
		return "active"
	}
	return string(s)
}

// Field limits for submissions, live and bulk alike.
const (
	MaxActivityTypeLength = 64
	MaxNotesLength        = 2000
)

// Verification thresholds: BaseThreshold distinct validators promote a
// sighting to verified; media evidence lowers the bar to MediaThreshold.
const (
	BaseThreshold  = 3
	MediaThreshold = 2
)

// MediaRef points at an uploaded attachment. The list on a sighting is
// ordered and append-only.
type MediaRef struct {
	StoragePath string `json:"storage_path"`
	MimeType    string `json:"mime_type"`
}

// Sighting is a reported observation of enforcement activity.
// ValidationsCount and Status are derived; only the promotion engine and
// the confirm override mutate them.
type Sighting struct {
	ID               id.SightingID `json:"id"`
	CreatedAt        time.Time     `json:"created_at"`
	EventTime        time.Time     `json:"event_time"`
	Latitude         float64       `json:"latitude"`
	Longitude        float64       `json:"longitude"`
	ActivityType     string        `json:"activity_type"`
	Notes            string        `json:"notes,omitempty"`
	Media            []MediaRef    `json:"media,omitempty"`
	ValidationsCount int           `json:"validations_count"`
	Status           Status        `json:"status"`
}

// HasMedia reports whether the Tier 2 lowered threshold applies.
func (s *Sighting) HasMedia() bool {
	return len(s.Media) > 0
}

// EffectiveThreshold is the validation count required for automatic
// promotion to verified.
func (s *Sighting) EffectiveThreshold() int {
	if s.HasMedia() {
		return MediaThreshold
	}
	return BaseThreshold
}

// CreateRequest is the submission shape shared by the live endpoint and
// bulk ingestion.
type CreateRequest struct {
	EventTime    time.Time  `json:"event_time"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	ActivityType string     `json:"activity_type"`
	Notes        string     `json:"notes,omitempty"`
	Media        []MediaRef `json:"media,omitempty"`
}

// FieldError reports a single invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors aggregates per-field validation failures so callers see all
// problems at once.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fieldErr := range e {
		parts[i] = fmt.Sprintf("%s: %s", fieldErr.Field, fieldErr.Message)
	}
	return strings.Join(parts, "; ")
}

// Validate checks every field and returns the full list of violations.
// Nothing is persisted for an invalid request.
func (r *CreateRequest) Validate() error {
	var fieldErrs FieldErrors

	if r.EventTime.IsZero() {
		fieldErrs = append(fieldErrs, FieldError{Field: "event_time", Message: "is required"})
	}
	if !geo.ValidLatitude(r.Latitude) {
		fieldErrs = append(fieldErrs, FieldError{Field: "latitude", Message: "must be between -90 and 90"})
	}
	if !geo.ValidLongitude(r.Longitude) {
		fieldErrs = append(fieldErrs, FieldError{Field: "longitude", Message: "must be between -180 and 180"})
	}
	if trimmed := strings.TrimSpace(r.ActivityType); trimmed == "" {
		fieldErrs = append(fieldErrs, FieldError{Field: "activity_type", Message: "is required"})
	} else if len(r.ActivityType) > MaxActivityTypeLength {
		fieldErrs = append(fieldErrs, FieldError{Field: "activity_type", Message: fmt.Sprintf("must be at most %d characters", MaxActivityTypeLength)})
	}
	if len(r.Notes) > MaxNotesLength {
		fieldErrs = append(fieldErrs, FieldError{Field: "notes", Message: fmt.Sprintf("must be at most %d characters", MaxNotesLength)})
	}
	for i, media := range r.Media {
		if media.StoragePath == "" {
			fieldErrs = append(fieldErrs, FieldError{Field: fmt.Sprintf("media[%d].storage_path", i), Message: "is required"})
		}
		if media.MimeType == "" {
			fieldErrs = append(fieldErrs, FieldError{Field: fmt.Sprintf("media[%d].mime_type", i), Message: "is required"})
		}
	}

	if len(fieldErrs) > 0 {
		return dErrors.Wrap(fieldErrs, dErrors.CodeInvalidInput, "invalid sighting")
	}
	return nil
}

// BoundingBox filters list queries to a map viewport.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ListFilter narrows sighting list queries.
type ListFilter struct {
	Bounds *BoundingBox
	Limit  int
}
