// Package store persists sightings. Implementations must keep the
// confirmed-is-terminal invariant: derived writes never touch a confirmed
// row.
package store

import (
	"context"

	"watchpost/internal/sighting/models"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
)

// ErrNotFound keeps store-level 404s consistent across implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "sighting not found")

// Store is the durable sighting record.
type Store interface {
	Create(ctx context.Context, sighting *models.Sighting) error
	Get(ctx context.Context, sightingID id.SightingID) (*models.Sighting, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Sighting, error)

	// UpdateDerived writes validations_count and status together, or not at
	// all, and must be a no-op when the stored status is already confirmed.
	// Last writer wins; callers always pass a count recomputed from source
	// rows, never an increment.
	UpdateDerived(ctx context.Context, sightingID id.SightingID, count int, status models.Status) error

	// SetConfirmed applies the manual override, bypassing thresholds.
	SetConfirmed(ctx context.Context, sightingID id.SightingID) error

	// AppendMedia adds a media reference at the end of the ordered list.
	AppendMedia(ctx context.Context, sightingID id.SightingID, media models.MediaRef) error
}
