// Package store persists validation records. Implementations enforce the
// one-validation-per-device-per-sighting constraint and surface violations
// as ErrDuplicate.
package store

import (
	"context"

	"watchpost/internal/validation/models"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
)

// ErrDuplicate signals the (sighting, device) pair already exists.
var ErrDuplicate = dErrors.New(dErrors.CodeConflict, "device already validated this sighting")

type Store interface {
	// Create inserts a validation row. Returns ErrDuplicate when the device
	// has already validated the sighting; under concurrent submissions from
	// the same device exactly one Create succeeds.
	Create(ctx context.Context, validation *models.Validation) error

	// CountBySighting counts recorded validations from source rows.
	CountBySighting(ctx context.Context, sightingID id.SightingID) (int, error)
}
