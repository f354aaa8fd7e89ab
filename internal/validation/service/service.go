// Package service implements the validation admission pipeline: geolocation
// resolution, the proximity gate, the duplicate-device gate, then status
// recomputation on the validated sighting.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"watchpost/internal/audit"
	"watchpost/internal/geo"
	smodels "watchpost/internal/sighting/models"
	"watchpost/internal/validation/metrics"
	"watchpost/internal/validation/models"
	"watchpost/internal/validation/store"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

// ErrLocationDenied is returned by Locators when the validator refused to
// share their position.
var ErrLocationDenied = errors.New("geolocation permission denied")

// Locator resolves a validator's position. Implementations must honor
// context cancellation; the service bounds every Locate call with a
// deadline.
type Locator interface {
	Locate(ctx context.Context, req *models.SubmitRequest) (models.Position, error)
}

// RequestLocator trusts the position the client resolved in the browser.
// A nil position means the geolocation prompt was denied.
type RequestLocator struct{}

func (RequestLocator) Locate(_ context.Context, req *models.SubmitRequest) (models.Position, error) {
	if req == nil || req.Position == nil {
		return models.Position{}, ErrLocationDenied
	}
	return *req.Position, nil
}

// SightingDirectory is the slice of the sighting service the admission
// pipeline needs: the location being validated and the recompute trigger.
type SightingDirectory interface {
	Get(ctx context.Context, sightingID id.SightingID) (*smodels.Sighting, error)
	Recompute(ctx context.Context, sightingID id.SightingID) (*smodels.Sighting, error)
}

type Service struct {
	store          store.Store
	sightings      SightingDirectory
	locator        Locator
	radiusMeters   float64
	locateTimeout  time.Duration
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher audit.Publisher
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithLocator(locator Locator) Option {
	return func(s *Service) { s.locator = locator }
}

func WithProximityRadius(meters float64) Option {
	return func(s *Service) { s.radiusMeters = meters }
}

func WithLocateTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.locateTimeout = timeout }
}

func New(validations store.Store, sightings SightingDirectory, opts ...Option) (*Service, error) {
	if validations == nil {
		return nil, fmt.Errorf("validation store is required")
	}
	if sightings == nil {
		return nil, fmt.Errorf("sighting directory is required")
	}

	svc := &Service{
		store:         validations,
		sightings:     sightings,
		locator:       RequestLocator{},
		radiusMeters:  geo.DefaultProximityRadiusMeters,
		locateTimeout: 10 * time.Second,
		logger:        slog.Default(),
		tracer:        otel.Tracer("watchpost/validation"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Submit runs the admission pipeline for one validation attempt. Gates are
// ordered: geolocation, then proximity, then duplicate device. A validator
// outside the radius is told OUT_OF_RANGE even if their device already
// validated the sighting.
//
// On admission the validation is recorded and the sighting's status is
// recomputed; the updated sighting is returned.
func (s *Service) Submit(ctx context.Context, sightingID id.SightingID, req *models.SubmitRequest) (*smodels.Sighting, error) {
	ctx, span := s.tracer.Start(ctx, "validation.Submit")
	defer span.End()

	fingerprint := requestcontext.DeviceIdentifier(ctx)
	if fingerprint == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "device identity is required")
	}

	sighting, err := s.sightings.Get(ctx, sightingID)
	if err != nil {
		return nil, err
	}

	position, err := s.locate(ctx, req)
	if err != nil {
		return nil, s.reject(ctx, sightingID, err)
	}

	if !geo.IsWithinProximity(sighting.Latitude, sighting.Longitude, position.Latitude, position.Longitude, s.radiusMeters) {
		return nil, s.reject(ctx, sightingID, &models.Rejection{Reason: models.ReasonOutOfRange})
	}

	validation := &models.Validation{
		ID:                id.NewValidationID(),
		SightingID:        sightingID,
		DeviceFingerprint: fingerprint,
		IsWithinRange:     true,
		PrincipalID:       requestcontext.PrincipalID(ctx),
		CreatedAt:         requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, validation); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, s.reject(ctx, sightingID, &models.Rejection{Reason: models.ReasonDuplicateDevice})
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record validation")
	}

	s.metrics.IncrementRecorded()
	s.emitAudit(ctx, audit.Event{
		Action:     audit.ActionValidationAdded,
		SightingID: sightingID.String(),
	})

	return s.sightings.Recompute(ctx, sightingID)
}

// locate resolves the validator position under a bounded deadline and
// translates locator failures into the rejection taxonomy.
func (s *Service) locate(ctx context.Context, req *models.SubmitRequest) (models.Position, error) {
	ctx, cancel := context.WithTimeout(ctx, s.locateTimeout)
	defer cancel()

	position, err := s.locator.Locate(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrLocationDenied):
			return models.Position{}, &models.Rejection{Reason: models.ReasonGeolocationDenied}
		case errors.Is(err, context.DeadlineExceeded):
			return models.Position{}, &models.Rejection{Reason: models.ReasonGeolocationTimeout}
		default:
			return models.Position{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve validator position")
		}
	}
	return position, nil
}

func (s *Service) reject(ctx context.Context, sightingID id.SightingID, err error) error {
	reason := models.ReasonOf(err)
	if reason == "" {
		return err
	}
	s.metrics.IncrementRejected(string(reason))
	s.logger.InfoContext(ctx, "validation rejected",
		"sighting_id", sightingID,
		"reason", reason,
	)
	return err
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
