// Package service implements sighting lifecycle operations, including the
// status promotion engine.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"watchpost/internal/audit"
	"watchpost/internal/sighting/metrics"
	"watchpost/internal/sighting/models"
	"watchpost/internal/sighting/store"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

// ValidationCounter reports the current number of recorded validations for
// a sighting. The promotion engine always recounts from source rows rather
// than incrementing, so concurrent recomputations converge on the true
// total.
type ValidationCounter interface {
	CountBySighting(ctx context.Context, sightingID id.SightingID) (int, error)
}

type Service struct {
	store          store.Store
	counter        ValidationCounter
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

func New(sightings store.Store, counter ValidationCounter, opts ...Option) (*Service, error) {
	if sightings == nil {
		return nil, fmt.Errorf("sighting store is required")
	}
	if counter == nil {
		return nil, fmt.Errorf("validation counter is required")
	}

	svc := &Service{
		store:   sightings,
		counter: counter,
		logger:  slog.Default(),
		tracer:  otel.Tracer("watchpost/sighting"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create validates and persists a new sighting. Initial status is always
// unverified with a zero count, whatever the caller supplies.
func (s *Service) Create(ctx context.Context, req *models.CreateRequest) (*models.Sighting, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sighting := &models.Sighting{
		ID:               id.NewSightingID(),
		CreatedAt:        requestcontext.Now(ctx),
		EventTime:        req.EventTime,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		ActivityType:     req.ActivityType,
		Notes:            req.Notes,
		Media:            req.Media,
		ValidationsCount: 0,
		Status:           models.StatusUnverified,
	}

	if err := s.store.Create(ctx, sighting); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create sighting")
	}

	s.metrics.IncrementSightingsCreated()
	s.emitAudit(ctx, audit.Event{
		Action:     audit.ActionSightingCreated,
		SightingID: sighting.ID.String(),
		Detail:     map[string]string{"activity_type": sighting.ActivityType},
	})
	return sighting, nil
}

// Get returns a sighting by id.
func (s *Service) Get(ctx context.Context, sightingID id.SightingID) (*models.Sighting, error) {
	sighting, err := s.store.Get(ctx, sightingID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sighting")
	}
	return sighting, nil
}

// List returns recent sightings, optionally filtered to a map viewport.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Sighting, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 200
	}
	sightings, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sightings")
	}
	return sightings, nil
}

// Recompute derives validations_count and status from the recorded
// validations and the sighting's media presence. It is idempotent and safe
// under concurrent invocation: the count is always re-read from source rows
// and both derived fields are written together.
//
// Precedence:
//  1. confirmed is terminal - full no-op, count frozen at confirmation time
//  2. count := distinct validation rows
//  3. threshold := 2 with media, 3 without
//  4. verified when count reaches the threshold; verified never regresses
func (s *Service) Recompute(ctx context.Context, sightingID id.SightingID) (*models.Sighting, error) {
	ctx, span := s.tracer.Start(ctx, "sighting.Recompute")
	defer span.End()

	s.metrics.IncrementRecomputes()

	sighting, err := s.store.Get(ctx, sightingID)
	if err != nil {
		return nil, err
	}
	if sighting.Status == models.StatusConfirmed {
		return sighting, nil
	}

	count, err := s.counter.CountBySighting(ctx, sightingID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count validations")
	}

	status := models.StatusUnverified
	if count >= sighting.EffectiveThreshold() {
		status = models.StatusVerified
	}
	// One-way escalation: a verified sighting stays verified even if the
	// count later drops below the threshold (validation deletion).
	if sighting.Status == models.StatusVerified && status == models.StatusUnverified {
		status = models.StatusVerified
	}

	if err := s.store.UpdateDerived(ctx, sightingID, count, status); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist derived status")
	}

	if status == models.StatusVerified && sighting.Status == models.StatusUnverified {
		s.metrics.IncrementPromotions()
		s.logger.InfoContext(ctx, "sighting promoted",
			"sighting_id", sightingID,
			"validations_count", count,
		)
		s.emitAudit(ctx, audit.Event{
			Action:     audit.ActionStatusChanged,
			SightingID: sightingID.String(),
			Detail: map[string]string{
				"from": string(sighting.Status),
				"to":   string(status),
			},
		})
	}

	sighting.ValidationsCount = count
	sighting.Status = status
	return sighting, nil
}

// Confirm applies the manual override: status becomes confirmed regardless
// of validation count, and automatic recomputation never touches the row
// again. Authorization is the authz service's job; this method trusts its
// caller.
func (s *Service) Confirm(ctx context.Context, sightingID id.SightingID) (*models.Sighting, error) {
	sighting, err := s.store.Get(ctx, sightingID)
	if err != nil {
		return nil, err
	}
	if sighting.Status == models.StatusConfirmed {
		return sighting, nil
	}

	if err := s.store.SetConfirmed(ctx, sightingID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm sighting")
	}

	s.metrics.IncrementConfirms()
	s.emitAudit(ctx, audit.Event{
		Action:      audit.ActionSightingConfirmed,
		PrincipalID: requestcontext.PrincipalID(ctx).String(),
		SightingID:  sightingID.String(),
	})

	sighting.Status = models.StatusConfirmed
	return sighting, nil
}

// AttachMedia appends a media reference and recomputes, since media
// presence lowers the promotion threshold.
func (s *Service) AttachMedia(ctx context.Context, sightingID id.SightingID, media models.MediaRef) (*models.Sighting, error) {
	if media.StoragePath == "" || media.MimeType == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "media storage path and mime type are required")
	}
	if err := s.store.AppendMedia(ctx, sightingID, media); err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to attach media")
	}

	s.emitAudit(ctx, audit.Event{
		Action:     audit.ActionMediaAttached,
		SightingID: sightingID.String(),
		Detail:     map[string]string{"mime_type": media.MimeType},
	})
	return s.Recompute(ctx, sightingID)
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
