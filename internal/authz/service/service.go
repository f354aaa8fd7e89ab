// Package service implements role management, the confirm override, and the
// trusted-invite sign-in flow.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"watchpost/internal/audit"
	"watchpost/internal/authz/models"
	"watchpost/internal/authz/store"
	smodels "watchpost/internal/sighting/models"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

// DefaultInviteTTL is how long a trusted invite stays claimable.
const DefaultInviteTTL = 14 * 24 * time.Hour

// SightingConfirmer is the slice of the sighting service the confirm
// override needs.
type SightingConfirmer interface {
	Confirm(ctx context.Context, sightingID id.SightingID) (*smodels.Sighting, error)
}

// TokenIssuer mints access tokens at sign-in.
type TokenIssuer interface {
	GenerateToken(principalID uuid.UUID, expiresIn time.Duration) (string, error)
}

type Service struct {
	principals     store.PrincipalStore
	invites        store.InviteStore
	sightings      SightingConfirmer
	tokens         TokenIssuer
	tokenTTL       time.Duration
	inviteTTL      time.Duration
	logger         *slog.Logger
	auditPublisher audit.Publisher
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithInviteTTL(ttl time.Duration) Option {
	return func(s *Service) { s.inviteTTL = ttl }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.tokenTTL = ttl }
}

func New(principals store.PrincipalStore, invites store.InviteStore, sightings SightingConfirmer, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if principals == nil {
		return nil, fmt.Errorf("principal store is required")
	}
	if invites == nil {
		return nil, fmt.Errorf("invite store is required")
	}
	if sightings == nil {
		return nil, fmt.Errorf("sighting confirmer is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}

	svc := &Service{
		principals: principals,
		invites:    invites,
		sightings:  sightings,
		tokens:     tokens,
		tokenTTL:   24 * time.Hour,
		inviteTTL:  DefaultInviteTTL,
		logger:     slog.Default(),
		tracer:     otel.Tracer("watchpost/authz"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// caller loads the requesting principal from context. Anonymous requests
// have no principal and rank below every named role.
func (s *Service) caller(ctx context.Context) (*models.Principal, error) {
	principalID := requestcontext.PrincipalID(ctx)
	if principalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	principal, err := s.principals.Get(ctx, principalID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "unknown principal")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load principal")
	}
	return principal, nil
}

// requireRole loads the caller and checks their role floor.
func (s *Service) requireRole(ctx context.Context, required models.Role) (*models.Principal, error) {
	principal, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if !principal.Role.AtLeast(required) {
		return nil, dErrors.Newf(dErrors.CodeForbidden, "requires %s role", required)
	}
	return principal, nil
}

// GetPrincipal returns a principal by id.
func (s *Service) GetPrincipal(ctx context.Context, principalID id.PrincipalID) (*models.Principal, error) {
	return s.principals.Get(ctx, principalID)
}

// SetRole changes a principal's role. Admin only. Admins may change their
// own role, including demoting themselves.
func (s *Service) SetRole(ctx context.Context, targetID id.PrincipalID, role models.Role) (*models.Principal, error) {
	ctx, span := s.tracer.Start(ctx, "authz.SetRole")
	defer span.End()

	if !role.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", role)
	}
	caller, err := s.requireRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	target, err := s.principals.Get(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Role == role {
		return target, nil
	}

	if err := s.principals.UpdateRole(ctx, targetID, role); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update role")
	}

	s.logger.InfoContext(ctx, "role changed",
		"principal_id", targetID,
		"from", target.Role,
		"to", role,
		"changed_by", caller.ID,
	)
	s.emitAudit(ctx, audit.Event{
		Action:      audit.ActionRoleChanged,
		PrincipalID: targetID.String(),
		Detail: map[string]string{
			"from":       string(target.Role),
			"to":         string(role),
			"changed_by": caller.ID.String(),
		},
	})

	target.Role = role
	return target, nil
}

// ConfirmSighting applies the manual confirm override. Trusted and admin
// principals may confirm; the override bypasses validation thresholds
// entirely.
func (s *Service) ConfirmSighting(ctx context.Context, sightingID id.SightingID) (*smodels.Sighting, error) {
	ctx, span := s.tracer.Start(ctx, "authz.ConfirmSighting")
	defer span.End()

	if _, err := s.requireRole(ctx, models.RoleTrusted); err != nil {
		return nil, err
	}
	return s.sightings.Confirm(ctx, sightingID)
}

// CreateInvite records a trusted invite for the email. Admin only. A fresh
// invite replaces any unclaimed one for the same address.
func (s *Service) CreateInvite(ctx context.Context, email string) (*models.Invite, error) {
	caller, err := s.requireRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeAndCheckEmail(email)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	invite := &models.Invite{
		ID:        id.NewInviteID(),
		Email:     normalized,
		InvitedBy: caller.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.inviteTTL),
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create invite")
	}

	s.emitAudit(ctx, audit.Event{
		Action: audit.ActionInviteCreated,
		Detail: map[string]string{"created_by": caller.ID.String()},
	})
	return invite, nil
}

// SignInResult is what a completed sign-in hands back to the client.
type SignInResult struct {
	Principal *models.Principal `json:"principal"`
	Token     string            `json:"token"`
}

// CompleteSignIn finishes authentication for the email: the principal is
// created on first sign-in, and a pending invite is consumed exactly once,
// promoting the account to trusted. An expired invite is discarded without
// promotion.
func (s *Service) CompleteSignIn(ctx context.Context, email string) (*SignInResult, error) {
	ctx, span := s.tracer.Start(ctx, "authz.CompleteSignIn")
	defer span.End()

	normalized, err := normalizeAndCheckEmail(email)
	if err != nil {
		return nil, err
	}

	principal, err := s.findOrCreatePrincipal(ctx, normalized)
	if err != nil {
		return nil, err
	}

	if principal.Role == models.RoleAnonymous {
		promoted, err := s.tryConsumeInvite(ctx, principal)
		if err != nil {
			return nil, err
		}
		principal = promoted
	}

	accessToken, err := s.tokens.GenerateToken(uuid.UUID(principal.ID), s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return &SignInResult{Principal: principal, Token: accessToken}, nil
}

func (s *Service) findOrCreatePrincipal(ctx context.Context, email string) (*models.Principal, error) {
	principal, err := s.principals.GetByEmail(ctx, email)
	if err == nil {
		return principal, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up principal")
	}

	principal = &models.Principal{
		ID:        id.NewPrincipalID(),
		Email:     email,
		Role:      models.RoleAnonymous,
		CreatedAt: requestcontext.Now(ctx),
	}
	if createErr := s.principals.Create(ctx, principal); createErr != nil {
		// Lost a create race; the winner's row is authoritative.
		if dErrors.HasCode(createErr, dErrors.CodeConflict) {
			return s.principals.GetByEmail(ctx, email)
		}
		return nil, dErrors.Wrap(createErr, dErrors.CodeInternal, "failed to create principal")
	}
	return principal, nil
}

func (s *Service) tryConsumeInvite(ctx context.Context, principal *models.Principal) (*models.Principal, error) {
	invite, err := s.invites.Consume(ctx, principal.Email)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return principal, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume invite")
	}
	if invite.Expired(requestcontext.Now(ctx)) {
		s.logger.InfoContext(ctx, "expired invite discarded", "invite_id", invite.ID)
		return principal, nil
	}

	if err := s.principals.UpdateRole(ctx, principal.ID, models.RoleTrusted); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to promote principal")
	}

	s.emitAudit(ctx, audit.Event{
		Action:      audit.ActionInviteConsumed,
		PrincipalID: principal.ID.String(),
		Detail:      map[string]string{"invite_id": invite.ID.String()},
	})

	principal.Role = models.RoleTrusted
	return principal, nil
}

// Bootstrap ensures an admin principal exists for the email. Called from
// startup wiring, guarded by the deployment's admin token at the transport
// layer when exposed over HTTP.
func (s *Service) Bootstrap(ctx context.Context, email string) (*models.Principal, error) {
	normalized, err := normalizeAndCheckEmail(email)
	if err != nil {
		return nil, err
	}
	principal, err := s.findOrCreatePrincipal(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if principal.Role == models.RoleAdmin {
		return principal, nil
	}
	if err := s.principals.UpdateRole(ctx, principal.ID, models.RoleAdmin); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to promote bootstrap admin")
	}
	principal.Role = models.RoleAdmin
	return principal, nil
}

func normalizeAndCheckEmail(email string) (string, error) {
	normalized := models.NormalizeEmail(email)
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid email address")
	}
	return normalized, nil
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
