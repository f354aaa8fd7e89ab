// Package handler exposes sign-in, role management, invites, and the
// confirm override over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"watchpost/internal/authz/models"
	aservice "watchpost/internal/authz/service"
	shandler "watchpost/internal/sighting/handler"
	smodels "watchpost/internal/sighting/models"
	"watchpost/internal/transport/http/shared"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

// Service defines the authorization operations the handler needs.
type Service interface {
	CompleteSignIn(ctx context.Context, email string) (*aservice.SignInResult, error)
	SetRole(ctx context.Context, targetID id.PrincipalID, role models.Role) (*models.Principal, error)
	CreateInvite(ctx context.Context, email string) (*models.Invite, error)
	ConfirmSighting(ctx context.Context, sightingID id.SightingID) (*smodels.Sighting, error)
}

type Handler struct {
	logger *slog.Logger
	authz  Service
}

func New(authz Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, authz: authz}
}

// RegisterPublic mounts the unauthenticated sign-in route.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/signin", h.handleSignIn)
}

// RegisterAuthenticated mounts routes that need a bearer token. Role checks
// happen in the service against the stored principal, not the token.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/sightings/{sightingID}/confirm", h.handleConfirm)
	r.Post("/invites", h.handleCreateInvite)
	r.Put("/principals/{principalID}/role", h.handleSetRole)
}

type signInRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.authz.CompleteSignIn(ctx, req.Email)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "sign-in failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "sign-in failed"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sightingID, err := id.ParseSightingID(chi.URLParam(r, "sightingID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	sighting, err := h.authz.ConfirmSighting(ctx, sightingID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to confirm sighting")
		return
	}

	shared.WriteJSON(w, http.StatusOK, shandler.ToResponse(sighting))
}

type createInviteRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	invite, err := h.authz.CreateInvite(ctx, req.Email)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to create invite")
		return
	}

	shared.WriteJSON(w, http.StatusCreated, invite)
}

type setRoleRequest struct {
	Role models.Role `json:"role"`
}

func (h *Handler) handleSetRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principalID, err := id.ParsePrincipalID(chi.URLParam(r, "principalID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	principal, err := h.authz.SetRole(ctx, principalID, req.Role)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to change role")
		return
	}

	shared.WriteJSON(w, http.StatusOK, principal)
}

// writeServiceError passes expected rejection classes through and hides
// everything else behind a generic internal error.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, message string) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest, dErrors.CodeNotFound,
		dErrors.CodeUnauthorized, dErrors.CodeForbidden, dErrors.CodeConflict:
		shared.WriteError(w, err)
	default:
		h.logger.ErrorContext(ctx, message,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, message))
	}
}
