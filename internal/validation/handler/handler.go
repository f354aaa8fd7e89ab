// Package handler exposes validation submission over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	shandler "watchpost/internal/sighting/handler"
	smodels "watchpost/internal/sighting/models"
	"watchpost/internal/transport/http/shared"
	"watchpost/internal/validation/models"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

// Service defines the validation operations the handler needs.
type Service interface {
	Submit(ctx context.Context, sightingID id.SightingID, req *models.SubmitRequest) (*smodels.Sighting, error)
}

type Handler struct {
	logger      *slog.Logger
	validations Service
}

func New(validations Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, validations: validations}
}

// Register mounts the validation route. The route group must run the device
// identity middleware; anonymous validators are the common case.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sightings/{sightingID}/validations", h.handleSubmit)
}

// rejectionResponse carries the machine-readable reason alongside the usual
// error envelope fields.
type rejectionResponse struct {
	Error  string        `json:"error"`
	Reason models.Reason `json:"reason"`
}

// rejectionStatus maps each rejection reason to its HTTP status.
func rejectionStatus(reason models.Reason) int {
	if reason == models.ReasonDuplicateDevice {
		return http.StatusConflict
	}
	return http.StatusUnprocessableEntity
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sightingID, err := id.ParseSightingID(chi.URLParam(r, "sightingID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	sighting, err := h.validations.Submit(ctx, sightingID, &req)
	if err != nil {
		var rejection *models.Rejection
		if errors.As(err, &rejection) {
			shared.WriteJSON(w, rejectionStatus(rejection.Reason), rejectionResponse{
				Error:  "validation_rejected",
				Reason: rejection.Reason,
			})
			return
		}
		switch {
		case dErrors.Is(err, dErrors.CodeNotFound), dErrors.Is(err, dErrors.CodeInvalidInput):
			shared.WriteError(w, err)
		default:
			h.logger.ErrorContext(ctx, "failed to submit validation",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
			shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to submit validation"))
		}
		return
	}

	shared.WriteJSON(w, http.StatusCreated, shandler.ToResponse(sighting))
}
