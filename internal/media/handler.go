package media

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	shandler "watchpost/internal/sighting/handler"
	"watchpost/internal/transport/http/shared"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

// Handler exposes the two-step upload flow: request a presigned URL, then
// register the uploaded object on the sighting.
type Handler struct {
	logger *slog.Logger
	media  *Service
}

func NewHandler(media *Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, media: media}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/sightings/{sightingID}/media/uploads", h.handleRequestUpload)
	r.Post("/sightings/{sightingID}/media", h.handleCompleteUpload)
}

type requestUploadRequest struct {
	MimeType string `json:"mime_type"`
}

func (h *Handler) handleRequestUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sightingID, err := id.ParseSightingID(chi.URLParam(r, "sightingID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req requestUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	ticket, err := h.media.RequestUpload(ctx, sightingID, req.MimeType)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to presign upload",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to presign upload"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, ticket)
}

type completeUploadRequest struct {
	StoragePath string `json:"storage_path"`
	MimeType    string `json:"mime_type"`
}

func (h *Handler) handleCompleteUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sightingID, err := id.ParseSightingID(chi.URLParam(r, "sightingID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req completeUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	sighting, err := h.media.CompleteUpload(ctx, sightingID, req.StoragePath, req.MimeType)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) || dErrors.Is(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to register upload",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to register upload"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, shandler.ToResponse(sighting))
}
