package ingest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	smodels "watchpost/internal/sighting/models"
	"watchpost/internal/transport/http/shared"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

// Handler exposes bulk import. The route group must be guarded by the admin
// token middleware; there is no per-principal check here.
type Handler struct {
	logger *slog.Logger
	ingest *Service
}

func NewHandler(ingest *Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, ingest: ingest}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/import/sightings", h.handleImport)
}

type importRequest struct {
	Rows []smodels.CreateRequest `json:"rows"`
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.ingest.Import(ctx, req.Rows)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "bulk import failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "bulk import failed"))
		return
	}

	// 207 when some rows failed, 201 when everything landed.
	status := http.StatusCreated
	if result.Failed > 0 {
		status = http.StatusMultiStatus
	}
	shared.WriteJSON(w, status, result)
}
