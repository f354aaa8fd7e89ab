// Package handler exposes sighting submission and retrieval over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"watchpost/internal/sighting/models"
	"watchpost/internal/transport/http/shared"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

// Service defines the sighting operations the handler needs.
type Service interface {
	Create(ctx context.Context, req *models.CreateRequest) (*models.Sighting, error)
	Get(ctx context.Context, sightingID id.SightingID) (*models.Sighting, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Sighting, error)
}

type Handler struct {
	logger    *slog.Logger
	sightings Service
}

func New(sightings Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, sightings: sightings}
}

// Register mounts the public sighting routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/sightings", h.handleCreate)
	r.Get("/sightings", h.handleList)
	r.Get("/sightings/{sightingID}", h.handleGet)
}

// Response adds the client-facing status label to the record.
// "verified" displays as "active"; the stored status is unchanged.
type Response struct {
	ID               id.SightingID     `json:"id"`
	CreatedAt        time.Time         `json:"created_at"`
	EventTime        time.Time         `json:"event_time"`
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	ActivityType     string            `json:"activity_type"`
	Notes            string            `json:"notes,omitempty"`
	Media            []models.MediaRef `json:"media,omitempty"`
	ValidationsCount int               `json:"validations_count"`
	Status           models.Status     `json:"status"`
	DisplayStatus    string            `json:"display_status"`
}

// ToResponse converts a sighting to its wire shape. Sibling handlers that
// return sightings use it so the shape stays consistent.
func ToResponse(sighting *models.Sighting) *Response {
	return &Response{
		ID:               sighting.ID,
		CreatedAt:        sighting.CreatedAt,
		EventTime:        sighting.EventTime,
		Latitude:         sighting.Latitude,
		Longitude:        sighting.Longitude,
		ActivityType:     sighting.ActivityType,
		Notes:            sighting.Notes,
		Media:            sighting.Media,
		ValidationsCount: sighting.ValidationsCount,
		Status:           sighting.Status,
		DisplayStatus:    sighting.Status.Display(),
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	sighting, err := h.sightings.Create(ctx, &req)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeInvalidInput) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create sighting",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to create sighting"))
		return
	}

	shared.WriteJSON(w, http.StatusCreated, ToResponse(sighting))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sightingID, err := id.ParseSightingID(chi.URLParam(r, "sightingID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	sighting, err := h.sightings.Get(ctx, sightingID)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			shared.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to load sighting",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to load sighting"))
		return
	}

	shared.WriteJSON(w, http.StatusOK, ToResponse(sighting))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := parseListFilter(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	sightings, err := h.sightings.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list sightings",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list sightings"))
		return
	}

	responses := make([]*Response, len(sightings))
	for i, sighting := range sightings {
		responses[i] = ToResponse(sighting)
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"sightings": responses})
}

// parseListFilter reads the optional viewport (min_lat, max_lat, min_lng,
// max_lng: all four or none) and limit from the query string.
func parseListFilter(r *http.Request) (models.ListFilter, error) {
	var filter models.ListFilter
	query := r.URL.Query()

	boundKeys := []string{"min_lat", "max_lat", "min_lng", "max_lng"}
	present := 0
	for _, key := range boundKeys {
		if query.Get(key) != "" {
			present++
		}
	}
	switch present {
	case 0:
	case len(boundKeys):
		values := make([]float64, len(boundKeys))
		for i, key := range boundKeys {
			parsed, err := strconv.ParseFloat(query.Get(key), 64)
			if err != nil {
				return filter, dErrors.Newf(dErrors.CodeBadRequest, "invalid %s", key)
			}
			values[i] = parsed
		}
		filter.Bounds = &models.BoundingBox{MinLat: values[0], MaxLat: values[1], MinLng: values[2], MaxLng: values[3]}
	default:
		return filter, dErrors.New(dErrors.CodeBadRequest, "viewport requires min_lat, max_lat, min_lng and max_lng")
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, dErrors.New(dErrors.CodeBadRequest, "invalid limit")
		}
		filter.Limit = limit
	}
	return filter, nil
}
