// Package ingest implements bulk sighting import for administrators.
// Each row passes through the same validation as the live submission
// endpoint; failures are reported per row and never abort the batch.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	smodels "watchpost/internal/sighting/models"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
)

// MaxBatchSize bounds a single import request.
const MaxBatchSize = 1000

// rowWorkers bounds concurrent row inserts.
const rowWorkers = 4

// SightingCreator is the slice of the sighting service ingestion needs.
type SightingCreator interface {
	Create(ctx context.Context, req *smodels.CreateRequest) (*smodels.Sighting, error)
}

// RowError reports one failed row by its zero-based index.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result summarizes a completed batch.
type Result struct {
	Imported int             `json:"imported"`
	Failed   int             `json:"failed"`
	IDs      []id.SightingID `json:"ids"`
	Errors   []RowError      `json:"errors,omitempty"`
}

type Service struct {
	sightings SightingCreator
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(sightings SightingCreator, opts ...Option) (*Service, error) {
	if sightings == nil {
		return nil, fmt.Errorf("sighting creator is required")
	}
	svc := &Service{sightings: sightings, logger: slog.Default()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Import creates sightings for every valid row. Failed rows are reported
// by index in Errors; IDs lists the created sightings in row order.
func (s *Service) Import(ctx context.Context, rows []smodels.CreateRequest) (*Result, error) {
	if len(rows) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "batch is empty")
	}
	if len(rows) > MaxBatchSize {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "batch exceeds %d rows", MaxBatchSize)
	}

	ids := make([]id.SightingID, len(rows))
	rowErrs := make([]error, len(rows))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(rowWorkers)
	for i := range rows {
		group.Go(func() error {
			sighting, err := s.sightings.Create(groupCtx, &rows[i])
			if err != nil {
				rowErrs[i] = err
				return nil
			}
			ids[i] = sighting.ID
			return nil
		})
	}
	// Workers never return errors; Wait only observes context cancellation.
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{}
	for i := range rows {
		if rowErrs[i] != nil {
			result.Failed++
			result.Errors = append(result.Errors, RowError{Row: i, Message: rowErrs[i].Error()})
			continue
		}
		result.Imported++
		result.IDs = append(result.IDs, ids[i])
	}

	s.logger.InfoContext(ctx, "bulk import finished",
		"rows", len(rows),
		"imported", result.Imported,
		"failed", result.Failed,
	)
	return result, nil
}
