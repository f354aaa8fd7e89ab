package store

import (
	"context"
	"sort"
	"sync"

	"watchpost/internal/sighting/models"
	id "watchpost/pkg/domain"
)

// InMemoryStore favors clarity over performance; it backs unit tests and
// single-process deployments.
type InMemoryStore struct {
	mu        sync.RWMutex
	sightings map[id.SightingID]*models.Sighting
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sightings: make(map[id.SightingID]*models.Sighting)}
}

func (s *InMemoryStore) Create(_ context.Context, sighting *models.Sighting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *sighting
	clone.Media = append([]models.MediaRef{}, sighting.Media...)
	s.sightings[sighting.ID] = &clone
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, sightingID id.SightingID) (*models.Sighting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.sightings[sightingID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *stored
	clone.Media = append([]models.MediaRef{}, stored.Media...)
	return &clone, nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter) ([]*models.Sighting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*models.Sighting, 0, len(s.sightings))
	for _, stored := range s.sightings {
		if filter.Bounds != nil && !filter.Bounds.Contains(stored.Latitude, stored.Longitude) {
			continue
		}
		clone := *stored
		clone.Media = append([]models.MediaRef{}, stored.Media...)
		results = append(results, &clone)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

func (s *InMemoryStore) UpdateDerived(_ context.Context, sightingID id.SightingID, count int, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sightings[sightingID]
	if !ok {
		return ErrNotFound
	}
	if stored.Status == models.StatusConfirmed {
		return nil
	}
	stored.ValidationsCount = count
	stored.Status = status
	return nil
}

func (s *InMemoryStore) SetConfirmed(_ context.Context, sightingID id.SightingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sightings[sightingID]
	if !ok {
		return ErrNotFound
	}
	stored.Status = models.StatusConfirmed
	return nil
}

func (s *InMemoryStore) AppendMedia(_ context.Context, sightingID id.SightingID, media models.MediaRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sightings[sightingID]
	if !ok {
		return ErrNotFound
	}
	stored.Media = append(stored.Media, media)
	return nil
}
