package store

import (
	"context"
	"sync"

	"watchpost/internal/validation/models"
	id "watchpost/pkg/domain"
)

type InMemoryStore struct {
	mu sync.Mutex
	// byDevice mirrors the postgres unique index on (sighting, fingerprint).
	byDevice map[id.SightingID]map[string]*models.Validation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byDevice: make(map[id.SightingID]map[string]*models.Validation)}
}

func (s *InMemoryStore) Create(_ context.Context, validation *models.Validation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	devices, ok := s.byDevice[validation.SightingID]
	if !ok {
		devices = make(map[string]*models.Validation)
		s.byDevice[validation.SightingID] = devices
	}
	if _, exists := devices[validation.DeviceFingerprint]; exists {
		return ErrDuplicate
	}
	clone := *validation
	devices[validation.DeviceFingerprint] = &clone
	return nil
}

func (s *InMemoryStore) CountBySighting(_ context.Context, sightingID id.SightingID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byDevice[sightingID]), nil
}
