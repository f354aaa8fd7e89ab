package store

import (
	"context"
	"sync"

	"watchpost/internal/authz/models"
	id "watchpost/pkg/domain"
)

type InMemoryPrincipalStore struct {
	mu         sync.RWMutex
	principals map[id.PrincipalID]*models.Principal
	byEmail    map[string]id.PrincipalID
}

func NewInMemoryPrincipalStore() *InMemoryPrincipalStore {
	return &InMemoryPrincipalStore{
		principals: make(map[id.PrincipalID]*models.Principal),
		byEmail:    make(map[string]id.PrincipalID),
	}
}

func (s *InMemoryPrincipalStore) Create(_ context.Context, principal *models.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := models.NormalizeEmail(principal.Email)
	if _, exists := s.byEmail[email]; exists {
		return ErrEmailTaken
	}
	clone := *principal
	s.principals[principal.ID] = &clone
	s.byEmail[email] = principal.ID
	return nil
}

func (s *InMemoryPrincipalStore) Get(_ context.Context, principalID id.PrincipalID) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.principals[principalID]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	clone := *stored
	return &clone, nil
}

func (s *InMemoryPrincipalStore) GetByEmail(_ context.Context, email string) (*models.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	principalID, ok := s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	clone := *s.principals[principalID]
	return &clone, nil
}

func (s *InMemoryPrincipalStore) UpdateRole(_ context.Context, principalID id.PrincipalID, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.principals[principalID]
	if !ok {
		return ErrPrincipalNotFound
	}
	stored.Role = role
	return nil
}

type InMemoryInviteStore struct {
	mu      sync.Mutex
	invites map[string]*models.Invite
}

func NewInMemoryInviteStore() *InMemoryInviteStore {
	return &InMemoryInviteStore{invites: make(map[string]*models.Invite)}
}

func (s *InMemoryInviteStore) Create(_ context.Context, invite *models.Invite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *invite
	clone.Email = models.NormalizeEmail(invite.Email)
	s.invites[clone.Email] = &clone
	return nil
}

func (s *InMemoryInviteStore) Consume(_ context.Context, email string) (*models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.NormalizeEmail(email)
	invite, ok := s.invites[key]
	if !ok {
		return nil, ErrInviteNotFound
	}
	delete(s.invites, key)
	clone := *invite
	return &clone, nil
}
