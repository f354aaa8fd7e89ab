package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"watchpost/internal/authz/models"
)

const inviteKeyPrefix = "invite:"

// RedisInviteStore keeps invites in Redis with a TTL matching the invite
// window, so expiry needs no sweeper.
type RedisInviteStore struct {
	client *redis.Client
}

func NewRedisInviteStore(client *redis.Client) *RedisInviteStore {
	return &RedisInviteStore{client: client}
}

func (s *RedisInviteStore) Create(ctx context.Context, invite *models.Invite) error {
	clone := *invite
	clone.Email = models.NormalizeEmail(invite.Email)

	payload, err := json.Marshal(&clone)
	if err != nil {
		return fmt.Errorf("marshal invite: %w", err)
	}

	ttl := time.Until(invite.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("invite already expired")
	}
	if err := s.client.Set(ctx, inviteKeyPrefix+clone.Email, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store invite: %w", err)
	}
	return nil
}

func (s *RedisInviteStore) Consume(ctx context.Context, email string) (*models.Invite, error) {
	// GETDEL is atomic, so exactly one concurrent consumer wins.
	payload, err := s.client.GetDel(ctx, inviteKeyPrefix+models.NormalizeEmail(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInviteNotFound
		}
		return nil, fmt.Errorf("consume invite: %w", err)
	}

	var invite models.Invite
	if err := json.Unmarshal(payload, &invite); err != nil {
		return nil, fmt.Errorf("unmarshal invite: %w", err)
	}
	return &invite, nil
}
