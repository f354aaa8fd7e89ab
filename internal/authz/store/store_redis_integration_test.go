//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"watchpost/internal/authz/models"
	"watchpost/internal/authz/store"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/testutil/containers"
)

type RedisInviteSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisInviteStore
}

func TestRedisInviteSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisInviteSuite))
}

func (s *RedisInviteSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = store.NewRedisInviteStore(s.redis.Client)
}

func (s *RedisInviteSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func newInvite(email string) *models.Invite {
	now := time.Now().UTC()
	return &models.Invite{
		ID:        id.NewInviteID(),
		Email:     email,
		InvitedBy: id.NewPrincipalID(),
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
}

func (s *RedisInviteSuite) TestCreateAndConsume() {
	ctx := context.Background()
	created := newInvite("Somebody@Example.ORG")
	s.Require().NoError(s.store.Create(ctx, created))

	// Email matching is case-insensitive.
	consumed, err := s.store.Consume(ctx, "somebody@example.org")
	s.Require().NoError(err)
	s.Equal(created.ID, consumed.ID)

	_, err = s.store.Consume(ctx, "somebody@example.org")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RedisInviteSuite) TestConsumeMissing() {
	_, err := s.store.Consume(context.Background(), "ghost@example.org")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// TestConcurrentConsume verifies GETDEL hands the invite to exactly one
// caller.
func (s *RedisInviteSuite) TestConcurrentConsume() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newInvite("racer@example.org")))

	const goroutines = 10
	var wg sync.WaitGroup
	var winners atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.Consume(ctx, "racer@example.org"); err == nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load())
}
