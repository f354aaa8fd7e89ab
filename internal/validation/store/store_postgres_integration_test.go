//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	smodels "watchpost/internal/sighting/models"
	sstore "watchpost/internal/sighting/store"
	"watchpost/internal/validation/models"
	"watchpost/internal/validation/store"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	store     *store.PostgresStore
	sightings *sstore.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
	s.sightings = sstore.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "sightings"))
}

func (s *PostgresStoreSuite) newSightingID() id.SightingID {
	sighting := &smodels.Sighting{
		ID:           id.NewSightingID(),
		CreatedAt:    time.Now().UTC(),
		EventTime:    time.Now().UTC(),
		Latitude:     40.7128,
		Longitude:    -74.0060,
		ActivityType: "checkpoint",
		Status:       smodels.StatusUnverified,
	}
	s.Require().NoError(s.sightings.Create(context.Background(), sighting))
	return sighting.ID
}

func newValidation(sightingID id.SightingID, fingerprint string) *models.Validation {
	return &models.Validation{
		ID:                id.NewValidationID(),
		SightingID:        sightingID,
		DeviceFingerprint: fingerprint,
		IsWithinRange:     true,
		CreatedAt:         time.Now().UTC(),
	}
}

func (s *PostgresStoreSuite) TestCreateAndCount() {
	ctx := context.Background()
	sightingID := s.newSightingID()

	s.Require().NoError(s.store.Create(ctx, newValidation(sightingID, "device-a-0123456789")))
	s.Require().NoError(s.store.Create(ctx, newValidation(sightingID, "device-b-0123456789")))

	count, err := s.store.CountBySighting(ctx, sightingID)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *PostgresStoreSuite) TestDuplicateDeviceRejected() {
	ctx := context.Background()
	sightingID := s.newSightingID()

	s.Require().NoError(s.store.Create(ctx, newValidation(sightingID, "device-a-0123456789")))
	err := s.store.Create(ctx, newValidation(sightingID, "device-a-0123456789"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *PostgresStoreSuite) TestSameDeviceDifferentSightings() {
	ctx := context.Background()
	first := s.newSightingID()
	second := s.newSightingID()

	s.Require().NoError(s.store.Create(ctx, newValidation(first, "device-a-0123456789")))
	s.Require().NoError(s.store.Create(ctx, newValidation(second, "device-a-0123456789")))
}

// TestConcurrentSameDeviceInserts verifies the unique index lets exactly one
// row through when the same device races itself.
func (s *PostgresStoreSuite) TestConcurrentSameDeviceInserts() {
	ctx := context.Background()
	sightingID := s.newSightingID()

	const goroutines = 20
	var wg sync.WaitGroup
	var admitted, duplicates atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newValidation(sightingID, "racing-device-0123456789"))
			switch {
			case err == nil:
				admitted.Add(1)
			case dErrors.HasCode(err, dErrors.CodeConflict):
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), admitted.Load())
	s.Equal(int32(goroutines-1), duplicates.Load())

	count, err := s.store.CountBySighting(ctx, sightingID)
	s.Require().NoError(err)
	s.Equal(1, count)
}
