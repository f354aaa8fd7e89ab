package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	smodels "watchpost/internal/sighting/models"
	sservice "watchpost/internal/sighting/service"
	sstore "watchpost/internal/sighting/store"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
)

type noopCounter struct{}

func (noopCounter) CountBySighting(context.Context, id.SightingID) (int, error) { return 0, nil }

type ServiceSuite struct {
	suite.Suite
	sightings *sservice.Service
	svc       *Service
}

func (s *ServiceSuite) SetupTest() {
	sightingSvc, err := sservice.New(sstore.NewInMemoryStore(), noopCounter{})
	s.Require().NoError(err)
	s.sightings = sightingSvc

	svc, err := New(sightingSvc)
	s.Require().NoError(err)
	s.svc = svc
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func validRow(lat float64) smodels.CreateRequest {
	return smodels.CreateRequest{
		EventTime:    time.Now().Add(-time.Hour),
		Latitude:     lat,
		Longitude:    -74.0060,
		ActivityType: "checkpoint",
	}
}

func (s *ServiceSuite) TestImportAllValid() {
	result, err := s.svc.Import(context.Background(), []smodels.CreateRequest{
		validRow(40.1), validRow(40.2), validRow(40.3),
	})
	s.Require().NoError(err)
	s.Equal(3, result.Imported)
	s.Zero(result.Failed)
	s.Len(result.IDs, 3)
	s.Empty(result.Errors)

	listed, err := s.sightings.List(context.Background(), smodels.ListFilter{})
	s.Require().NoError(err)
	s.Len(listed, 3)
	for _, sighting := range listed {
		s.Equal(smodels.StatusUnverified, sighting.Status)
	}
}

func (s *ServiceSuite) TestImportReportsPerRowErrors() {
	rows := []smodels.CreateRequest{
		validRow(40.1),
		{Latitude: 95, Longitude: 0, ActivityType: "checkpoint", EventTime: time.Now()},
		validRow(40.2),
		{},
	}
	result, err := s.svc.Import(context.Background(), rows)
	s.Require().NoError(err)
	s.Equal(2, result.Imported)
	s.Equal(2, result.Failed)
	s.Require().Len(result.Errors, 2)
	s.Equal(1, result.Errors[0].Row)
	s.Equal(3, result.Errors[1].Row)
}

func (s *ServiceSuite) TestImportEmptyBatch() {
	_, err := s.svc.Import(context.Background(), nil)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestImportOversizedBatch() {
	rows := make([]smodels.CreateRequest, MaxBatchSize+1)
	for i := range rows {
		rows[i] = validRow(40)
	}
	_, err := s.svc.Import(context.Background(), rows)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestNewRequiresCreator(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}
