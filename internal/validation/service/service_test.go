package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"watchpost/internal/audit"
	smodels "watchpost/internal/sighting/models"
	sservice "watchpost/internal/sighting/service"
	sstore "watchpost/internal/sighting/store"
	"watchpost/internal/validation/models"
	"watchpost/internal/validation/store"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
	"watchpost/pkg/requestcontext"
)

const (
	sightingLat = 40.7128
	sightingLng = -74.0060
)

// blockingLocator never resolves; it exercises the locate deadline.
type blockingLocator struct{}

func (blockingLocator) Locate(ctx context.Context, _ *models.SubmitRequest) (models.Position, error) {
	<-ctx.Done()
	return models.Position{}, ctx.Err()
}

type ServiceSuite struct {
	suite.Suite
	validations *store.InMemoryStore
	sightings   *sservice.Service
	audit       *audit.MemoryPublisher
	svc         *Service
}

func (s *ServiceSuite) SetupTest() {
	s.validations = store.NewInMemoryStore()
	s.audit = audit.NewMemoryPublisher()

	sightingSvc, err := sservice.New(sstore.NewInMemoryStore(), s.validations)
	s.Require().NoError(err)
	s.sightings = sightingSvc

	svc, err := New(s.validations, s.sightings, WithAuditPublisher(s.audit))
	s.Require().NoError(err)
	s.svc = svc
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) deviceCtx(fingerprint string) context.Context {
	return requestcontext.WithDeviceIdentifier(context.Background(), fingerprint)
}

func (s *ServiceSuite) createSighting(media ...smodels.MediaRef) *smodels.Sighting {
	sighting, err := s.sightings.Create(context.Background(), &smodels.CreateRequest{
		EventTime:    time.Now().Add(-time.Hour),
		Latitude:     sightingLat,
		Longitude:    sightingLng,
		ActivityType: "checkpoint",
		Media:        media,
	})
	s.Require().NoError(err)
	return sighting
}

func nearby() *models.SubmitRequest {
	return &models.SubmitRequest{Position: &models.Position{Latitude: sightingLat, Longitude: sightingLng}}
}

func farAway() *models.SubmitRequest {
	// ~1 degree of latitude is ~111km, far outside any sane radius.
	return &models.SubmitRequest{Position: &models.Position{Latitude: sightingLat + 1, Longitude: sightingLng}}
}

func (s *ServiceSuite) TestSubmitRecordsAndRecomputes() {
	sighting := s.createSighting()

	updated, err := s.svc.Submit(s.deviceCtx("device-one-fingerprint"), sighting.ID, nearby())
	s.Require().NoError(err)
	s.Equal(1, updated.ValidationsCount)
	s.Equal(smodels.StatusUnverified, updated.Status)
}

func (s *ServiceSuite) TestThreeDistinctDevicesPromote() {
	sighting := s.createSighting()

	var updated *smodels.Sighting
	var err error
	for i := 0; i < 3; i++ {
		updated, err = s.svc.Submit(s.deviceCtx(fmt.Sprintf("device-%d-fingerprint", i)), sighting.ID, nearby())
		s.Require().NoError(err)
	}
	s.Equal(3, updated.ValidationsCount)
	s.Equal(smodels.StatusVerified, updated.Status)
}

func (s *ServiceSuite) TestTwoDevicesPromoteWithMedia() {
	sighting := s.createSighting(smodels.MediaRef{StoragePath: "media/a.jpg", MimeType: "image/jpeg"})

	var updated *smodels.Sighting
	var err error
	for i := 0; i < 2; i++ {
		updated, err = s.svc.Submit(s.deviceCtx(fmt.Sprintf("device-%d-fingerprint", i)), sighting.ID, nearby())
		s.Require().NoError(err)
	}
	s.Equal(smodels.StatusVerified, updated.Status)
}

func (s *ServiceSuite) TestDuplicateDeviceRejected() {
	sighting := s.createSighting()
	ctx := s.deviceCtx("same-device-fingerprint")

	_, err := s.svc.Submit(ctx, sighting.ID, nearby())
	s.Require().NoError(err)

	_, err = s.svc.Submit(ctx, sighting.ID, nearby())
	s.Require().Error(err)
	s.Equal(models.ReasonDuplicateDevice, models.ReasonOf(err))

	count, err := s.validations.CountBySighting(context.Background(), sighting.ID)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *ServiceSuite) TestOutOfRangeRejected() {
	sighting := s.createSighting()

	_, err := s.svc.Submit(s.deviceCtx("device-one-fingerprint"), sighting.ID, farAway())
	s.Require().Error(err)
	s.Equal(models.ReasonOutOfRange, models.ReasonOf(err))
}

func (s *ServiceSuite) TestProximityGateBeforeDuplicateGate() {
	sighting := s.createSighting()
	ctx := s.deviceCtx("same-device-fingerprint")

	_, err := s.svc.Submit(ctx, sighting.ID, nearby())
	s.Require().NoError(err)

	// Same device, out of range: the distance failure must win.
	_, err = s.svc.Submit(ctx, sighting.ID, farAway())
	s.Require().Error(err)
	s.Equal(models.ReasonOutOfRange, models.ReasonOf(err))
}

func (s *ServiceSuite) TestGeolocationDenied() {
	sighting := s.createSighting()

	_, err := s.svc.Submit(s.deviceCtx("device-one-fingerprint"), sighting.ID, &models.SubmitRequest{})
	s.Require().Error(err)
	s.Equal(models.ReasonGeolocationDenied, models.ReasonOf(err))
}

func (s *ServiceSuite) TestGeolocationTimeout() {
	sighting := s.createSighting()

	svc, err := New(s.validations, s.sightings,
		WithLocator(blockingLocator{}),
		WithLocateTimeout(10*time.Millisecond),
	)
	s.Require().NoError(err)

	_, err = svc.Submit(s.deviceCtx("device-one-fingerprint"), sighting.ID, nearby())
	s.Require().Error(err)
	s.Equal(models.ReasonGeolocationTimeout, models.ReasonOf(err))
}

func (s *ServiceSuite) TestMissingDeviceIdentity() {
	sighting := s.createSighting()

	_, err := s.svc.Submit(context.Background(), sighting.ID, nearby())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestUnknownSighting() {
	_, err := s.svc.Submit(s.deviceCtx("device-one-fingerprint"), id.NewSightingID(), nearby())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestValidationOnConfirmedSightingLeavesStatusAlone() {
	sighting := s.createSighting()
	_, err := s.sightings.Confirm(context.Background(), sighting.ID)
	s.Require().NoError(err)

	updated, err := s.svc.Submit(s.deviceCtx("device-one-fingerprint"), sighting.ID, nearby())
	s.Require().NoError(err)
	s.Equal(smodels.StatusConfirmed, updated.Status)
	s.Zero(updated.ValidationsCount, "count stays frozen after confirmation")
}

func (s *ServiceSuite) TestConcurrentSameDeviceSubmissions() {
	sighting := s.createSighting()
	ctx := s.deviceCtx("racing-device-fingerprint")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.svc.Submit(ctx, sighting.ID, nearby())
		}(i)
	}
	wg.Wait()

	var admitted, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			admitted++
		case models.ReasonOf(err) == models.ReasonDuplicateDevice:
			duplicates++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, admitted)
	s.Equal(attempts-1, duplicates)

	count, err := s.validations.CountBySighting(context.Background(), sighting.ID)
	s.Require().NoError(err)
	s.Equal(1, count)
}
