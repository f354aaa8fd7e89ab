package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"watchpost/internal/sighting/models"
	"watchpost/internal/sighting/service"
	"watchpost/internal/sighting/store"
	id "watchpost/pkg/domain"
)

type adjustableCounter struct{ count int }

func (c *adjustableCounter) CountBySighting(context.Context, id.SightingID) (int, error) {
	return c.count, nil
}

type HandlerSuite struct {
	suite.Suite
	counter *adjustableCounter
	svc     *service.Service
	server  *httptest.Server
}

func (s *HandlerSuite) SetupTest() {
	s.counter = &adjustableCounter{}
	svc, err := service.New(store.NewInMemoryStore(), s.counter)
	s.Require().NoError(err)
	s.svc = svc

	router := chi.NewRouter()
	New(svc, slog.Default()).Register(router)
	s.server = httptest.NewServer(router)
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) postJSON(path string, body any) *http.Response {
	payload, err := json.Marshal(body)
	s.Require().NoError(err)
	resp, err := http.Post(s.server.URL+path, "application/json", bytes.NewReader(payload))
	s.Require().NoError(err)
	return resp
}

func (s *HandlerSuite) decode(resp *http.Response, v any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(v))
}

func validBody() map[string]any {
	return map[string]any{
		"event_time":    time.Now().Add(-time.Hour).Format(time.RFC3339),
		"latitude":      40.7128,
		"longitude":     -74.0060,
		"activity_type": "checkpoint",
		"notes":         "two vans at the corner",
	}
}

func (s *HandlerSuite) TestCreateSighting() {
	resp := s.postJSON("/sightings", validBody())
	s.Equal(http.StatusCreated, resp.StatusCode)

	var created Response
	s.decode(resp, &created)
	s.Equal(models.StatusUnverified, created.Status)
	s.Equal("unverified", created.DisplayStatus)
	s.Zero(created.ValidationsCount)
	s.False(created.ID.IsNil())
}

func (s *HandlerSuite) TestCreateRejectsInvalidFields() {
	body := validBody()
	body["latitude"] = 91.0
	body["activity_type"] = ""

	resp := s.postJSON("/sightings", body)
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	var errBody map[string]string
	s.decode(resp, &errBody)
	s.Equal("invalid_input", errBody["error"])
}

func (s *HandlerSuite) TestCreateRejectsMalformedJSON() {
	resp, err := http.Post(s.server.URL+"/sightings", "application/json", bytes.NewReader([]byte("{")))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *HandlerSuite) TestGetSighting() {
	resp := s.postJSON("/sightings", validBody())
	var created Response
	s.decode(resp, &created)

	getResp, err := http.Get(fmt.Sprintf("%s/sightings/%s", s.server.URL, created.ID))
	s.Require().NoError(err)
	s.Equal(http.StatusOK, getResp.StatusCode)

	var fetched Response
	s.decode(getResp, &fetched)
	s.Equal(created.ID, fetched.ID)
}

func (s *HandlerSuite) TestGetUnknownSighting() {
	resp, err := http.Get(fmt.Sprintf("%s/sightings/%s", s.server.URL, id.NewSightingID()))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *HandlerSuite) TestGetMalformedID() {
	resp, err := http.Get(s.server.URL + "/sightings/not-a-uuid")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *HandlerSuite) TestVerifiedDisplaysAsActive() {
	resp := s.postJSON("/sightings", validBody())
	var created Response
	s.decode(resp, &created)

	s.counter.count = 3
	_, err := s.svc.Recompute(context.Background(), created.ID)
	s.Require().NoError(err)

	getResp, err := http.Get(fmt.Sprintf("%s/sightings/%s", s.server.URL, created.ID))
	s.Require().NoError(err)
	var fetched Response
	s.decode(getResp, &fetched)
	s.Equal(models.StatusVerified, fetched.Status)
	s.Equal("active", fetched.DisplayStatus)
}

func (s *HandlerSuite) TestListWithViewport() {
	s.postJSON("/sightings", validBody()).Body.Close()

	outside := validBody()
	outside["latitude"] = 51.5074
	outside["longitude"] = -0.1278
	s.postJSON("/sightings", outside).Body.Close()

	resp, err := http.Get(s.server.URL + "/sightings?min_lat=40&max_lat=41&min_lng=-75&max_lng=-73")
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		Sightings []Response `json:"sightings"`
	}
	s.decode(resp, &body)
	s.Len(body.Sightings, 1)
}

func (s *HandlerSuite) TestListRejectsPartialViewport() {
	resp, err := http.Get(s.server.URL + "/sightings?min_lat=40")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
