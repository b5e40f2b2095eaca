package bagtrace_api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/BearBump/BagTrace/internal/integrations/flightdata"
	fdmocks "github.com/BearBump/BagTrace/internal/integrations/flightdata/mocks"
	"github.com/BearBump/BagTrace/internal/integrations/flightdata/static"
	"github.com/BearBump/BagTrace/internal/models"
	"github.com/BearBump/BagTrace/internal/services/luggage"
	lugmocks "github.com/BearBump/BagTrace/internal/services/luggage/mocks"
	"github.com/BearBump/BagTrace/internal/services/matching"
	matchmocks "github.com/BearBump/BagTrace/internal/services/matching/mocks"
	"github.com/BearBump/BagTrace/internal/services/routes"
	"github.com/BearBump/BagTrace/internal/services/verification"
	"github.com/BearBump/BagTrace/internal/storage/pgluggage"
)

type APISuite struct {
	suite.Suite

	primary  *fdmocks.MockProvider
	repo     *lugmocks.MockRepository
	producer *lugmocks.MockProducer
	index    *matchmocks.MockIndex
	store    *matchmocks.MockMatchStore

	srv *httptest.Server
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	s.primary = &fdmocks.MockProvider{ProviderName: "primary-mock"}
	s.repo = &lugmocks.MockRepository{}
	s.producer = &lugmocks.MockProducer{}
	s.index = &matchmocks.MockIndex{}
	s.store = &matchmocks.MockMatchStore{}

	resolver := routes.New([]flightdata.Provider{s.primary, static.Default()}...)
	api := New(
		resolver,
		verification.NewService(resolver, nil, nil),
		luggage.New(s.repo, s.producer, "luggage.reported"),
		matching.NewEngine(s.index, nil),
		matching.NewAggregator(s.store),
	)
	api.today = func() string { return "2024-03-15" }

	r := chi.NewRouter()
	api.Register(r)
	s.srv = httptest.NewServer(r)
}

func (s *APISuite) TearDownTest() {
	s.srv.Close()
	s.primary.AssertExpectations(s.T())
	s.repo.AssertExpectations(s.T())
	s.producer.AssertExpectations(s.T())
	s.index.AssertExpectations(s.T())
	s.store.AssertExpectations(s.T())
}

func (s *APISuite) do(method, path string, body any) (*http.Response, []byte) {
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	s.Require().NoError(err)
	return resp, buf.Bytes()
}

func (s *APISuite) TestFlightRoute_StaticFallback() {
	s.primary.On("GetRoute", mock.Anything, models.RouteQuery{CarrierCode: "AA", FlightNumber: "100", TravelDate: "2024-03-15"}).
		Return(nil, nil).Once()

	resp, body := s.do(http.MethodGet, "/v1/flight-route?flight=aa%20100", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("application/json", resp.Header.Get("Content-Type"))

	var out FlightRouteResponse
	s.Require().NoError(json.Unmarshal(body, &out))
	s.Equal("AA100", out.Flight.Flight)
	s.Equal("2024-03-15", out.Date)
	s.Equal(models.RouteSourceSimulated, out.Route.Source)
	s.Equal("JFK", out.Route.OriginCode)
	s.Equal("LAX", out.Route.DestCode)
	s.Require().Len(out.Attempts, 2)
	s.Equal(models.AttemptNotFound, out.Attempts[0].Outcome)
	s.Equal(models.AttemptFound, out.Attempts[1].Outcome)
}

func (s *APISuite) TestFlightRoute_NotFound() {
	s.primary.On("GetRoute", mock.Anything, mock.Anything).Return(nil, nil).Once()

	resp, body := s.do(http.MethodGet, "/v1/flight-route?flight=ZZ9999&date=2024-03-15", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.JSONEq(`{"error":"flight not found"}`, string(body))
}

func (s *APISuite) TestFlightRoute_BadInput() {
	resp, body := s.do(http.MethodGet, "/v1/flight-route?flight=12", nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Contains(string(body), "12")

	resp, _ = s.do(http.MethodGet, "/v1/flight-route?flight=AA100&date=15.03.2024", nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *APISuite) TestVerify_PrimaryRouteAndDocument() {
	s.primary.On("GetRoute", mock.Anything, models.RouteQuery{CarrierCode: "AA", FlightNumber: "100", TravelDate: "2024-03-15"}).
		Return(&models.RouteResult{
			Source:     models.RouteSourcePrimary,
			Provider:   "primary-mock",
			OriginCode: "JFK",
			DestCode:   "LAX",
			Status:     "scheduled",
		}, nil).Once()

	resp, body := s.do(http.MethodPost, "/v1/travel/verify", VerifyRequest{
		LastName:        "Doe",
		FlightNumber:    "AA100",
		TravelDate:      "2024-03-15",
		OriginCode:      "jfk",
		DestCode:        "lax",
		TravelDocNumber: "A1234567",
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var out VerifyResponse
	s.Require().NoError(json.Unmarshal(body, &out))
	s.Equal(70, out.Score)
	s.Equal(models.VerificationVerified, out.Status)
	s.Equal([]EvidenceDTO{
		{Tag: verification.TagFlightVerified, Points: 50},
		{Tag: verification.TagTravelDocument, Points: 20},
	}, out.Evidence)
	s.Empty(out.Issues)
	s.Require().NotNil(out.Route)
	s.Equal("primary-mock", out.Route.Provider)
	s.Require().Len(out.Attempts, 1)
}

func (s *APISuite) TestVerify_MalformedFlight() {
	resp, _ := s.do(http.MethodPost, "/v1/travel/verify", VerifyRequest{FlightNumber: "???", TravelDate: "2024-03-15"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/v1/travel/verify", bytes.NewBufferString("{"))
	s.Require().NoError(err)
	raw, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	raw.Body.Close()
	s.Equal(http.StatusBadRequest, raw.StatusCode)
}

func (s *APISuite) TestReportLuggage() {
	id := uuid.New()
	now := time.Now().UTC()
	in := models.LuggageCreateInput{OwnerID: "u1", Status: models.LuggageStatusLost, ImageURL: "https://img/1.jpg", Description: "red suitcase"}
	s.repo.On("CreateLuggage", mock.Anything, in).Return(&models.LuggageRecord{
		ID: id, OwnerID: "u1", Status: models.LuggageStatusLost, ImageURL: in.ImageURL, Description: in.Description,
		CreatedAt: now, UpdatedAt: now,
	}, nil).Once()
	s.producer.On("Publish", mock.Anything, "luggage.reported", []byte(id.String()), mock.Anything).Return(nil).Once()

	resp, body := s.do(http.MethodPost, "/v1/luggage", ReportLuggageRequest{
		OwnerID: "u1", Status: "LOST", ImageURL: "https://img/1.jpg", Description: "red suitcase",
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)

	var out LuggageDTO
	s.Require().NoError(json.Unmarshal(body, &out))
	s.Equal(id.String(), out.ID)
	s.False(out.HasEmbedding)
}

func (s *APISuite) TestReportLuggage_Invalid() {
	resp, _ := s.do(http.MethodPost, "/v1/luggage", ReportLuggageRequest{OwnerID: "u1", Status: "stolen", ImageURL: "x"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *APISuite) TestGetLuggage() {
	id := uuid.New()
	s.repo.On("GetLuggage", mock.Anything, id).Return(nil, pgluggage.ErrNotFound).Once()

	resp, _ := s.do(http.MethodGet, "/v1/luggage/"+id.String(), nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(http.MethodGet, "/v1/luggage/not-a-uuid", nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *APISuite) TestListOwnerLuggage() {
	recs := []*models.LuggageRecord{
		{ID: uuid.New(), OwnerID: "u1", Status: models.LuggageStatusLost, Embedding: []float32{1, 0}},
		{ID: uuid.New(), OwnerID: "u1", Status: models.LuggageStatusFound},
	}
	s.repo.On("ListLuggageByOwner", mock.Anything, "u1").Return(recs, nil).Once()

	resp, body := s.do(http.MethodGet, "/v1/owners/u1/luggage", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var out LuggageListResponse
	s.Require().NoError(json.Unmarshal(body, &out))
	s.Require().Len(out.Items, 2)
	s.True(out.Items[0].HasEmbedding)
	s.False(out.Items[1].HasEmbedding)
}

func (s *APISuite) TestFindMatches() {
	lostID, foundID := uuid.New(), uuid.New()
	s.index.On("GetLuggage", mock.Anything, lostID).
		Return(&models.LuggageRecord{ID: lostID, Status: models.LuggageStatusLost, Embedding: []float32{1, 0}}, nil).Once()
	s.index.On("SearchSimilar", mock.Anything, mock.Anything).
		Return([]models.MatchCandidate{{LuggageID: lostID, Similarity: 1}, {LuggageID: foundID, Similarity: 0.91}}, nil).Once()
	s.index.On("UpsertMatches", mock.Anything, mock.Anything).Return(nil).Once()

	resp, body := s.do(http.MethodPost, "/v1/luggage/"+lostID.String()+"/matches", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var out FindMatchesResponse
	s.Require().NoError(json.Unmarshal(body, &out))
	s.Equal([]CandidateDTO{{LuggageID: foundID.String(), Similarity: 0.91}}, out.Candidates)
}

func (s *APISuite) TestFindMatches_Errors() {
	noEmb, missing, found := uuid.New(), uuid.New(), uuid.New()
	s.index.On("GetLuggage", mock.Anything, noEmb).Return(&models.LuggageRecord{ID: noEmb, Status: models.LuggageStatusLost}, nil).Once()
	s.index.On("GetLuggage", mock.Anything, missing).Return(nil, pgluggage.ErrNotFound).Once()
	s.index.On("GetLuggage", mock.Anything, found).
		Return(&models.LuggageRecord{ID: found, Status: models.LuggageStatusFound, Embedding: []float32{1, 0}}, nil).Once()

	resp, body := s.do(http.MethodPost, "/v1/luggage/"+noEmb.String()+"/matches", nil)
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Contains(string(body), "no embedding")

	resp, body = s.do(http.MethodPost, "/v1/luggage/"+found.String()+"/matches", nil)
	s.Equal(http.StatusConflict, resp.StatusCode)
	s.Contains(string(body), "not reported lost")
	s.index.AssertNotCalled(s.T(), "SearchSimilar", mock.Anything, mock.Anything)
	s.index.AssertNotCalled(s.T(), "UpsertMatches", mock.Anything, mock.Anything)

	resp, _ = s.do(http.MethodPost, "/v1/luggage/"+missing.String()+"/matches", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *APISuite) TestOwnerMatches() {
	lost := &models.LuggageRecord{ID: uuid.New(), OwnerID: "u1", Status: models.LuggageStatusLost}
	found := &models.LuggageRecord{ID: uuid.New(), OwnerID: "u2", Status: models.LuggageStatusFound}
	m := &models.MatchRecord{ID: 7, LostLuggageID: lost.ID, FoundLuggageID: found.ID, Similarity: 0.88, Status: models.MatchStatusPending}

	s.store.On("ListLuggageByOwner", mock.Anything, "u1").Return([]*models.LuggageRecord{lost}, nil).Once()
	s.store.On("ListMatchesByLostIDs", mock.Anything, []uuid.UUID{lost.ID}).Return([]*models.MatchRecord{m}, nil).Once()
	s.store.On("GetLuggageByIDs", mock.Anything, []uuid.UUID{found.ID}).Return([]*models.LuggageRecord{found}, nil).Once()

	resp, body := s.do(http.MethodGet, "/v1/owners/u1/matches", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var out OwnerMatchesResponse
	s.Require().NoError(json.Unmarshal(body, &out))
	s.Require().Len(out.Items, 1)
	s.Equal(uint64(7), out.Items[0].Match.ID)
	s.Equal(found.ID.String(), out.Items[0].Found.ID)
}

func (s *APISuite) TestUpdateMatch() {
	s.repo.On("UpdateMatchStatus", mock.Anything, uint64(7), models.MatchStatusAccepted).
		Return(&models.MatchRecord{ID: 7, Status: models.MatchStatusAccepted}, nil).Once()

	resp, body := s.do(http.MethodPut, "/v1/matches/7", UpdateMatchRequest{Status: "Accepted"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var out MatchDTO
	s.Require().NoError(json.Unmarshal(body, &out))
	s.Equal(models.MatchStatusAccepted, out.Status)

	resp, _ = s.do(http.MethodPut, "/v1/matches/7", UpdateMatchRequest{Status: "lost"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(http.MethodPut, "/v1/matches/abc", UpdateMatchRequest{Status: "accepted"})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestStatusFor_Internal(t *testing.T) {
	require.Equal(t, http.StatusInternalServerError, statusFor(http.ErrHandlerTimeout))

	rec := httptest.NewRecorder()
	writeError(rec, http.ErrHandlerTimeout)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}
