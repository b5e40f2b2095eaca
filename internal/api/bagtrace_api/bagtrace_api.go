package bagtrace_api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/BearBump/BagTrace/internal/flightid"
	"github.com/BearBump/BagTrace/internal/models"
	"github.com/BearBump/BagTrace/internal/services/luggage"
	"github.com/BearBump/BagTrace/internal/services/matching"
	"github.com/BearBump/BagTrace/internal/services/routes"
)

const maxBodyBytes = 1 << 20

type RouteResolver interface {
	Resolve(ctx context.Context, id models.FlightIdentifier, travelDate string) (routes.Resolution, error)
}

type Verifier interface {
	Verify(ctx context.Context, claim models.TravelClaim) (models.VerificationResult, error)
}

type LuggageService interface {
	Report(ctx context.Context, in models.LuggageCreateInput) (*models.LuggageRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*models.LuggageRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.LuggageRecord, error)
	UpdateMatchStatus(ctx context.Context, matchID uint64, status string) (*models.MatchRecord, error)
}

type Matcher interface {
	FindMatches(ctx context.Context, luggageID uuid.UUID) ([]models.MatchCandidate, error)
}

type OwnerMatcher interface {
	OwnerMatches(ctx context.Context, ownerID string) ([]models.MatchView, error)
}

type BagTraceAPI struct {
	resolver   RouteResolver
	verifier   Verifier
	luggage    LuggageService
	matcher    Matcher
	aggregator OwnerMatcher

	today func() string
}

func New(resolver RouteResolver, verifier Verifier, lug LuggageService, matcher Matcher, aggregator OwnerMatcher) *BagTraceAPI {
	return &BagTraceAPI{
		resolver:   resolver,
		verifier:   verifier,
		luggage:    lug,
		matcher:    matcher,
		aggregator: aggregator,
		today:      func() string { return time.Now().UTC().Format(time.DateOnly) },
	}
}

func (a *BagTraceAPI) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/flight-route", a.GetFlightRoute)
		r.Post("/travel/verify", a.VerifyTravel)

		r.Post("/luggage", a.ReportLuggage)
		r.Get("/luggage/{id}", a.GetLuggage)
		r.Post("/luggage/{id}/matches", a.FindMatches)

		r.Get("/owners/{ownerId}/luggage", a.ListOwnerLuggage)
		r.Get("/owners/{ownerId}/matches", a.ListOwnerMatches)

		r.Put("/matches/{id}", a.UpdateMatch)
	})
}

// GET /v1/flight-route?flight=AA100&airline=AA&date=2024-03-15
func (a *BagTraceAPI) GetFlightRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := flightid.Parse(q.Get("flight"), q.Get("airline"))
	if err != nil {
		writeError(w, err)
		return
	}
	rawDate := q.Get("date")
	if strings.TrimSpace(rawDate) == "" {
		rawDate = a.today()
	}
	date, err := flightid.ParseDate(rawDate)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := a.resolver.Resolve(r.Context(), id, date)
	if err != nil {
		writeError(w, err)
		return
	}
	if res.Route == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "flight not found"})
		return
	}
	writeJSON(w, http.StatusOK, FlightRouteResponse{
		Flight:   toFlightDTO(id),
		Date:     date,
		Route:    toRouteDTO(*res.Route),
		Attempts: toAttemptDTOs(res.Attempts),
	})
}

func (a *BagTraceAPI) VerifyTravel(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := a.verifier.Verify(r.Context(), toClaim(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toVerifyResponse(res))
}

func (a *BagTraceAPI) ReportLuggage(w http.ResponseWriter, r *http.Request) {
	var req ReportLuggageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := a.luggage.Report(r.Context(), models.LuggageCreateInput{
		OwnerID:     req.OwnerID,
		Status:      req.Status,
		ImageURL:    req.ImageURL,
		Description: req.Description,
		Metadata:    req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLuggageDTO(rec))
}

func (a *BagTraceAPI) GetLuggage(w http.ResponseWriter, r *http.Request) {
	id, ok := luggageID(w, r)
	if !ok {
		return
	}
	rec, err := a.luggage.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLuggageDTO(rec))
}

func (a *BagTraceAPI) ListOwnerLuggage(w http.ResponseWriter, r *http.Request) {
	recs, err := a.luggage.ListByOwner(r.Context(), chi.URLParam(r, "ownerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := LuggageListResponse{Items: make([]LuggageDTO, 0, len(recs))}
	for _, rec := range recs {
		out.Items = append(out.Items, *toLuggageDTO(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *BagTraceAPI) FindMatches(w http.ResponseWriter, r *http.Request) {
	id, ok := luggageID(w, r)
	if !ok {
		return
	}
	cands, err := a.matcher.FindMatches(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := FindMatchesResponse{LuggageID: id.String(), Candidates: make([]CandidateDTO, 0, len(cands))}
	for _, c := range cands {
		out.Candidates = append(out.Candidates, CandidateDTO{LuggageID: c.LuggageID.String(), Similarity: c.Similarity})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *BagTraceAPI) ListOwnerMatches(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(chi.URLParam(r, "ownerId"))
	if ownerID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "ownerId is required"})
		return
	}
	views, err := a.aggregator.OwnerMatches(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := OwnerMatchesResponse{Items: make([]MatchViewDTO, 0, len(views))}
	for _, v := range views {
		out.Items = append(out.Items, MatchViewDTO{
			Match: toMatchDTO(v.Match),
			Lost:  toLuggageDTO(v.Lost),
			Found: toLuggageDTO(v.Found),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *BagTraceAPI) UpdateMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || matchID == 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid match id"})
		return
	}
	var req UpdateMatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	m, err := a.luggage.UpdateMatchStatus(r.Context(), matchID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatchDTO(*m))
}

func luggageID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid luggage id"})
		return uuid.Nil, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, flightid.ErrInvalidFormat),
		errors.Is(err, flightid.ErrInvalidDate),
		errors.Is(err, luggage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, matching.ErrLuggageNotFound),
		errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, matching.ErrNoEmbedding),
		errors.Is(err, matching.ErrNotLost):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err.Error())
		msg = "internal error"
	}
	writeJSON(w, code, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
