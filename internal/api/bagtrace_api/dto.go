package bagtrace_api

import (
	"time"

	"github.com/BearBump/BagTrace/internal/models"
)

type FlightIdentifierDTO struct {
	CarrierCode  string `json:"carrierCode"`
	FlightNumber string `json:"flightNumber"`
	Flight       string `json:"flight"`
}

type RouteDTO struct {
	Source             string     `json:"source"`
	Provider           string     `json:"provider"`
	OriginCode         string     `json:"originCode"`
	DestCode           string     `json:"destCode"`
	Airline            *string    `json:"airline,omitempty"`
	Aircraft           *string    `json:"aircraft,omitempty"`
	ScheduledDeparture *time.Time `json:"scheduledDeparture,omitempty"`
	ScheduledArrival   *time.Time `json:"scheduledArrival,omitempty"`
	Status             string     `json:"status"`
}

type AttemptDTO struct {
	Provider  string `json:"provider"`
	ElapsedMs int64  `json:"elapsedMs"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

type FlightRouteResponse struct {
	Flight   FlightIdentifierDTO `json:"flight"`
	Date     string              `json:"date"`
	Route    RouteDTO            `json:"route"`
	Attempts []AttemptDTO        `json:"attempts"`
}

type VerifyRequest struct {
	LastName        string `json:"lastName"`
	FlightNumber    string `json:"flightNumber"`
	Airline         string `json:"airline"`
	TravelDate      string `json:"travelDate"`
	OriginCode      string `json:"originCode"`
	DestCode        string `json:"destCode"`
	BaggageTag      string `json:"baggageTag"`
	BookingRef      string `json:"bookingRef"`
	TicketNumber    string `json:"ticketNumber"`
	TravelDocNumber string `json:"travelDocNumber"`
}

type EvidenceDTO struct {
	Tag    string `json:"tag"`
	Points int    `json:"points"`
}

type VerifyResponse struct {
	Score    int                  `json:"score"`
	Status   string               `json:"status"`
	Evidence []EvidenceDTO        `json:"evidence"`
	Issues   []string             `json:"issues"`
	Flight   *FlightIdentifierDTO `json:"flight,omitempty"`
	Route    *RouteDTO            `json:"route,omitempty"`
	Attempts []AttemptDTO         `json:"attempts"`
}

type ReportLuggageRequest struct {
	OwnerID     string         `json:"ownerId"`
	Status      string         `json:"status"`
	ImageURL    string         `json:"imageUrl"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

type LuggageDTO struct {
	ID             string         `json:"id"`
	OwnerID        string         `json:"ownerId"`
	Status         string         `json:"status"`
	ImageURL       string         `json:"imageUrl"`
	Description    string         `json:"description,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	HasEmbedding   bool           `json:"hasEmbedding"`
	EmbedFailCount int32          `json:"embedFailCount,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

type LuggageListResponse struct {
	Items []LuggageDTO `json:"items"`
}

type CandidateDTO struct {
	LuggageID  string  `json:"luggageId"`
	Similarity float64 `json:"similarity"`
}

type FindMatchesResponse struct {
	LuggageID  string         `json:"luggageId"`
	Candidates []CandidateDTO `json:"candidates"`
}

type MatchDTO struct {
	ID             uint64    `json:"id"`
	LostLuggageID  string    `json:"lostLuggageId"`
	FoundLuggageID string    `json:"foundLuggageId"`
	Similarity     float64   `json:"similarity"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type MatchViewDTO struct {
	Match MatchDTO    `json:"match"`
	Lost  *LuggageDTO `json:"lost"`
	Found *LuggageDTO `json:"found"`
}

type OwnerMatchesResponse struct {
	Items []MatchViewDTO `json:"items"`
}

type UpdateMatchRequest struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func toFlightDTO(id models.FlightIdentifier) FlightIdentifierDTO {
	return FlightIdentifierDTO{CarrierCode: id.CarrierCode, FlightNumber: id.FlightNumber, Flight: id.String()}
}

func toRouteDTO(r models.RouteResult) RouteDTO {
	return RouteDTO{
		Source:             r.Source,
		Provider:           r.Provider,
		OriginCode:         r.OriginCode,
		DestCode:           r.DestCode,
		Airline:            r.Airline,
		Aircraft:           r.Aircraft,
		ScheduledDeparture: r.ScheduledDeparture,
		ScheduledArrival:   r.ScheduledArrival,
		Status:             r.Status,
	}
}

func toAttemptDTOs(as []models.ProviderAttempt) []AttemptDTO {
	out := make([]AttemptDTO, 0, len(as))
	for _, a := range as {
		out = append(out, AttemptDTO{Provider: a.Provider, ElapsedMs: a.ElapsedMs, Outcome: a.Outcome, Error: a.Error})
	}
	return out
}

func toClaim(req VerifyRequest) models.TravelClaim {
	return models.TravelClaim{
		LastName:        req.LastName,
		FlightNumber:    req.FlightNumber,
		CarrierCode:     req.Airline,
		TravelDate:      req.TravelDate,
		OriginCode:      req.OriginCode,
		DestCode:        req.DestCode,
		BaggageTag:      req.BaggageTag,
		BookingRef:      req.BookingRef,
		TicketNumber:    req.TicketNumber,
		TravelDocNumber: req.TravelDocNumber,
	}
}

func toVerifyResponse(res models.VerificationResult) VerifyResponse {
	out := VerifyResponse{
		Score:    res.Score,
		Status:   res.Status,
		Evidence: make([]EvidenceDTO, 0, len(res.Evidence)),
		Issues:   res.Issues,
		Attempts: toAttemptDTOs(res.Attempts),
	}
	if out.Issues == nil {
		out.Issues = []string{}
	}
	for _, e := range res.Evidence {
		out.Evidence = append(out.Evidence, EvidenceDTO{Tag: e.Tag, Points: e.Points})
	}
	if res.Flight != nil {
		f := toFlightDTO(*res.Flight)
		out.Flight = &f
	}
	if res.ProviderRoute != nil {
		r := toRouteDTO(*res.ProviderRoute)
		out.Route = &r
	}
	return out
}

func toLuggageDTO(r *models.LuggageRecord) *LuggageDTO {
	if r == nil {
		return nil
	}
	return &LuggageDTO{
		ID:             r.ID.String(),
		OwnerID:        r.OwnerID,
		Status:         r.Status,
		ImageURL:       r.ImageURL,
		Description:    r.Description,
		Metadata:       r.Metadata,
		HasEmbedding:   len(r.Embedding) > 0,
		EmbedFailCount: r.EmbedFailCount,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toMatchDTO(m models.MatchRecord) MatchDTO {
	return MatchDTO{
		ID:             m.ID,
		LostLuggageID:  m.LostLuggageID.String(),
		FoundLuggageID: m.FoundLuggageID.String(),
		Similarity:     m.Similarity,
		Status:         m.Status,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
