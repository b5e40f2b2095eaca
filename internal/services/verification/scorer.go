package verification

import (
	"fmt"
	"strings"

	"github.com/BearBump/BagTrace/internal/models"
)

const (
	TagFlightVerified   = "flight-verified"
	TagFlightPartial    = "flight-partial"
	TagFlightSecondary  = "flight-secondary"
	TagTravelDocument   = "travel-document"
	TagBaggageTag       = "baggage-tag"
	TagBookingReference = "booking-reference"
	TagTicketNumber     = "ticket-number"
)

type Weights struct {
	FlightVerified   int
	FlightPartial    int
	FlightSecondary  int
	TravelDocument   int
	BaggageTag       int
	BookingReference int
	TicketNumber     int
}

func DefaultWeights() Weights {
	return Weights{
		FlightVerified:   50,
		FlightPartial:    25,
		FlightSecondary:  35,
		TravelDocument:   20,
		BaggageTag:       15,
		BookingReference: 10,
		TicketNumber:     10,
	}
}

type Thresholds struct {
	Verified int // default: 40
	Likely   int // default: 20
}

func DefaultThresholds() Thresholds {
	return Thresholds{Verified: 40, Likely: 20}
}

// Facts is everything a rule may look at.
type Facts struct {
	Claim        models.TravelClaim
	Route        *models.RouteResult
	RouteMatches bool
}

type Rule struct {
	Tag     string
	Points  int
	Applies func(f Facts) bool
}

func DefaultRules(w Weights) []Rule {
	return []Rule{
		{Tag: TagFlightVerified, Points: w.FlightVerified, Applies: func(f Facts) bool {
			return f.Route != nil && f.Route.Source == models.RouteSourcePrimary && f.RouteMatches
		}},
		{Tag: TagFlightPartial, Points: w.FlightPartial, Applies: func(f Facts) bool {
			if f.Route == nil {
				return false
			}
			if f.Route.Source == models.RouteSourceSimulated {
				return f.RouteMatches
			}
			return !f.RouteMatches
		}},
		{Tag: TagFlightSecondary, Points: w.FlightSecondary, Applies: func(f Facts) bool {
			return f.Route != nil && f.Route.Source == models.RouteSourceSecondary && f.RouteMatches
		}},
		{Tag: TagTravelDocument, Points: w.TravelDocument, Applies: func(f Facts) bool {
			return ValidTravelDocument(f.Claim.TravelDocNumber)
		}},
		{Tag: TagBaggageTag, Points: w.BaggageTag, Applies: func(f Facts) bool {
			return present(f.Claim.BaggageTag)
		}},
		{Tag: TagBookingReference, Points: w.BookingReference, Applies: func(f Facts) bool {
			return present(f.Claim.BookingRef)
		}},
		{Tag: TagTicketNumber, Points: w.TicketNumber, Applies: func(f Facts) bool {
			return present(f.Claim.TicketNumber)
		}},
	}
}

type Scorer struct {
	rules      []Rule
	thresholds Thresholds
}

func NewScorer(w Weights, t Thresholds) *Scorer {
	return NewScorerWithRules(DefaultRules(w), t)
}

func NewScorerWithRules(rules []Rule, t Thresholds) *Scorer {
	return &Scorer{rules: rules, thresholds: t}
}

func DefaultScorer() *Scorer {
	return NewScorer(DefaultWeights(), DefaultThresholds())
}

// Score is pure: same claim and route always give the same result.
func (s *Scorer) Score(claim models.TravelClaim, route *models.RouteResult) models.VerificationResult {
	f := Facts{Claim: claim, Route: route, RouteMatches: RouteMatchesClaim(route, claim)}

	out := models.VerificationResult{
		Evidence:      []models.Evidence{},
		Issues:        []string{},
		ProviderRoute: route,
	}
	seen := map[string]bool{}
	for _, r := range s.rules {
		if seen[r.Tag] || !r.Applies(f) {
			continue
		}
		seen[r.Tag] = true
		out.Score += r.Points
		out.Evidence = append(out.Evidence, models.Evidence{Tag: r.Tag, Points: r.Points})
	}
	if out.Score < 0 {
		out.Score = 0
	}
	out.Status = s.Status(out.Score)
	out.Issues = issues(f)
	return out
}

func (s *Scorer) Status(score int) string {
	switch {
	case score >= s.thresholds.Verified:
		return models.VerificationVerified
	case score >= s.thresholds.Likely:
		return models.VerificationLikely
	default:
		return models.VerificationManualReview
	}
}

func RouteMatchesClaim(route *models.RouteResult, claim models.TravelClaim) bool {
	if route == nil {
		return false
	}
	return sameAirport(route.OriginCode, claim.OriginCode) && sameAirport(route.DestCode, claim.DestCode)
}

func sameAirport(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

func issues(f Facts) []string {
	out := []string{}
	switch {
	case f.Route == nil:
		out = append(out, "flight not found in external flight databases")
	case !f.RouteMatches:
		out = append(out, fmt.Sprintf("route mismatch: claimed %s -> %s, %s reports %s -> %s",
			strings.ToUpper(f.Claim.OriginCode), strings.ToUpper(f.Claim.DestCode),
			f.Route.Provider, f.Route.OriginCode, f.Route.DestCode))
	case f.Route.Source == models.RouteSourceSimulated:
		out = append(out, "route confirmed only by the built-in flight table")
	}
	if present(f.Claim.TravelDocNumber) && !ValidTravelDocument(f.Claim.TravelDocNumber) {
		out = append(out, "travel document number format appears invalid")
	}
	return out
}
