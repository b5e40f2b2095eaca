package models

const (
	VerificationVerified     = "verified"
	VerificationLikely       = "likely"
	VerificationManualReview = "manual-review"
)

type TravelClaim struct {
	LastName        string
	FlightNumber    string
	CarrierCode     string
	TravelDate      string
	OriginCode      string
	DestCode        string
	BaggageTag      string
	BookingRef      string
	TicketNumber    string
	TravelDocNumber string
}

// Evidence is one scoring rule that fired.
type Evidence struct {
	Tag    string
	Points int
}

type VerificationResult struct {
	Score         int
	Status        string
	Evidence      []Evidence
	Issues        []string
	Flight        *FlightIdentifier
	ProviderRoute *RouteResult
	Attempts      []ProviderAttempt
}

func (r VerificationResult) Tags() []string {
	out := make([]string, 0, len(r.Evidence))
	for _, e := range r.Evidence {
		out = append(out, e.Tag)
	}
	return out
}
