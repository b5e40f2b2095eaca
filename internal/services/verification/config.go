package verification

import "github.com/BearBump/BagTrace/config"

// ScorerFromConfig builds a scorer; unset (zero) values keep their defaults.
func ScorerFromConfig(c config.VerificationConfig) *Scorer {
	w := DefaultWeights()
	pick(&w.FlightVerified, c.FlightVerifiedPoints)
	pick(&w.FlightPartial, c.FlightPartialPoints)
	pick(&w.FlightSecondary, c.FlightSecondaryPoints)
	pick(&w.TravelDocument, c.TravelDocumentPoints)
	pick(&w.BaggageTag, c.BaggageTagPoints)
	pick(&w.BookingReference, c.BookingReferencePoints)
	pick(&w.TicketNumber, c.TicketNumberPoints)

	t := DefaultThresholds()
	pick(&t.Verified, c.VerifiedThreshold)
	pick(&t.Likely, c.LikelyThreshold)

	return NewScorer(w, t)
}

func pick(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
