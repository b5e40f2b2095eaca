package verification

import (
	"context"
	"log/slog"

	"github.com/BearBump/BagTrace/internal/flightid"
	"github.com/BearBump/BagTrace/internal/metrics"
	"github.com/BearBump/BagTrace/internal/models"
	"github.com/BearBump/BagTrace/internal/services/routes"
)

type RouteResolver interface {
	Resolve(ctx context.Context, id models.FlightIdentifier, travelDate string) (routes.Resolution, error)
}

type Service struct {
	resolver RouteResolver
	scorer   *Scorer
	metrics  *metrics.Metrics
}

func NewService(resolver RouteResolver, scorer *Scorer, m *metrics.Metrics) *Service {
	if scorer == nil {
		scorer = DefaultScorer()
	}
	return &Service{resolver: resolver, scorer: scorer, metrics: m}
}

// Verify parses the claimed flight, resolves its route and scores the claim.
// Only malformed input is an error; an unknown flight just earns no flight points.
func (s *Service) Verify(ctx context.Context, claim models.TravelClaim) (models.VerificationResult, error) {
	id, err := flightid.Parse(claim.FlightNumber, claim.CarrierCode)
	if err != nil {
		return models.VerificationResult{}, err
	}
	date, err := flightid.ParseDate(claim.TravelDate)
	if err != nil {
		return models.VerificationResult{}, err
	}

	res, err := s.resolver.Resolve(ctx, id, date)
	if err != nil {
		return models.VerificationResult{}, err
	}

	out := s.scorer.Score(claim, res.Route)
	out.Flight = &id
	out.Attempts = res.Attempts

	s.metrics.VerificationScored(out.Status)
	slog.Info("travel claim verified",
		"flight", id.String(),
		"date", date,
		"score", out.Score,
		"status", out.Status,
		"evidence", out.Tags(),
	)
	return out, nil
}
