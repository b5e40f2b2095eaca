package verification

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/BearBump/BagTrace/internal/flightid"
	"github.com/BearBump/BagTrace/internal/integrations/flightdata/static"
	"github.com/BearBump/BagTrace/internal/metrics"
	"github.com/BearBump/BagTrace/internal/models"
	"github.com/BearBump/BagTrace/internal/services/routes"
)

type fakeResolver struct {
	gotID   models.FlightIdentifier
	gotDate string
	res     routes.Resolution
	calls   int
}

func (f *fakeResolver) Resolve(_ context.Context, id models.FlightIdentifier, date string) (routes.Resolution, error) {
	f.calls++
	f.gotID = id
	f.gotDate = date
	return f.res, nil
}

func TestService_Verify_ParsesAndScores(t *testing.T) {
	r := &fakeResolver{res: routes.Resolution{
		Route:    &models.RouteResult{Source: models.RouteSourcePrimary, Provider: "aviationstack", OriginCode: "MEL", DestCode: "CMB"},
		Attempts: []models.ProviderAttempt{{Provider: "aviationstack", Outcome: models.AttemptFound}},
	}}
	m := metrics.New("test", prometheus.NewRegistry())
	svc := NewService(r, nil, m)

	c := claim()
	c.FlightNumber = "605"
	c.CarrierCode = "ul"
	c.TravelDate = "2024-01-20T10:00:00Z"
	c.BaggageTag = "UL123"

	res, err := svc.Verify(context.Background(), c)
	require.NoError(t, err)
	require.Equal(t, models.FlightIdentifier{CarrierCode: "UL", FlightNumber: "605"}, r.gotID)
	require.Equal(t, "2024-01-20", r.gotDate)
	require.Equal(t, 65, res.Score)
	require.Equal(t, models.VerificationVerified, res.Status)
	require.Equal(t, "UL605", res.Flight.String())
	require.Len(t, res.Attempts, 1)
	require.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues(models.VerificationVerified)))
}

func TestService_Verify_MalformedFlightFailsFast(t *testing.T) {
	r := &fakeResolver{}
	c := claim()
	c.FlightNumber = "605"

	_, err := NewService(r, nil, nil).Verify(context.Background(), c)
	require.ErrorIs(t, err, flightid.ErrInvalidFormat)
	require.Zero(t, r.calls)
}

func TestService_Verify_BadDate(t *testing.T) {
	r := &fakeResolver{}
	c := claim()
	c.TravelDate = "tomorrow"

	_, err := NewService(r, nil, nil).Verify(context.Background(), c)
	require.ErrorIs(t, err, flightid.ErrInvalidDate)
	require.Zero(t, r.calls)
}

func TestService_Verify_WithRealChain(t *testing.T) {
	svc := NewService(routes.New(static.Default()), DefaultScorer(), nil)
	res, err := svc.Verify(context.Background(), claim())
	require.NoError(t, err)
	require.Equal(t, 25, res.Score)
	require.Equal(t, models.VerificationLikely, res.Status)
	require.Equal(t, models.RouteSourceSimulated, res.ProviderRoute.Source)
}
