package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/BearBump/BagTrace/internal/integrations/flightdata"
	"github.com/BearBump/BagTrace/internal/models"
)

const (
	Name           = "amadeus"
	DefaultBaseURL = "https://test.api.amadeus.com"
	DefaultTimeout = 5 * time.Second

	tokenAttempts = 2
)

var ErrToken = errors.New("amadeus token unavailable")

type Client struct {
	baseURL string
	httpc   *http.Client
	cc      *clientcredentials.Config

	mu  sync.Mutex
	tok *oauth2.Token
}

func New(baseURL, clientID, clientSecret string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpc := &http.Client{Timeout: timeout}

	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     baseURL + "/v1/security/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	return &Client{
		baseURL: baseURL,
		httpc:   httpc,
		cc:      cc,
	}
}

func (c *Client) Name() string { return Name }

// token отдаёт кэшированный токен до истечения expires_in, иначе запрашивает новый в контексте вызова.
func (c *Client) token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tok.Valid() {
		return c.tok, nil
	}

	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpc)
	var lastErr error
	for i := 0; i < tokenAttempts; i++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		tok, err := c.cc.Token(tokenCtx)
		if err == nil {
			c.tok = tok
			return tok, nil
		}
		lastErr = err
	}
	return nil, errors.Wrap(ErrToken, lastErr.Error())
}

type scheduleResp struct {
	Data []datedFlight `json:"data"`
}

type datedFlight struct {
	ScheduledDepartureDate string `json:"scheduledDepartureDate"`
	FlightDesignator       struct {
		CarrierCode  string `json:"carrierCode"`
		FlightNumber int    `json:"flightNumber"`
	} `json:"flightDesignator"`
	FlightPoints []flightPoint `json:"flightPoints"`
	Legs         []struct {
		BoardPointIataCode string `json:"boardPointIataCode"`
		OffPointIataCode   string `json:"offPointIataCode"`
		AircraftEquipment  struct {
			AircraftType string `json:"aircraftType"`
		} `json:"aircraftEquipment"`
	} `json:"legs"`
}

type flightPoint struct {
	IataCode  string        `json:"iataCode"`
	Departure *pointTimings `json:"departure"`
	Arrival   *pointTimings `json:"arrival"`
}

type pointTimings struct {
	Timings []struct {
		Qualifier string `json:"qualifier"`
		Value     string `json:"value"`
	} `json:"timings"`
}

func (p *pointTimings) first() string {
	if p == nil || len(p.Timings) == 0 {
		return ""
	}
	return p.Timings[0].Value
}

func (c *Client) GetRoute(ctx context.Context, q models.RouteQuery) (*models.RouteResult, error) {
	tok, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(c.baseURL + "/v2/schedule/flights")
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	v := u.Query()
	v.Set("carrierCode", q.CarrierCode)
	v.Set("flightNumber", q.FlightNumber)
	v.Set("scheduledDepartureDate", q.TravelDate)
	u.RawQuery = v.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	tok.SetAuthHeader(req)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("amadeus http %d", resp.StatusCode)
	}

	var r scheduleResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	for _, f := range r.Data {
		if q.TravelDate != "" && f.ScheduledDepartureDate != "" && f.ScheduledDepartureDate != q.TravelDate {
			continue
		}
		if route := toRoute(f); route != nil {
			return route, nil
		}
	}
	return nil, nil
}

func toRoute(f datedFlight) *models.RouteResult {
	var origin, dest *flightPoint
	for i := range f.FlightPoints {
		p := &f.FlightPoints[i]
		if p.Departure != nil && origin == nil {
			origin = p
		}
		if p.Arrival != nil {
			dest = p
		}
	}
	if origin == nil && len(f.FlightPoints) > 0 {
		origin = &f.FlightPoints[0]
	}
	if dest == nil && len(f.FlightPoints) > 1 {
		dest = &f.FlightPoints[len(f.FlightPoints)-1]
	}
	if origin == nil || dest == nil || origin.IataCode == "" || dest.IataCode == "" {
		return nil
	}

	out := &models.RouteResult{
		Source:             models.RouteSourceSecondary,
		Provider:           Name,
		OriginCode:         strings.ToUpper(origin.IataCode),
		DestCode:           strings.ToUpper(dest.IataCode),
		Airline:            flightdata.StrPtr(f.FlightDesignator.CarrierCode),
		ScheduledDeparture: flightdata.ParseTime(origin.Departure.first()),
		ScheduledArrival:   flightdata.ParseTime(dest.Arrival.first()),
		Status:             "scheduled",
	}
	if len(f.Legs) > 0 {
		out.Aircraft = flightdata.StrPtr(f.Legs[0].AircraftEquipment.AircraftType)
	}
	return out
}
