package aviationstack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/BagTrace/internal/integrations/flightdata"
	"github.com/BearBump/BagTrace/internal/models"
)

const (
	Name           = "aviationstack"
	DefaultBaseURL = "http://api.aviationstack.com"
	DefaultTimeout = 5 * time.Second
)

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Name() string { return Name }

type flightsResp struct {
	Data  []flightEntry `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type flightEntry struct {
	FlightDate   string   `json:"flight_date"`
	FlightStatus string   `json:"flight_status"`
	Departure    endpoint `json:"departure"`
	Arrival      endpoint `json:"arrival"`
	Airline      struct {
		Name string `json:"name"`
		IATA string `json:"iata"`
	} `json:"airline"`
	Flight struct {
		Number string `json:"number"`
		IATA   string `json:"iata"`
	} `json:"flight"`
	Aircraft *struct {
		IATA         string `json:"iata"`
		Registration string `json:"registration"`
	} `json:"aircraft"`
}

type endpoint struct {
	Airport   string `json:"airport"`
	IATA      string `json:"iata"`
	Scheduled string `json:"scheduled"`
}

func (c *Client) GetRoute(ctx context.Context, q models.RouteQuery) (*models.RouteResult, error) {
	u, err := url.Parse(c.baseURL + "/v1/flights")
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	v := u.Query()
	v.Set("access_key", c.apiKey)
	v.Set("flight_iata", q.Flight())
	if q.TravelDate != "" {
		v.Set("flight_date", q.TravelDate)
	}
	v.Set("limit", "10")
	u.RawQuery = v.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("aviationstack http %d", resp.StatusCode)
	}

	var r flightsResp
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	if r.Error != nil {
		return nil, fmt.Errorf("aviationstack error %s: %s", r.Error.Code, r.Error.Message)
	}

	for _, e := range r.Data {
		if q.TravelDate != "" && e.FlightDate != q.TravelDate {
			continue
		}
		// без аэропортов запись бесполезна для сверки маршрута
		if e.Departure.IATA == "" || e.Arrival.IATA == "" {
			continue
		}
		return toRoute(e), nil
	}
	return nil, nil
}

func toRoute(e flightEntry) *models.RouteResult {
	out := &models.RouteResult{
		Source:             models.RouteSourcePrimary,
		Provider:           Name,
		OriginCode:         strings.ToUpper(e.Departure.IATA),
		DestCode:           strings.ToUpper(e.Arrival.IATA),
		Airline:            flightdata.StrPtr(e.Airline.Name),
		ScheduledDeparture: flightdata.ParseTime(e.Departure.Scheduled),
		ScheduledArrival:   flightdata.ParseTime(e.Arrival.Scheduled),
		Status:             e.FlightStatus,
	}
	if e.Aircraft != nil {
		out.Aircraft = flightdata.StrPtr(e.Aircraft.IATA)
	}
	if out.Status == "" {
		out.Status = "scheduled"
	}
	return out
}
