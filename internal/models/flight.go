package models

import "time"

// Источник маршрута рейса.
const (
	RouteSourcePrimary   = "primary"
	RouteSourceSecondary = "secondary"
	RouteSourceSimulated = "simulated"
)

// Результат одной попытки провайдера в цепочке.
const (
	AttemptFound     = "found"
	AttemptNotFound  = "not_found"
	AttemptError     = "error"
	AttemptThrottled = "throttled"
	AttemptCached    = "cached"
)

type FlightIdentifier struct {
	CarrierCode  string
	FlightNumber string
}

func (f FlightIdentifier) String() string {
	return f.CarrierCode + f.FlightNumber
}

type RouteQuery struct {
	CarrierCode  string
	FlightNumber string
	TravelDate   string // YYYY-MM-DD
}

func (q RouteQuery) Flight() string {
	return q.CarrierCode + q.FlightNumber
}

// RouteResult is produced once by a provider and only read afterwards.
type RouteResult struct {
	Source             string
	Provider           string
	OriginCode         string
	DestCode           string
	Airline            *string
	Aircraft           *string
	ScheduledDeparture *time.Time
	ScheduledArrival   *time.Time
	Status             string
}

type ProviderAttempt struct {
	Provider  string
	ElapsedMs int64
	Outcome   string
	Error     string
}
