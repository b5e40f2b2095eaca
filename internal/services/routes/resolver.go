package routes

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/BagTrace/internal/cache"
	"github.com/BearBump/BagTrace/internal/flightid"
	"github.com/BearBump/BagTrace/internal/integrations/flightdata"
	"github.com/BearBump/BagTrace/internal/models"
)

const CacheProvider = "cache"

type AttemptObserver interface {
	ObserveAttempt(a models.ProviderAttempt)
}

type Resolution struct {
	Route    *models.RouteResult
	Attempts []models.ProviderAttempt
}

// Resolver walks providers in order and returns the first route found.
// Provider failures never escape: they are recorded as attempts and the chain moves on.
type Resolver struct {
	providers []flightdata.Provider

	cache    cache.BytesCache
	cacheTTL time.Duration

	rl     cache.ProviderLimiter
	limits map[string]int64

	observers []AttemptObserver
	now       func() time.Time
}

func New(providers ...flightdata.Provider) *Resolver {
	return &Resolver{
		providers: providers,
		limits:    map[string]int64{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithCache enables the route cache; ttl <= 0 keeps it disabled.
func (r *Resolver) WithCache(c cache.BytesCache, ttl time.Duration) *Resolver {
	r.cache = c
	r.cacheTTL = ttl
	return r
}

// WithRateLimit sets per-provider budgets in calls per minute. Providers without a budget are not limited.
func (r *Resolver) WithRateLimit(rl cache.ProviderLimiter, perMinute map[string]int64) *Resolver {
	r.rl = rl
	for name, n := range perMinute {
		if n > 0 {
			r.limits[name] = n
		}
	}
	return r
}

func (r *Resolver) WithObservers(obs ...AttemptObserver) *Resolver {
	r.observers = append(r.observers, obs...)
	return r
}

func (r *Resolver) Providers() []string {
	out := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p.Name())
	}
	return out
}

// Resolve returns a nil Route when every provider came up empty.
// The only error is a malformed identifier.
func (r *Resolver) Resolve(ctx context.Context, id models.FlightIdentifier, travelDate string) (Resolution, error) {
	if err := flightid.Validate(id); err != nil {
		return Resolution{}, err
	}
	q := models.RouteQuery{CarrierCode: id.CarrierCode, FlightNumber: id.FlightNumber, TravelDate: travelDate}

	var res Resolution
	if route, ok := r.fromCache(ctx, q); ok {
		a := models.ProviderAttempt{Provider: CacheProvider, Outcome: models.AttemptCached}
		r.observe(a)
		res.Route = route
		res.Attempts = append(res.Attempts, a)
		return res, nil
	}

	for _, p := range r.providers {
		route, a := r.attempt(ctx, p, q)
		r.observe(a)
		res.Attempts = append(res.Attempts, a)
		if route != nil {
			res.Route = route
			r.toCache(ctx, q, route)
			return res, nil
		}
	}

	slog.Info("flight route not found", "flight", q.Flight(), "date", q.TravelDate, "providers", len(r.providers))
	return res, nil
}

func (r *Resolver) attempt(ctx context.Context, p flightdata.Provider, q models.RouteQuery) (*models.RouteResult, models.ProviderAttempt) {
	a := models.ProviderAttempt{Provider: p.Name()}

	if !r.allow(ctx, p.Name()) {
		a.Outcome = models.AttemptThrottled
		slog.Warn("provider rate limit exceeded", "provider", p.Name(), "flight", q.Flight())
		return nil, a
	}

	start := time.Now()
	route, err := p.GetRoute(ctx, q)
	a.ElapsedMs = time.Since(start).Milliseconds()

	switch {
	case err != nil:
		a.Outcome = models.AttemptError
		a.Error = err.Error()
		slog.Warn("provider lookup failed", "provider", p.Name(), "flight", q.Flight(), "error", err.Error())
		return nil, a
	case route == nil:
		a.Outcome = models.AttemptNotFound
		slog.Debug("provider has no such flight", "provider", p.Name(), "flight", q.Flight())
		return nil, a
	default:
		a.Outcome = models.AttemptFound
		slog.Debug("provider route found", "provider", p.Name(), "flight", q.Flight(),
			"origin", route.OriginCode, "dest", route.DestCode)
		return route, a
	}
}

// allow fails open: a broken limiter must not take the providers down with it.
func (r *Resolver) allow(ctx context.Context, provider string) bool {
	limit, ok := r.limits[provider]
	if r.rl == nil || !ok {
		return true
	}
	allowed, _, err := r.rl.AllowProvider(ctx, provider, limit, r.now())
	if err != nil {
		slog.Warn("rate limiter unavailable", "provider", provider, "error", err.Error())
		return true
	}
	return allowed
}

func (r *Resolver) observe(a models.ProviderAttempt) {
	for _, o := range r.observers {
		o.ObserveAttempt(a)
	}
}

func cacheKey(q models.RouteQuery) string {
	return "route:" + q.Flight() + ":" + q.TravelDate
}

func (r *Resolver) cacheEnabled() bool {
	return r.cache != nil && r.cacheTTL > 0
}

func (r *Resolver) fromCache(ctx context.Context, q models.RouteQuery) (*models.RouteResult, bool) {
	if !r.cacheEnabled() {
		return nil, false
	}
	b, ok, err := r.cache.Get(ctx, cacheKey(q))
	if err != nil || !ok {
		return nil, false
	}
	var route models.RouteResult
	if err := json.Unmarshal(b, &route); err != nil || route.OriginCode == "" {
		return nil, false
	}
	return &route, true
}

// Таблица известных рейсов не кэшируется: ответ и так мгновенный.
func (r *Resolver) toCache(ctx context.Context, q models.RouteQuery, route *models.RouteResult) {
	if !r.cacheEnabled() || route.Source == models.RouteSourceSimulated {
		return
	}
	b, err := json.Marshal(route)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, cacheKey(q), b, r.cacheTTL); err != nil {
		slog.Warn("route cache set failed", "flight", q.Flight(), "error", err.Error())
	}
}
