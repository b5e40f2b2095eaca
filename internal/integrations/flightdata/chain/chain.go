package chain

import (
	"log/slog"
	"time"

	"github.com/BearBump/BagTrace/config"
	"github.com/BearBump/BagTrace/internal/integrations/flightdata"
	"github.com/BearBump/BagTrace/internal/integrations/flightdata/amadeus"
	"github.com/BearBump/BagTrace/internal/integrations/flightdata/aviationstack"
	"github.com/BearBump/BagTrace/internal/integrations/flightdata/static"
)

// Build assembles providers in lookup order: aviationstack, amadeus, built-in table.
// A provider without credentials is left out of the chain.
// The second value holds per-minute budgets keyed by provider name.
func Build(cfg config.ProvidersConfig) ([]flightdata.Provider, map[string]int64) {
	var providers []flightdata.Provider
	limits := map[string]int64{}

	av := cfg.Aviationstack
	if av.APIKey != "" {
		providers = append(providers, aviationstack.New(av.BaseURL, av.APIKey, seconds(av.TimeoutSeconds)))
		if av.RateLimitPerMinute > 0 {
			limits[aviationstack.Name] = int64(av.RateLimitPerMinute)
		}
	} else {
		slog.Warn("aviationstack api key is not set, provider disabled")
	}

	am := cfg.Amadeus
	if am.ClientID != "" && am.ClientSecret != "" {
		providers = append(providers, amadeus.New(am.BaseURL, am.ClientID, am.ClientSecret, seconds(am.TimeoutSeconds)))
		if am.RateLimitPerMinute > 0 {
			limits[amadeus.Name] = int64(am.RateLimitPerMinute)
		}
	} else {
		slog.Warn("amadeus credentials are not set, provider disabled")
	}

	if !cfg.DisableStatic {
		providers = append(providers, static.Default())
	}
	return providers, limits
}

func Names(providers []flightdata.Provider) []string {
	out := make([]string, 0, len(providers))
	for _, p := range providers {
		out = append(out, p.Name())
	}
	return out
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
