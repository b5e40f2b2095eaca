package flightdata

import (
	"context"
	"strings"
	"time"

	"github.com/BearBump/BagTrace/internal/models"
)

// Provider looks up the scheduled route of one flight on one day.
// (nil, nil) means the provider has no such flight.
type Provider interface {
	Name() string
	GetRoute(ctx context.Context, q models.RouteQuery) (*models.RouteResult, error)
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseTime is lenient about the handful of ISO-8601 shapes the upstream APIs return.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
