package flightid

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"

	"github.com/BearBump/BagTrace/internal/models"
)

var (
	ErrInvalidFormat = errors.New("invalid flight identifier format")
	ErrInvalidDate   = errors.New("invalid travel date")
)

var (
	carrierPattern  = regexp.MustCompile(`^[A-Z]{2,3}$`)
	numberPattern   = regexp.MustCompile(`^\d{1,4}$`)
	combinedPattern = regexp.MustCompile(`^([A-Z]{2,3})(\d{1,4})$`)
	digitsPattern   = regexp.MustCompile(`^\d+$`)
)

// Parse turns user input like "ul 605" or "605" + hint "UL" into a FlightIdentifier.
// Rules are tried in order; a rule counts only if it yields a valid identifier:
//  1. hint is a prefix of the cleaned flight: split at the hint
//  2. cleaned flight is letters followed by digits
//  3. cleaned flight is digits only and a hint is given
func Parse(rawFlight, rawCarrierHint string) (models.FlightIdentifier, error) {
	flight := clean(rawFlight)
	hint := clean(rawCarrierHint)

	if hint != "" && strings.HasPrefix(flight, hint) {
		if id, ok := build(hint, flight[len(hint):]); ok {
			return id, nil
		}
	}

	if m := combinedPattern.FindStringSubmatch(flight); m != nil {
		return models.FlightIdentifier{CarrierCode: m[1], FlightNumber: m[2]}, nil
	}

	if hint != "" && digitsPattern.MatchString(flight) {
		if id, ok := build(hint, flight); ok {
			return id, nil
		}
	}

	return models.FlightIdentifier{}, errors.Wrapf(ErrInvalidFormat, "flight %q, carrier hint %q", rawFlight, rawCarrierHint)
}

// Validate checks an already structured identifier.
func Validate(id models.FlightIdentifier) error {
	if !carrierPattern.MatchString(id.CarrierCode) || !numberPattern.MatchString(id.FlightNumber) {
		return errors.Wrapf(ErrInvalidFormat, "carrier %q, number %q", id.CarrierCode, id.FlightNumber)
	}
	return nil
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the UTC calendar day as YYYY-MM-DD.
func ParseDate(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Format(time.DateOnly), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Format(time.DateOnly), nil
	}
	return "", errors.Wrapf(ErrInvalidDate, "%q", raw)
}

func build(carrier, number string) (models.FlightIdentifier, bool) {
	id := models.FlightIdentifier{CarrierCode: carrier, FlightNumber: number}
	if Validate(id) != nil {
		return models.FlightIdentifier{}, false
	}
	return id, true
}

func clean(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.ToUpper(s)
}
