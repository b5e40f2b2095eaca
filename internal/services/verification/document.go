package verification

import (
	"regexp"
	"strings"
)

var (
	passportShort  = regexp.MustCompile(`^[A-Z]\d{5,8}$`)
	passportLong   = regexp.MustCompile(`^[A-Z]{1,2}\d{6,8}$`)
	alphanumeric   = regexp.MustCompile(`^[A-Z0-9]{6,9}$`)
	containsLetter = regexp.MustCompile(`[A-Z]`)
)

func normalizeDocument(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

// ValidTravelDocument reports whether s looks like a passport or national ID number.
// It only checks shape; it says nothing about the flight.
func ValidTravelDocument(s string) bool {
	doc := normalizeDocument(s)
	if doc == "" {
		return false
	}
	if passportShort.MatchString(doc) || passportLong.MatchString(doc) {
		return true
	}
	return alphanumeric.MatchString(doc) && containsLetter.MatchString(doc)
}
