// Package intent extracts structured requests from free-text WhatsApp
// messages using pattern matching. It is a replaceable strategy: callers
// only see "text in, structured intent or nothing out".
package intent

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// Patterns for "show me finca X" style requests, evaluated in priority
// order; only the first that matches is used.
var singleListingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:quiero\s+)?(?:ver|mostrar)\s+(?:la\s+)?finca\s+(?:de\s+)?(.+)`),
	regexp.MustCompile(`(?i)finca\s+(?:de\s+)?(.+)`),
	regexp.MustCompile(`(?i)(?:ver|mostrar)\s+(?:la\s+)?(.+)`),
}

var strayArticles = map[string]bool{
	"la": true, "el": true, "de": true, "un": true, "una": true,
}

// ParseSingleListing detects requests to see one specific finca, such as
// "quiero ver la finca de villa green" or "mostrar la palma", and returns
// the captured name.
func ParseSingleListing(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < 4 {
		return "", false
	}

	for _, re := range singleListingPatterns {
		m := re.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if utf8.RuneCountInString(name) < 2 {
			return "", false
		}
		if strayArticles[strings.ToLower(name)] {
			return "", false
		}
		return name, true
	}

	return "", false
}

// StayRequest is a parsed location plus a half-open date range, with Exit
// at midnight of the day after the last requested night.
type StayRequest struct {
	Location string
	Entry    time.Time
	Exit     time.Time
}

var (
	// Location introduced by "para" or "en", terminated at "del", "para",
	// a digit, or end of string.
	locationPattern = regexp.MustCompile(`(?i)\b(?:para|en)\s+([a-zA-ZáéíóúüñÁÉÍÓÚÜÑ][a-zA-ZáéíóúüñÁÉÍÓÚÜÑ\s]*?)\s*(?:\bdel\b|\bpara\b|\d|$)`)
	dayRangePattern = regexp.MustCompile(`(?i)(?:\bdel\s+)?\b(\d{1,2})\s+al\s+(\d{1,2})\b`)
)

// ParseLocationAndDates detects phrases like "para restrepo del 20 al 21".
// Both a location and a valid day pair are required; a partial match is no
// match at all. Days are resolved against now's month and year — "del 30
// al 2" across a month boundary is a known limitation of the source
// phrasing and is not special-cased.
func ParseLocationAndDates(text string, now time.Time) (*StayRequest, bool) {
	trimmed := strings.TrimSpace(text)

	locMatch := locationPattern.FindStringSubmatch(trimmed)
	if locMatch == nil {
		return nil, false
	}
	location := strings.TrimSpace(locMatch[1])
	if location == "" {
		return nil, false
	}

	dayMatch := dayRangePattern.FindStringSubmatch(trimmed)
	if dayMatch == nil {
		return nil, false
	}
	from := atoiDay(dayMatch[1])
	to := atoiDay(dayMatch[2])
	if from == 0 || to == 0 {
		return nil, false
	}

	entry := time.Date(now.Year(), now.Month(), from, 0, 0, 0, 0, now.Location())
	// Departure is midnight of the day after the last night; time.Date
	// normalizes day overflow past the end of the month.
	exit := time.Date(now.Year(), now.Month(), to+1, 0, 0, 0, 0, now.Location())

	return &StayRequest{Location: location, Entry: entry, Exit: exit}, true
}

// atoiDay parses a day-of-month in [1,31], returning 0 when out of range.
func atoiDay(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	if n < 1 || n > 31 {
		return 0
	}
	return n
}
