// Package dateutils provides the date handling shared by extraction and registration.
package dateutils

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

// Date layouts used throughout the application
const (
	DateLayoutISO  = "2006-01-02"
	DateLayoutFull = "2006-01-02 15:04:05"
)

// headerFallbackLayouts are tried when a Date header is not strictly RFC 5322.
var headerFallbackLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
	DateLayoutFull,
}

var (
	zoneComment = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	spaces      = regexp.MustCompile(`\s+`)
)

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD) in loc.
// A nil loc keeps the value's own location.
func ToISODate(date time.Time, loc *time.Location) string {
	if loc != nil {
		date = date.In(loc)
	}
	return date.Format(DateLayoutISO)
}

// CleanDateString trims a date string and collapses inner whitespace
func CleanDateString(dateStr string) string {
	return spaces.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// ParseTransactionTime parses a "YYYY-MM-DD HH:MM:SS" timestamp in loc.
func ParseTransactionTime(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayoutFull, CleanDateString(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse transaction time: %s", value)
	}
	return t, nil
}

// ParseMessageDate parses a mail Date header such as
// "Tue, 14 Oct 2025 17:34:39 +0900 (JST)".
func ParseMessageDate(header string) (time.Time, error) {
	cleaned := CleanDateString(header)
	if cleaned == "" {
		return time.Time{}, fmt.Errorf("empty date header")
	}

	if t, err := mail.ParseDate(cleaned); err == nil {
		return t, nil
	}

	cleaned = zoneComment.ReplaceAllString(cleaned, "")
	for _, layout := range headerFallbackLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date header: %s", header)
}

// FirstDate returns the first non-nil candidate, or fallback when all are nil.
func FirstDate(fallback time.Time, candidates ...*time.Time) time.Time {
	for _, c := range candidates {
		if c != nil && !c.IsZero() {
			return *c
		}
	}
	return fallback
}

// StartOfDay returns midnight of date in loc.
func StartOfDay(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = date.Location()
	}
	d := date.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// LookbackStart returns midnight `days` days before now, the lower bound of a mail search.
func LookbackStart(now time.Time, days int, loc *time.Location) time.Time {
	return StartOfDay(now, loc).AddDate(0, 0, -days)
}
