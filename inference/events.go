package inference

import (
	"regexp"
	"time"
)

// Event is the wire-format event returned by the extraction engine. Field
// names and types are the contract with the engine and must round-trip
// losslessly through the repair protocol.
type Event struct {
	Name string  `json:"event_name"`
	Date string  `json:"event_date"`           // YYYY-MM-DD
	Time *string `json:"event_time"`           // HH:MM, 24-hour, or null
	Tag  *string `json:"event_tag"`            // closed vocabulary, or null
}

// Envelope is the wire-format response body: {"events": [...]}.
type Envelope struct {
	Events []Event `json:"events"`
}

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// ValidDate reports whether s is a syntactically and calendrically valid
// YYYY-MM-DD date. "2025-13-40" matches the shape but is not a date.
func ValidDate(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// ValidTime reports whether s is a valid 24-hour HH:MM time.
func ValidTime(s string) bool {
	if !timeRe.MatchString(s) {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}
