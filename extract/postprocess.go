package extract

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agendex/agendex/inference"
)

// maxNameLen caps event names; longer names are truncated with an ellipsis.
const maxNameLen = 60

// nameEllipsis marks a truncated name.
const nameEllipsis = "…"

// timeSentinel orders nil times last within a day.
const timeSentinel = "23:59"

// titleCase trims, collapses internal whitespace, and capitalizes the first
// letter of each whitespace-delimited token, lowercasing the rest. Naive on
// purpose: acronyms come out wrong ("Crn" for "CRN"). Matching the historical
// behavior beats silently "fixing" names.
func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		runes := []rune(strings.ToLower(f))
		runes[0] = unicode.ToUpper(runes[0])
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}

// capName truncates a name to maxNameLen runes, appending the ellipsis marker.
func capName(s string) string {
	runes := []rune(s)
	if len(runes) <= maxNameLen {
		return s
	}
	return string(runes[:maxNameLen-1]) + nameEllipsis
}

// sanitize converts one wire event into a canonical ParsedEvent. It returns
// false when the event is unusable: empty name or a date that is not a real
// calendar date. Invalid times degrade to null rather than dropping the event.
func (m *Mode) sanitize(ev inference.Event) (ParsedEvent, bool) {
	name := titleCase(ev.Name)
	if name == "" {
		return ParsedEvent{}, false
	}
	if !inference.ValidDate(ev.Date) {
		return ParsedEvent{}, false
	}

	out := ParsedEvent{
		Name: capName(name),
		Date: ev.Date,
	}

	// Empty string and null are the same absence.
	if ev.Time != nil && *ev.Time != "" && inference.ValidTime(*ev.Time) {
		t := *ev.Time
		out.Time = &t
	}

	if ev.Tag != nil && *ev.Tag != "" {
		if canonical, ok := m.allowsTag(strings.TrimSpace(*ev.Tag)); ok {
			out.Tag = &canonical
		}
	}

	return out, true
}

// dedupeKey is the composite identity used for the idempotent merge.
func dedupeKey(ev ParsedEvent) string {
	t := ""
	if ev.Time != nil {
		t = *ev.Time
	}
	tag := ""
	if ev.Tag != nil {
		tag = *ev.Tag
	}
	return strings.ToLower(strings.TrimSpace(ev.Name)) + "\x00" + ev.Date + "\x00" + t + "\x00" + tag
}

// dedupe keeps the first occurrence per composite key, preserving order.
// Running extraction twice over the same batches and concatenating the
// results must never yield two events with the same identity tuple.
func dedupe(events []ParsedEvent) []ParsedEvent {
	seen := make(map[string]bool, len(events))
	out := make([]ParsedEvent, 0, len(events))
	for _, ev := range events {
		key := dedupeKey(ev)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ev)
	}
	return out
}

// sortEvents orders events by date, then time (nil sorts last), then name.
// One deterministic contract for every mode.
func sortEvents(events []ParsedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		ti, tj := timeSentinel, timeSentinel
		if events[i].Time != nil {
			ti = *events[i].Time
		}
		if events[j].Time != nil {
			tj = *events[j].Time
		}
		if ti != tj {
			return ti < tj
		}
		return events[i].Name < events[j].Name
	})
}
