package extract

import (
	"fmt"
	"strings"
	"time"
)

// systemPrompt builds the instruction fixing the output schema and the
// domain rules for one mode. Date and time normalization live here, in the
// contract with the engine, not in client code: the engine sees the source
// wording and is the only party able to interpret it.
func systemPrompt(mode Mode, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("You extract calendar events from raw text or images of schedules.\n")
	sb.WriteString(`Respond with exactly one JSON object of this shape and nothing else:
{"events": [{"event_name": string, "event_date": "YYYY-MM-DD", "event_time": "HH:MM" or null, "event_tag": string or null}]}

`)

	fmt.Fprintf(&sb, "Today is %s.\n", now.Format("2006-01-02"))

	sb.WriteString(`Rules:
- event_date is always a concrete calendar date. When the year is omitted, use the current year. Never output relative dates.
- event_time uses 24-hour HH:MM. "Noon" is 12:00 and "midnight" is 00:00. For a time range, use the start time.
- When wording like "due", "submit", or "deadline" appears with no explicit time, use 23:59.
- When no time is given at all, event_time is null.
- A single line naming several distinct items yields one event per item, all sharing that line's date.
- event_name is a short, specific noun phrase taken from the source. Do not invent events that are not in the input.
- Prefer including a borderline item over omitting it; duplicates are removed downstream.
`)

	fmt.Fprintf(&sb, "- event_tag must be one of: %s. Use null when none fits.\n", strings.Join(mode.TagVocabulary, ", "))

	return sb.String()
}
