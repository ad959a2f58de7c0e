package normalize

import (
	"regexp"
	"strings"
)

// noisePatterns match tokens that carry no calendar meaning in academic
// schedules. All patterns are anchored to word boundaries so legitimate
// content ("Monday Night Lecture Series") is never corrupted; only isolated
// bureaucratic fragments are removed.
var noisePatterns = []*regexp.Regexp{
	// Room / building / campus references: "Room 204", "Bldg C12", "Hall 3".
	regexp.MustCompile(`(?i)\b(?:room|rm\.?|bldg\.?|building|hall|campus)\s+[A-Za-z]?-?\d+[A-Za-z]?\b`),
	// Section markers: "Sec 003", "Section B".
	regexp.MustCompile(`(?i)\bsec(?:tion)?\.?\s+[A-Za-z]?\d*\b`),
	// Delivery-mode markers.
	regexp.MustCompile(`(?i)\b(?:zoom|online|in-person|hybrid|remote)\b`),
	// Course identifiers and CRNs: "CS 3500", "MATH241", "CRN 48213".
	regexp.MustCompile(`\b[A-Z]{2,4}\s?\d{3,4}[A-Z]?\b`),
	regexp.MustCompile(`(?i)\bcrn:?\s*\d{4,6}\b`),
	// URLs.
	regexp.MustCompile(`https?://\S+`),
	// Instructor honorifics with a trailing name: "Prof. Okafor", "Dr Lin".
	regexp.MustCompile(`\b(?:Prof|Dr|Instructor)\.?\s+[A-Z][a-z]+\b`),
}

// weekdayAbbrevs are dropped only when they stand alone as a token.
var weekdayAbbrevs = map[string]bool{
	"mon": true, "tue": true, "tues": true, "wed": true,
	"thu": true, "thur": true, "thurs": true, "fri": true,
	"sat": true, "sun": true,
}

// Denoise removes domain-noise tokens from each line. Lines that become empty
// are dropped; surviving lines keep their order.
func Denoise(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		for _, pat := range noisePatterns {
			line = pat.ReplaceAllString(line, " ")
		}
		line = dropWeekdayTokens(line)
		line = strings.Trim(strings.Join(strings.Fields(line), " "), " ,;|-")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// dropWeekdayTokens removes isolated weekday abbreviations ("Mon", "Thurs.")
// but never touches longer words that merely start with one.
func dropWeekdayTokens(line string) string {
	fields := strings.Fields(line)
	kept := fields[:0]
	for _, f := range fields {
		bare := strings.ToLower(strings.Trim(f, ".,;|"))
		if weekdayAbbrevs[bare] {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}
