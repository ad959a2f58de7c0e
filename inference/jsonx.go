package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MalformedResponseError reports a response body that could not be parsed as
// the events envelope even after the lenient pass and one repair call. The
// line/column/excerpt locate the problem for developer-facing surfaces; they
// are never shown to end users.
type MalformedResponseError struct {
	Line    int
	Col     int
	Excerpt string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("inference: malformed extraction response at line %d col %d near %q: %v", e.Line, e.Col, e.Excerpt, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// decodeEnvelope parses raw strictly as the events envelope.
func decodeEnvelope(raw string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// trailingCommaRe matches a comma followed only by whitespace before a
// closing bracket or brace.
var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// lenientBody recovers a parseable JSON object from a sloppy response:
// code-fence markers are stripped, the outermost {...} span is isolated, and
// trailing commas are removed. Returns "" when no object span exists.
func lenientBody(raw string) string {
	s := strings.TrimSpace(raw)

	// Strip markdown code fences: ```json ... ```
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Outermost object span.
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	s = s[start : end+1]

	return trailingCommaRe.ReplaceAllString(s, "$1")
}

// parseEnvelope runs the strict parse, then the lenient fallback. The error
// returned on failure is the strict parse error, located against raw.
func parseEnvelope(raw string) (*Envelope, error) {
	env, strictErr := decodeEnvelope(raw)
	if strictErr == nil {
		return env, nil
	}

	if body := lenientBody(raw); body != "" {
		if env, err := decodeEnvelope(body); err == nil {
			return env, nil
		}
	}

	return nil, malformed(raw, strictErr)
}

// malformed builds a MalformedResponseError with line/column diagnostics
// derived from the error's byte offset into raw.
func malformed(raw string, err error) *MalformedResponseError {
	var offset int64 = -1
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syn):
		offset = syn.Offset
	case errors.As(err, &typ):
		offset = typ.Offset
	}

	line, col := 1, 1
	excerpt := raw
	if offset >= 0 && offset <= int64(len(raw)) {
		line, col = offsetToLineCol(raw, offset)
		excerpt = excerptAround(raw, offset, 40)
	} else if len(excerpt) > 80 {
		excerpt = excerpt[:80]
	}

	return &MalformedResponseError{Line: line, Col: col, Excerpt: excerpt, Err: err}
}

// offsetToLineCol translates a byte offset into 1-based line and column.
func offsetToLineCol(s string, offset int64) (line, col int) {
	line, col = 1, 1
	for i := int64(0); i < offset && i < int64(len(s)); i++ {
		if s[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// excerptAround returns up to 2*radius bytes of context around offset.
func excerptAround(s string, offset int64, radius int64) string {
	start := offset - radius
	if start < 0 {
		start = 0
	}
	end := offset + radius
	if end > int64(len(s)) {
		end = int64(len(s))
	}
	return s[start:end]
}
