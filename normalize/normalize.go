// Package normalize turns decoder output into clean, line-oriented text:
// one semantic item per line, formatting noise stripped, order preserved.
package normalize

import (
	"strings"
)

// bulletPrefixes are glyphs and markers that open list items in exported
// documents. They collapse to a plain dash.
var bulletPrefixes = []string{"•", "◦", "▪", "‣", "·", "–", "—", "*", "-"}

// Lines normalizes raw extracted text into an ordered sequence of non-empty
// lines. Line endings collapse to \n, tabs become spaces, bullet glyphs become
// a dash, runs of whitespace collapse, and blank lines are dropped. The
// relative order of surviving lines matches the source.
func Lines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\t", " ")

	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = normalizeLine(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// normalizeLine collapses one line: bullet marker to dash, whitespace runs to
// single spaces, surrounding space trimmed.
func normalizeLine(line string) string {
	line = strings.TrimSpace(line)
	for _, b := range bulletPrefixes {
		if strings.HasPrefix(line, b) {
			line = "- " + strings.TrimSpace(strings.TrimPrefix(line, b))
			break
		}
	}
	return strings.Join(strings.Fields(line), " ")
}

// Join renders normalized lines back into a single newline-separated string.
func Join(lines []string) string {
	return strings.Join(lines, "\n")
}
