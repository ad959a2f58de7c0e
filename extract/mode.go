package extract

import (
	"strings"
	"unicode"

	"github.com/agendex/agendex/batch"
)

// Mode tunes the pipeline for an input domain. Historically this system grew
// several near-duplicate pipelines per mode; here a Mode value selects the
// tag vocabulary, denoising, batch caps, and models for the one pipeline.
type Mode struct {
	Name string

	// TagVocabulary is the closed set of permitted event tags, lowercase.
	// Matching is case-insensitive; accepted tags are stored in canonical
	// form (first letter capitalized). Engine-returned tags outside the
	// vocabulary are nulled, never kept: free-text tags would poison the
	// dedup key.
	TagVocabulary []string

	// Denoise enables the domain-noise removal pass.
	Denoise bool

	// MaxTokens is the estimated-token ceiling for the whole input.
	MaxTokens int

	// Batch bounds each text batch.
	Batch batch.Options

	// MaxEventsPerBatch truncates one batch's contribution before merging,
	// bounding pathological over-extraction.
	MaxEventsPerBatch int

	// PagesPerCall groups page images on the vision path.
	PagesPerCall int

	// Model and VisionModel name the engine models for each path.
	Model       string
	VisionModel string

	// MaxOutputTokens is the hard output-length ceiling per engine call.
	MaxOutputTokens int
}

func (m *Mode) defaults() {
	if m.MaxTokens <= 0 {
		m.MaxTokens = 8000
	}
	if m.MaxEventsPerBatch <= 0 {
		m.MaxEventsPerBatch = 60
	}
	if m.PagesPerCall <= 0 {
		m.PagesPerCall = 1
	}
	if m.Model == "" {
		m.Model = "gpt-4.1-mini"
	}
	if m.VisionModel == "" {
		m.VisionModel = m.Model
	}
	if m.MaxOutputTokens <= 0 {
		m.MaxOutputTokens = 2048
	}
}

// General is the mode for personal planning input: light touch, no denoising.
func General() Mode {
	return Mode{
		Name: "general",
		TagVocabulary: []string{
			"meeting", "interview", "appointment", "deadline",
			"social", "travel", "reminder", "other",
		},
		Denoise:   false,
		MaxTokens: 2000,
		Batch:     batch.Options{MaxLines: 40, MaxChars: 4000},
	}
}

// Academic is the mode for syllabi and course schedules: aggressive
// denoising and a larger budget for multi-page documents.
func Academic() Mode {
	return Mode{
		Name: "academic",
		TagVocabulary: []string{
			"homework", "quiz", "exam", "lecture", "lab",
			"project", "office-hours", "deadline", "other",
		},
		Denoise:   true,
		MaxTokens: 8000,
		Batch:     batch.Options{MaxLines: 60, MaxChars: 6000},
	}
}

// ModeByName resolves a mode name; unknown names fall back to General.
func ModeByName(name string) Mode {
	switch name {
	case "academic":
		return Academic()
	default:
		return General()
	}
}

// allowsTag reports whether tag (case-insensitive) is in the vocabulary and
// returns its canonical form: the vocabulary entry with only the first
// letter capitalized.
func (m *Mode) allowsTag(tag string) (string, bool) {
	for _, v := range m.TagVocabulary {
		if strings.EqualFold(tag, v) {
			return canonicalTag(v), true
		}
	}
	return "", false
}

func canonicalTag(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
