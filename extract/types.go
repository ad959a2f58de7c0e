package extract

// ParsedEvent is the canonical output unit of the pipeline.
type ParsedEvent struct {
	// Name is non-empty, Title-Cased, and capped at 60 characters.
	Name string `json:"name"`
	// Date is always a concrete calendar date, YYYY-MM-DD.
	Date string `json:"date"`
	// Time is a 24-hour HH:MM, or nil when the source names none.
	Time *string `json:"time"`
	// Tag is an entry of the mode's vocabulary, or nil.
	Tag *string `json:"tag"`
}

// CallDiag records one engine call for developer-facing introspection. The
// pipeline keeps no global debug state; diagnostics travel with the result.
type CallDiag struct {
	Batch      int  `json:"batch"`
	Vision     bool `json:"vision"`
	Repaired   bool `json:"repaired"`
	TokensUsed int  `json:"tokens_used"`
	EventCount int  `json:"event_count"`
}

// Result is what one ParseText/ParseFile invocation returns. An empty event
// list is a valid success, not an error.
type Result struct {
	Events     []ParsedEvent `json:"events"`
	TokensUsed int           `json:"tokens_used"`
	Calls      []CallDiag    `json:"calls,omitempty"`
}
