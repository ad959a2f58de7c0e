// Package batch keeps extraction requests inside the inference engine's
// context and cost budget: cheap token estimation, fail-fast rejection of
// oversized input, and bounded line batching.
package batch

import "fmt"

// EstimateTokens approximates the token cost of text as ceil(bytes/4).
// Deliberately crude: it only has to be safe, not exact.
func EstimateTokens(s string) int {
	n := len(s)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// TooLargeError reports input whose estimated token cost exceeds the ceiling.
// The estimate and ceiling feed the user-facing message; the input is never
// silently truncated.
type TooLargeError struct {
	EstimatedTokens int
	MaxTokens       int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("batch: content too large: estimated %d tokens (max %d)", e.EstimatedTokens, e.MaxTokens)
}

// CheckBudget returns a *TooLargeError if the estimated cost of text exceeds
// maxTokens. maxTokens <= 0 disables the check.
func CheckBudget(text string, maxTokens int) error {
	if maxTokens <= 0 {
		return nil
	}
	if est := EstimateTokens(text); est > maxTokens {
		return &TooLargeError{EstimatedTokens: est, MaxTokens: maxTokens}
	}
	return nil
}

// Options bounds a single batch.
type Options struct {
	// MaxLines caps the line count per batch (default 40).
	MaxLines int
	// MaxChars caps the cumulative character count per batch (default 4000).
	MaxChars int
}

func (o *Options) defaults() {
	if o.MaxLines <= 0 {
		o.MaxLines = 40
	}
	if o.MaxChars <= 0 {
		o.MaxChars = 4000
	}
}

// Split groups lines into batches respecting both MaxLines and MaxChars. A
// line is appended to the current batch unless either bound would be
// exceeded; then the batch closes and a new one starts. A single line longer
// than MaxChars still becomes its own batch; lines are never split.
// Concatenating all batches in order reproduces the input exactly.
func Split(lines []string, opts Options) [][]string {
	opts.defaults()

	var batches [][]string
	var current []string
	chars := 0

	for _, line := range lines {
		if len(current) > 0 && (len(current)+1 > opts.MaxLines || chars+len(line) > opts.MaxChars) {
			batches = append(batches, current)
			current = nil
			chars = 0
		}
		current = append(current, line)
		chars += len(line)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// Group splits items into fixed-size groups, preserving order. Used for
// page-image batching on the vision path. size <= 0 defaults to 1.
func Group[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	var groups [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		groups = append(groups, items[start:end])
	}
	return groups
}
