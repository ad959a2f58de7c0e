package inference

import (
	"context"
	"strings"
)

// repairInstruction is the system prompt of a repair call. It must only
// correct syntax: event content has to round-trip untouched.
const repairInstruction = `You fix malformed JSON. The user message is a response that was supposed to be a JSON object of the shape {"events": [{"event_name": ..., "event_date": ..., "event_time": ..., "event_tag": ...}]} but does not parse. Correct the JSON syntax and shape only. Do not add, remove, reword, or reorder any event. Return only the corrected JSON object.`

// CallResult is the outcome of one extraction call, including the cost of a
// repair round trip when one was needed. It replaces any notion of global
// "last call" debug state: every call returns its own diagnostics.
type CallResult struct {
	Events     []Event
	TokensUsed int
	Repaired   bool
}

// ExtractText sends one batch of normalized lines to the engine and parses
// the structured response.
//
// Parse protocol: strict JSON parse, then a lenient pass (code fences,
// outermost object span, trailing commas), then exactly one repair call.
// If the repaired response still does not parse, the call fails with a
// MalformedResponseError.
func (c *Client) ExtractText(ctx context.Context, model, systemPrompt string, lines []string, maxTokens int) (*CallResult, error) {
	req := Request{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: strings.Join(lines, "\n")},
		},
		MaxTokens:      maxTokens,
		Temperature:    0,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}
	return c.extract(ctx, model, req)
}

// ExtractVision sends instruction text plus image payloads (data URLs) to a
// vision-capable engine. Events whose date is not a resolvable calendar date
// are dropped rather than guessed: date attribution in visual layouts is
// unreliable, and a wrong date is worse than a missing event.
func (c *Client) ExtractVision(ctx context.Context, model, systemPrompt string, imageURLs []string, maxTokens int) (*CallResult, error) {
	parts := make([]ContentPart, 0, len(imageURLs)+1)
	parts = append(parts, ContentPart{Type: "text", Text: "Extract every calendar event from the attached image(s)."})
	for _, u := range imageURLs {
		parts = append(parts, ContentPart{Type: "image_url", ImageURL: &ImageURL{URL: u}})
	}

	req := Request{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: parts},
		},
		MaxTokens:      maxTokens,
		Temperature:    0,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	result, err := c.extract(ctx, model, req)
	if err != nil {
		return nil, err
	}

	kept := result.Events[:0]
	for _, ev := range result.Events {
		if !ValidDate(ev.Date) {
			c.logger.Debug("dropping vision event without resolvable date",
				"name", ev.Name, "date", ev.Date)
			continue
		}
		kept = append(kept, ev)
	}
	result.Events = kept
	return result, nil
}

// extract runs the request/parse/repair state machine for one call.
func (c *Client) extract(ctx context.Context, model string, req Request) (*CallResult, error) {
	comp, err := c.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	tokens := comp.TokensUsed

	env, parseErr := parseEnvelope(comp.Content)
	if parseErr == nil {
		return &CallResult{Events: env.Events, TokensUsed: tokens}, nil
	}

	// One repair call, never recursive.
	c.logger.Warn("extraction response malformed, attempting repair", "error", parseErr)
	repairReq := Request{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: repairInstruction},
			{Role: "user", Content: comp.Content},
		},
		MaxTokens:      req.MaxTokens,
		Temperature:    0,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}
	repaired, err := c.Complete(ctx, repairReq)
	if err != nil {
		return nil, err
	}
	tokens += repaired.TokensUsed

	env, repairErr := parseEnvelope(repaired.Content)
	if repairErr != nil {
		return nil, repairErr
	}
	return &CallResult{Events: env.Events, TokensUsed: tokens, Repaired: true}, nil
}
