// Package inference talks to an OpenAI-compatible chat-completions engine and
// enforces the structured-output contract for calendar event extraction:
// deterministic decoding, strict JSON response mode, a lenient parse fallback,
// and a single repair call for malformed responses.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Config configures the inference client.
type Config struct {
	// BaseURL of the OpenAI-compatible API (e.g. https://api.openai.com/v1).
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey sent as a Bearer token. Empty disables the Authorization header
	// (local engines).
	APIKey string `json:"-" yaml:"-"`

	// Timeout per HTTP request (default: 120s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Logger for request/response debug messages.
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Client is an OpenAI-compatible chat-completions HTTP client.
type Client struct {
	hc      *http.Client
	baseURL string
	apiKey  string
	logger  *slog.Logger
}

// NewClient creates a Client with the given configuration.
func NewClient(cfg Config) *Client {
	cfg.defaults()
	return &Client{
		hc:      &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		logger:  cfg.Logger,
	}
}

// Message is one chat message. Content is either a plain string or a
// []ContentPart for vision requests.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is a piece of multimodal message content.
type ContentPart struct {
	Type     string    `json:"type"` // "text" or "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL carries a data: URL encoded image payload.
type ImageURL struct {
	URL string `json:"url"`
}

// ResponseFormat selects the engine's structured output mode.
type ResponseFormat struct {
	Type string `json:"type"` // "json_object"
}

// Request is a chat-completions request body.
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Completion is the content and cost of one successful engine call.
type Completion struct {
	Content    string
	TokensUsed int
}

// RequestError reports a non-success status from the inference engine,
// keeping the engine's own message when available.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("inference: engine returned status %d: %s", e.Status, e.Message)
}

// Complete sends one chat-completions request and returns the response
// content with its token usage.
func (c *Client) Complete(ctx context.Context, req Request) (*Completion, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("sending inference request",
		"model", req.Model,
		"payload_size", len(body))

	start := time.Now()
	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		msg := strings.TrimSpace(string(slurp))
		c.logger.Error("inference engine error",
			"status", resp.StatusCode,
			"body", msg,
			"duration", duration)
		return nil, &RequestError{Status: resp.StatusCode, Message: msg}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decode engine response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("engine response has no choices")
	}

	c.logger.Debug("inference response received",
		"duration", duration,
		"tokens", cr.Usage.TotalTokens,
		"finish_reason", cr.Choices[0].FinishReason)

	return &Completion{
		Content:    cr.Choices[0].Message.Content,
		TokensUsed: cr.Usage.TotalTokens,
	}, nil
}
