package infer

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

	"github.com/ardnew/itom/log"
	"github.com/ardnew/itom/program"
)

// Defaults for [Client].
const (
	DefaultEndpoint  = "http://localhost:1234/v1/chat/completions"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024
)

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client infers inputs with an OpenAI-compatible chat completions endpoint.
//
// The model is asked for a JSON value. A reply that does not parse as JSON
// is used as a string.
type Client struct {
	http      *http.Client
	logger    log.Logger
	endpoint  string
	key       string
	model     string
	maxTokens int
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithEndpoint sets the chat completions URL.
func WithEndpoint(url string) ClientOption {
	return func(c *Client) { c.endpoint = url }
}

// WithAPIKey sets the bearer token sent with each request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.key = key }
}

// WithModel sets the requested model name.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient returns a [Client] with the given options applied.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:      &http.Client{Timeout: DefaultTimeout},
		endpoint:  DefaultEndpoint,
		maxTokens: DefaultMaxTokens,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

const systemPrompt = "You supply input values for document programs. " +
	"Reply with a single JSON value and nothing else."

// Prompt returns the user message sent for req.
func Prompt(req Request) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Program %q", req.Program)

	if req.Description != "" {
		fmt.Fprintf(&sb, " (%s)", req.Description)
	}

	fmt.Fprintf(&sb, " needs a value for its input %q", req.Input)

	if req.InputDescription != "" {
		fmt.Fprintf(&sb, ", described as: %s", req.InputDescription)
	}

	sb.WriteString(".")

	if req.Caller != "" {
		fmt.Fprintf(&sb, " It is being included by program %q.", req.Caller)
	}

	return sb.String()
}

// Infer implements [Inferrer].
func (c *Client) Infer(ctx context.Context, req Request) (any, error) {
	text, err := c.Complete(ctx, systemPrompt, []Message{
		{Role: "user", Content: Prompt(req)},
	})
	if err != nil {
		return nil, ErrInfer.Wrap(err).With(req.Attrs()...)
	}

	c.logger.DebugContext(ctx, "inferred input",
		append(req.Attrs(), slog.Int("chars", len(text)))...)

	return parseReply(text), nil
}

// Complete sends one chat completion request and returns the reply text.
func (c *Client) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	msgs := append([]Message{{Role: "system", Content: system}}, messages...)

	body := map[string]any{
		"messages":   msgs,
		"max_tokens": c.maxTokens,
	}

	if c.model != "" {
		body["model"] = c.model
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")

	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return result.Choices[0].Message.Content, nil
}

// parseReply decodes a JSON reply, tolerating a surrounding code fence.
func parseReply(text string) any {
	s := strings.TrimSpace(text)

	if rest, ok := strings.CutPrefix(s, "```"); ok {
		// Drop the info string ("json") and the closing fence.
		if _, after, ok := strings.Cut(rest, "\n"); ok {
			s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(after), "```"))
		}
	}

	if json.Valid([]byte(s)) {
		if v, err := program.DecodeJSON([]byte(s)); err == nil {
			return v
		}
	}

	return s
}
