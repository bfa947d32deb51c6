// Package llm wraps the Anthropic Messages API behind a small client used for
// diff summaries and reachability pings.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultModel = "claude-haiku-4-5-20251001"

var ErrNotConfigured = errors.New("llm: no API key configured")

// APIError is a non-success response from the upstream API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

type Client struct {
	client     anthropic.Client
	model      string
	configured bool
}

func New(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client:     anthropic.NewClient(opts...),
		model:      cfg.Model,
		configured: cfg.APIKey != "",
	}
}

func (c *Client) Model() string {
	return c.model
}

// Complete sends a single user message under the given system instruction and
// returns the concatenated text of the reply.
func (c *Client) Complete(ctx context.Context, system, prompt string, maxTokens int64) (string, error) {
	msg, err := c.send(ctx, system, prompt, maxTokens)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// Ping sends a minimal request and returns the model that answered.
func (c *Client) Ping(ctx context.Context) (string, error) {
	msg, err := c.send(ctx, "", "ping", 10)
	if err != nil {
		return "", err
	}
	if msg.ID == "" && len(msg.Content) == 0 {
		return "", errors.New("llm: empty ping response")
	}
	if msg.Model != "" {
		return string(msg.Model), nil
	}
	return c.model, nil
}

func (c *Client) send(ctx context.Context, system, prompt string, maxTokens int64) (*anthropic.Message, error) {
	if !c.configured {
		return nil, ErrNotConfigured
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &APIError{StatusCode: apiErr.StatusCode, Message: errorMessage(apiErr.RawJSON())}
		}
		return nil, err
	}
	return msg, nil
}

// errorMessage pulls error.message out of an API error body.
func errorMessage(raw string) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return ""
	}
	return body.Error.Message
}
