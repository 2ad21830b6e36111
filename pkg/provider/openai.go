package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"minerva-ai/minerva/pkg/config"
)

// chatRequest is an OpenAI chat completion request.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	N           int           `json:"n,omitempty"`
}

// chatMessage is a message in OpenAI wire format.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is an OpenAI chat completion response.
type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// chatChoice is a completion choice in OpenAI wire format.
type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// chatUsage is token usage in OpenAI wire format.
type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OpenAIClient is a Provider for OpenAI-compatible chat completion
// APIs. It retries transient failures (5xx, network errors) with
// exponential backoff; auth and rate-limit failures are returned
// immediately as typed errors.
type OpenAIClient struct {
	config *config.ProviderConfig
	client *http.Client
	logger *slog.Logger
}

var _ Provider = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
// Request deadlines come from the caller's context, not a client-level
// timeout.
func NewOpenAIClient(cfg *config.ProviderConfig) *OpenAIClient {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &OpenAIClient{
		config: cfg,
		client: &http.Client{Transport: transport},
		logger: slog.Default().With("component", "provider", "provider", cfg.Name),
	}
}

// Name returns the configured provider name.
func (c *OpenAIClient) Name() string {
	return c.config.Name
}

// Complete performs one chat completion call.
func (c *OpenAIClient) Complete(ctx context.Context, req *Request) (*Response, error) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.config.Temperature
	}

	wire := chatRequest{
		Model:       c.config.Model,
		Messages:    make([]chatMessage, len(req.Messages)),
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
		N:           1,
	}
	for i, msg := range req.Messages {
		wire.Messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	raw, err := c.doRequest(ctx, body)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ParseError{
			Provider:    c.config.Name,
			RawResponse: string(raw),
			Cause:       err,
		}
	}
	if len(parsed.Choices) == 0 {
		return nil, &ParseError{
			Provider:    c.config.Name,
			RawResponse: string(raw),
			Cause:       fmt.Errorf("response has no choices"),
		}
	}

	choice := parsed.Choices[0]
	return &Response{
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
		Model:        parsed.Model,
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

// doRequest posts the body to the chat completions endpoint with retry
// on transient failures.
func (c *OpenAIClient) doRequest(ctx context.Context, body []byte) ([]byte, error) {
	url := c.config.BaseURL + "/chat/completions"

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			c.logger.Debug("retrying request", "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, c.contextError(ctx)
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, c.contextError(ctx)
			}
			lastErr = fmt.Errorf("sending request: %w", err)
			c.logger.Warn("request failed, will retry", "attempt", attempt+1, "error", err)
			continue
		}

		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if readErr != nil {
				return nil, &ParseError{
					Provider: c.config.Name,
					Cause:    fmt.Errorf("reading response: %w", readErr),
				}
			}
			return raw, nil
		}

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, &AuthError{Provider: c.config.Name, Message: string(raw)}

		case http.StatusTooManyRequests:
			return nil, &RateLimitError{
				Provider:   c.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(raw),
			}

		case http.StatusBadRequest:
			return nil, &ProviderError{
				Provider:   c.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(raw),
			}

		default:
			lastErr = &ProviderError{
				Provider:   c.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(raw),
			}
			c.logger.Warn("request returned error status, will retry",
				"status", resp.StatusCode,
				"attempt", attempt+1)
		}
	}

	return nil, lastErr
}

// contextError maps a done context to the typed error callers expect.
func (c *OpenAIClient) contextError(ctx context.Context) error {
	if ctx.Err() == context.DeadlineExceeded {
		return &TimeoutError{Provider: c.config.Name}
	}
	return ctx.Err()
}

// Close releases idle connections.
func (c *OpenAIClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// parseRetryAfter parses the Retry-After header value. It supports
// both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
