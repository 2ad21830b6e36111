package provider

import "context"

// Message is one chat message sent to the model.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// Request is a provider-agnostic completion request.
type Request struct {
	// Messages is the conversation sent to the model, system prompt
	// first.
	Messages []Message

	// MaxTokens bounds the completion length.
	MaxTokens int

	// Temperature overrides the configured sampling temperature when
	// positive.
	Temperature float64
}

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a provider-agnostic completion response.
type Response struct {
	// Text is the completion content.
	Text string

	// FinishReason is the provider's stop reason ("stop", "length").
	FinishReason string

	// Model is the model that produced the completion.
	Model string

	// Usage is the reported token consumption. Zero when the provider
	// omitted it.
	Usage Usage
}

// Provider generates completions from an upstream LLM API.
//
// Complete returns a typed error on failure: *RateLimitError when the
// provider throttled the request, *TimeoutError when the context
// deadline expired, *AuthError on credential rejection, and
// *ProviderError otherwise. Callers branch on these with errors.As.
type Provider interface {
	// Complete performs one completion call.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Name identifies the provider in errors and logs.
	Name() string

	// Close releases idle connections.
	Close() error
}
