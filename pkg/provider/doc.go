// Package provider abstracts the outbound LLM completion API.
//
// The Provider interface exposes a single Complete call; OpenAIClient
// implements it for OpenAI-compatible chat completion endpoints with
// retry and exponential backoff on transient failures. Error
// conditions surface as typed errors (RateLimitError, TimeoutError,
// AuthError, ProviderError, ParseError) so callers can branch with
// errors.As.
package provider
