package types

import "time"

// Tier identifies a user class. Tiers determine token budgets, message
// limits, and cache TTL via configuration lookup.
type Tier string

const (
	// TierFree is the default tier for unregistered or free users.
	TierFree Tier = "free"

	// TierPremium is the paid tier with larger budgets.
	TierPremium Tier = "premium"
)

// String returns the string form of the tier.
func (t Tier) String() string {
	return string(t)
}

// TokenUsage is an immutable record of a single budget computation.
// It is created once per planned request and attached to the orchestration
// result for logging and monitoring; it is never mutated after creation.
type TokenUsage struct {
	// PromptTokens is the token count of the final prompt plus context.
	PromptTokens int

	// CompletionTokens is the estimated (or, after the call, observed)
	// completion token count.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int

	// EstimatedCost is the estimated request cost in USD.
	EstimatedCost float64

	// ProcessingTime is how long budget planning took.
	ProcessingTime time.Duration

	// Timestamp is when the usage record was created.
	Timestamp time.Time
}

// CostPerToken returns the estimated cost per token. It is safe to call on
// a zero-token usage record.
func (u TokenUsage) CostPerToken() float64 {
	if u.TotalTokens <= 0 {
		return 0
	}
	return u.EstimatedCost / float64(u.TotalTokens)
}

// Turn is a single conversation turn as seen by the context compressor.
// Importance is computed per request and never stored; turns are ephemeral,
// rebuilt from the rolling history each time.
type Turn struct {
	// Text is the raw turn text.
	Text string

	// Importance is the computed importance score in [0, 1].
	Importance float64

	// Position is the ordinal position of the turn in the source history,
	// zero-based, oldest first.
	Position int
}
