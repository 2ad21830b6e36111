package config

import (
	"time"

	"minerva-ai/minerva/pkg/types"
)

// Config is the root configuration structure for the Minerva core.
// It contains all settings for token counting, context compression, budget
// planning, response caching, usage monitoring, the completion orchestrator,
// the LLM provider boundary, durable storage, and telemetry.
//
// Config values are immutable after loading; components receive pointers to
// their own sections and never write to them.
type Config struct {
	// Tokens contains token estimation configuration.
	Tokens TokensConfig `yaml:"tokens"`

	// Compression contains context compression configuration including
	// importance scoring weights and keyword tiers.
	Compression CompressionConfig `yaml:"compression"`

	// Budget contains budget planning configuration: response reserve,
	// adaptive conversation bands, pricing, and per-kind response estimates.
	Budget BudgetConfig `yaml:"budget"`

	// Cache contains response cache configuration including capacity and
	// per-kind TTL classes.
	Cache CacheConfig `yaml:"cache"`

	// Monitor contains usage monitoring configuration: EMA decay factors,
	// optimization thresholds, and the optimization cool-down.
	Monitor MonitorConfig `yaml:"monitor"`

	// Orchestrator contains completion orchestration configuration:
	// history bounds, chunking limits, truncation handling, and the
	// fail-soft apology texts.
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Provider contains configuration for the outbound LLM provider.
	Provider ProviderConfig `yaml:"provider"`

	// Tiers maps tier names ("free", "premium") to their limits.
	Tiers map[string]TierLimits `yaml:"tiers"`

	// Store contains durable record store configuration.
	Store StoreConfig `yaml:"store"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// TokensConfig contains token estimation configuration.
type TokensConfig struct {
	// Models maps model name (or name prefix) to characters-per-token
	// ratio. The "default" key is the fallback ratio.
	// Default: {"default": 4.0}
	Models map[string]float64 `yaml:"models"`
}

// CompressionConfig contains context compression configuration.
// The scoring weights are empirically chosen and tunable; they are not
// load-bearing precision.
type CompressionConfig struct {
	// RecencyWeight scales the linear position weight (later turns score
	// higher). Default: 0.3
	RecencyWeight float64 `yaml:"recency_weight"`

	// LengthWeight scales the normalized length contribution.
	// Default: 0.2
	LengthWeight float64 `yaml:"length_weight"`

	// LengthCapChars is the character count at which the length
	// contribution saturates. Default: 200
	LengthCapChars int `yaml:"length_cap_chars"`

	// PatternWeight scales the intent-pattern contribution. Default: 0.3
	PatternWeight float64 `yaml:"pattern_weight"`

	// HighKeywordWeight is the per-occurrence weight for high-tier
	// keywords. Default: 0.5
	HighKeywordWeight float64 `yaml:"high_keyword_weight"`

	// MediumKeywordWeight is the per-occurrence weight for medium-tier
	// keywords. Default: 0.3
	MediumKeywordWeight float64 `yaml:"medium_keyword_weight"`

	// LowKeywordWeight is the per-occurrence weight for low-tier keywords.
	// Default: 0.1
	LowKeywordWeight float64 `yaml:"low_keyword_weight"`

	// HighKeywords are terms that mark a turn as highly salient
	// (problems, goals, fears, crises).
	HighKeywords []string `yaml:"high_keywords"`

	// MediumKeywords are terms with moderate salience (work, family,
	// relationships, money, health).
	MediumKeywords []string `yaml:"medium_keywords"`

	// LowKeywords are filler terms (greetings, acknowledgements).
	LowKeywords []string `yaml:"low_keywords"`

	// IntentPatterns are regular expressions matching intent-revealing
	// sentences ("I want ...", "I'm afraid of ...").
	IntentPatterns []string `yaml:"intent_patterns"`

	// MinPartialTokens is the smallest remaining budget for which a turn
	// is truncated and included rather than dropped. Default: 50
	MinPartialTokens int `yaml:"min_partial_tokens"`
}

// BudgetConfig contains budget planning configuration.
type BudgetConfig struct {
	// ResponseReserve is the token allowance reserved for the model's
	// reply, independent of prompt kind. Default: 1000
	ResponseReserve int `yaml:"response_reserve"`

	// MinContextTokens is the absolute minimum context allowance used when
	// the prompt alone exceeds the budget. Context is degraded to this
	// floor, never omitted. Default: 100
	MinContextTokens int `yaml:"min_context_tokens"`

	// Model is the model name used for pricing lookups. Default: "gpt-4"
	Model string `yaml:"model"`

	// InputCostWeight is the fraction of total tokens priced at the input
	// rate when the actual completion length is unknown. The remainder is
	// priced at the output rate. Default: 0.7
	InputCostWeight float64 `yaml:"input_cost_weight"`

	// Pricing maps model name to per-1K-token input/output costs in USD.
	Pricing map[string]ModelPricing `yaml:"pricing"`

	// ResponseEstimates maps response kind to the expected completion
	// token count used for cost estimation.
	ResponseEstimates map[string]int `yaml:"response_estimates"`

	// EstimateFloor and EstimateCeiling clamp the adjusted response
	// estimate. Defaults: 100 and 1000.
	EstimateFloor   int `yaml:"estimate_floor"`
	EstimateCeiling int `yaml:"estimate_ceiling"`

	// LargePromptTokens is the prompt size above which the response
	// estimate is nudged upward. Default: 2000
	LargePromptTokens int `yaml:"large_prompt_tokens"`

	// SmallPromptTokens is the prompt size below which the response
	// estimate is nudged downward. Default: 500
	SmallPromptTokens int `yaml:"small_prompt_tokens"`

	// LongConversationTurns is the turn count above which the adaptive
	// budget shrinks. Default: 15
	LongConversationTurns int `yaml:"long_conversation_turns"`

	// ShortConversationTurns is the turn count below which the adaptive
	// budget grows. Default: 5
	ShortConversationTurns int `yaml:"short_conversation_turns"`

	// LongPenaltyTokens is subtracted from the budget for long
	// conversations. Default: 500
	LongPenaltyTokens int `yaml:"long_penalty_tokens"`

	// ShortBonusTokens is added to the budget for short conversations.
	// Default: 200
	ShortBonusTokens int `yaml:"short_bonus_tokens"`

	// CeilingBonusTokens bounds how far above the tier maximum the
	// short-conversation bonus may push the budget. Default: 500
	CeilingBonusTokens int `yaml:"ceiling_bonus_tokens"`
}

// ModelPricing contains per-1K-token costs for one model.
type ModelPricing struct {
	// InputPer1K is the USD cost per 1000 prompt tokens.
	InputPer1K float64 `yaml:"input_per_1k"`

	// OutputPer1K is the USD cost per 1000 completion tokens.
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// CacheConfig contains response cache configuration.
type CacheConfig struct {
	// Capacity is the maximum number of cached entries. When exceeded the
	// least-recently-used entry is evicted synchronously. Default: 1000
	Capacity int `yaml:"capacity"`

	// DefaultTTL is the fallback TTL for kinds without an entry in
	// TTLClasses. Default: 1h
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// TTLClasses maps response kind to its TTL.
	TTLClasses map[string]time.Duration `yaml:"ttl_classes"`

	// JanitorSchedule is a cron expression for the periodic expired-entry
	// sweep. Empty disables the janitor. Default: "*/10 * * * *"
	JanitorSchedule string `yaml:"janitor_schedule"`
}

// MonitorConfig contains usage monitoring configuration. The decay factors
// are empirically chosen and tunable.
type MonitorConfig struct {
	// LengthDecay is the EMA weight given to a new response-length sample.
	// Default: 0.2
	LengthDecay float64 `yaml:"length_decay"`

	// SatisfactionDecay is the EMA weight given to a new satisfaction
	// sample. Default: 0.3
	SatisfactionDecay float64 `yaml:"satisfaction_decay"`

	// TruncationStepUp is added to the truncation rate on a truncated
	// response. Default: 0.1
	TruncationStepUp float64 `yaml:"truncation_step_up"`

	// TruncationStepDown is subtracted on a complete response.
	// Default: 0.05
	TruncationStepDown float64 `yaml:"truncation_step_down"`

	// HighTruncationRate is the per-user rate above which optimization
	// shrinks the preferred prompt length. Default: 0.2
	HighTruncationRate float64 `yaml:"high_truncation_rate"`

	// LimitTruncationRate is the rate above which the optimal token limit
	// is scaled down. Default: 0.3
	LimitTruncationRate float64 `yaml:"limit_truncation_rate"`

	// LowSatisfaction is the satisfaction score below which style
	// adaptation triggers. Default: 3.0
	LowSatisfaction float64 `yaml:"low_satisfaction"`

	// ShortResponseChars is the average response length below which
	// expansion is suggested. Default: 200
	ShortResponseChars float64 `yaml:"short_response_chars"`

	// LongResponseChars is the average response length above which the
	// optimal token limit is scaled up. Default: 500
	LongResponseChars float64 `yaml:"long_response_chars"`

	// TruncationLimitScale shrinks the base limit for users with high
	// truncation rates. Default: 0.7
	TruncationLimitScale float64 `yaml:"truncation_limit_scale"`

	// LongResponseLimitScale grows the base limit for users who favor
	// long responses. Default: 1.2
	LongResponseLimitScale float64 `yaml:"long_response_limit_scale"`

	// LongContextTurns and ShortContextTurns are the conversation-length
	// bands for the context adjustment. Defaults: 15 and 5.
	LongContextTurns  int `yaml:"long_context_turns"`
	ShortContextTurns int `yaml:"short_context_turns"`

	// LongContextPenalty is subtracted from the limit in long
	// conversations. Default: 500
	LongContextPenalty int `yaml:"long_context_penalty"`

	// ShortContextBonus is added in short conversations. Default: 300
	ShortContextBonus int `yaml:"short_context_bonus"`

	// LimitFloor is the minimum optimal token limit. Default: 100
	LimitFloor int `yaml:"limit_floor"`

	// LimitCeilingBonus bounds how far above the tier maximum the optimal
	// limit may grow. Default: 500
	LimitCeilingBonus int `yaml:"limit_ceiling_bonus"`

	// SystemTruncationAlert is the system-wide truncation rate that
	// raises a health alert. Default: 0.3
	SystemTruncationAlert float64 `yaml:"system_truncation_alert"`

	// GlobalTruncationRate is the system-wide rate that produces a global
	// optimization suggestion. Default: 0.15
	GlobalTruncationRate float64 `yaml:"global_truncation_rate"`

	// OptimizationCooldown is the minimum interval between automatic
	// optimization passes for one user. Default: 30m
	OptimizationCooldown time.Duration `yaml:"optimization_cooldown"`
}

// OrchestratorConfig contains completion orchestration configuration.
type OrchestratorConfig struct {
	// MaxMessageLength is the platform chat-message length limit used for
	// response chunking. Default: 4000
	MaxMessageLength int `yaml:"max_message_length"`

	// MaxConversationTurns bounds the rolling per-user history. Oldest
	// turns are dropped first (FIFO). Default: 15
	MaxConversationTurns int `yaml:"max_conversation_turns"`

	// MinWordCount is the word count below which a completion is
	// considered truncated. Default: 10
	MinWordCount int `yaml:"min_word_count"`

	// ContinuationTailChars is how much of a truncated completion is fed
	// back as context for the continuation call. Default: 200
	ContinuationTailChars int `yaml:"continuation_tail_chars"`

	// ContinuationMaxTokens bounds the continuation completion.
	// Default: 500
	ContinuationMaxTokens int `yaml:"continuation_max_tokens"`

	// RequestTimeout is the outbound call timeout for the primary
	// completion. Default: 60s
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// ContinuationTimeout is the outbound call timeout for continuation
	// calls. Default: 30s
	ContinuationTimeout time.Duration `yaml:"continuation_timeout"`

	// ApologyGeneric, ApologyRateLimited, and ApologyTimedOut are the
	// fail-soft texts returned in place of an error. Callers always get
	// a string from the orchestrator, never an unhandled failure.
	ApologyGeneric     string `yaml:"apology_generic"`
	ApologyRateLimited string `yaml:"apology_rate_limited"`
	ApologyTimedOut    string `yaml:"apology_timed_out"`
}

// ProviderConfig contains configuration for the outbound LLM provider.
type ProviderConfig struct {
	// Name identifies the provider in errors and logs. Default: "openai"
	Name string `yaml:"name"`

	// BaseURL is the API base URL.
	// Default: "https://api.openai.com/v1"
	BaseURL string `yaml:"base_url"`

	// APIKey is the bearer token. Usually supplied via the
	// MINERVA_PROVIDER_API_KEY environment variable, not the file.
	APIKey string `yaml:"api_key"`

	// Model is the model identifier sent with each request.
	// Default: "gpt-4"
	Model string `yaml:"model"`

	// Temperature is the sampling temperature. Default: 0.7
	Temperature float64 `yaml:"temperature"`

	// MaxRetries is how many times a transient failure (5xx or network
	// error) is retried with exponential backoff. Default: 2
	MaxRetries int `yaml:"max_retries"`
}

// TierLimits contains the per-tier limits.
type TierLimits struct {
	// MaxTokens is the tier's base token budget per request.
	MaxTokens int `yaml:"max_tokens"`

	// MaxMessages is the tier's per-conversation message allowance.
	MaxMessages int `yaml:"max_messages"`

	// CacheTTL overrides the cache default TTL for this tier's entries
	// when set.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// StoreConfig contains durable record store configuration.
type StoreConfig struct {
	// Path is the SQLite database file path. Default: "minerva.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait for database locks. Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// TelemetryConfig contains logging and metrics configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json", "text"). Default: "json"
	Format string `yaml:"format"`

	// RedactPII enables redaction of emails, phone numbers, and long
	// digit runs in logged values. Conversation text carries personal
	// content; enable this in any shared environment.
	RedactPII bool `yaml:"redact_pii"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls metric registration.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix. Default: "minerva"
	Namespace string `yaml:"namespace"`

	// Subsystem is the optional metric subsystem.
	Subsystem string `yaml:"subsystem"`
}

// UserLimits returns the limits for the given tier, falling back to the
// free tier (and then to conservative hard-coded values) when the tier is
// not configured. It never fails.
func (c *Config) UserLimits(tier types.Tier) TierLimits {
	if limits, ok := c.Tiers[string(tier)]; ok {
		return limits
	}
	if limits, ok := c.Tiers[string(types.TierFree)]; ok {
		return limits
	}
	// Conservative fallback when tiers are missing entirely.
	return TierLimits{
		MaxTokens:   4000,
		MaxMessages: 10,
		CacheTTL:    time.Hour,
	}
}

// AdaptiveLimits returns the tier limits adjusted for conversation length.
// Long conversations get a smaller budget to leave room for the reply;
// short conversations get a bonus, bounded above the tier maximum by
// CeilingBonusTokens. The adjustment is a three-band step function.
func (c *Config) AdaptiveLimits(conversationTurns int, tier types.Tier) TierLimits {
	limits := c.UserLimits(tier)

	switch {
	case conversationTurns > c.Budget.LongConversationTurns:
		adjusted := limits.MaxTokens - c.Budget.LongPenaltyTokens
		if adjusted < c.Budget.MinContextTokens {
			adjusted = c.Budget.MinContextTokens
		}
		limits.MaxTokens = adjusted

	case conversationTurns < c.Budget.ShortConversationTurns:
		ceiling := limits.MaxTokens + c.Budget.CeilingBonusTokens
		adjusted := limits.MaxTokens + c.Budget.ShortBonusTokens
		if adjusted > ceiling {
			adjusted = ceiling
		}
		limits.MaxTokens = adjusted
	}

	return limits
}

// KindTTL returns the cache TTL class for a response kind, falling back to
// the default TTL.
func (c *Config) KindTTL(kind types.Kind) time.Duration {
	if ttl, ok := c.Cache.TTLClasses[string(kind)]; ok {
		return ttl
	}
	return c.Cache.DefaultTTL
}
