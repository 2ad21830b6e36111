package config

import (
	"fmt"
	"regexp"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for invalid values and returns an error
// describing the first problem found. Validation fails fast at load time so
// components can assume their sections are well-formed.
func Validate(cfg *Config) error {
	if err := validateTokens(&cfg.Tokens); err != nil {
		return fmt.Errorf("tokens: %w", err)
	}
	if err := validateCompression(&cfg.Compression); err != nil {
		return fmt.Errorf("compression: %w", err)
	}
	if err := validateBudget(&cfg.Budget); err != nil {
		return fmt.Errorf("budget: %w", err)
	}
	if err := validateCache(&cfg.Cache); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := validateMonitor(&cfg.Monitor); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	if err := validateOrchestrator(&cfg.Orchestrator); err != nil {
		return fmt.Errorf("orchestrator: %w", err)
	}
	if err := validateTiers(cfg.Tiers); err != nil {
		return fmt.Errorf("tiers: %w", err)
	}
	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func validateTokens(cfg *TokensConfig) error {
	for model, ratio := range cfg.Models {
		if ratio <= 0 {
			return fmt.Errorf("model %q has non-positive chars-per-token ratio %v", model, ratio)
		}
	}
	if _, ok := cfg.Models["default"]; !ok {
		return fmt.Errorf("missing required \"default\" model ratio")
	}
	return nil
}

func validateCompression(cfg *CompressionConfig) error {
	weights := map[string]float64{
		"recency_weight":        cfg.RecencyWeight,
		"length_weight":         cfg.LengthWeight,
		"pattern_weight":        cfg.PatternWeight,
		"high_keyword_weight":   cfg.HighKeywordWeight,
		"medium_keyword_weight": cfg.MediumKeywordWeight,
		"low_keyword_weight":    cfg.LowKeywordWeight,
	}
	for name, w := range weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s %v outside [0, 1]", name, w)
		}
	}
	if cfg.LengthCapChars <= 0 {
		return fmt.Errorf("length_cap_chars must be positive, got %d", cfg.LengthCapChars)
	}
	if cfg.MinPartialTokens < 0 {
		return fmt.Errorf("min_partial_tokens must be non-negative, got %d", cfg.MinPartialTokens)
	}
	for _, pattern := range cfg.IntentPatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid intent pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateBudget(cfg *BudgetConfig) error {
	if cfg.ResponseReserve <= 0 {
		return fmt.Errorf("response_reserve must be positive, got %d", cfg.ResponseReserve)
	}
	if cfg.MinContextTokens <= 0 {
		return fmt.Errorf("min_context_tokens must be positive, got %d", cfg.MinContextTokens)
	}
	if cfg.InputCostWeight < 0 || cfg.InputCostWeight > 1 {
		return fmt.Errorf("input_cost_weight %v outside [0, 1]", cfg.InputCostWeight)
	}
	for model, pricing := range cfg.Pricing {
		if pricing.InputPer1K < 0 || pricing.OutputPer1K < 0 {
			return fmt.Errorf("model %q has negative pricing", model)
		}
	}
	for kind, estimate := range cfg.ResponseEstimates {
		if estimate <= 0 {
			return fmt.Errorf("response estimate for kind %q must be positive, got %d", kind, estimate)
		}
	}
	if cfg.EstimateFloor > cfg.EstimateCeiling {
		return fmt.Errorf("estimate_floor %d exceeds estimate_ceiling %d",
			cfg.EstimateFloor, cfg.EstimateCeiling)
	}
	if cfg.ShortConversationTurns > cfg.LongConversationTurns {
		return fmt.Errorf("short_conversation_turns %d exceeds long_conversation_turns %d",
			cfg.ShortConversationTurns, cfg.LongConversationTurns)
	}
	return nil
}

func validateCache(cfg *CacheConfig) error {
	if cfg.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", cfg.Capacity)
	}
	if cfg.DefaultTTL <= 0 {
		return fmt.Errorf("default_ttl must be positive, got %v", cfg.DefaultTTL)
	}
	for kind, ttl := range cfg.TTLClasses {
		if ttl < 0 {
			return fmt.Errorf("ttl class for kind %q is negative: %v", kind, ttl)
		}
	}
	if cfg.JanitorSchedule != "" {
		if _, err := cron.ParseStandard(cfg.JanitorSchedule); err != nil {
			return fmt.Errorf("invalid janitor schedule %q: %w", cfg.JanitorSchedule, err)
		}
	}
	return nil
}

func validateMonitor(cfg *MonitorConfig) error {
	decays := map[string]float64{
		"length_decay":         cfg.LengthDecay,
		"satisfaction_decay":   cfg.SatisfactionDecay,
		"truncation_step_up":   cfg.TruncationStepUp,
		"truncation_step_down": cfg.TruncationStepDown,
	}
	for name, d := range decays {
		if d <= 0 || d > 1 {
			return fmt.Errorf("%s %v outside (0, 1]", name, d)
		}
	}
	rates := map[string]float64{
		"high_truncation_rate":    cfg.HighTruncationRate,
		"limit_truncation_rate":   cfg.LimitTruncationRate,
		"system_truncation_alert": cfg.SystemTruncationAlert,
		"global_truncation_rate":  cfg.GlobalTruncationRate,
	}
	for name, r := range rates {
		if r <= 0 || r > 1 {
			return fmt.Errorf("%s %v outside (0, 1]", name, r)
		}
	}
	if cfg.TruncationLimitScale <= 0 || cfg.TruncationLimitScale > 1 {
		return fmt.Errorf("truncation_limit_scale %v outside (0, 1]", cfg.TruncationLimitScale)
	}
	if cfg.LongResponseLimitScale < 1 {
		return fmt.Errorf("long_response_limit_scale %v below 1", cfg.LongResponseLimitScale)
	}
	if cfg.LimitFloor <= 0 {
		return fmt.Errorf("limit_floor must be positive, got %d", cfg.LimitFloor)
	}
	if cfg.OptimizationCooldown <= 0 {
		return fmt.Errorf("optimization_cooldown must be positive, got %v", cfg.OptimizationCooldown)
	}
	return nil
}

func validateOrchestrator(cfg *OrchestratorConfig) error {
	if cfg.MaxMessageLength <= 0 {
		return fmt.Errorf("max_message_length must be positive, got %d", cfg.MaxMessageLength)
	}
	if cfg.MaxConversationTurns <= 0 {
		return fmt.Errorf("max_conversation_turns must be positive, got %d", cfg.MaxConversationTurns)
	}
	if cfg.MinWordCount <= 0 {
		return fmt.Errorf("min_word_count must be positive, got %d", cfg.MinWordCount)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.ContinuationTimeout <= 0 {
		return fmt.Errorf("continuation_timeout must be positive, got %v", cfg.ContinuationTimeout)
	}
	return nil
}

func validateTiers(tiers map[string]TierLimits) error {
	for name, limits := range tiers {
		if limits.MaxTokens <= 0 {
			return fmt.Errorf("tier %q max_tokens must be positive, got %d", name, limits.MaxTokens)
		}
		if limits.MaxMessages <= 0 {
			return fmt.Errorf("tier %q max_messages must be positive, got %d", name, limits.MaxMessages)
		}
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format %q", cfg.Logging.Format)
	}
	return nil
}
