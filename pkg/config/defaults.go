package config

import (
	"time"

	"minerva-ai/minerva/pkg/types"
)

// ApplyDefaults fills in default values for any zero-valued configuration
// fields. It is called by LoadConfig after parsing and may be called
// directly on a hand-built Config in tests.
func ApplyDefaults(cfg *Config) {
	applyTokensDefaults(&cfg.Tokens)
	applyCompressionDefaults(&cfg.Compression)
	applyBudgetDefaults(&cfg.Budget)
	applyCacheDefaults(&cfg.Cache)
	applyMonitorDefaults(&cfg.Monitor)
	applyOrchestratorDefaults(&cfg.Orchestrator)
	applyProviderDefaults(&cfg.Provider)
	applyTierDefaults(cfg)
	applyStoreDefaults(&cfg.Store)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyTokensDefaults(cfg *TokensConfig) {
	if cfg.Models == nil {
		cfg.Models = map[string]float64{
			"gpt-4":   4.0,
			"gpt-3.5": 4.0,
			"claude":  3.5,
			"default": 4.0,
		}
	}
	if _, ok := cfg.Models["default"]; !ok {
		cfg.Models["default"] = 4.0
	}
}

func applyCompressionDefaults(cfg *CompressionConfig) {
	if cfg.RecencyWeight == 0 {
		cfg.RecencyWeight = 0.3
	}
	if cfg.LengthWeight == 0 {
		cfg.LengthWeight = 0.2
	}
	if cfg.LengthCapChars == 0 {
		cfg.LengthCapChars = 200
	}
	if cfg.PatternWeight == 0 {
		cfg.PatternWeight = 0.3
	}
	if cfg.HighKeywordWeight == 0 {
		cfg.HighKeywordWeight = 0.5
	}
	if cfg.MediumKeywordWeight == 0 {
		cfg.MediumKeywordWeight = 0.3
	}
	if cfg.LowKeywordWeight == 0 {
		cfg.LowKeywordWeight = 0.1
	}
	if cfg.HighKeywords == nil {
		cfg.HighKeywords = []string{
			"important", "problem", "goal", "dream", "fear", "afraid",
			"anxiety", "anxious", "crisis", "urgent",
		}
	}
	if cfg.MediumKeywords == nil {
		cfg.MediumKeywords = []string{
			"work", "career", "relationship", "family", "money", "health",
		}
	}
	if cfg.LowKeywords == nil {
		cfg.LowKeywords = []string{
			"hello", "hi", "thanks", "thank you", "okay", "ok", "yes", "no",
		}
	}
	if cfg.IntentPatterns == nil {
		cfg.IntentPatterns = []string{
			`(?i)i want (.+)`,
			`(?i)my goal is (.+)`,
			`(?i)my problem is (.+)`,
			`(?i)i'?m afraid (.+)`,
			`(?i)i dream (?:of|about) (.+)`,
			`(?i)i work (.+)`,
			`(?i)i'?m studying (.+)`,
			`(?i)i'?m planning (.+)`,
		}
	}
	if cfg.MinPartialTokens == 0 {
		cfg.MinPartialTokens = 50
	}
}

func applyBudgetDefaults(cfg *BudgetConfig) {
	if cfg.ResponseReserve == 0 {
		cfg.ResponseReserve = 1000
	}
	if cfg.MinContextTokens == 0 {
		cfg.MinContextTokens = 100
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4"
	}
	if cfg.InputCostWeight == 0 {
		cfg.InputCostWeight = 0.7
	}
	if cfg.Pricing == nil {
		cfg.Pricing = map[string]ModelPricing{
			"gpt-4":             {InputPer1K: 0.03, OutputPer1K: 0.06},
			"gpt-4-turbo":       {InputPer1K: 0.01, OutputPer1K: 0.03},
			"gpt-3.5-turbo":     {InputPer1K: 0.001, OutputPer1K: 0.002},
			"gpt-3.5-turbo-16k": {InputPer1K: 0.003, OutputPer1K: 0.004},
		}
	}
	if cfg.ResponseEstimates == nil {
		cfg.ResponseEstimates = map[string]int{
			string(types.KindExpressAnalysis):    300,
			string(types.KindFullAnalysis):       800,
			string(types.KindConsultation):       200,
			string(types.KindCareerConsultation): 400,
			string(types.KindEmotionalSupport):   300,
			string(types.KindSelfEsteemAnalysis): 600,
			string(types.KindGeneral):            500,
		}
	}
	if cfg.EstimateFloor == 0 {
		cfg.EstimateFloor = 100
	}
	if cfg.EstimateCeiling == 0 {
		cfg.EstimateCeiling = 1000
	}
	if cfg.LargePromptTokens == 0 {
		cfg.LargePromptTokens = 2000
	}
	if cfg.SmallPromptTokens == 0 {
		cfg.SmallPromptTokens = 500
	}
	if cfg.LongConversationTurns == 0 {
		cfg.LongConversationTurns = 15
	}
	if cfg.ShortConversationTurns == 0 {
		cfg.ShortConversationTurns = 5
	}
	if cfg.LongPenaltyTokens == 0 {
		cfg.LongPenaltyTokens = 500
	}
	if cfg.ShortBonusTokens == 0 {
		cfg.ShortBonusTokens = 200
	}
	if cfg.CeilingBonusTokens == 0 {
		cfg.CeilingBonusTokens = 500
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.Capacity == 0 {
		cfg.Capacity = 1000
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = time.Hour
	}
	if cfg.TTLClasses == nil {
		cfg.TTLClasses = map[string]time.Duration{
			string(types.KindExpressAnalysis):    time.Hour,
			string(types.KindFullAnalysis):       2 * time.Hour,
			string(types.KindConsultation):       30 * time.Minute,
			string(types.KindCareerConsultation): time.Hour,
		}
	}
	if cfg.JanitorSchedule == "" {
		cfg.JanitorSchedule = "*/10 * * * *"
	}
}

func applyMonitorDefaults(cfg *MonitorConfig) {
	if cfg.LengthDecay == 0 {
		cfg.LengthDecay = 0.2
	}
	if cfg.SatisfactionDecay == 0 {
		cfg.SatisfactionDecay = 0.3
	}
	if cfg.TruncationStepUp == 0 {
		cfg.TruncationStepUp = 0.1
	}
	if cfg.TruncationStepDown == 0 {
		cfg.TruncationStepDown = 0.05
	}
	if cfg.HighTruncationRate == 0 {
		cfg.HighTruncationRate = 0.2
	}
	if cfg.LimitTruncationRate == 0 {
		cfg.LimitTruncationRate = 0.3
	}
	if cfg.LowSatisfaction == 0 {
		cfg.LowSatisfaction = 3.0
	}
	if cfg.ShortResponseChars == 0 {
		cfg.ShortResponseChars = 200
	}
	if cfg.LongResponseChars == 0 {
		cfg.LongResponseChars = 500
	}
	if cfg.TruncationLimitScale == 0 {
		cfg.TruncationLimitScale = 0.7
	}
	if cfg.LongResponseLimitScale == 0 {
		cfg.LongResponseLimitScale = 1.2
	}
	if cfg.LongContextTurns == 0 {
		cfg.LongContextTurns = 15
	}
	if cfg.ShortContextTurns == 0 {
		cfg.ShortContextTurns = 5
	}
	if cfg.LongContextPenalty == 0 {
		cfg.LongContextPenalty = 500
	}
	if cfg.ShortContextBonus == 0 {
		cfg.ShortContextBonus = 300
	}
	if cfg.LimitFloor == 0 {
		cfg.LimitFloor = 100
	}
	if cfg.LimitCeilingBonus == 0 {
		cfg.LimitCeilingBonus = 500
	}
	if cfg.SystemTruncationAlert == 0 {
		cfg.SystemTruncationAlert = 0.3
	}
	if cfg.GlobalTruncationRate == 0 {
		cfg.GlobalTruncationRate = 0.15
	}
	if cfg.OptimizationCooldown == 0 {
		cfg.OptimizationCooldown = 30 * time.Minute
	}
}

func applyOrchestratorDefaults(cfg *OrchestratorConfig) {
	if cfg.MaxMessageLength == 0 {
		cfg.MaxMessageLength = 4000
	}
	if cfg.MaxConversationTurns == 0 {
		cfg.MaxConversationTurns = 15
	}
	if cfg.MinWordCount == 0 {
		cfg.MinWordCount = 10
	}
	if cfg.ContinuationTailChars == 0 {
		cfg.ContinuationTailChars = 200
	}
	if cfg.ContinuationMaxTokens == 0 {
		cfg.ContinuationMaxTokens = 500
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.ContinuationTimeout == 0 {
		cfg.ContinuationTimeout = 30 * time.Second
	}
	if cfg.ApologyGeneric == "" {
		cfg.ApologyGeneric = "Sorry, something went wrong while processing your request. Please try again later."
	}
	if cfg.ApologyRateLimited == "" {
		cfg.ApologyRateLimited = "Sorry, there are too many requests right now. Please try again in a few minutes."
	}
	if cfg.ApologyTimedOut == "" {
		cfg.ApologyTimedOut = "Sorry, the request took too long. Please try again."
	}
}

func applyProviderDefaults(cfg *ProviderConfig) {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4"
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
}

func applyTierDefaults(cfg *Config) {
	if cfg.Tiers == nil {
		cfg.Tiers = map[string]TierLimits{}
	}
	if _, ok := cfg.Tiers[string(types.TierFree)]; !ok {
		cfg.Tiers[string(types.TierFree)] = TierLimits{
			MaxTokens:   4000,
			MaxMessages: 10,
			CacheTTL:    time.Hour,
		}
	}
	if _, ok := cfg.Tiers[string(types.TierPremium)]; !ok {
		cfg.Tiers[string(types.TierPremium)] = TierLimits{
			MaxTokens:   5000,
			MaxMessages: 20,
			CacheTTL:    2 * time.Hour,
		}
	}
}

func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Path == "" {
		cfg.Path = "minerva.db"
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "minerva"
	}
}
