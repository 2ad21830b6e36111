package budget

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"minerva-ai/minerva/pkg/compress"
	"minerva-ai/minerva/pkg/config"
	"minerva-ai/minerva/pkg/tokens"
	"minerva-ai/minerva/pkg/types"
)

// Plan is the result of one budget computation: the final prompt and
// context to dispatch, a TokenUsage record, and flags describing what the
// planner had to do to fit the budget.
type Plan struct {
	// Prompt is the prompt to dispatch, unchanged from the input.
	Prompt string

	// Context is the context to dispatch, possibly compressed.
	Context string

	// Usage is the immutable usage record for this computation.
	Usage types.TokenUsage

	// Compressed reports whether the context was compressed to fit.
	Compressed bool

	// Degraded reports that the prompt alone exceeded the budget and the
	// context was reduced to the configured minimum allowance.
	Degraded bool
}

// Planner computes how many tokens a request may spend and shrinks the
// context to fit. It never fails: missing tiers fall back to conservative
// defaults and an oversized prompt degrades the context to a minimum
// rather than rejecting the request.
type Planner struct {
	config     *config.Config
	counter    tokens.Counter
	compressor *compress.Compressor
	logger     *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// Stats accumulates planner-wide usage totals.
type Stats struct {
	TotalTokens         int
	TotalRequests       int
	TotalCost           float64
	AvgTokensPerRequest float64
	AvgCostPerRequest   float64
}

// NewPlanner creates a budget planner. The compressor is invoked whenever
// prompt plus context exceeds the adaptive budget minus the response
// reserve.
func NewPlanner(cfg *config.Config, counter tokens.Counter, compressor *compress.Compressor) *Planner {
	return &Planner{
		config:     cfg,
		counter:    counter,
		compressor: compressor,
		logger:     slog.Default().With("component", "budget"),
	}
}

// Plan sizes a request for the given tier and response kind.
//
// The effective budget is the tier maximum adjusted by conversation length
// (three bands: long conversations shrink it, short ones grow it). A fixed
// response reserve is subtracted; whatever remains is available for prompt
// plus context. A fitting request passes through unchanged. An oversized
// context is compressed to the remaining allowance. If the prompt alone
// exhausts the budget, the context is degraded to the configured minimum
// allowance instead of being dropped, and the plan is marked Degraded.
func (p *Planner) Plan(prompt, context string, tier types.Tier, kind types.Kind) Plan {
	start := time.Now()

	promptTokens := p.counter.Count(prompt)
	contextTokens := p.counter.Count(context)
	conversationTurns := countTurns(context)

	limits := p.config.AdaptiveLimits(conversationTurns, tier)
	available := limits.MaxTokens - p.config.Budget.ResponseReserve

	responseEstimate := p.estimateResponseTokens(promptTokens, conversationTurns, kind)

	// Everything fits: pass through unchanged.
	if promptTokens+contextTokens <= available {
		total := promptTokens + contextTokens
		plan := Plan{
			Prompt:  prompt,
			Context: context,
			Usage:   p.buildUsage(total, responseEstimate, start),
		}
		p.recordUsage(plan.Usage)
		return plan
	}

	maxContextTokens := available - promptTokens
	degraded := false
	if maxContextTokens <= 0 {
		// The prompt alone blows the budget. A degraded minimum context
		// is preferred to none.
		maxContextTokens = p.config.Budget.MinContextTokens
		degraded = true
		p.logger.Warn("prompt exceeds token budget, degrading to minimum context",
			"prompt_tokens", promptTokens,
			"budget", available,
			"min_context_tokens", maxContextTokens)
	}

	compressed := p.compressor.Compress(splitTurns(context), maxContextTokens)

	finalTokens := promptTokens + p.counter.Count(compressed)
	plan := Plan{
		Prompt:     prompt,
		Context:    compressed,
		Usage:      p.buildUsage(finalTokens, responseEstimate, start),
		Compressed: true,
		Degraded:   degraded,
	}
	p.recordUsage(plan.Usage)
	return plan
}

// estimateResponseTokens predicts the completion size for a response kind,
// nudged by prompt size and conversation length, clamped to the configured
// floor/ceiling and never above the response reserve.
func (p *Planner) estimateResponseTokens(promptTokens, conversationTurns int, kind types.Kind) int {
	cfg := &p.config.Budget

	estimate, ok := cfg.ResponseEstimates[string(kind)]
	if !ok {
		estimate = cfg.ResponseEstimates[string(types.KindGeneral)]
		if estimate == 0 {
			estimate = 500
		}
	}

	if promptTokens > cfg.LargePromptTokens {
		estimate += 200
	} else if promptTokens < cfg.SmallPromptTokens {
		estimate -= 100
	}

	if conversationTurns > 10 {
		estimate += 150
	} else if conversationTurns < 3 {
		estimate -= 50
	}

	if estimate < cfg.EstimateFloor {
		estimate = cfg.EstimateFloor
	}
	if estimate > cfg.EstimateCeiling {
		estimate = cfg.EstimateCeiling
	}
	if estimate > cfg.ResponseReserve {
		estimate = cfg.ResponseReserve
	}
	return estimate
}

func (p *Planner) buildUsage(inputTokens, responseEstimate int, start time.Time) types.TokenUsage {
	total := inputTokens + responseEstimate
	return types.TokenUsage{
		PromptTokens:     inputTokens,
		CompletionTokens: responseEstimate,
		TotalTokens:      total,
		EstimatedCost:    p.EstimateCost(total, p.config.Budget.Model),
		ProcessingTime:   time.Since(start),
		Timestamp:        time.Now(),
	}
}

func (p *Planner) recordUsage(usage types.TokenUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.TotalTokens += usage.TotalTokens
	p.stats.TotalRequests++
	p.stats.TotalCost += usage.EstimatedCost
	p.stats.AvgTokensPerRequest = float64(p.stats.TotalTokens) / float64(p.stats.TotalRequests)
	p.stats.AvgCostPerRequest = p.stats.TotalCost / float64(p.stats.TotalRequests)
}

// Stats returns a copy of the accumulated planner statistics.
func (p *Planner) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// ResetStats zeroes the accumulated statistics.
func (p *Planner) ResetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = Stats{}
}

// countTurns counts conversation turns in a newline-joined context string.
func countTurns(context string) int {
	if context == "" {
		return 0
	}
	return len(strings.Split(context, "\n"))
}

// splitTurns splits a newline-joined context back into turns for the
// compressor, dropping blank lines.
func splitTurns(context string) []string {
	if context == "" {
		return nil
	}
	lines := strings.Split(context, "\n")
	turns := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			turns = append(turns, line)
		}
	}
	return turns
}
