package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"minerva-ai/minerva/pkg/budget"
	"minerva-ai/minerva/pkg/cache"
	"minerva-ai/minerva/pkg/config"
	"minerva-ai/minerva/pkg/monitor"
	"minerva-ai/minerva/pkg/provider"
	"minerva-ai/minerva/pkg/store"
	"minerva-ai/minerva/pkg/telemetry/metrics"
	"minerva-ai/minerva/pkg/tokens"
	"minerva-ai/minerva/pkg/types"
)

// Request is one completion request.
type Request struct {
	// UserID identifies the conversation owner.
	UserID int64

	// Prompt is the fully rendered prompt to complete.
	Prompt string

	// Kind selects the response kind (budget estimate, cache TTL).
	Kind types.Kind

	// Tier is the user's tier.
	Tier types.Tier

	// UseCache enables the cache short-circuit and the post-completion
	// cache write.
	UseCache bool

	// ForceFresh skips the cache lookup but still writes the result.
	ForceFresh bool

	// Satisfaction is an optional rating for the previous response,
	// folded into the user's tracked pattern.
	Satisfaction *float64
}

// Result is the outcome of one completion request. Callers always get
// a Result with non-empty Text; failures surface as apology text, not
// errors.
type Result struct {
	// RequestID uniquely identifies this request in logs and metadata.
	RequestID string

	// Text is the first chunk of the final response.
	Text string

	// Chunks is the full response split to the platform message limit.
	Chunks []string

	// Usage records token consumption and estimated cost. Zero for
	// cache hits and failed requests.
	Usage types.TokenUsage

	// Cached reports a cache short-circuit.
	Cached bool

	// Truncated reports that truncation was detected, even when a
	// continuation call repaired the text.
	Truncated bool

	// Latency is the end-to-end processing time.
	Latency time.Duration
}

// Orchestrator composes the completion pipeline: cache short-circuit,
// budget planning, the provider call under timeout, truncation repair,
// chunking, cache write, and usage tracking.
//
// Requests from one user are serialized to keep their conversation
// history in request order; requests from different users proceed
// concurrently.
type Orchestrator struct {
	config   *config.Config
	cache    *cache.Cache
	planner  *budget.Planner
	monitor  *monitor.Monitor
	provider provider.Provider
	counter  tokens.Counter
	store    store.Store
	metrics  *metrics.RequestMetrics
	logger   *slog.Logger

	mu      sync.Mutex
	userMus map[int64]*sync.Mutex
	history map[int64][]string
}

// Options configures an Orchestrator. Store and Metrics are optional;
// everything else is required.
type Options struct {
	Config   *config.Config
	Cache    *cache.Cache
	Planner  *budget.Planner
	Monitor  *monitor.Monitor
	Provider provider.Provider
	Counter  tokens.Counter
	Store    store.Store
	Metrics  *metrics.RequestMetrics
}

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("orchestrator: config is required")
	}
	if opts.Cache == nil {
		return nil, fmt.Errorf("orchestrator: cache is required")
	}
	if opts.Planner == nil {
		return nil, fmt.Errorf("orchestrator: planner is required")
	}
	if opts.Monitor == nil {
		return nil, fmt.Errorf("orchestrator: monitor is required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("orchestrator: provider is required")
	}
	if opts.Counter == nil {
		return nil, fmt.Errorf("orchestrator: counter is required")
	}

	return &Orchestrator{
		config:   opts.Config,
		cache:    opts.Cache,
		planner:  opts.Planner,
		monitor:  opts.Monitor,
		provider: opts.Provider,
		counter:  opts.Counter,
		store:    opts.Store,
		metrics:  opts.Metrics,
		logger:   slog.Default().With("component", "orchestrator"),
		userMus:  make(map[int64]*sync.Mutex),
		history:  make(map[int64][]string),
	}, nil
}

// Complete runs one request through the pipeline. It never returns an
// error: provider failures become the configured apology texts.
func (o *Orchestrator) Complete(ctx context.Context, req Request) Result {
	start := time.Now()
	oc := &o.config.Orchestrator

	um := o.userMutex(req.UserID)
	um.Lock()
	defer um.Unlock()

	turns := o.historySnapshot(req.UserID)
	conversation := strings.Join(turns, "\n")

	result := Result{RequestID: uuid.NewString()}

	if req.UseCache && !req.ForceFresh {
		if text, ok := o.cache.Get(req.Prompt, req.UserID, conversation, req.Kind); ok {
			o.metrics.Request("cached")
			o.logger.Debug("cache hit", "request_id", result.RequestID, "user_id", req.UserID)
			result.Text = text
			result.Chunks = []string{text}
			result.Cached = true
			result.Latency = time.Since(start)
			return result
		}
	}

	plan := o.planner.Plan(req.Prompt, conversation, req.Tier, req.Kind)

	maxTokens := o.monitor.OptimalTokenLimit(req.UserID, req.Tier, len(turns))
	if base := o.config.UserLimits(req.Tier).MaxTokens; maxTokens > base {
		maxTokens = base
	}

	text, err := o.callProvider(ctx, plan, maxTokens, oc.RequestTimeout)
	if err != nil {
		result.Text = o.apology(err)
		result.Chunks = []string{result.Text}
		result.Latency = time.Since(start)
		o.metrics.Request(outcomeLabel(err))
		o.logger.Warn("completion failed",
			"request_id", result.RequestID,
			"user_id", req.UserID,
			"error", err)
		return result
	}

	text = strings.TrimSpace(text)
	truncated := IsTruncated(text, oc.MinWordCount)
	if truncated {
		if continuation := o.continueResponse(ctx, text); continuation != "" {
			text = text + "\n\n" + continuation
			o.logger.Info("continued truncated response",
				"request_id", result.RequestID,
				"user_id", req.UserID)
		}
	}

	chunks := SplitMessage(text, oc.MaxMessageLength)
	final := chunks[0]

	responseTokens := o.counter.Count(final)
	promptTokens := plan.Usage.PromptTokens

	result.Text = final
	result.Chunks = chunks
	result.Truncated = truncated
	result.Usage = o.buildUsage(promptTokens, responseTokens, start)
	result.Latency = time.Since(start)

	if req.UseCache && !truncated {
		o.cache.Put(req.Prompt, final, req.UserID, conversation, req.Kind, map[string]string{
			"request_id": result.RequestID,
		})
	}

	o.monitor.Track(req.UserID, promptTokens, responseTokens, len(final), truncated, req.Satisfaction)
	o.appendHistory(req.UserID, req.Prompt, final)

	o.metrics.Tokens(promptTokens, responseTokens)
	o.metrics.Duration(result.Latency)
	if truncated {
		o.metrics.Request("truncated")
	} else {
		o.metrics.Request("ok")
	}

	return result
}

// callProvider dispatches the planned prompt and context as one user
// message under the given timeout.
func (o *Orchestrator) callProvider(ctx context.Context, plan budget.Plan, maxTokens int, timeout time.Duration) (string, error) {
	full := plan.Prompt
	if plan.Context != "" {
		full = plan.Prompt + "\n\n" + plan.Context
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := o.provider.Complete(callCtx, &provider.Request{
		Messages:  []provider.Message{{Role: "user", Content: full}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// continueResponse issues one continuation call seeded with the tail
// of the truncated text. Failures degrade to an empty continuation.
func (o *Orchestrator) continueResponse(ctx context.Context, truncated string) string {
	oc := &o.config.Orchestrator

	tail := truncated
	if len(tail) > oc.ContinuationTailChars {
		tail = tail[len(tail)-oc.ContinuationTailChars:]
	}
	prompt := fmt.Sprintf("Continue the response from where it left off.\nContext: %s\n\nContinuation:", tail)

	callCtx, cancel := context.WithTimeout(ctx, oc.ContinuationTimeout)
	defer cancel()

	resp, err := o.provider.Complete(callCtx, &provider.Request{
		Messages:  []provider.Message{{Role: "user", Content: prompt}},
		MaxTokens: oc.ContinuationMaxTokens,
	})
	if err != nil {
		o.logger.Error("continuation failed", "error", err)
		return ""
	}
	return strings.TrimSpace(resp.Text)
}

// apology maps a provider failure to the configured fail-soft text.
func (o *Orchestrator) apology(err error) string {
	oc := &o.config.Orchestrator

	var rateLimited *provider.RateLimitError
	if errors.As(err, &rateLimited) {
		return oc.ApologyRateLimited
	}
	var timedOut *provider.TimeoutError
	if errors.As(err, &timedOut) {
		return oc.ApologyTimedOut
	}
	return oc.ApologyGeneric
}

// outcomeLabel maps a provider failure to a metrics outcome label.
func outcomeLabel(err error) string {
	var rateLimited *provider.RateLimitError
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var timedOut *provider.TimeoutError
	if errors.As(err, &timedOut) {
		return "timed_out"
	}
	return "error"
}

func (o *Orchestrator) buildUsage(promptTokens, responseTokens int, start time.Time) types.TokenUsage {
	total := promptTokens + responseTokens
	return types.TokenUsage{
		PromptTokens:     promptTokens,
		CompletionTokens: responseTokens,
		TotalTokens:      total,
		EstimatedCost:    o.planner.EstimateCost(total, o.config.Budget.Model),
		ProcessingTime:   time.Since(start),
		Timestamp:        time.Now(),
	}
}

// userMutex returns the per-user serialization lock, creating it on
// first use.
func (o *Orchestrator) userMutex(userID int64) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()

	um, ok := o.userMus[userID]
	if !ok {
		um = &sync.Mutex{}
		o.userMus[userID] = um
	}
	return um
}

// historySnapshot copies the user's rolling history.
func (o *Orchestrator) historySnapshot(userID int64) []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	turns := o.history[userID]
	out := make([]string, len(turns))
	copy(out, turns)
	return out
}

// appendHistory appends the prompt and response to the user's rolling
// history, dropping the oldest turns past the cap (FIFO, not
// importance-based).
func (o *Orchestrator) appendHistory(userID int64, prompt, response string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	turns := append(o.history[userID], prompt, response)
	if limit := o.config.Orchestrator.MaxConversationTurns; len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	o.history[userID] = turns
}

// History returns a copy of the user's rolling conversation history.
func (o *Orchestrator) History(userID int64) []string {
	return o.historySnapshot(userID)
}

// SaveOutcome persists a finished conversation's outcome to the
// durable store. It is a no-op without a configured store.
func (o *Orchestrator) SaveOutcome(ctx context.Context, userID int64, name string, kind types.Kind, content string, tier types.Tier) (string, error) {
	if o.store == nil {
		return "", nil
	}
	id, err := o.store.SaveAnalysis(ctx, store.Analysis{
		UserID:        userID,
		Name:          name,
		Kind:          kind,
		Content:       content,
		PaymentStatus: tier.String(),
	})
	if err != nil {
		return "", fmt.Errorf("saving outcome: %w", err)
	}
	return id, nil
}

// ClearUser drops a user's cached responses, tracked pattern, and
// conversation history. The per-user mutex stays in place: an in-flight
// request for the same user keeps excluding later ones.
func (o *Orchestrator) ClearUser(userID int64) {
	o.cache.InvalidateUser(userID)
	o.monitor.ResetUser(userID)

	o.mu.Lock()
	delete(o.history, userID)
	o.mu.Unlock()

	o.logger.Info("user data cleared", "user_id", userID)
}

// OptimizationStatus summarizes a user's tracked pattern, pending
// suggestions, and cache statistics.
type OptimizationStatus struct {
	Insights    monitor.UserInsights
	CacheStats  cache.Stats
	Suggestions []monitor.Suggestion
}

// UserOptimizationStatus reports the optimization state for one user.
func (o *Orchestrator) UserOptimizationStatus(userID int64) OptimizationStatus {
	return OptimizationStatus{
		Insights:    o.monitor.Insights(userID),
		CacheStats:  o.cache.Stats(),
		Suggestions: o.monitor.Suggestions(userID),
	}
}

// OptimizeUser runs an optimization pass. A user with a severe
// truncation rate also gets their cached responses invalidated so
// fresh completions pick up the adjusted limits.
func (o *Orchestrator) OptimizeUser(userID int64) monitor.OptimizeResult {
	result := o.monitor.AutoOptimize(userID)

	if o.monitor.Patterns(userID).TruncationRate > 0.5 {
		removed := o.cache.InvalidateUser(userID)
		o.logger.Info("invalidated cache after optimization",
			"user_id", userID, "removed", removed)
	}
	return result
}

// SystemHealth aggregates component health views.
type SystemHealth struct {
	Monitor monitor.Health
	Cache   cache.Stats
}

// Health reports system-wide usage and cache statistics.
func (o *Orchestrator) Health() SystemHealth {
	return SystemHealth{
		Monitor: o.monitor.SystemHealth(),
		Cache:   o.cache.Stats(),
	}
}

// Analytics is a full analytics export.
type Analytics struct {
	Monitor monitor.Export
	Cache   cache.Stats
	Popular []cache.Entry
}

// ExportAnalytics snapshots monitor and cache state for offline
// analysis.
func (o *Orchestrator) ExportAnalytics() Analytics {
	return Analytics{
		Monitor: o.monitor.ExportStats(),
		Cache:   o.cache.Stats(),
		Popular: o.cache.Popular(10),
	}
}
