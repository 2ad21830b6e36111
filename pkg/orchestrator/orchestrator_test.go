package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"minerva-ai/minerva/pkg/budget"
	"minerva-ai/minerva/pkg/cache"
	"minerva-ai/minerva/pkg/compress"
	"minerva-ai/minerva/pkg/config"
	"minerva-ai/minerva/pkg/monitor"
	"minerva-ai/minerva/pkg/provider"
	"minerva-ai/minerva/pkg/tokens"
	"minerva-ai/minerva/pkg/types"
)

// fakeProvider replays scripted responses and errors, cycling through
// the script once it is exhausted.
type fakeProvider struct {
	script   []fakeReply
	requests []*provider.Request
}

type fakeReply struct {
	text string
	err  error
}

func (f *fakeProvider) Complete(_ context.Context, req *provider.Request) (*provider.Response, error) {
	f.requests = append(f.requests, req)

	reply := f.script[(len(f.requests)-1)%len(f.script)]
	if reply.err != nil {
		return nil, reply.err
	}
	return &provider.Response{Text: reply.text, FinishReason: "stop"}, nil
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Close() error { return nil }

const completeReply = "Here is a thoughtful and complete answer with plenty of words in it."

func newTestOrchestrator(t *testing.T, p *fakeProvider) (*Orchestrator, *config.Config) {
	t.Helper()

	cfg := config.DefaultConfig()
	counter := tokens.NewHeuristicCounter(&cfg.Tokens, "gpt-4")
	compressor := compress.NewCompressor(&cfg.Compression, counter)

	o, err := New(Options{
		Config:   cfg,
		Cache:    cache.New(cfg, nil),
		Planner:  budget.NewPlanner(cfg, counter, compressor),
		Monitor:  monitor.NewMonitor(cfg, counter, nil),
		Provider: p,
		Counter:  counter,
	})
	if err != nil {
		t.Fatalf("New(): %v", err)
	}
	return o, cfg
}

func TestNewRequiresDependencies(t *testing.T) {
	cfg := config.DefaultConfig()
	counter := tokens.NewHeuristicCounter(&cfg.Tokens, "gpt-4")
	compressor := compress.NewCompressor(&cfg.Compression, counter)

	full := Options{
		Config:   cfg,
		Cache:    cache.New(cfg, nil),
		Planner:  budget.NewPlanner(cfg, counter, compressor),
		Monitor:  monitor.NewMonitor(cfg, counter, nil),
		Provider: &fakeProvider{},
		Counter:  counter,
	}

	tests := []struct {
		name  string
		strip func(*Options)
	}{
		{name: "config", strip: func(o *Options) { o.Config = nil }},
		{name: "cache", strip: func(o *Options) { o.Cache = nil }},
		{name: "planner", strip: func(o *Options) { o.Planner = nil }},
		{name: "monitor", strip: func(o *Options) { o.Monitor = nil }},
		{name: "provider", strip: func(o *Options) { o.Provider = nil }},
		{name: "counter", strip: func(o *Options) { o.Counter = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := full
			tt.strip(&opts)
			if _, err := New(opts); err == nil {
				t.Error("expected an error for a missing dependency")
			}
		})
	}

	if _, err := New(full); err != nil {
		t.Errorf("New() with store and metrics unset: %v", err)
	}
}

func TestCompleteSuccess(t *testing.T) {
	p := &fakeProvider{script: []fakeReply{{text: completeReply}}}
	o, _ := newTestOrchestrator(t, p)

	result := o.Complete(context.Background(), Request{
		UserID: 1,
		Prompt: "tell me about my strengths",
		Kind:   types.KindConsultation,
		Tier:   types.TierFree,
	})

	if result.RequestID == "" {
		t.Error("expected a request id")
	}
	if result.Text != completeReply {
		t.Errorf("Text = %q, want the provider reply", result.Text)
	}
	if result.Cached || result.Truncated {
		t.Errorf("Cached = %v, Truncated = %v, want false, false", result.Cached, result.Truncated)
	}
	if result.Usage.PromptTokens <= 0 || result.Usage.CompletionTokens <= 0 {
		t.Errorf("Usage = %+v, want positive token counts", result.Usage)
	}

	history := o.History(1)
	if len(history) != 2 {
		t.Fatalf("History() has %d turns, want 2", len(history))
	}
	if history[0] != "tell me about my strengths" || history[1] != completeReply {
		t.Errorf("History() = %v", history)
	}
}

func TestCompleteCacheHit(t *testing.T) {
	p := &fakeProvider{script: []fakeReply{{text: completeReply}}}
	o, _ := newTestOrchestrator(t, p)

	o.cache.Put("analyze me", "result A", 7, "", types.KindExpressAnalysis, nil)

	result := o.Complete(context.Background(), Request{
		UserID:   7,
		Prompt:   "analyze me",
		Kind:     types.KindExpressAnalysis,
		Tier:     types.TierFree,
		UseCache: true,
	})

	if !result.Cached {
		t.Fatal("expected a cache hit")
	}
	if result.Text != "result A" {
		t.Errorf("Text = %q, want %q", result.Text, "result A")
	}
	if result.Usage.TotalTokens != 0 {
		t.Errorf("Usage.TotalTokens = %d, want 0 for a cache hit", result.Usage.TotalTokens)
	}
	if len(p.requests) != 0 {
		t.Errorf("provider saw %d calls, want 0", len(p.requests))
	}
	if len(o.History(7)) != 0 {
		t.Error("a cache hit must not grow the history")
	}
}

func TestCompleteForceFreshSkipsLookup(t *testing.T) {
	p := &fakeProvider{script: []fakeReply{{text: completeReply}}}
	o, _ := newTestOrchestrator(t, p)

	o.cache.Put("analyze me", "stale result", 7, "", types.KindExpressAnalysis, nil)

	result := o.Complete(context.Background(), Request{
		UserID:     7,
		Prompt:     "analyze me",
		Kind:       types.KindExpressAnalysis,
		Tier:       types.TierFree,
		UseCache:   true,
		ForceFresh: true,
	})

	if result.Cached {
		t.Error("ForceFresh must skip the cache lookup")
	}
	if result.Text != completeReply {
		t.Errorf("Text = %q, want a fresh completion", result.Text)
	}
	if len(p.requests) != 1 {
		t.Errorf("provider saw %d calls, want 1", len(p.requests))
	}
}

func TestCompleteApologies(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want func(*config.OrchestratorConfig) string
	}{
		{
			name: "rate limited",
			err:  &provider.RateLimitError{Provider: "fake"},
			want: func(oc *config.OrchestratorConfig) string { return oc.ApologyRateLimited },
		},
		{
			name: "timed out",
			err:  &provider.TimeoutError{Provider: "fake"},
			want: func(oc *config.OrchestratorConfig) string { return oc.ApologyTimedOut },
		},
		{
			name: "generic",
			err:  errors.New("boom"),
			want: func(oc *config.OrchestratorConfig) string { return oc.ApologyGeneric },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{script: []fakeReply{{err: tt.err}}}
			o, cfg := newTestOrchestrator(t, p)

			result := o.Complete(context.Background(), Request{
				UserID: 1,
				Prompt: "hello there friend",
				Kind:   types.KindGeneral,
				Tier:   types.TierFree,
			})

			if want := tt.want(&cfg.Orchestrator); result.Text != want {
				t.Errorf("Text = %q, want apology %q", result.Text, want)
			}
			if result.Usage.TotalTokens != 0 {
				t.Errorf("Usage.TotalTokens = %d, want 0 on failure", result.Usage.TotalTokens)
			}
			if len(o.History(1)) != 0 {
				t.Error("a failed request must not grow the history")
			}
		})
	}
}

func TestCompleteContinuesTruncatedResponse(t *testing.T) {
	truncatedReply := "The first part of the answer stops right in the middle and"
	continuation := "then the continuation finishes the thought with a clean ending mark."

	p := &fakeProvider{script: []fakeReply{
		{text: truncatedReply},
		{text: continuation},
	}}
	o, cfg := newTestOrchestrator(t, p)

	result := o.Complete(context.Background(), Request{
		UserID:   1,
		Prompt:   "tell me everything about my personality",
		Kind:     types.KindFullAnalysis,
		Tier:     types.TierFree,
		UseCache: true,
	})

	if !result.Truncated {
		t.Fatal("expected the truncation flag to stay set")
	}
	want := truncatedReply + "\n\n" + continuation
	if result.Text != want {
		t.Errorf("Text = %q, want joined continuation", result.Text)
	}

	if len(p.requests) != 2 {
		t.Fatalf("provider saw %d calls, want 2", len(p.requests))
	}
	followUp := p.requests[1]
	if followUp.MaxTokens != cfg.Orchestrator.ContinuationMaxTokens {
		t.Errorf("continuation MaxTokens = %d, want %d", followUp.MaxTokens, cfg.Orchestrator.ContinuationMaxTokens)
	}
	if !strings.Contains(followUp.Messages[0].Content, "Continue the response") {
		t.Errorf("continuation prompt = %q", followUp.Messages[0].Content)
	}

	if o.cache.Len() != 0 {
		t.Error("truncated responses must not be cached")
	}
}

func TestCompleteContinuationFailureDegrades(t *testing.T) {
	truncatedReply := "The first part of the answer stops right in the middle and"

	p := &fakeProvider{script: []fakeReply{
		{text: truncatedReply},
		{err: errors.New("continuation unavailable")},
	}}
	o, _ := newTestOrchestrator(t, p)

	result := o.Complete(context.Background(), Request{
		UserID: 1,
		Prompt: "tell me more",
		Kind:   types.KindGeneral,
		Tier:   types.TierFree,
	})

	if !result.Truncated {
		t.Error("expected the truncation flag")
	}
	if result.Text != truncatedReply {
		t.Errorf("Text = %q, want the original truncated text", result.Text)
	}
}

func TestCompleteHistoryCapped(t *testing.T) {
	p := &fakeProvider{script: []fakeReply{{text: completeReply}}}
	o, cfg := newTestOrchestrator(t, p)
	cfg.Orchestrator.MaxConversationTurns = 4

	for i := 0; i < 4; i++ {
		o.Complete(context.Background(), Request{
			UserID: 1,
			Prompt: "prompt number " + strings.Repeat("x", i+1),
			Kind:   types.KindGeneral,
			Tier:   types.TierFree,
		})
	}

	history := o.History(1)
	if len(history) != 4 {
		t.Fatalf("History() has %d turns, want cap of 4", len(history))
	}
	if history[0] != "prompt number xxx" {
		t.Errorf("History()[0] = %q, want the oldest surviving prompt", history[0])
	}
}

func TestClearUser(t *testing.T) {
	p := &fakeProvider{script: []fakeReply{{text: completeReply}}}
	o, _ := newTestOrchestrator(t, p)

	o.Complete(context.Background(), Request{
		UserID:   1,
		Prompt:   "remember this",
		Kind:     types.KindGeneral,
		Tier:     types.TierFree,
		UseCache: true,
	})

	if o.cache.Len() == 0 {
		t.Fatal("expected a cached entry before the clear")
	}

	o.ClearUser(1)

	if len(o.History(1)) != 0 {
		t.Error("expected empty history after ClearUser")
	}
	if o.cache.Len() != 0 {
		t.Error("expected an empty cache after ClearUser")
	}
	if got := o.monitor.Patterns(1).TruncationRate; got != 0 {
		t.Errorf("TruncationRate = %v, want reset", got)
	}
}

func TestClearUserKeepsRequestOrdering(t *testing.T) {
	p := &fakeProvider{script: []fakeReply{{text: completeReply}}}
	o, _ := newTestOrchestrator(t, p)

	// Clearing while a request holds the user's mutex must neither block
	// nor replace the mutex, or the next request could run concurrently
	// with the in-flight one.
	um := o.userMutex(1)
	um.Lock()
	o.ClearUser(1)
	um.Unlock()

	if o.userMutex(1) != um {
		t.Error("ClearUser replaced the per-user mutex")
	}
}

func TestOptimizeUserInvalidatesCacheOnSevereTruncation(t *testing.T) {
	truncatedReply := "stops here and"

	p := &fakeProvider{script: []fakeReply{
		{text: truncatedReply},
		{err: errors.New("no continuation")},
	}}
	o, _ := newTestOrchestrator(t, p)

	// Six truncated completions push the rate past 0.5.
	for i := 0; i < 6; i++ {
		o.Complete(context.Background(), Request{
			UserID: 1,
			Prompt: "prompt",
			Kind:   types.KindGeneral,
			Tier:   types.TierFree,
		})
	}
	o.cache.Put("p", "r", 1, "", types.KindGeneral, nil)

	result := o.OptimizeUser(1)
	if len(result.Applied) == 0 {
		t.Error("expected at least one applied optimization")
	}
	if o.cache.Len() != 0 {
		t.Error("expected the user's cache entries to be invalidated")
	}
}

func TestHealthAndAnalytics(t *testing.T) {
	p := &fakeProvider{script: []fakeReply{{text: completeReply}}}
	o, _ := newTestOrchestrator(t, p)

	o.Complete(context.Background(), Request{
		UserID:   1,
		Prompt:   "hello",
		Kind:     types.KindGeneral,
		Tier:     types.TierFree,
		UseCache: true,
	})

	health := o.Health()
	if health.Monitor.TotalRequests != 1 {
		t.Errorf("Monitor.TotalRequests = %d, want 1", health.Monitor.TotalRequests)
	}

	analytics := o.ExportAnalytics()
	if len(analytics.Popular) != 1 {
		t.Errorf("Popular has %d entries, want 1", len(analytics.Popular))
	}
	if analytics.Monitor.Stats.TotalRequests != 1 {
		t.Errorf("Monitor.Stats.TotalRequests = %d, want 1", analytics.Monitor.Stats.TotalRequests)
	}
}
