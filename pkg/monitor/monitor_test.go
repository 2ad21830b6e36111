package monitor

import (
	"math"
	"strings"
	"testing"
	"time"

	"minerva-ai/minerva/pkg/config"
	"minerva-ai/minerva/pkg/tokens"
	"minerva-ai/minerva/pkg/types"
)

func newTestMonitor(t *testing.T) *Monitor {
	t.Helper()
	cfg := config.DefaultConfig()
	counter := tokens.NewHeuristicCounter(&cfg.Tokens, "gpt-4")
	return NewMonitor(cfg, counter, nil)
}

func floatPtr(v float64) *float64 { return &v }

func TestTrackResponseLengthEMA(t *testing.T) {
	m := newTestMonitor(t)

	m.Track(1, 100, 200, 1000, false, nil)
	if got := m.Patterns(1).AvgResponseLength; got != 1000 {
		t.Errorf("AvgResponseLength after first sample = %v, want 1000", got)
	}

	// 1000*0.8 + 500*0.2 with the default decay of 0.2.
	m.Track(1, 100, 200, 500, false, nil)
	if got := m.Patterns(1).AvgResponseLength; math.Abs(got-900) > 1e-9 {
		t.Errorf("AvgResponseLength after second sample = %v, want 900", got)
	}
}

func TestTrackTruncationRateClamped(t *testing.T) {
	m := newTestMonitor(t)

	for i := 0; i < 20; i++ {
		m.Track(1, 100, 200, 0, true, nil)
	}
	if got := m.Patterns(1).TruncationRate; got > 1 {
		t.Errorf("TruncationRate = %v, want <= 1", got)
	}

	for i := 0; i < 40; i++ {
		m.Track(1, 100, 200, 0, false, nil)
	}
	if got := m.Patterns(1).TruncationRate; got < 0 {
		t.Errorf("TruncationRate = %v, want >= 0", got)
	}
}

func TestTrackSatisfactionEMA(t *testing.T) {
	m := newTestMonitor(t)

	m.Track(1, 100, 200, 500, false, floatPtr(4))
	if got := m.Patterns(1).SatisfactionScore; got != 4 {
		t.Errorf("SatisfactionScore after first rating = %v, want 4", got)
	}

	// 4*0.7 + 2*0.3 with the default decay of 0.3.
	m.Track(1, 100, 200, 500, false, floatPtr(2))
	if got := m.Patterns(1).SatisfactionScore; math.Abs(got-3.4) > 1e-9 {
		t.Errorf("SatisfactionScore after second rating = %v, want 3.4", got)
	}
}

func TestTrackClampsSatisfaction(t *testing.T) {
	m := newTestMonitor(t)

	m.Track(1, 100, 200, 500, false, floatPtr(10))
	if got := m.Patterns(1).SatisfactionScore; got != 5 {
		t.Errorf("SatisfactionScore after out-of-range rating = %v, want 5", got)
	}

	// 5*0.7 + 0*0.3: the negative rating is clamped to zero before the
	// average is updated.
	m.Track(1, 100, 200, 500, false, floatPtr(-4))
	if got := m.Patterns(1).SatisfactionScore; math.Abs(got-3.5) > 1e-9 {
		t.Errorf("SatisfactionScore after negative rating = %v, want 3.5", got)
	}
}

func TestOptimalTokenLimit(t *testing.T) {
	t.Run("unknown user gets the tier base", func(t *testing.T) {
		m := newTestMonitor(t)
		if got := m.OptimalTokenLimit(99, types.TierFree, 10); got != 4000 {
			t.Errorf("OptimalTokenLimit() = %d, want 4000", got)
		}
	})

	t.Run("short conversations get a bonus", func(t *testing.T) {
		m := newTestMonitor(t)
		if got := m.OptimalTokenLimit(99, types.TierFree, 2); got != 4300 {
			t.Errorf("OptimalTokenLimit() = %d, want 4300", got)
		}
	})

	t.Run("long conversations pay a penalty", func(t *testing.T) {
		m := newTestMonitor(t)
		if got := m.OptimalTokenLimit(99, types.TierFree, 20); got != 3500 {
			t.Errorf("OptimalTokenLimit() = %d, want 3500", got)
		}
	})

	t.Run("high truncation rate scales the limit down", func(t *testing.T) {
		m := newTestMonitor(t)
		for i := 0; i < 4; i++ {
			m.Track(1, 100, 200, 0, true, nil)
		}
		if got := m.OptimalTokenLimit(1, types.TierFree, 10); got != 2800 {
			t.Errorf("OptimalTokenLimit() = %d, want 2800", got)
		}
	})

	t.Run("long responses scale the limit up within the ceiling", func(t *testing.T) {
		m := newTestMonitor(t)
		m.Track(1, 100, 200, 1000, false, nil)
		if got := m.OptimalTokenLimit(1, types.TierFree, 10); got != 4800 {
			t.Errorf("OptimalTokenLimit() = %d, want 4800", got)
		}
		if got := m.OptimalTokenLimit(1, types.TierFree, 2); got != 4500 {
			t.Errorf("OptimalTokenLimit() with bonus = %d, want ceiling 4500", got)
		}
	})
}

func TestPredictOverflow(t *testing.T) {
	m := newTestMonitor(t)

	turn := strings.Repeat("abcd", 1000) // 1000 tokens

	t.Run("within budget", func(t *testing.T) {
		overflow, util := m.PredictOverflow([]string{turn}, turn, types.TierFree)
		if overflow {
			t.Error("expected no overflow at 2000 of 3000 tokens")
		}
		if util != 66 {
			t.Errorf("utilization = %d, want 66", util)
		}
	})

	t.Run("over budget", func(t *testing.T) {
		overflow, util := m.PredictOverflow([]string{turn, turn, turn}, turn, types.TierFree)
		if !overflow {
			t.Error("expected overflow at 4000 of 3000 tokens")
		}
		if util != 133 {
			t.Errorf("utilization = %d, want 133", util)
		}
	})
}

func TestSuggestions(t *testing.T) {
	m := newTestMonitor(t)

	// 4 truncated requests push the user's rate to 0.4 and the system
	// rate to 1.0; a low rating adds a style suggestion.
	for i := 0; i < 3; i++ {
		m.Track(1, 100, 200, 150, true, nil)
	}
	m.Track(1, 100, 200, 150, true, floatPtr(2))

	got := map[SuggestionType]Suggestion{}
	for _, s := range m.Suggestions(1) {
		got[s.Type] = s
	}

	if s, ok := got[SuggestPromptLength]; !ok || !s.AutoApply || s.Priority != 4 {
		t.Errorf("prompt length suggestion = %+v, want auto-apply priority 4", s)
	}
	if s, ok := got[SuggestResponseExpansion]; !ok || s.AutoApply || s.Priority != 3 {
		t.Errorf("response expansion suggestion = %+v, want manual priority 3", s)
	}
	if s, ok := got[SuggestStyleAdaptation]; !ok || !s.AutoApply || s.Priority != 5 {
		t.Errorf("style adaptation suggestion = %+v, want auto-apply priority 5", s)
	}
	if s, ok := got[SuggestGlobalOptimization]; !ok || s.Priority != 3 {
		t.Errorf("global optimization suggestion = %+v, want priority 3", s)
	}
}

func TestAutoOptimizeStepsPromptLengthDown(t *testing.T) {
	m := newTestMonitor(t)

	for i := 0; i < 4; i++ {
		m.Track(1, 100, 200, 500, true, nil)
	}

	result := m.AutoOptimize(1)

	var stepped bool
	for _, a := range result.Applied {
		if a.Type == SuggestPromptLength {
			stepped = true
		}
	}
	if !stepped {
		t.Fatalf("Applied = %+v, want a prompt length adjustment", result.Applied)
	}
	if got := m.Patterns(1).PreferredPromptLength; got != LengthShort {
		t.Errorf("PreferredPromptLength = %q, want %q (stepped down from medium)", got, LengthShort)
	}

	// A second pass cannot step below short.
	m.AutoOptimize(1)
	if got := m.Patterns(1).PreferredPromptLength; got != LengthShort {
		t.Errorf("PreferredPromptLength = %q, want %q", got, LengthShort)
	}
}

func TestAutoOptimizeAdaptsStyle(t *testing.T) {
	m := newTestMonitor(t)

	m.Track(1, 100, 200, 500, false, floatPtr(2))
	m.AutoOptimize(1)

	if got := m.Patterns(1).PreferredStyle; got != StyleDetailed {
		t.Errorf("PreferredStyle = %q, want %q for a dissatisfied user", got, StyleDetailed)
	}
}

func TestTrackTriggersOptimizationAfterCooldown(t *testing.T) {
	m := newTestMonitor(t)

	clock := time.Now()
	m.now = func() time.Time { return clock }

	for i := 0; i < 4; i++ {
		m.Track(1, 100, 200, 500, true, nil)
	}
	if got := m.Patterns(1).PreferredPromptLength; got != LengthMedium {
		t.Fatalf("PreferredPromptLength = %q, optimization ran inside the cooldown", got)
	}

	clock = clock.Add(31 * time.Minute)
	m.Track(1, 100, 200, 500, true, nil)

	if got := m.Patterns(1).PreferredPromptLength; got != LengthShort {
		t.Errorf("PreferredPromptLength = %q, want %q after the cooldown elapsed", got, LengthShort)
	}
	if got := m.Patterns(1).LastOptimization; !got.Equal(clock) {
		t.Errorf("LastOptimization = %v, want %v", got, clock)
	}
}

func TestSystemHealth(t *testing.T) {
	m := newTestMonitor(t)

	t.Run("no alerts on an idle system", func(t *testing.T) {
		h := m.SystemHealth()
		if len(h.Alerts) != 0 {
			t.Errorf("Alerts = %v, want none", h.Alerts)
		}
	})

	t.Run("high truncation raises an alert", func(t *testing.T) {
		m.Track(1, 100, 100, 500, true, nil)
		m.Track(2, 100, 100, 500, true, nil)
		m.Track(3, 100, 100, 500, false, nil)

		h := m.SystemHealth()
		if h.TotalRequests != 3 {
			t.Errorf("TotalRequests = %d, want 3", h.TotalRequests)
		}
		if h.ActiveUsers != 3 {
			t.Errorf("ActiveUsers = %d, want 3", h.ActiveUsers)
		}
		if math.Abs(h.TruncationRate-2.0/3.0) > 1e-9 {
			t.Errorf("TruncationRate = %v, want 2/3", h.TruncationRate)
		}

		found := false
		for _, a := range h.Alerts {
			if a == "high truncation rate" {
				found = true
			}
		}
		if !found {
			t.Errorf("Alerts = %v, want a truncation alert", h.Alerts)
		}
	})
}

func TestResetUser(t *testing.T) {
	m := newTestMonitor(t)

	m.Track(1, 100, 200, 500, true, nil)
	m.ResetUser(1)

	up := m.Patterns(1)
	if up.TruncationRate != 0 || up.AvgResponseLength != 0 {
		t.Errorf("Patterns after reset = %+v, want zeroed", up)
	}
	if up.PreferredPromptLength != LengthMedium {
		t.Errorf("PreferredPromptLength = %q, want default %q", up.PreferredPromptLength, LengthMedium)
	}
}

func TestExportStats(t *testing.T) {
	m := newTestMonitor(t)

	m.Track(1, 100, 200, 500, false, nil)
	m.Track(2, 50, 100, 300, true, nil)
	m.AutoOptimize(1)

	export := m.ExportStats()
	if export.Stats.TotalRequests != 2 {
		t.Errorf("TotalRequests = %d, want 2", export.Stats.TotalRequests)
	}
	if export.Stats.TotalTokens != 450 {
		t.Errorf("TotalTokens = %d, want 450", export.Stats.TotalTokens)
	}
	if len(export.Users) != 2 {
		t.Errorf("Users = %d entries, want 2", len(export.Users))
	}
	if len(export.History) != 1 {
		t.Errorf("History = %d records, want 1", len(export.History))
	}

	// The export is a copy; mutating it must not touch monitor state.
	export.Users[1] = UserPatterns{UserID: 1, TruncationRate: 0.9}
	if got := m.Patterns(1).TruncationRate; got == 0.9 {
		t.Error("export shares state with the monitor")
	}
}
