package monitor

import (
	"log/slog"
	"sync"
	"time"

	"minerva-ai/minerva/pkg/config"
	"minerva-ai/minerva/pkg/telemetry/metrics"
	"minerva-ai/minerva/pkg/tokens"
	"minerva-ai/minerva/pkg/types"
)

// PromptLength is a user's preferred system prompt length.
type PromptLength string

const (
	LengthShort  PromptLength = "short"
	LengthMedium PromptLength = "medium"
	LengthLong   PromptLength = "long"
)

// Style is a user's preferred response style.
type Style string

const (
	StyleBalanced Style = "balanced"
	StyleDetailed Style = "detailed"
	StyleConcise  Style = "concise"
)

// Stats accumulates system-wide usage counters.
type Stats struct {
	TotalTokens         int64
	TotalRequests       int64
	TruncatedResponses  int64
	AvgTokensPerRequest float64
	LastUpdated         time.Time
}

// UserPatterns tracks one user's observed usage pattern. The averages
// are exponential moving averages so recent behavior dominates.
type UserPatterns struct {
	UserID                int64
	PreferredPromptLength PromptLength
	PreferredStyle        Style
	AvgResponseLength     float64
	TruncationRate        float64
	SatisfactionScore     float64
	LastOptimization      time.Time
}

// Monitor tracks per-user usage patterns and adapts token limits,
// prompt lengths, and response styles from them. All methods are safe
// for concurrent use.
type Monitor struct {
	config  *config.Config
	counter tokens.Counter
	metrics *metrics.RequestMetrics
	logger  *slog.Logger

	mu      sync.Mutex
	stats   Stats
	users   map[int64]*UserPatterns
	history []OptimizationRecord

	now func() time.Time
}

// historyCap bounds the optimization history ring.
const historyCap = 1000

// NewMonitor creates a Monitor. The metrics group may be nil.
func NewMonitor(cfg *config.Config, counter tokens.Counter, rm *metrics.RequestMetrics) *Monitor {
	return &Monitor{
		config:  cfg,
		counter: counter,
		metrics: rm,
		logger:  slog.Default().With("component", "monitor"),
		users:   make(map[int64]*UserPatterns),
		now:     time.Now,
	}
}

// Track records one completed request. Satisfaction is optional; pass
// nil when the user gave no rating. Tracking may trigger an automatic
// optimization pass for the user when the cooldown has elapsed and the
// pattern warrants it.
func (m *Monitor) Track(userID int64, promptTokens, responseTokens, responseLength int, truncated bool, satisfaction *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mc := &m.config.Monitor

	m.stats.TotalTokens += int64(promptTokens + responseTokens)
	m.stats.TotalRequests++
	m.stats.AvgTokensPerRequest = float64(m.stats.TotalTokens) / float64(m.stats.TotalRequests)
	m.stats.LastUpdated = m.now()
	if truncated {
		m.stats.TruncatedResponses++
	}

	up := m.patternsLocked(userID)

	if up.AvgResponseLength == 0 {
		up.AvgResponseLength = float64(responseLength)
	} else {
		up.AvgResponseLength = up.AvgResponseLength*(1-mc.LengthDecay) + float64(responseLength)*mc.LengthDecay
	}

	if truncated {
		up.TruncationRate = clamp01(up.TruncationRate + mc.TruncationStepUp)
	} else {
		up.TruncationRate = clamp01(up.TruncationRate - mc.TruncationStepDown)
	}

	if satisfaction != nil {
		s := clampSatisfaction(*satisfaction)
		if up.SatisfactionScore == 0 {
			up.SatisfactionScore = s
		} else {
			up.SatisfactionScore = up.SatisfactionScore*(1-mc.SatisfactionDecay) + s*mc.SatisfactionDecay
		}
	}

	m.metrics.SetActiveUsers(len(m.users))

	m.maybeOptimizeLocked(userID, up)

	m.logger.Debug("tracked request",
		"user_id", userID,
		"tokens", promptTokens+responseTokens,
		"truncated", truncated)
}

// OptimalTokenLimit returns the adapted token limit for a user given
// the current conversation length in turns.
func (m *Monitor) OptimalTokenLimit(userID int64, tier types.Tier, contextTurns int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	mc := &m.config.Monitor
	up := m.snapshotLocked(userID)
	base := m.config.UserLimits(tier).MaxTokens

	limit := base
	switch {
	case up.TruncationRate > mc.LimitTruncationRate:
		limit = int(float64(base) * mc.TruncationLimitScale)
	case up.AvgResponseLength > mc.LongResponseChars:
		limit = int(float64(base) * mc.LongResponseLimitScale)
	}

	if contextTurns > mc.LongContextTurns {
		limit = maxInt(limit-mc.LongContextPenalty, mc.LimitFloor)
	} else if contextTurns < mc.ShortContextTurns {
		limit = minInt(limit+mc.ShortContextBonus, base+mc.LimitCeilingBonus)
	}

	return limit
}

// PredictOverflow estimates whether the conversation history plus a
// new message would exceed the context budget for the tier. It returns
// the overflow decision and the utilization as a percentage of the
// available budget.
func (m *Monitor) PredictOverflow(history []string, newMessage string, tier types.Tier) (bool, int) {
	available := m.config.UserLimits(tier).MaxTokens - m.config.Budget.ResponseReserve

	estimated := m.counter.CountAll(history) + m.counter.Count(newMessage)

	if available <= 0 {
		return true, 100
	}
	return estimated > available, estimated * 100 / available
}

// UserInsights is a point-in-time view of one user's pattern and
// optimization status.
type UserInsights struct {
	UserID            int64
	Patterns          UserPatterns
	NeedsOptimization bool
	LastOptimization  time.Time
	Suggestions       []Suggestion
}

// Insights returns the current pattern snapshot and pending
// suggestions for a user.
func (m *Monitor) Insights(userID int64) UserInsights {
	m.mu.Lock()
	defer m.mu.Unlock()

	up := m.snapshotLocked(userID)
	return UserInsights{
		UserID:            userID,
		Patterns:          up,
		NeedsOptimization: m.needsOptimization(&up),
		LastOptimization:  up.LastOptimization,
		Suggestions:       m.suggestionsLocked(userID),
	}
}

// Health is a system-wide usage summary with raised alerts.
type Health struct {
	TotalRequests       int64
	TotalTokens         int64
	AvgTokensPerRequest float64
	TruncationRate      float64
	ActiveUsers         int
	Alerts              []string
}

// SystemHealth summarizes aggregate usage and raises alerts for
// abnormal truncation or consumption rates.
func (m *Monitor) SystemHealth() Health {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := Health{
		TotalRequests:       m.stats.TotalRequests,
		TotalTokens:         m.stats.TotalTokens,
		AvgTokensPerRequest: m.stats.AvgTokensPerRequest,
		ActiveUsers:         len(m.users),
	}
	if m.stats.TotalRequests > 0 {
		h.TruncationRate = float64(m.stats.TruncatedResponses) / float64(m.stats.TotalRequests)
	}
	h.Alerts = m.alertsLocked(h)
	return h
}

func (m *Monitor) alertsLocked(h Health) []string {
	var alerts []string
	if h.TotalRequests == 0 {
		return alerts
	}

	mc := &m.config.Monitor
	if h.TruncationRate > mc.SystemTruncationAlert {
		alerts = append(alerts, "high truncation rate")
	}

	free := m.config.UserLimits(types.TierFree).MaxTokens
	if h.AvgTokensPerRequest > float64(free)*0.8 {
		alerts = append(alerts, "high average token consumption")
	}
	return alerts
}

// ResetUser discards a user's tracked pattern.
func (m *Monitor) ResetUser(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; ok {
		delete(m.users, userID)
		m.metrics.SetActiveUsers(len(m.users))
		m.logger.Info("user stats reset", "user_id", userID)
	}
}

// Export is a full snapshot of the monitor state for offline analysis.
type Export struct {
	Stats   Stats
	Users   map[int64]UserPatterns
	History []OptimizationRecord
}

// ExportStats snapshots the monitor state. The returned maps and
// slices are copies.
func (m *Monitor) ExportStats() Export {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make(map[int64]UserPatterns, len(m.users))
	for id, up := range m.users {
		users[id] = *up
	}
	history := make([]OptimizationRecord, len(m.history))
	copy(history, m.history)

	return Export{Stats: m.stats, Users: users, History: history}
}

// Patterns returns a copy of the user's tracked pattern, or zero-value
// defaults for an unknown user.
func (m *Monitor) Patterns(userID int64) UserPatterns {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(userID)
}

// patternsLocked returns the live pattern record, creating it on first
// touch.
func (m *Monitor) patternsLocked(userID int64) *UserPatterns {
	up, ok := m.users[userID]
	if !ok {
		up = &UserPatterns{
			UserID:                userID,
			PreferredPromptLength: LengthMedium,
			PreferredStyle:        StyleBalanced,
			LastOptimization:      m.now(),
		}
		m.users[userID] = up
	}
	return up
}

// snapshotLocked returns a copy without creating a record.
func (m *Monitor) snapshotLocked(userID int64) UserPatterns {
	if up, ok := m.users[userID]; ok {
		return *up
	}
	return UserPatterns{
		UserID:                userID,
		PreferredPromptLength: LengthMedium,
		PreferredStyle:        StyleBalanced,
	}
}

// satisfactionMax is the top of the 0..5 rating scale.
const satisfactionMax = 5

func clampSatisfaction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > satisfactionMax {
		return satisfactionMax
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
