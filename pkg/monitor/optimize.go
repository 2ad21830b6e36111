package monitor

import (
	"fmt"
	"time"
)

// SuggestionType classifies an optimization suggestion.
type SuggestionType string

const (
	SuggestPromptLength       SuggestionType = "prompt_length"
	SuggestResponseExpansion  SuggestionType = "response_expansion"
	SuggestStyleAdaptation    SuggestionType = "style_adaptation"
	SuggestGlobalOptimization SuggestionType = "global_optimization"
)

// Suggestion is one proposed adjustment for a user. Priority runs 1
// (low) to 5 (high). AutoApply suggestions are applied by
// AutoOptimize; the rest are surfaced to operators.
type Suggestion struct {
	Type                SuggestionType
	Priority            int
	Description         string
	ExpectedImprovement string
	AutoApply           bool
}

// Optimization is one applied adjustment.
type Optimization struct {
	Type        SuggestionType
	Description string
}

// OptimizationRecord is one entry in the optimization history.
type OptimizationRecord struct {
	UserID    int64
	Timestamp time.Time
	Applied   []Optimization
}

// OptimizeResult reports the outcome of an optimization pass.
type OptimizeResult struct {
	UserID    int64
	Applied   []Optimization
	Remaining []Suggestion
}

// Suggestions returns the current optimization suggestions for a user,
// derived from their tracked pattern and the system-wide truncation
// rate.
func (m *Monitor) Suggestions(userID int64) []Suggestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suggestionsLocked(userID)
}

func (m *Monitor) suggestionsLocked(userID int64) []Suggestion {
	mc := &m.config.Monitor
	up := m.snapshotLocked(userID)

	var suggestions []Suggestion

	if up.TruncationRate > mc.HighTruncationRate {
		suggestions = append(suggestions, Suggestion{
			Type:                SuggestPromptLength,
			Priority:            4,
			Description:         "responses are frequently truncated",
			ExpectedImprovement: "shorten prompts by roughly 20%",
			AutoApply:           true,
		})
	}

	if up.AvgResponseLength > 0 && up.AvgResponseLength < mc.ShortResponseChars {
		suggestions = append(suggestions, Suggestion{
			Type:                SuggestResponseExpansion,
			Priority:            3,
			Description:         "responses are too short",
			ExpectedImprovement: "increase response detail",
		})
	}

	if up.SatisfactionScore > 0 && up.SatisfactionScore < mc.LowSatisfaction {
		suggestions = append(suggestions, Suggestion{
			Type:                SuggestStyleAdaptation,
			Priority:            5,
			Description:         "low user satisfaction",
			ExpectedImprovement: "adapt response style to preferences",
			AutoApply:           true,
		})
	}

	if m.stats.TotalRequests > 0 {
		systemRate := float64(m.stats.TruncatedResponses) / float64(m.stats.TotalRequests)
		if systemRate > mc.GlobalTruncationRate {
			suggestions = append(suggestions, Suggestion{
				Type:                SuggestGlobalOptimization,
				Priority:            3,
				Description:         "system-wide truncation rate is elevated",
				ExpectedImprovement: "retune global token limits",
				AutoApply:           true,
			})
		}
	}

	return suggestions
}

// AutoOptimize applies every auto-applicable suggestion for the user
// and returns what was applied and what remains for an operator.
// A failed rule is skipped; it never aborts the pass.
func (m *Monitor) AutoOptimize(userID int64) OptimizeResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autoOptimizeLocked(userID)
}

func (m *Monitor) autoOptimizeLocked(userID int64) OptimizeResult {
	up := m.patternsLocked(userID)
	suggestions := m.suggestionsLocked(userID)

	result := OptimizeResult{UserID: userID}
	for _, s := range suggestions {
		if !s.AutoApply {
			result.Remaining = append(result.Remaining, s)
			continue
		}
		applied, err := m.applyLocked(up, s)
		if err != nil {
			m.logger.Error("optimization rule failed",
				"user_id", userID,
				"type", string(s.Type),
				"error", err)
			continue
		}
		result.Applied = append(result.Applied, applied)
	}

	up.LastOptimization = m.now()
	m.recordLocked(OptimizationRecord{
		UserID:    userID,
		Timestamp: up.LastOptimization,
		Applied:   result.Applied,
	})

	return result
}

func (m *Monitor) applyLocked(up *UserPatterns, s Suggestion) (Optimization, error) {
	switch s.Type {
	case SuggestPromptLength:
		switch up.PreferredPromptLength {
		case LengthLong:
			up.PreferredPromptLength = LengthMedium
		case LengthMedium:
			up.PreferredPromptLength = LengthShort
		}
		return Optimization{
			Type:        s.Type,
			Description: fmt.Sprintf("preferred prompt length set to %s", up.PreferredPromptLength),
		}, nil

	case SuggestStyleAdaptation:
		if up.SatisfactionScore < m.config.Monitor.LowSatisfaction {
			up.PreferredStyle = StyleDetailed
		} else {
			up.PreferredStyle = StyleConcise
		}
		return Optimization{
			Type:        s.Type,
			Description: fmt.Sprintf("preferred style set to %s", up.PreferredStyle),
		}, nil

	default:
		return Optimization{}, fmt.Errorf("no automatic handler for %s", s.Type)
	}
}

// maybeOptimizeLocked runs an optimization pass when the cooldown has
// elapsed and the user's pattern warrants it.
func (m *Monitor) maybeOptimizeLocked(userID int64, up *UserPatterns) {
	if m.now().Sub(up.LastOptimization) < m.config.Monitor.OptimizationCooldown {
		return
	}
	snapshot := *up
	if !m.needsOptimization(&snapshot) {
		return
	}
	m.logger.Info("user needs optimization", "user_id", userID)
	m.autoOptimizeLocked(userID)
}

// needsOptimization reports whether a pattern crosses any optimization
// threshold.
func (m *Monitor) needsOptimization(up *UserPatterns) bool {
	mc := &m.config.Monitor
	return up.TruncationRate > mc.HighTruncationRate ||
		(up.SatisfactionScore > 0 && up.SatisfactionScore < mc.LowSatisfaction) ||
		(up.AvgResponseLength > 0 && up.AvgResponseLength < 100)
}

func (m *Monitor) recordLocked(rec OptimizationRecord) {
	m.history = append(m.history, rec)
	if len(m.history) > historyCap {
		m.history = m.history[len(m.history)-historyCap:]
	}
}
