package compress

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"minerva-ai/minerva/pkg/config"
	"minerva-ai/minerva/pkg/tokens"
	"minerva-ai/minerva/pkg/types"
)

// markerUnavailable is returned when nothing fits the budget at all.
const markerUnavailable = "[context unavailable]"

// Compressor reduces a conversation history to fit a token budget while
// preserving the turns most likely to matter. Turns are scored by recency,
// keyword salience, length, and intent-revealing patterns; the highest
// scoring turns are kept greedily until the budget is spent.
type Compressor struct {
	config   *config.CompressionConfig
	counter  tokens.Counter
	patterns []*regexp.Regexp
	logger   *slog.Logger
}

// NewCompressor creates a compressor with the given configuration and
// token counter. Invalid intent patterns are skipped (configuration
// validation catches them at load time; this guards hand-built configs).
func NewCompressor(cfg *config.CompressionConfig, counter tokens.Counter) *Compressor {
	c := &Compressor{
		config:  cfg,
		counter: counter,
		logger:  slog.Default().With("component", "compress"),
	}
	for _, pattern := range cfg.IntentPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			c.logger.Warn("skipping invalid intent pattern", "pattern", pattern, "error", err)
			continue
		}
		c.patterns = append(c.patterns, re)
	}
	return c
}

// Compress fits the given turns into budgetTokens.
//
// When everything fits, the turns are returned unchanged, one per line.
// Otherwise turns are scored, the best are kept greedily, a turn that
// would overflow is truncated to the remaining budget with an ellipsis
// marker, and the result is prefixed with a marker stating how many turns
// survived so the model knows the context is lossy.
//
// Empty input returns an empty string. A non-positive budget returns a
// marker string; Compress never fails.
func (c *Compressor) Compress(turnTexts []string, budgetTokens int) string {
	if len(turnTexts) == 0 {
		return ""
	}
	if budgetTokens <= 0 {
		return markerUnavailable
	}

	turns := c.scoreTurns(turnTexts)

	total := 0
	for _, turn := range turns {
		total += c.counter.Count(turn.Text)
	}
	if total <= budgetTokens {
		return formatTurns(turns)
	}

	// Reserve the marker line up front so the formatted output, prefixes
	// and marker included, stays within the budget.
	marker := fmt.Sprintf("[compressed context: %d of %d messages]\n", len(turns), len(turns))
	selected := c.selectTurns(turns, budgetTokens-c.counter.Count(marker)-1)
	if len(selected) == 0 {
		return markerUnavailable
	}

	var b strings.Builder
	if len(selected) < len(turns) {
		fmt.Fprintf(&b, "[compressed context: %d of %d messages]\n", len(selected), len(turns))
	}
	for _, turn := range selected {
		b.WriteString("Message: ")
		b.WriteString(turn.Text)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// scoreTurns computes importance for every turn. Scores are clamped to
// [0, 1].
func (c *Compressor) scoreTurns(turnTexts []string) []types.Turn {
	turns := make([]types.Turn, len(turnTexts))
	for i, text := range turnTexts {
		turns[i] = types.Turn{
			Text:       text,
			Importance: c.score(text, i, len(turnTexts)),
			Position:   i,
		}
	}
	return turns
}

// score computes the importance of one turn: a weighted sum of recency,
// keyword salience in three tiers, normalized length, and intent-pattern
// matches.
func (c *Compressor) score(text string, position, total int) float64 {
	lower := strings.ToLower(text)

	// Later turns weigh more, linearly.
	importance := float64(position+1) / float64(total) * c.config.RecencyWeight

	importance += float64(countKeywords(lower, c.config.HighKeywords)) * c.config.HighKeywordWeight
	importance += float64(countKeywords(lower, c.config.MediumKeywords)) * c.config.MediumKeywordWeight
	importance += float64(countKeywords(lower, c.config.LowKeywords)) * c.config.LowKeywordWeight

	lengthRatio := float64(len(text)) / float64(c.config.LengthCapChars)
	if lengthRatio > 1 {
		lengthRatio = 1
	}
	importance += lengthRatio * c.config.LengthWeight

	importance += c.patternScore(lower) * c.config.PatternWeight

	if importance > 1 {
		importance = 1
	}
	return importance
}

// patternScore returns the fraction of intent patterns matching the text.
func (c *Compressor) patternScore(lower string) float64 {
	if len(c.patterns) == 0 {
		return 0
	}
	matches := 0
	for _, re := range c.patterns {
		if re.MatchString(lower) {
			matches++
		}
	}
	return float64(matches) / float64(len(c.patterns))
}

// selectTurns greedily accepts turns in descending importance order while
// the running token total stays within budget. Each turn is charged its
// rendered cost: the "Message: " prefix, the trailing newline, and one
// token of rounding slack. A turn that would overflow is truncated to the
// remaining budget (if at least MinPartialTokens remain) and selection
// stops.
func (c *Compressor) selectTurns(turns []types.Turn, budgetTokens int) []types.Turn {
	prioritized := make([]types.Turn, len(turns))
	copy(prioritized, turns)
	sort.SliceStable(prioritized, func(i, j int) bool {
		return prioritized[i].Importance > prioritized[j].Importance
	})

	var selected []types.Turn
	used := 0
	for _, turn := range prioritized {
		cost := c.counter.Count("Message: "+turn.Text+"\n") + 1
		if used+cost <= budgetTokens {
			selected = append(selected, turn)
			used += cost
			continue
		}

		remaining := budgetTokens - used - c.counter.Count("Message: ...\n") - 1
		if remaining > c.config.MinPartialTokens {
			partial := turn
			partial.Text = truncateToTokens(turn.Text, remaining) + "..."
			selected = append(selected, partial)
		}
		break
	}
	return selected
}

// truncateToTokens cuts text to approximately maxTokens using the
// 4-chars-per-token heuristic, breaking at word boundaries.
func truncateToTokens(text string, maxTokens int) string {
	maxChars := maxTokens * 4
	if len(text) <= maxChars {
		return text
	}

	words := strings.Fields(text)
	var kept []string
	length := 0
	for _, word := range words {
		if length+len(word)+1 > maxChars {
			break
		}
		kept = append(kept, word)
		length += len(word) + 1
	}
	return strings.Join(kept, " ")
}

// countKeywords counts how many of the keywords occur in the lowercased
// text. Each keyword counts at most once.
func countKeywords(lower string, keywords []string) int {
	count := 0
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			count++
		}
	}
	return count
}

// formatTurns renders turns unchanged, one per line, numbered from 1.
func formatTurns(turns []types.Turn) string {
	var b strings.Builder
	for i, turn := range turns {
		fmt.Fprintf(&b, "Message %d: %s\n", i+1, turn.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
