package compress

import "strings"

// Category labels a group of related turns extracted from a conversation.
type Category string

const (
	CategoryGoals     Category = "goals"
	CategoryProblems  Category = "problems"
	CategoryFears     Category = "fears"
	CategoryInterests Category = "interests"
	CategoryContext   Category = "context"
)

// Insight keyword sets. A turn belongs to every category whose keywords it
// contains; longer turns additionally land in CategoryContext.
var insightKeywords = map[Category][]string{
	CategoryGoals:     {"want", "dream", "goal", "planning", "plan to"},
	CategoryProblems:  {"problem", "difficult", "hard", "struggle", "can't manage"},
	CategoryFears:     {"afraid", "scared", "anxious", "worried", "worry"},
	CategoryInterests: {"interested", "like", "love", "enjoy", "passionate"},
}

// contextMinChars is the length above which a turn counts as substantive
// context regardless of keywords.
const contextMinChars = 50

// KeyInsights classifies turns into goal/problem/fear/interest buckets by
// keyword membership. This is classification, not compression: turns keep
// their input order within each bucket and a turn may appear in several.
func (c *Compressor) KeyInsights(turnTexts []string) map[Category][]string {
	insights := map[Category][]string{
		CategoryGoals:     nil,
		CategoryProblems:  nil,
		CategoryFears:     nil,
		CategoryInterests: nil,
		CategoryContext:   nil,
	}

	for _, text := range turnTexts {
		lower := strings.ToLower(text)
		for category, keywords := range insightKeywords {
			if countKeywords(lower, keywords) > 0 {
				insights[category] = append(insights[category], text)
			}
		}
		if len(text) > contextMinChars {
			insights[CategoryContext] = append(insights[CategoryContext], text)
		}
	}

	return insights
}

// Summary builds a one-line digest of the conversation from the first
// turn in each insight category. If no category matched, the most recent
// turns are summarized instead.
func (c *Compressor) Summary(turnTexts []string) string {
	insights := c.KeyInsights(turnTexts)

	var parts []string
	for _, category := range []Category{CategoryGoals, CategoryProblems, CategoryFears, CategoryInterests} {
		if matched := insights[category]; len(matched) > 0 {
			parts = append(parts, string(category)+": "+clip(matched[0], 100))
		}
	}

	if len(parts) == 0 {
		recent := turnTexts
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		parts = append(parts, "recent conversation: "+clip(strings.Join(recent, " "), 200))
	}

	return strings.Join(parts, " | ")
}

// clip shortens s to at most n characters, appending an ellipsis when cut.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
