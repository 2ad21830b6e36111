package orchestrator

import (
	"strings"
	"unicode/utf8"
)

// continuationMarker flags an explicitly unfinished completion.
const continuationMarker = "to be continued"

// IsTruncated reports whether a completion looks cut off. The
// indicators are OR'd and deliberately permissive: a trailing
// ellipsis, a "to be continued" marker, a missing terminal punctuation
// mark, or a word count below minWords each flag truncation on their
// own. A text ending in terminal punctuation with enough words passes.
func IsTruncated(text string, minWords int) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return true
	}

	if strings.HasSuffix(trimmed, "...") || strings.HasSuffix(trimmed, "…") {
		return true
	}

	if strings.Contains(strings.ToLower(trimmed), continuationMarker) {
		return true
	}

	runes := []rune(trimmed)
	switch runes[len(runes)-1] {
	case '.', '!', '?':
	default:
		return true
	}

	if len(strings.Fields(trimmed)) < minWords {
		return true
	}

	return false
}

// SplitMessage splits text into chunks of at most maxLen characters.
// It prefers breaking at blank lines, then at sentence boundaries, and
// hard-cuts only when a single sentence still exceeds the limit.
func SplitMessage(text string, maxLen int) []string {
	if maxLen <= 0 || len(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	var current string

	for _, paragraph := range strings.Split(text, "\n\n") {
		joined := paragraph
		if current != "" {
			joined = current + "\n\n" + paragraph
		}
		if len(joined) <= maxLen {
			current = joined
			continue
		}

		if current != "" {
			parts = append(parts, strings.TrimSpace(current))
		}

		if len(paragraph) > maxLen {
			subParts := splitParagraph(paragraph, maxLen)
			parts = append(parts, subParts[:len(subParts)-1]...)
			current = subParts[len(subParts)-1]
		} else {
			current = paragraph
		}
	}

	if current != "" {
		parts = append(parts, strings.TrimSpace(current))
	}
	return parts
}

// splitParagraph breaks one overlong paragraph at sentence boundaries,
// hard-cutting any single sentence that still exceeds the limit.
func splitParagraph(paragraph string, maxLen int) []string {
	var parts []string
	var current string

	for _, sentence := range strings.Split(paragraph, ". ") {
		joined := sentence
		if current != "" {
			joined = current + ". " + sentence
		}
		if len(joined) <= maxLen {
			current = joined
			continue
		}

		if current != "" {
			parts = append(parts, strings.TrimSpace(current))
		}

		for len(sentence) > maxLen {
			cut := hardCut(sentence, maxLen)
			parts = append(parts, sentence[:cut])
			sentence = sentence[cut:]
		}
		current = sentence
	}

	if current != "" {
		parts = append(parts, strings.TrimSpace(current))
	}
	if len(parts) == 0 {
		parts = []string{""}
	}
	return parts
}

// hardCut returns the largest byte offset not exceeding maxLen that
// falls on a rune boundary.
func hardCut(s string, maxLen int) int {
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		cut = maxLen
	}
	return cut
}
