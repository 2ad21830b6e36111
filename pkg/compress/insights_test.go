package compress

import (
	"strings"
	"testing"
)

func TestKeyInsights(t *testing.T) {
	c, _ := newTestCompressor(t)

	turns := []string{
		"I want to become a team lead",
		"my problem is that deadlines feel impossible",
		"I'm afraid of public speaking",
		"I love painting and long walks",
		"ok",
		"I want it but I'm worried it is too hard",
	}

	insights := c.KeyInsights(turns)

	if got := insights[CategoryGoals]; len(got) != 2 {
		t.Errorf("goals = %v, want the two 'want' turns", got)
	}
	if got := insights[CategoryProblems]; len(got) != 2 {
		t.Errorf("problems = %v, want two matches", got)
	}
	if got := insights[CategoryFears]; len(got) != 2 {
		t.Errorf("fears = %v, want two matches", got)
	}
	if got := insights[CategoryInterests]; len(got) != 1 {
		t.Errorf("interests = %v, want one match", got)
	}

	// A turn can land in several buckets.
	last := turns[len(turns)-1]
	inGoals, inFears := false, false
	for _, text := range insights[CategoryGoals] {
		if text == last {
			inGoals = true
		}
	}
	for _, text := range insights[CategoryFears] {
		if text == last {
			inFears = true
		}
	}
	if !inGoals || !inFears {
		t.Errorf("expected %q in both goals and fears", last)
	}
}

func TestKeyInsightsContext(t *testing.T) {
	c, _ := newTestCompressor(t)

	long := strings.Repeat("plain words without any trigger terms ", 3)
	insights := c.KeyInsights([]string{"short", long})

	if got := insights[CategoryContext]; len(got) != 1 || got[0] != long {
		t.Errorf("context = %v, want only the long turn", got)
	}
}

func TestSummary(t *testing.T) {
	c, _ := newTestCompressor(t)

	t.Run("categories joined in order", func(t *testing.T) {
		got := c.Summary([]string{
			"I want to switch careers",
			"my problem is burnout",
		})
		want := "goals: I want to switch careers | problems: my problem is burnout"
		if got != want {
			t.Errorf("Summary() = %q, want %q", got, want)
		}
	})

	t.Run("no matches falls back to recent turns", func(t *testing.T) {
		got := c.Summary([]string{"one", "two", "three", "four"})
		if !strings.HasPrefix(got, "recent conversation: ") {
			t.Errorf("Summary() = %q, want a recent-conversation digest", got)
		}
		if strings.Contains(got, "one") {
			t.Errorf("Summary() = %q, want only the last three turns", got)
		}
	})

	t.Run("long first match is clipped", func(t *testing.T) {
		long := "I want " + strings.Repeat("x", 200)
		got := c.Summary([]string{long})
		if !strings.Contains(got, "...") {
			t.Errorf("Summary() = %q, want the match clipped with an ellipsis", got)
		}
		if len(got) > len("goals: ")+103 {
			t.Errorf("Summary() is %d chars, want clipped to ~100", len(got))
		}
	})
}
