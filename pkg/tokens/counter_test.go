package tokens

import (
	"errors"
	"strings"
	"testing"

	"minerva-ai/minerva/pkg/config"
)

func testTokensConfig() *config.TokensConfig {
	cfg := config.DefaultConfig()
	return &cfg.Tokens
}

func TestHeuristicCounterCount(t *testing.T) {
	counter := NewHeuristicCounter(testTokensConfig(), "gpt-4")

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty text counts as zero", text: "", want: 0},
		{name: "short text counts as at least one token", text: "hi", want: 1},
		{name: "four chars per token", text: strings.Repeat("abcd", 10), want: 10},
		{name: "remainder rounds down", text: strings.Repeat("a", 43), want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := counter.Count(tt.text); got != tt.want {
				t.Errorf("Count(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestHeuristicCounterModelRatios(t *testing.T) {
	cfg := &config.TokensConfig{
		Models: map[string]float64{
			"gpt-4":   4.0,
			"claude":  3.5,
			"default": 5.0,
		},
	}

	text := strings.Repeat("x", 140)

	tests := []struct {
		name  string
		model string
		want  int
	}{
		{name: "exact match", model: "gpt-4", want: 35},
		{name: "prefix match", model: "gpt-4-turbo", want: 35},
		{name: "claude ratio", model: "claude", want: 40},
		{name: "unknown model uses default", model: "mistral", want: 28},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := NewHeuristicCounter(cfg, tt.model)
			if got := counter.Count(text); got != tt.want {
				t.Errorf("Count() with model %q = %d, want %d", tt.model, got, tt.want)
			}
		})
	}
}

func TestHeuristicCounterCountAll(t *testing.T) {
	counter := NewHeuristicCounter(testTokensConfig(), "gpt-4")

	texts := []string{strings.Repeat("abcd", 5), strings.Repeat("abcd", 3), ""}
	if got := counter.CountAll(texts); got != 8 {
		t.Errorf("CountAll() = %d, want 8", got)
	}
}

type fakeEncoder struct {
	ids []int
	err error
}

func (e *fakeEncoder) Encode(string) ([]int, error) {
	return e.ids, e.err
}

func TestHeuristicCounterWithEncoder(t *testing.T) {
	t.Run("encoder result is used when it succeeds", func(t *testing.T) {
		counter := NewHeuristicCounter(testTokensConfig(), "gpt-4").
			WithEncoder(&fakeEncoder{ids: []int{1, 2, 3}})
		if got := counter.Count("some text of any length"); got != 3 {
			t.Errorf("Count() = %d, want 3", got)
		}
	})

	t.Run("encoder failure falls back to heuristic", func(t *testing.T) {
		counter := NewHeuristicCounter(testTokensConfig(), "gpt-4").
			WithEncoder(&fakeEncoder{err: errors.New("vocabulary mismatch")})
		if got := counter.Count(strings.Repeat("abcd", 10)); got != 10 {
			t.Errorf("Count() = %d, want 10", got)
		}
	})
}
