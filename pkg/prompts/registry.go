package prompts

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"minerva-ai/minerva/pkg/types"
)

// Length is a template length class with an approximate token cost.
type Length string

const (
	LengthShort    Length = "short"    // ~200 tokens
	LengthMedium   Length = "medium"   // ~400 tokens
	LengthLong     Length = "long"     // ~600 tokens
	LengthExtended Length = "extended" // ~800 tokens
)

// Template is one registered prompt template. Text uses {name}
// placeholders filled by Render.
type Template struct {
	// ID uniquely identifies the template.
	ID string

	// Kind is the response kind the template serves.
	Kind types.Kind

	// Length is the template's length class.
	Length Length

	// Text is the template body with {name} placeholders.
	Text string

	// Description is a short operator-facing summary.
	Description string

	// EstimatedTokens is the approximate rendered size used for
	// token-aware selection.
	EstimatedTokens int

	// Active excludes the template from selection when false.
	Active bool
}

// Metrics accumulates usage statistics for one template.
type Metrics struct {
	TemplateID        string
	TotalUses         int64
	SuccessfulUses    int64
	AvgResponseLength float64
	AvgSatisfaction   float64
	LastUsed          time.Time
}

// Registry holds prompt templates keyed by ID and selects the best
// variant for a kind under a token budget. Template text is supplied
// by the caller; the registry owns only selection and formatting.
// All methods are safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
	metrics   map[string]*Metrics
	prefs     map[int64]Length
	logger    *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		templates: make(map[string]*Template),
		metrics:   make(map[string]*Metrics),
		prefs:     make(map[int64]Length),
		logger:    slog.Default().With("component", "prompts"),
	}
}

// Register adds a template. Registering an existing ID replaces the
// template but keeps its accumulated metrics.
func (r *Registry) Register(t Template) error {
	if t.ID == "" {
		return fmt.Errorf("registering template: empty id")
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("registering template %q: unknown kind %q", t.ID, t.Kind)
	}
	if t.Text == "" {
		return fmt.Errorf("registering template %q: empty text", t.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tpl := t
	r.templates[t.ID] = &tpl
	if _, ok := r.metrics[t.ID]; !ok {
		r.metrics[t.ID] = &Metrics{TemplateID: t.ID}
	}
	return nil
}

// NoTemplateError reports that no active template exists for a kind.
type NoTemplateError struct {
	Kind types.Kind
}

// Error implements the error interface.
func (e *NoTemplateError) Error() string {
	return fmt.Sprintf("no active template for kind %q", e.Kind)
}

// Select picks the best active template of the kind that fits the
// available token budget. The length class is chosen from the budget
// (or the user's stored preference); when no template of that class
// fits, the shortest fitting template wins, and when nothing fits at
// all, the shortest template of the kind is returned so a caller
// always gets something usable.
func (r *Registry) Select(kind types.Kind, availableTokens int, userID int64) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []*Template
	for _, t := range r.templates {
		if t.Kind == kind && t.Active {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil, &NoTemplateError{Kind: kind}
	}

	length := r.optimalLength(availableTokens, userID)

	var fitting []*Template
	for _, t := range candidates {
		if t.Length == length && t.EstimatedTokens <= availableTokens {
			fitting = append(fitting, t)
		}
	}
	if len(fitting) == 0 {
		for _, t := range candidates {
			if t.EstimatedTokens <= availableTokens {
				fitting = append(fitting, t)
			}
		}
		sort.Slice(fitting, func(i, j int) bool {
			return fitting[i].EstimatedTokens < fitting[j].EstimatedTokens
		})
	}
	if len(fitting) == 0 {
		shortest := candidates[0]
		for _, t := range candidates[1:] {
			if t.EstimatedTokens < shortest.EstimatedTokens {
				shortest = t
			}
		}
		fitting = []*Template{shortest}
	}

	selected := r.bestLocked(fitting)

	if m, ok := r.metrics[selected.ID]; ok {
		m.TotalUses++
		m.LastUsed = time.Now()
	}

	copied := *selected
	return &copied, nil
}

// optimalLength maps the available budget to a length class, honoring
// a stored user preference first.
func (r *Registry) optimalLength(availableTokens int, userID int64) Length {
	if pref, ok := r.prefs[userID]; ok {
		return pref
	}
	switch {
	case availableTokens >= 600:
		return LengthLong
	case availableTokens >= 400:
		return LengthMedium
	default:
		return LengthShort
	}
}

// bestLocked picks the template with the highest composite score:
// success rate weighted 60%, usage frequency 40%.
func (r *Registry) bestLocked(candidates []*Template) *Template {
	if len(candidates) == 1 {
		return candidates[0]
	}

	best := candidates[0]
	bestScore := -1.0
	for _, t := range candidates {
		score := r.scoreLocked(t.ID)
		if score > bestScore {
			best, bestScore = t, score
		}
	}
	return best
}

func (r *Registry) scoreLocked(id string) float64 {
	m, ok := r.metrics[id]
	if !ok {
		return 0
	}
	total := m.TotalUses
	if total < 1 {
		total = 1
	}
	successScore := float64(m.SuccessfulUses) / float64(total)
	usageScore := float64(m.TotalUses) / 100
	if usageScore > 1 {
		usageScore = 1
	}
	return successScore*0.6 + usageScore*0.4
}

// RecordSuccess records a successful use of a template with the
// resulting response length and optional satisfaction rating.
func (r *Registry) RecordSuccess(id string, responseLength int, satisfaction *float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.metrics[id]
	if !ok {
		return
	}
	m.SuccessfulUses++

	n := float64(m.SuccessfulUses)
	if m.AvgResponseLength == 0 {
		m.AvgResponseLength = float64(responseLength)
	} else {
		m.AvgResponseLength = (m.AvgResponseLength*(n-1) + float64(responseLength)) / n
	}

	if satisfaction != nil {
		if m.AvgSatisfaction == 0 {
			m.AvgSatisfaction = *satisfaction
		} else {
			m.AvgSatisfaction = (m.AvgSatisfaction*(n-1) + *satisfaction) / n
		}
	}
}

// SetPreference stores a user's preferred template length class.
func (r *Registry) SetPreference(userID int64, length Length) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[userID] = length
	r.logger.Info("user prompt preference updated", "user_id", userID, "length", string(length))
}

// Preference returns the user's stored length preference, if any.
func (r *Registry) Preference(userID int64) (Length, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pref, ok := r.prefs[userID]
	return pref, ok
}

// Stats returns a snapshot of per-template metrics.
func (r *Registry) Stats() map[string]Metrics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]Metrics, len(r.metrics))
	for id, m := range r.metrics {
		stats[id] = *m
	}
	return stats
}

// Best returns up to limit active templates of the kind ranked by
// success rate (70%) and satisfaction (30%).
func (r *Registry) Best(kind types.Kind, limit int) []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []*Template
	for _, t := range r.templates {
		if t.Kind == kind && t.Active {
			candidates = append(candidates, t)
		}
	}

	score := func(t *Template) float64 {
		m, ok := r.metrics[t.ID]
		if !ok {
			return 0
		}
		total := m.TotalUses
		if total < 1 {
			total = 1
		}
		successRate := float64(m.SuccessfulUses) / float64(total)
		return successRate*0.7 + (m.AvgSatisfaction/5.0)*0.3
	}
	sort.Slice(candidates, func(i, j int) bool {
		return score(candidates[i]) > score(candidates[j])
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]Template, len(candidates))
	for i, t := range candidates {
		out[i] = *t
	}
	return out
}
