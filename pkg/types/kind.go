package types

import "fmt"

// Kind identifies the kind of response being requested. It is the single
// closed vocabulary shared by the budget planner (expected-response table),
// the response cache (TTL classes), and the usage monitor. Adding a kind is
// a change here plus the relevant configuration tables, nowhere else.
type Kind string

const (
	// KindExpressAnalysis is a short personality snapshot.
	KindExpressAnalysis Kind = "express_analysis"

	// KindFullAnalysis is a complete multi-section analysis.
	KindFullAnalysis Kind = "full_analysis"

	// KindConsultation is a conversational consultation turn.
	KindConsultation Kind = "consultation"

	// KindCareerConsultation is a career-focused consultation turn.
	KindCareerConsultation Kind = "career_consultation"

	// KindEmotionalSupport is a supportive conversational reply.
	KindEmotionalSupport Kind = "emotional_support"

	// KindSelfEsteemAnalysis is a focused self-esteem assessment.
	KindSelfEsteemAnalysis Kind = "self_esteem_analysis"

	// KindGeneral is the default for uncategorized requests.
	KindGeneral Kind = "general"
)

// Kinds lists all valid response kinds.
var Kinds = []Kind{
	KindExpressAnalysis,
	KindFullAnalysis,
	KindConsultation,
	KindCareerConsultation,
	KindEmotionalSupport,
	KindSelfEsteemAnalysis,
	KindGeneral,
}

// Valid reports whether k is a known response kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// String returns the string form of the kind.
func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a string to a Kind, returning an error for unknown
// values. Callers that want a lenient default should fall back to
// KindGeneral on error.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return KindGeneral, fmt.Errorf("unknown response kind %q", s)
	}
	return k, nil
}
