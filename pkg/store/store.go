package store

import (
	"context"
	"time"

	"minerva-ai/minerva/pkg/types"
)

// Analysis is one finished analysis outcome written by the
// orchestration layer.
type Analysis struct {
	// ID is the record identifier (UUID).
	ID string

	// UserID is the owning user.
	UserID int64

	// Name is the user's display name at the time of the analysis.
	Name string

	// Kind is the analysis kind. One record per (user, kind) is kept;
	// saving again replaces the content.
	Kind types.Kind

	// Content is the analysis text.
	Content string

	// PaymentStatus records the tier the analysis was produced under.
	PaymentStatus string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists finished analysis outcomes. The completion core only
// writes here after a request fully succeeds; it never reads on the
// hot path.
type Store interface {
	// SaveAnalysis upserts the record for (analysis.UserID,
	// analysis.Kind) and returns the record ID.
	SaveAnalysis(ctx context.Context, analysis Analysis) (string, error)

	// UserAnalyses returns a user's records, newest first.
	UserAnalyses(ctx context.Context, userID int64) ([]Analysis, error)

	// DeleteUser removes all records for a user.
	DeleteUser(ctx context.Context, userID int64) error

	// Close releases the underlying resources.
	Close() error
}
