// Package compress reduces conversation history to fit a token budget.
//
// Compression exists to restore the budget invariant (prompt + context +
// response reserve within the tier maximum) when a conversation outgrows
// it. Turns are scored by an importance heuristic combining recency,
// keyword salience in three weighted tiers, normalized length, and
// intent-revealing sentence patterns. The highest scoring turns are kept
// greedily; when only part of the budget remains, the last turn is
// truncated rather than dropped, and the output carries a marker telling
// the model that context was lost.
//
// The scoring weights are tunable configuration, not load-bearing
// precision.
//
// The package also exposes KeyInsights and Summary: keyword-set
// classification of turns into goals, problems, fears, and interests,
// used for conversation digests. That is classification, not compression,
// and preserves input order.
package compress
