// Package cache provides the content-addressed response cache.
//
// Completions are stored under a deterministic SHA-256 key over
// (prompt, user id, context). Identical inputs always map to the same
// entry; any character difference produces a different key. The cache
// does not normalize or fuzzy-match - callers that want whitespace
// insensitivity normalize before calling.
//
// Entries expire under per-kind TTL classes (a full analysis is worth
// caching longer than a consultation turn) with a configurable default.
// Expired entries are removed eagerly on read and swept periodically by
// the cron-scheduled Janitor.
//
// The store is bounded: inserts that push it over capacity synchronously
// evict the least-recently-used entry, so the size invariant holds the
// moment Put returns. All state is process-local and in-memory; nothing
// survives a restart, which is an accepted tradeoff for a cache whose
// only job is cutting cost and latency.
package cache
