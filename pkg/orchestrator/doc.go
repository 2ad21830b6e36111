// Package orchestrator is the control-flow hub of the completion
// pipeline.
//
// Complete runs one request through: cache short-circuit, budget
// planning, the provider call under timeout, truncation detection and
// one continuation attempt, platform-length chunking, cache write, and
// usage tracking. The boundary is fail-soft: provider failures become
// configured apology texts, so callers always receive text, never an
// error.
//
// Each user's requests are serialized to keep their rolling
// conversation history in request order; different users' requests run
// concurrently.
package orchestrator
