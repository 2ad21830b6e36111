// Package budget decides how many tokens a request may spend.
//
// The planner enforces the core sizing invariant: prompt tokens plus
// context tokens plus the response reserve never exceed the tier's
// effective maximum. The effective maximum adapts to conversation length
// as a three-band step function (long conversations shrink it to leave
// room for the reply, short ones grow it up to a bounded ceiling).
//
// When the invariant would be violated the planner compresses the context
// down to the remaining allowance. When the prompt alone exhausts the
// budget it degrades the context to a configured minimum instead of
// omitting it, logs the degradation, and carries on - the planner never
// fails a request.
//
// Every computation produces an immutable TokenUsage record with an
// estimated USD cost, priced per 1000 tokens at distinct input/output
// rates weighted 70/30 by default.
package budget
