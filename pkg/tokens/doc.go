// Package tokens provides token estimation for LLM requests.
//
// Token counts drive every sizing decision in the core: budget planning,
// context compression, and cost estimation all consume the same Counter.
// The estimate therefore has to be cheap and must never fail; an estimate
// that is a few percent off is always preferable to an error.
//
// The default HeuristicCounter uses model-specific characters-per-token
// ratios (about 4 characters per token for GPT-class models, 3.5 for
// Claude). An exact Encoder can be attached when a matching tokenizer is
// available; encoding failures silently fall back to the heuristic.
//
//	counter := tokens.NewHeuristicCounter(&cfg.Tokens, "gpt-4")
//	n := counter.Count("Hello, world!")
package tokens
