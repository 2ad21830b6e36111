// Package prompts manages a registry of prompt templates with
// token-aware variant selection.
//
// Templates are registered by the caller (their text is domain
// content, not library code) and keyed by kind and length class.
// Select picks the best fitting variant for a token budget using
// accumulated success metrics, and Render fills {name} placeholders
// with an explicit error for missing variables.
package prompts
