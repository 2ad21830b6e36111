// Package logging configures structured logging for the completion
// pipeline on top of log/slog.
//
// New builds a logger from config.LoggingConfig; Setup additionally
// installs it as the process default so components constructed
// afterwards inherit it. When PII redaction is enabled, a wrapping
// handler masks emails, phone numbers, long digit runs, and values of
// sensitive keys before any record reaches the output.
package logging
