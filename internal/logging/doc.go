// Package logging provides structured logging helpers on top of log/slog.
//
// It defines canonical attribute keys used across the codebase and small
// helpers for attaching them, plus PII-safe formatters: user keys are
// logged as truncated hashes and tokens as length indicators only.
package logging
