// Package ctxkey defines shared context key types used across multiple packages.
// This package should have no dependencies on other internal packages to avoid import cycles.
package ctxkey

// LoggerKey is the context key type for the enriched logger.
// Commands store a logger carrying the command name; the API client adds the
// request ID for the lifetime of one call.
type LoggerKey struct{}

// RequestIDKey is the context key type for a caller-chosen X-Request-ID.
// When absent the API client generates one per request.
type RequestIDKey struct{}
