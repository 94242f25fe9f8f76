// Package storage defines the persistent key-value port used for session and
// preference state, plus typed helpers layered on top of it.
//
// Store implementations have synchronous semantics: every call is served from
// local storage (or a bounded-latency backend) without a network round-trip
// to the API, so callers may use it for fast checks before first render.
package storage

import "errors"

// Store is a durable string key-value store.
//
// Every write must be durable when the call returns and atomic per key: a
// concurrent reader sees either the previous value or the new one, never a
// partial value. There is no cross-key transaction guarantee.
type Store interface {
	// SetString stores value under key, overwriting any previous value.
	SetString(key, value string) error

	// GetString returns the value stored under key. The boolean is false
	// when the key is absent, which is distinct from an empty value.
	GetString(key string) (string, bool, error)

	// Remove deletes key. It is idempotent and reports whether a value existed.
	Remove(key string) (bool, error)

	// ClearAll removes every key owned by the store.
	ClearAll() error

	// Contains reports whether key holds a value.
	Contains(key string) (bool, error)

	// Keys returns all keys in ascending order.
	Keys() ([]string, error)
}

// ErrClosed is returned by stores that have been closed.
var ErrClosed = errors.New("storage closed")
