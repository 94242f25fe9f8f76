package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// SetObject JSON-encodes v and stores it under key.
func SetObject[T any](s Store, key string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.SetString(key, string(data))
}

// LookupObject decodes the JSON value stored under key.
// A missing key or a malformed payload both report ok=false with a nil error;
// only a failure of the underlying store is returned as an error.
func LookupObject[T any](s Store, key string) (v T, ok bool, err error) {
	raw, found, err := s.GetString(key)
	if err != nil {
		return v, false, err
	}
	if !found || raw == "" {
		return v, false, nil
	}
	var decoded T
	if json.Unmarshal([]byte(raw), &decoded) != nil {
		return v, false, nil
	}
	return decoded, true, nil
}

// GetObject is LookupObject for passive reads: store failures are reported
// as absence so a broken disk never takes down a UI decision.
func GetObject[T any](s Store, key string) (T, bool) {
	v, ok, err := LookupObject[T](s, key)
	if err != nil {
		var zero T
		return zero, false
	}
	return v, ok
}

// SetNumber stores f in its shortest decimal form.
func SetNumber(s Store, key string, f float64) error {
	return s.SetString(key, strconv.FormatFloat(f, 'g', -1, 64))
}

// GetNumber reads a number written by SetNumber.
func GetNumber(s Store, key string) (float64, bool) {
	raw, ok, err := s.GetString(key)
	if err != nil || !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// SetBool stores b as "true" or "false".
func SetBool(s Store, key string, b bool) error {
	return s.SetString(key, strconv.FormatBool(b))
}

// GetBool reads a boolean written by SetBool.
func GetBool(s Store, key string) (bool, bool) {
	raw, ok, err := s.GetString(key)
	if err != nil || !ok {
		return false, false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return b, true
}

// GetStringOrEmpty returns the value under key, or "" when it is absent or
// the store fails.
func GetStringOrEmpty(s Store, key string) string {
	v, ok, err := s.GetString(key)
	if err != nil || !ok {
		return ""
	}
	return v
}

// RemoveAll removes each key, returning the first error encountered after
// attempting every key.
func RemoveAll(s Store, keys ...string) error {
	var firstErr error
	for _, k := range keys {
		if _, err := s.Remove(k); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove %s: %w", k, err)
		}
	}
	return firstErr
}
