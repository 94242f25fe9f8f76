// Package rediskv provides a Redis-backed implementation of storage.Store,
// used when several client processes on one host share session state.
package rediskv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medistore/medistore/internal/domain/storage"
)

// DefaultOpTimeout bounds every call so the synchronous storage contract holds
// even when the Redis server is slow.
const DefaultOpTimeout = 2 * time.Second

const scanBatch = 256

// Store maps storage keys onto Redis string keys under a fixed prefix.
// SET is atomic per key; Keys and ClearAll only see keys under the prefix.
type Store struct {
	client    redis.UniversalClient
	prefix    string
	opTimeout time.Duration
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix. Defaults to "medistore:kv:".
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithOpTimeout sets the per-operation timeout.
func WithOpTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New wraps an existing client. The caller owns the client's lifecycle.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client:    client,
		prefix:    "medistore:kv:",
		opTimeout: DefaultOpTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping verifies connectivity.
func (s *Store) Ping() error {
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Store) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.opTimeout)
}

// SetString stores value under key without expiry.
func (s *Store) SetString(key, value string) error {
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// GetString returns the value under key.
func (s *Store) GetString(key string) (string, bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

// Remove deletes key and reports whether it existed.
func (s *Store) Remove(key string) (bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	n, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", key, err)
	}
	return n > 0, nil
}

// Contains reports whether key holds a value.
func (s *Store) Contains(key string) (bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("contains %s: %w", key, err)
	}
	return n > 0, nil
}

// Keys returns all keys under the prefix in ascending order.
func (s *Store) Keys() ([]string, error) {
	raw, err := s.scan()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, strings.TrimPrefix(k, s.prefix))
	}
	sort.Strings(keys)
	return keys, nil
}

// ClearAll deletes every key under the prefix.
func (s *Store) ClearAll() error {
	raw, err := s.scan()
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.client.Del(ctx, raw...).Err(); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	s.logger.Debug("redis store cleared", "prefix", s.prefix, "keys", len(raw))
	return nil
}

func (s *Store) scan() ([]string, error) {
	ctx, cancel := s.ctx()
	defer cancel()

	var (
		out    []string
		cursor uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("scan keys: %w", err)
		}
		out = append(out, keys...)
		if next == 0 {
			return out, nil
		}
		cursor = next
	}
}

var _ storage.Store = (*Store)(nil)
