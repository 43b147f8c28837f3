// Package kv provides the local persistent key-value store backing guest
// identity, guest gate counters and pending drafts. Keys are independent:
// there are no transactions across keys, and writes are always whole-value
// replacements.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a string-keyed get/set/remove store backed by Redis.
type Store struct {
	client *redis.Client
	prefix string
}

// New connects to Redis using a redis:// URL and verifies the connection.
func New(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Store{client: client, prefix: "fanpulse:"}, nil
}

// NewWithClient creates a store from an existing Redis client.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client, prefix: "fanpulse:"}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

// Get returns the value for a key and whether it was present.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return val, true, nil
}

// Set stores a value under a key, replacing any previous value. Values are
// stored without expiry; drafts and counters must survive restarts.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

// Del removes a key. Deleting an absent key is not an error.
func (s *Store) Del(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("kv del %q: %w", key, err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
