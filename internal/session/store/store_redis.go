// Copyright (c) 2026 Sentra. All rights reserved.
// Author: dev@sentra.id

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDurable implements [DurableStore] on a Redis client.
//
// The TTL passed to Set doubles as the store-side expiry: once the token's
// lifetime lapses, Redis forgets it and the startup restore path sees an
// absent session rather than a dead one.
type RedisDurable struct {
	client *redis.Client
}

// NewRedisDurable creates a Redis-backed [DurableStore].
func NewRedisDurable(client *redis.Client) *RedisDurable {
	return &RedisDurable{client: client}
}

// Set stores value under key with the given TTL.
func (r *RedisDurable) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_set_failed: %w", err)
	}
	return nil
}

// Get retrieves the value under key, mapping the Redis miss to [ErrAbsent].
func (r *RedisDurable) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrAbsent
		}
		return "", fmt.Errorf("redis_session_get_failed: %w", err)
	}
	return value, nil
}

// Delete removes the value under key. A miss is not an error.
func (r *RedisDurable) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}
	return nil
}
