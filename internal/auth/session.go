package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenTTL is the validity window of issued tokens and their registry entries.
const TokenTTL = 24 * time.Hour

// ErrNoSession is returned by SessionRegistry.Get when the user has no
// live session (logged out, superseded, or expired).
var ErrNoSession = errors.New("no active session")

// SessionRegistry is a per-user single-slot token store with expiry.
// One live token per user: Set replaces any previous entry, which is the
// sole mechanism behind single-active-session semantics.
type SessionRegistry interface {
	Set(ctx context.Context, userID, token string, ttl time.Duration) error
	Get(ctx context.Context, userID string) (string, error)
	Delete(ctx context.Context, userID string) error
}

// RedisSessionRegistry stores sessions under user:<id>:token keys whose
// TTL mirrors the remaining token lifetime.
type RedisSessionRegistry struct {
	client *redis.Client
}

func NewRedisSessionRegistry(client *redis.Client) *RedisSessionRegistry {
	return &RedisSessionRegistry{client: client}
}

func sessionKey(userID string) string {
	return fmt.Sprintf("user:%s:token", userID)
}

func (r *RedisSessionRegistry) Set(ctx context.Context, userID, token string, ttl time.Duration) error {
	return r.client.Set(ctx, sessionKey(userID), token, ttl).Err()
}

func (r *RedisSessionRegistry) Get(ctx context.Context, userID string) (string, error) {
	token, err := r.client.Get(ctx, sessionKey(userID)).Result()
	if err == redis.Nil {
		return "", ErrNoSession
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (r *RedisSessionRegistry) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, sessionKey(userID)).Err()
}
