package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const profileKeyPrefix = "profile:"

// ProfileCache caches resolved Steam profile names in Redis. Every failure
// degrades to a cache miss: an unavailable Redis only costs extra lookups
// against the Steam API, never a failed ingest.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewProfileCache creates a new Redis-backed profile name cache.
func NewProfileCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ProfileCache {
	return &ProfileCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached profile name for a steam id and whether it was
// found.
func (c *ProfileCache) Get(ctx context.Context, steamID string) (string, bool) {
	name, err := c.client.Get(ctx, profileKeyPrefix+steamID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("profile cache read failed", "steam_id", steamID, "error", err)
		}
		return "", false
	}
	return name, true
}

// Set stores a resolved profile name with the configured TTL.
func (c *ProfileCache) Set(ctx context.Context, steamID, name string) {
	if err := c.client.Set(ctx, profileKeyPrefix+steamID, name, c.ttl).Err(); err != nil {
		c.logger.Warn("profile cache write failed", "steam_id", steamID, "error", err)
	}
}
