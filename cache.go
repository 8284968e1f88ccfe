package auth

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisNotifier invalidates cached user lookups in Redis. The router
// layer caches users under id, email, and api key; any credential
// affecting change must clear all three before the new state persists
// so a stale lookup cannot be served.
type RedisNotifier struct {
	client *redis.Client
	prefix string
	logger Logger
}

// NewRedisNotifier creates a best effort cache notifier.
func NewRedisNotifier(client *redis.Client, prefix string) *RedisNotifier {
	if prefix == "" {
		prefix = "user"
	}
	return &RedisNotifier{
		client: client,
		prefix: prefix,
		logger: defLogger{},
	}
}

func (n *RedisNotifier) WithLogger(logger Logger) *RedisNotifier {
	if logger != nil {
		n.logger = logger
	}
	return n
}

// Invalidate removes every cached lookup key for the user. Failures are
// logged and swallowed: the cache is a side channel, not a dependency.
func (n *RedisNotifier) Invalidate(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	keys := []string{
		n.prefix + ":id:" + user.ID.String(),
		n.prefix + ":email:" + user.Email,
	}
	if user.APIKey != "" {
		keys = append(keys, n.prefix+":apikey:"+user.APIKey)
	}

	if err := n.client.Del(ctx, keys...).Err(); err != nil {
		n.logger.Warn("cache invalidation error for user %s: %v", user.ID, err)
	}
}

var _ CacheNotifier = (*RedisNotifier)(nil)

// NoopCacheNotifier is the default when no cache side channel exists.
type NoopCacheNotifier struct{}

func (NoopCacheNotifier) Invalidate(context.Context, *User) {}

var _ CacheNotifier = NoopCacheNotifier{}

func normalizeCacheNotifier(n CacheNotifier) CacheNotifier {
	if n == nil {
		return NoopCacheNotifier{}
	}
	return n
}
