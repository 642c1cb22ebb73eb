package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "hospital-account-service/internal/domain/account"
)

// UserCache defines the interface for user caching operations.
type UserCache interface {
	// Get retrieves a user from cache by username.
	// Returns nil if user is not found in cache.
	Get(ctx context.Context, username string) (*domain.User, error)

	// Version returns the invalidation counter of a username, 0 when unset.
	// Readers take it before loading from the database.
	Version(ctx context.Context, username string) (int64, error)

	// Set stores a user with the configured TTL only while the invalidation
	// counter still equals version. It reports whether the entry was written.
	Set(ctx context.Context, user *domain.User, version int64) (bool, error)

	// Delete removes a user from cache by username and bumps its counter.
	Delete(ctx context.Context, username string) error
}

// versionTTL bounds how long an idle invalidation counter is kept.
const versionTTL = 24 * time.Hour

// setIfVersionScript writes KEYS[1] only when the counter in KEYS[2] matches.
// ARGV: payload, ttl in milliseconds (0 keeps no expiry), expected version.
var setIfVersionScript = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if not current then
  current = '0'
end
if current ~= ARGV[3] then
  return 0
end
local ttl = tonumber(ARGV[2])
if ttl > 0 then
  redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
else
  redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// RedisUserCache implements UserCache using Redis as the backing store.
type RedisUserCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisUserCache creates a new Redis-backed user cache.
func NewRedisUserCache(client *redis.Client, ttl time.Duration, log *zap.Logger) UserCache {
	return &RedisUserCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

// CacheKey generates the Redis key for a username.
func CacheKey(username string) string {
	return fmt.Sprintf("account:user:%s", username)
}

// VersionKey generates the Redis key of the invalidation counter.
func VersionKey(username string) string {
	return CacheKey(username) + ":ver"
}

// Get retrieves a user from Redis cache.
func (c *RedisUserCache) Get(ctx context.Context, username string) (*domain.User, error) {
	data, err := c.client.Get(ctx, CacheKey(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("cache miss", zap.String("username", username))
		return nil, nil
	}
	if err != nil {
		c.log.Error("failed to get from cache", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		c.log.Error("failed to unmarshal cached user", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	c.log.Debug("cache hit", zap.String("username", username))
	return &user, nil
}

// Version reads the invalidation counter of a username.
func (c *RedisUserCache) Version(ctx context.Context, username string) (int64, error) {
	v, err := c.client.Get(ctx, VersionKey(username)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		c.log.Error("failed to read cache version", zap.String("username", username), zap.Error(err))
		return 0, err
	}
	return v, nil
}

// Set stores a user in Redis unless it was invalidated after version was read.
func (c *RedisUserCache) Set(ctx context.Context, user *domain.User, version int64) (bool, error) {
	if user == nil {
		return false, errors.New("cannot cache nil user")
	}

	data, err := json.Marshal(user)
	if err != nil {
		c.log.Error("failed to marshal user for cache", zap.String("username", user.Username), zap.Error(err))
		return false, err
	}

	written, err := setIfVersionScript.Run(ctx, c.client,
		[]string{CacheKey(user.Username), VersionKey(user.Username)},
		data, c.ttl.Milliseconds(), strconv.FormatInt(version, 10),
	).Int()
	if err != nil {
		c.log.Error("failed to set cache", zap.String("username", user.Username), zap.Error(err))
		return false, err
	}

	if written == 0 {
		c.log.Debug("skipped caching invalidated user", zap.String("username", user.Username), zap.Int64("version", version))
		return false, nil
	}
	c.log.Debug("cached user", zap.String("username", user.Username), zap.Duration("ttl", c.ttl))
	return true, nil
}

// Delete removes a user from Redis and bumps its invalidation counter in one
// transaction, so loads that started earlier cannot repopulate the entry.
func (c *RedisUserCache) Delete(ctx context.Context, username string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, CacheKey(username))
		pipe.Incr(ctx, VersionKey(username))
		pipe.Expire(ctx, VersionKey(username), versionTTL)
		return nil
	})
	if err != nil {
		c.log.Error("failed to delete from cache", zap.String("username", username), zap.Error(err))
		return err
	}

	c.log.Debug("deleted from cache", zap.String("username", username))
	return nil
}
