package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache wraps the Redis client with the operations the chat pipeline
// needs: plain keys, sets for presence, and sorted sets for the message
// buffer. Constructed once in main and passed by reference; there is no
// package-level client.
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

// ScoredMember is one sorted-set entry with its score.
type ScoredMember struct {
	Member string
	Score  float64
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ctx: context.Background(),
	}
}

// Get retrieves a value from Redis. A missing key returns (nil, nil).
func (c *RedisCache) Get(key string) ([]byte, error) {
	val, err := c.client.Get(c.ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return val, err
}

// Set stores a value in Redis. ttl == 0 means no expiration.
func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
	return c.client.Set(c.ctx, key, value, ttl).Err()
}

// Delete removes a key from Redis
func (c *RedisCache) Delete(key string) error {
	return c.client.Del(c.ctx, key).Err()
}

// Incr atomically increments an integer key
func (c *RedisCache) Incr(key string) (int64, error) {
	return c.client.Incr(c.ctx, key).Result()
}

// SetAdd adds members to a Redis set
func (c *RedisCache) SetAdd(key string, members ...interface{}) error {
	return c.client.SAdd(c.ctx, key, members...).Err()
}

// SetRemove removes members from a Redis set
func (c *RedisCache) SetRemove(key string, members ...interface{}) error {
	return c.client.SRem(c.ctx, key, members...).Err()
}

// SetMembers returns all members of a Redis set
func (c *RedisCache) SetMembers(key string) ([]string, error) {
	return c.client.SMembers(c.ctx, key).Result()
}

// SetIsMember checks if a value is a member of a set
func (c *RedisCache) SetIsMember(key string, member interface{}) (bool, error) {
	return c.client.SIsMember(c.ctx, key, member).Result()
}

// SetCard returns the number of members in a set
func (c *RedisCache) SetCard(key string) (int64, error) {
	return c.client.SCard(c.ctx, key).Result()
}

// SortedSetAdd adds one member with its score
func (c *RedisCache) SortedSetAdd(key string, score float64, member string) error {
	return c.client.ZAdd(c.ctx, key, redis.Z{Score: score, Member: member}).Err()
}

// SortedSetRangeByScore returns members with min < score <= +inf in ascending
// score order. The lower bound is exclusive, which is what the flusher's
// "strictly after the last synced score" contract needs.
func (c *RedisCache) SortedSetRangeByScore(key, min string) ([]ScoredMember, error) {
	zs, err := c.client.ZRangeByScoreWithScores(c.ctx, key, &redis.ZRangeBy{
		Min: min,
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}
	members := make([]ScoredMember, 0, len(zs))
	for _, z := range zs {
		s, _ := z.Member.(string)
		members = append(members, ScoredMember{Member: s, Score: z.Score})
	}
	return members, nil
}

// SortedSetRemoveRangeByScore removes members with -inf <= score <= max (inclusive)
func (c *RedisCache) SortedSetRemoveRangeByScore(key, max string) error {
	return c.client.ZRemRangeByScore(c.ctx, key, "-inf", max).Err()
}

// SortedSetCard returns the number of members in a sorted set
func (c *RedisCache) SortedSetCard(key string) (int64, error) {
	return c.client.ZCard(c.ctx, key).Result()
}

// Ping checks if Redis is alive
func (c *RedisCache) Ping() error {
	return c.client.Ping(c.ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
