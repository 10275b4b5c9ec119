// Package cache holds the read-through product cache used by catalog reads.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"grocery/internal/models"
)

const (
	DefaultTTL    = time.Minute
	DefaultPrefix = "grocery:product:"

	// DefaultHold is how long an invalidated id refuses writes. It must
	// outlast the slowest read that could still return the old document.
	DefaultHold = 10 * time.Second
)

// setUnlessHeld writes KEYS[1] only while the hold marker KEYS[2] is absent.
var setUnlessHeld = redis.NewScript(`
if redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
return 1
`)

// ProductCache stores product documents keyed by id. A failed lookup is a
// miss; callers always fall back to the store.
type ProductCache interface {
	Get(ctx context.Context, id primitive.ObjectID) (models.Product, bool)
	Set(ctx context.Context, product models.Product) error
	Invalidate(ctx context.Context, ids ...primitive.ObjectID) error
	Stats() map[string]interface{}
}

type RedisProductCache struct {
	client *redis.Client
	ttl    time.Duration
	hold   time.Duration
	prefix string

	hits   int64
	misses int64
}

type Option func(*RedisProductCache)

func WithTTL(ttl time.Duration) Option {
	return func(c *RedisProductCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithPrefix(prefix string) Option {
	return func(c *RedisProductCache) {
		c.prefix = prefix
	}
}

func NewRedisProductCache(client *redis.Client, opts ...Option) *RedisProductCache {
	c := &RedisProductCache{
		client: client,
		ttl:    DefaultTTL,
		hold:   DefaultHold,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (c *RedisProductCache) key(id primitive.ObjectID) string {
	return c.prefix + id.Hex()
}

func (c *RedisProductCache) holdKey(id primitive.ObjectID) string {
	return c.prefix + "hold:" + id.Hex()
}

func (c *RedisProductCache) Get(ctx context.Context, id primitive.ObjectID) (models.Product, bool) {
	val, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		// redis.Nil or a connection error; both degrade to a miss.
		atomic.AddInt64(&c.misses, 1)
		return models.Product{}, false
	}

	var p models.Product
	if err := json.Unmarshal(val, &p); err != nil {
		atomic.AddInt64(&c.misses, 1)
		return models.Product{}, false
	}

	atomic.AddInt64(&c.hits, 1)
	return p, true
}

func (c *RedisProductCache) Set(ctx context.Context, product models.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	keys := []string{c.key(product.ID), c.holdKey(product.ID)}
	if err := setUnlessHeld.Run(ctx, c.client, keys, data, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("set product in redis: %w", err)
	}
	return nil
}

// Invalidate drops the cached documents and holds each id for c.hold, so a
// read that fetched the old document before the write cannot put it back.
func (c *RedisProductCache) Invalidate(ctx context.Context, ids ...primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		for _, id := range ids {
			pipe.Set(ctx, c.holdKey(id), 1, c.hold)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate products in redis: %w", err)
	}
	return nil
}

func (c *RedisProductCache) Stats() map[string]interface{} {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	total := hits + misses

	stats := map[string]interface{}{
		"hits":          hits,
		"misses":        misses,
		"total_lookups": total,
	}
	if total > 0 {
		stats["hit_rate"] = float64(hits) / float64(total)
	}
	return stats
}

// Noop is used when no Redis URL is configured. Every lookup misses.
type Noop struct{}

func (Noop) Get(context.Context, primitive.ObjectID) (models.Product, bool) {
	return models.Product{}, false
}

func (Noop) Set(context.Context, models.Product) error { return nil }

func (Noop) Invalidate(context.Context, ...primitive.ObjectID) error { return nil }

func (Noop) Stats() map[string]interface{} {
	return map[string]interface{}{"enabled": false}
}
