package translation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ResponseCache is the bounded response cache used by the model-based
// engine. The local LRU level is always active; a Redis level is layered
// behind it when a client is supplied, so repeated translations survive
// process restarts without another paid call.
type ResponseCache struct {
	local    *lruCache
	redis    *redis.Client
	redisTTL time.Duration
	logger   *zap.Logger
}

// ResponseCacheConfig configures a ResponseCache.
type ResponseCacheConfig struct {
	// Capacity bounds the local LRU level.
	Capacity int
	// TTL is the local entry time-to-live; reads refresh an entry's age.
	TTL time.Duration
	// Redis optionally enables the second cache level.
	Redis *redis.Client
	// RedisTTL is the Redis entry time-to-live. Defaults to TTL.
	RedisTTL time.Duration
}

// NewResponseCache creates a response cache.
func NewResponseCache(cfg ResponseCacheConfig, logger *zap.Logger) *ResponseCache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 500
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.RedisTTL <= 0 {
		cfg.RedisTTL = cfg.TTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResponseCache{
		local:    newLRUCache(cfg.Capacity, cfg.TTL),
		redis:    cfg.Redis,
		redisTTL: cfg.RedisTTL,
		logger:   logger.With(zap.String("component", "response_cache")),
	}
}

// ResponseCacheKey derives the cache key for a translation:
// sourceLang:targetLang:normalizedText.
func ResponseCacheKey(sourceLang, targetLang, text string) string {
	return fmt.Sprintf("%s:%s:%s", sourceLang, targetLang, NormalizeText(text))
}

// Get returns the cached translation for key, if present.
func (c *ResponseCache) Get(ctx context.Context, key string) (string, bool) {
	if v, ok := c.local.get(key); ok {
		return v, true
	}

	if c.redis != nil {
		v, err := c.redis.Get(ctx, c.redisKey(key)).Result()
		if err == nil {
			c.local.set(key, v)
			return v, true
		}
		if err != redis.Nil {
			c.logger.Warn("redis cache read failed", zap.Error(err))
		}
	}

	return "", false
}

// Set stores a translation under key in every active level. Redis write
// failures are logged and ignored; the local level is authoritative.
func (c *ResponseCache) Set(ctx context.Context, key, value string) {
	c.local.set(key, value)

	if c.redis != nil {
		if err := c.redis.Set(ctx, c.redisKey(key), value, c.redisTTL).Err(); err != nil {
			c.logger.Warn("redis cache write failed", zap.Error(err))
		}
	}
}

// Len returns the number of entries in the local level.
func (c *ResponseCache) Len() int {
	return c.local.len()
}

func (c *ResponseCache) redisKey(key string) string {
	return "translate:response:" + key
}

// lruCache is a doubly-linked LRU with per-entry expiry. A read refreshes
// both recency and the entry's expiry.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruNode
	head     *lruNode
	tail     *lruNode
}

type lruNode struct {
	key       string
	value     string
	expiresAt time.Time
	prev      *lruNode
	next      *lruNode
}

func newLRUCache(capacity int, ttl time.Duration) *lruCache {
	return &lruCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruNode),
	}
}

func (c *lruCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.items[key]
	if !ok {
		return "", false
	}

	if time.Now().After(node.expiresAt) {
		c.removeNode(node)
		delete(c.items, key)
		return "", false
	}

	node.expiresAt = time.Now().Add(c.ttl)
	c.moveToHead(node)
	return node.value, true
}

func (c *lruCache) set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if node, ok := c.items[key]; ok {
		node.value = value
		node.expiresAt = time.Now().Add(c.ttl)
		c.moveToHead(node)
		return
	}

	if len(c.items) >= c.capacity {
		c.evictTail()
	}

	node := &lruNode{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.items[key] = node
	c.addToHead(node)
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *lruCache) addToHead(node *lruNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *lruCache) removeNode(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
}

func (c *lruCache) moveToHead(node *lruNode) {
	if node == c.head {
		return
	}
	c.removeNode(node)
	c.addToHead(node)
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.items, c.tail.key)
	c.removeNode(c.tail)
}
