package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/lovabuddy/internal/relay/config"
)

// Cache stores synthesized audio keyed by voice and text.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, audio []byte, ttl time.Duration) error
	Backend() string
	Close() error
}

func cacheKey(prefix, voice, text string) string {
	sum := sha256.Sum256([]byte(voice + "\x00" + text))
	return prefix + hex.EncodeToString(sum[:])
}

type redisCache struct {
	rdb *goredis.Client
}

// NewRedisCache connects and pings Redis.
func NewRedisCache(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.New("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisCache{rdb: rdb}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, audio []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, audio, ttl).Err()
}

func (c *redisCache) Backend() string { return "redis" }

func (c *redisCache) Close() error { return c.rdb.Close() }

type memoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache is the in-process fallback used when Redis is not configured.
func NewMemoryCache(defaultTTL time.Duration) Cache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &memoryCache{c: gocache.New(defaultTTL, defaultTTL/2)}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, audio []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(key, audio, ttl)
	return nil
}

func (m *memoryCache) Backend() string { return "memory" }

func (m *memoryCache) Close() error {
	m.c.Flush()
	return nil
}
