package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	rdb "github.com/redis/go-redis/v9"
)

// Store is a byte cache with per-entry TTL.
type Store interface {
	Get(k string) ([]byte, bool)
	Set(k string, v []byte, ttl time.Duration)
	Delete(k string)
}

// Memory is an in-process Store.
type Memory struct{ c *gocache.Cache }

// NewMemory creates an in-process store whose entries expire after defaultTTL
// unless Set gives another TTL.
func NewMemory(defaultTTL time.Duration) *Memory {
	return &Memory{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *Memory) Get(k string) ([]byte, bool) {
	v, ok := m.c.Get(k)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (m *Memory) Set(k string, v []byte, ttl time.Duration) { m.c.Set(k, v, ttl) }
func (m *Memory) Delete(k string)                           { m.c.Delete(k) }

// Redis is a Store shared between gateway replicas.
type Redis struct {
	c       *rdb.Client
	prefix  string
	timeout time.Duration
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := rdb.NewClient(&rdb.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return &Redis{c: client, prefix: cfg.Prefix, timeout: 2 * time.Second}, nil
}

func (r *Redis) Get(k string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	b, err := r.c.Get(ctx, r.prefix+k).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(k string, v []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	_ = r.c.Set(ctx, r.prefix+k, v, ttl).Err()
}

func (r *Redis) Delete(k string) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	_ = r.c.Del(ctx, r.prefix+k).Err()
}

// Close releases the Redis connection pool.
func (r *Redis) Close() error { return r.c.Close() }

// Ping checks that Redis answers.
func (r *Redis) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }
