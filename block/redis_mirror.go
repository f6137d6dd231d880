package block

import (
	"context"
	"crypto/tls"
	"fmt"
	log "log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures RedisMirror's connection. Grounded on
// sop/adapters/redis's Options/DefaultOptions shape.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	TLSConfig *tls.Config
	TTL      time.Duration
}

// DefaultRedisOptions returns options for a local, unauthenticated Redis
// with a one-hour mirror TTL.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{Address: "localhost:6379", TTL: time.Hour}
}

// RedisMirror decorates another Store with an opportunistic Redis cache:
// Read consults Redis first, falling back to the wrapped store and
// populating Redis on a miss; Write and Delete update the wrapped store
// first, then mirror the change to Redis. A Redis failure never fails an
// otherwise-successful operation against the wrapped store, only degrades
// it back to that store's own latency, matching a "tolerate cache failure"
// pattern seen elsewhere in the codebase's caching layers.
type RedisMirror struct {
	pageSize int
	next     Store
	client   *redis.Client
	ttl      time.Duration
}

// NewRedisMirror wraps next with a Redis read-through/write-behind cache.
func NewRedisMirror(pageSize int, next Store, opts RedisOptions) *RedisMirror {
	client := redis.NewClient(&redis.Options{
		Addr:      opts.Address,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	})
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisMirror{pageSize: pageSize, next: next, client: client, ttl: ttl}
}

func (m *RedisMirror) key(id uint32) string {
	return fmt.Sprintf("betree:page:%d", id)
}

func (m *RedisMirror) Create(ctx context.Context, id uint32) error {
	if err := m.next.Create(ctx, id); err != nil {
		return err
	}
	m.mirror(ctx, id, make([]byte, m.pageSize))
	return nil
}

func (m *RedisMirror) Read(ctx context.Context, id uint32) ([]byte, error) {
	var cached []byte
	var hit bool
	err := Retry(ctx, func(ctx context.Context) error {
		b, err := m.client.Get(ctx, m.key(id)).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		cached, hit = b, true
		return nil
	})
	if err != nil {
		log.Warn("redis mirror get failed, falling back to store", "id", id, "error", err)
	} else if hit {
		return cached, nil
	}

	page, err := m.next.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mirror(ctx, id, page)
	return page, nil
}

func (m *RedisMirror) Write(ctx context.Context, id uint32, page []byte) error {
	if err := m.next.Write(ctx, id, page); err != nil {
		return err
	}
	m.mirror(ctx, id, page)
	return nil
}

func (m *RedisMirror) Delete(ctx context.Context, id uint32) error {
	if err := m.next.Delete(ctx, id); err != nil {
		return err
	}
	if err := Retry(ctx, func(ctx context.Context) error {
		return m.client.Del(ctx, m.key(id)).Err()
	}); err != nil {
		log.Warn("redis mirror delete failed", "id", id, "error", err)
	}
	return nil
}

func (m *RedisMirror) Close() error {
	if err := m.client.Close(); err != nil {
		log.Warn("redis mirror close failed", "error", err)
	}
	return m.next.Close()
}

func (m *RedisMirror) mirror(ctx context.Context, id uint32, page []byte) {
	if err := Retry(ctx, func(ctx context.Context) error {
		return m.client.Set(ctx, m.key(id), page, m.ttl).Err()
	}); err != nil {
		log.Warn("redis mirror set failed", "id", id, "error", err)
	}
}
