package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	rdb "github.com/redis/go-redis/v9"
)

// DefaultTTL is how long finished task status stays inspectable.
const DefaultTTL = 24 * time.Hour

// Tracker stores task status.  Implementations must be safe for concurrent
// use.
type Tracker interface {
	Put(ctx context.Context, s Status) error
	Get(ctx context.Context, id string) (Status, error)
}

// -----------------------------------------------------------------------------
// In-process tracker
// -----------------------------------------------------------------------------

// MemoryTracker keeps status in a go-cache with a TTL.
type MemoryTracker struct{ c *gocache.Cache }

// NewMemoryTracker returns a tracker whose entries expire after ttl.
func NewMemoryTracker(ttl time.Duration) *MemoryTracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryTracker{c: gocache.New(ttl, 10*time.Minute)}
}

func (m *MemoryTracker) Put(_ context.Context, s Status) error {
	m.c.Set(s.ID, s.clone(), gocache.DefaultExpiration)
	return nil
}

func (m *MemoryTracker) Get(_ context.Context, id string) (Status, error) {
	v, ok := m.c.Get(id)
	if !ok {
		return Status{}, ErrNotFound
	}
	return v.(Status).clone(), nil
}

// -----------------------------------------------------------------------------
// Redis tracker
// -----------------------------------------------------------------------------

const redisPrefix = "vitrine:task:"

// RedisTracker stores status as JSON so every instance, and sitectl, can
// read tasks submitted elsewhere.
type RedisTracker struct {
	c   rdb.UniversalClient
	ttl time.Duration
}

// NewRedisTracker connects to addr/db.
func NewRedisTracker(addr string, db int, ttl time.Duration) *RedisTracker {
	return NewRedisTrackerWithClient(rdb.NewClient(&rdb.Options{Addr: addr, DB: db}), ttl)
}

// NewRedisTrackerWithClient wraps an existing client.
func NewRedisTrackerWithClient(c rdb.UniversalClient, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisTracker{c: c, ttl: ttl}
}

// Ping checks the connection.
func (r *RedisTracker) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

// Close closes the client.
func (r *RedisTracker) Close() error { return r.c.Close() }

func (r *RedisTracker) Put(ctx context.Context, s Status) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", s.ID, err)
	}
	if err := r.c.Set(ctx, redisPrefix+s.ID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("store task %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisTracker) Get(ctx context.Context, id string) (Status, error) {
	raw, err := r.c.Get(ctx, redisPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, rdb.Nil) {
			return Status{}, ErrNotFound
		}
		return Status{}, fmt.Errorf("load task %s: %w", id, err)
	}
	var s Status
	if err := json.Unmarshal(raw, &s); err != nil {
		return Status{}, fmt.Errorf("decode task %s: %w", id, err)
	}
	return s, nil
}
