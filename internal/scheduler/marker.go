package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Marker remembers which reminders were already emitted and keeps two
// instances from sweeping at the same time.
type Marker interface {
	// Mark records key and reports true only for the first call within the
	// marker's retention period.
	Mark(ctx context.Context, key string) (bool, error)
	// Lock takes the named lock for ttl.  It reports false when someone
	// else holds it.
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// RedisMarker keeps markers and the sweep lock in Redis with SETNX.
type RedisMarker struct {
	rdb   redis.Cmdable
	ttl   time.Duration
	token string
}

func NewRedisMarker(rdb redis.Cmdable, ttl time.Duration) *RedisMarker {
	return &RedisMarker{rdb: rdb, ttl: ttl, token: uuid.NewString()}
}

func (m *RedisMarker) Mark(ctx context.Context, key string) (bool, error) {
	return m.rdb.SetNX(ctx, key, 1, m.ttl).Result()
}

func (m *RedisMarker) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return m.rdb.SetNX(ctx, key, m.token, ttl).Result()
}

// unlockScript deletes the lock only while it still carries our token.
var unlockScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

func (m *RedisMarker) Unlock(ctx context.Context, key string) error {
	return unlockScript.Run(ctx, m.rdb, []string{key}, m.token).Err()
}

// MemoryMarker is the single-instance fallback used when Redis is not
// configured.
type MemoryMarker struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	seen  map[string]time.Time
	locks map[string]time.Time
}

func NewMemoryMarker(ttl time.Duration) *MemoryMarker {
	return &MemoryMarker{ttl: ttl, now: time.Now, seen: map[string]time.Time{}, locks: map[string]time.Time{}}
}

func (m *MemoryMarker) Mark(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, exp := range m.seen {
		if !now.Before(exp) {
			delete(m.seen, k)
		}
	}
	if _, ok := m.seen[key]; ok {
		return false, nil
	}
	m.seen[key] = now.Add(m.ttl)
	return true, nil
}

func (m *MemoryMarker) Lock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if exp, ok := m.locks[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.locks[key] = now.Add(ttl)
	return true, nil
}

func (m *MemoryMarker) Unlock(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}
