package webhooks

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers delivery ids long enough to absorb provider retries.
type Deduper interface {
	// FirstSeen reports whether id has not been recorded before, recording
	// it as a side effect.
	FirstSeen(ctx context.Context, id string) (bool, error)
}

const dedupeTTL = 24 * time.Hour

type redisDeduper struct {
	rdb *redis.Client
}

func NewRedisDeduper(rdb *redis.Client) Deduper { return &redisDeduper{rdb: rdb} }

func (d *redisDeduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	return d.rdb.SetNX(ctx, "webhook:seen:"+id, 1, dedupeTTL).Result()
}

type memDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryDeduper() Deduper { return &memDeduper{seen: map[string]struct{}{}} }

func (d *memDeduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.seen[id]; ok {
		return false, nil
	}
	d.seen[id] = struct{}{}
	return true, nil
}
