package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/starford/corkboard/internal/board"
)

// Cache wraps a Store with a Redis read-through cache for workspaces.
// Saves go to the base store first and then evict the cached copy.
type Cache struct {
	base  Store
	redis *redis.Client
	ttl   time.Duration
}

var _ Store = (*Cache)(nil)

// NewCache returns a caching wrapper. A nil client or zero ttl disables
// caching but keeps the pass-through behaviour.
func NewCache(base Store, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("workspace.NewCache: base store is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

func workspaceCacheKey(userID string) string {
	return "corkboard:workspace:" + userID
}

func (c *Cache) Login(ctx context.Context, u User) (User, error) {
	return c.base.Login(ctx, u)
}

func (c *Cache) GetUser(ctx context.Context, id string) (User, error) {
	return c.base.GetUser(ctx, id)
}

func (c *Cache) UpdateUser(ctx context.Context, u User) (User, error) {
	return c.base.UpdateUser(ctx, u)
}

// GetWorkspace serves from Redis when possible.
func (c *Cache) GetWorkspace(ctx context.Context, userID string) (Record, error) {
	if rec, ok := c.load(ctx, userID); ok {
		return rec, nil
	}
	rec, err := c.base.GetWorkspace(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	c.store(ctx, rec)
	return rec, nil
}

// SaveWorkspace writes through and evicts.
func (c *Cache) SaveWorkspace(ctx context.Context, userID string, items []board.Item) (Record, error) {
	rec, err := c.base.SaveWorkspace(ctx, userID, items)
	if err != nil {
		return Record{}, err
	}
	c.evict(ctx, userID)
	return rec, nil
}

func (c *Cache) load(ctx context.Context, userID string) (Record, bool) {
	if c.redis == nil {
		return Record{}, false
	}
	key := workspaceCacheKey(userID)
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the base store without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return Record{}, false
	}
	return rec, true
}

func (c *Cache) store(ctx context.Context, rec Record) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, workspaceCacheKey(rec.UserID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, userID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, workspaceCacheKey(userID)).Result()
}
