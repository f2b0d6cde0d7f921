package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-redis/redis/v8"
)

// RedisTiers 缓存层的 Redis 后端（多网关共享一套缓存时使用）
// 键格式 "tier:<name>:<key>"
type RedisTiers struct {
	c *redis.Client
}

func NewRedisTiers(c *redis.Client) *RedisTiers {
	return &RedisTiers{c: c}
}

func (t *RedisTiers) Tier(name string) TierStore {
	return &redisTier{c: t.c, name: name}
}

func (t *RedisTiers) Names(ctx context.Context) ([]string, error) {
	keys, err := scanKeys(ctx, t.c, "tier:*")
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	names := make([]string, 0)
	for _, k := range keys {
		parts := strings.SplitN(k, ":", 3)
		if len(parts) < 3 {
			continue
		}
		if !seen[parts[1]] {
			seen[parts[1]] = true
			names = append(names, parts[1])
		}
	}
	return names, nil
}

func (t *RedisTiers) Drop(ctx context.Context, name string) error {
	keys, err := scanKeys(ctx, t.c, "tier:"+name+":*")
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := t.c.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to drop tier %s: %w", name, err)
	}
	return nil
}

func scanKeys(ctx context.Context, c *redis.Client, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		k, next, err := c.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan cache keys: %w", err)
		}
		keys = append(keys, k...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

type redisTier struct {
	c    *redis.Client
	name string
}

func (t *redisTier) Name() string { return t.name }

func (t *redisTier) key(key string) string {
	return "tier:" + t.name + ":" + key
}

func (t *redisTier) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := t.c.Get(ctx, t.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, ErrMiss
	}
	return &e, nil
}

func (t *redisTier) Put(ctx context.Context, key string, e *Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	// 缓存代替换是唯一的过期路径，不设 TTL
	if err := t.c.Set(ctx, t.key(key), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}
