package cache

import (
	"context"
	"errors"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache miss")

// Entry 缓存的响应（request→response 对中的 response 侧）
type Entry struct {
	Status   int               `json:"status"`
	Header   map[string]string `json:"header,omitempty"`
	Body     []byte            `json:"body"`
	StoredAt int64             `json:"stored_at"` // Unix 秒
}

// TierStore 单个命名缓存层（static / dynamic / precache）
// 条目只由该层对应的策略写入
type TierStore interface {
	Name() string
	Get(ctx context.Context, key string) (*Entry, error) // 未命中返回 ErrMiss
	Put(ctx context.Context, key string, e *Entry) error
}

// TierBackend 缓存层后端：按名称提供层、枚举已存在的层、删除整层
// LevelDB（本地嵌入式）与 Redis 两种实现
type TierBackend interface {
	Tier(name string) TierStore
	Names(ctx context.Context) ([]string, error)
	Drop(ctx context.Context, name string) error
}
