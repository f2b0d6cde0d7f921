package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 文档不存在
var ErrNotFound = errors.New("document not found")

// Document 文档快照
type Document struct {
	ID        string
	Fields    map[string]any
	UpdatedAt time.Time
}

// Filter 等值过滤条件（Query 用）
type Filter struct {
	Field string
	Value any
}

// Store 远端文档库抽象（云端事务性文档存储）
// 所有上层逻辑只依赖这五个操作，PostgreSQL/内存实现可互换
type Store interface {
	// Get 按 ID 读取文档；不存在返回 ErrNotFound
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Query 按等值条件查询集合
	Query(ctx context.Context, collection string, filters ...Filter) ([]*Document, error)
	// Set 写入文档；merge=true 时按字段合并，否则整体替换
	Set(ctx context.Context, collection, id string, fields map[string]any, merge bool) error
	// Delete 删除文档（不存在时不报错）
	Delete(ctx context.Context, collection, id string) error
	// Subscribe 订阅集合变更，返回取消函数
	Subscribe(ctx context.Context, collection string, onChange func([]*Document)) (func(), error)
}
