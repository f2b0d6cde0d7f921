package queue

import (
	"context"

	"expohall/internal/domain"
)

// Store 离线签到的持久化本地队列
// 记录独立、不可变；只有云端确认（2xx）后才删除
type Store interface {
	// Put 追加一条记录（按捕获时间+唯一 ID 生成键，并发安全，无读改写竞争）
	Put(ctx context.Context, rec *domain.PendingCheckIn) error
	// GetAll 按插入顺序（最旧在前）返回全部待重放记录
	GetAll(ctx context.Context) ([]*domain.PendingCheckIn, error)
	// Delete 按 ID 删除（重放确认后调用）
	Delete(ctx context.Context, id string) error
	// Len 当前队列长度
	Len(ctx context.Context) (int, error)
	Close() error
}
